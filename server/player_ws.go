package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"otakuwave/core/library"
	"otakuwave/core/playback"
	"otakuwave/logger"
	"otakuwave/model"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	playerWriteWait  = 10 * time.Second
	playerPongWait   = 60 * time.Second
	playerPingPeriod = 30 * time.Second
	playerReadLimit  = 4096
	playerSendBuffer = 64
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PlayerMessageType names player websocket messages. play, pause and seek
// travel both ways: from the browser they are commands for the controller,
// from the server they are commands for the browser's audio element.
type PlayerMessageType string

const (
	// browser -> server
	MsgTypeSelect         PlayerMessageType = "select"
	MsgTypeToggle         PlayerMessageType = "toggle"
	MsgTypeNext           PlayerMessageType = "next"
	MsgTypePrev           PlayerMessageType = "prev"
	MsgTypeClose          PlayerMessageType = "close"
	MsgTypeRefresh        PlayerMessageType = "refresh"
	MsgTypePing           PlayerMessageType = "ping"
	MsgTypeTimeUpdate     PlayerMessageType = "timeupdate"
	MsgTypeLoadedMetadata PlayerMessageType = "loadedmetadata"
	MsgTypeEnded          PlayerMessageType = "ended"

	// both directions
	MsgTypePlay  PlayerMessageType = "play"
	MsgTypePause PlayerMessageType = "pause"
	MsgTypeSeek  PlayerMessageType = "seek"

	// server -> browser
	MsgTypeSession PlayerMessageType = "session"
	MsgTypeLoad    PlayerMessageType = "load"
	MsgTypeState   PlayerMessageType = "state"
	MsgTypeError   PlayerMessageType = "error"
	MsgTypePong    PlayerMessageType = "pong"
)

// playerCommand is a message from the browser.
type playerCommand struct {
	Type        PlayerMessageType `json:"type"`
	TrackID     int64             `json:"trackId,omitempty"`
	Percent     float64           `json:"percent,omitempty"`
	CurrentTime float64           `json:"currentTime,omitempty"`
	Duration    float64           `json:"duration,omitempty"`
}

// playerEvent is a message to the browser.
type playerEvent struct {
	Type      PlayerMessageType  `json:"type"`
	SessionID string             `json:"sessionId,omitempty"`
	Src       string             `json:"src,omitempty"`
	Position  *float64           `json:"position,omitempty"`
	State     *playback.Snapshot `json:"state,omitempty"`
	Progress  *float64           `json:"progress,omitempty"`
	Message   string             `json:"message,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// playerSession is one websocket connection. It is the playback.Element of
// the session's controller: element commands become messages to the
// browser, and the browser's media events are fed back to the listener.
type playerSession struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu       sync.Mutex
	listener playback.Listener
}

func newPlayerSession(conn *websocket.Conn) *playerSession {
	return &playerSession{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, playerSendBuffer),
		done: make(chan struct{}),
	}
}

func (s *playerSession) Load(src string) {
	s.enqueue(playerEvent{Type: MsgTypeLoad, Src: src})
}

func (s *playerSession) Play() {
	s.enqueue(playerEvent{Type: MsgTypePlay})
}

func (s *playerSession) Pause() {
	s.enqueue(playerEvent{Type: MsgTypePause})
}

func (s *playerSession) Seek(seconds float64) {
	s.enqueue(playerEvent{Type: MsgTypeSeek, Position: &seconds})
}

func (s *playerSession) Subscribe(l playback.Listener) func() {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.listener == l {
			s.listener = nil
		}
	}
}

// emit hands a media event to the current listener, outside the lock.
func (s *playerSession) emit(fn func(playback.Listener)) {
	s.mu.Lock()
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		fn(l)
	}
}

// enqueue queues ev for the write pump without blocking. Messages are
// dropped when the browser falls behind or the session is over.
func (s *playerSession) enqueue(ev playerEvent) {
	ev.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("Failed to marshal player event", logger.ErrorField(err))
		return
	}

	select {
	case <-s.done:
	case s.send <- data:
	default:
		logger.Warn("Player send buffer full, dropping message",
			logger.String("session", s.id),
			logger.String("type", string(ev.Type)))
	}
}

func (s *playerSession) sendState(snap playback.Snapshot) {
	progress := snap.Progress()
	s.enqueue(playerEvent{Type: MsgTypeState, State: &snap, Progress: &progress})
}

func (s *playerSession) sendError(msg string) {
	s.enqueue(playerEvent{Type: MsgTypeError, Message: msg})
}

func (s *playerSession) shutdown() {
	s.once.Do(func() { close(s.done) })
}

// writePump writes queued messages, one per frame, and pings the browser.
func (s *playerSession) writePump() {
	ticker := time.NewTicker(playerPingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(playerWriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(playerWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(playerWriteWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// forward relays controller snapshots until the subscription closes.
func (s *playerSession) forward(sub *playback.Subscription) {
	for {
		select {
		case snap := <-sub.StateChanged:
			s.sendState(snap)
		case <-sub.Done:
			return
		}
	}
}

// PlayerWSHandler runs one player session: a playback controller over the
// catalog's tracks, driven by the browser through the websocket.
// URL: GET /ws/player
func (h *APIHandler) PlayerWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	ctx := r.Context()
	s := newPlayerSession(conn)
	ctrl := playback.NewController(s)
	ctrl.SetTracks(h.sessionTracks(ctx))
	sub := ctrl.Subscribe()

	logger.Info("Player session started", logger.String("session", s.id))
	defer func() {
		ctrl.Release()
		s.shutdown()
		logger.Info("Player session ended", logger.String("session", s.id))
	}()

	go s.writePump()
	go s.forward(sub)

	s.enqueue(playerEvent{Type: MsgTypeSession, SessionID: s.id})
	s.sendState(ctrl.State())

	h.readPump(ctx, s, ctrl)
}

func (h *APIHandler) readPump(ctx context.Context, s *playerSession, ctrl *playback.Controller) {
	s.conn.SetReadLimit(playerReadLimit)
	s.conn.SetReadDeadline(time.Now().Add(playerPongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(playerPongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", logger.ErrorField(err), logger.String("session", s.id))
			}
			return
		}

		var cmd playerCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Warn("invalid player message", logger.ErrorField(err), logger.String("session", s.id))
			s.sendError("invalid message")
			continue
		}
		h.dispatch(ctx, s, ctrl, &cmd)
	}
}

func (h *APIHandler) dispatch(ctx context.Context, s *playerSession, ctrl *playback.Controller, cmd *playerCommand) {
	switch cmd.Type {
	case MsgTypeSelect, MsgTypePlay:
		if cmd.Type == MsgTypePlay && cmd.TrackID == 0 {
			// play without a track resumes whatever is current
			ctrl.Resume()
			return
		}
		track, err := h.lookupTrack(ctx, ctrl, cmd.TrackID)
		if err != nil {
			s.sendError(err.Error())
			return
		}
		if cmd.Type == MsgTypeSelect {
			ctrl.SelectTrack(track)
		} else {
			ctrl.Play(track)
		}
	case MsgTypePause:
		ctrl.Pause()
	case MsgTypeToggle:
		ctrl.TogglePlayPause()
	case MsgTypeSeek:
		ctrl.Seek(cmd.Percent)
	case MsgTypeNext:
		ctrl.SkipToNext()
	case MsgTypePrev:
		ctrl.SkipToPrevious()
	case MsgTypeClose:
		ctrl.Close()
	case MsgTypeRefresh:
		if err := h.catalog.Refresh(ctx); err != nil {
			s.sendError("failed to refresh tracks")
		}
		ctrl.SetTracks(h.catalog.Tracks())
	case MsgTypePing:
		s.enqueue(playerEvent{Type: MsgTypePong})
	case MsgTypeTimeUpdate:
		s.emit(func(l playback.Listener) { l.TimeUpdate(cmd.CurrentTime, cmd.Duration) })
	case MsgTypeLoadedMetadata:
		s.emit(func(l playback.Listener) { l.MetadataLoaded(cmd.Duration) })
	case MsgTypeEnded:
		s.emit(func(l playback.Listener) { l.Ended() })
	default:
		s.sendError("unknown message type: " + string(cmd.Type))
	}
}

// sessionTracks returns the catalog, fetching it first if it is empty.
func (h *APIHandler) sessionTracks(ctx context.Context) []*model.Track {
	if len(h.catalog.Tracks()) == 0 {
		if err := h.catalog.Refresh(ctx); err != nil {
			logger.Warn("Player session starting without tracks", logger.ErrorField(err))
		}
	}
	return h.catalog.Tracks()
}

// lookupTrack prefers the session's own list so the controller can locate
// the track for skipping, then falls back to the database.
func (h *APIHandler) lookupTrack(ctx context.Context, ctrl *playback.Controller, id int64) (*model.Track, error) {
	for _, t := range ctrl.Tracks() {
		if t.ID == id {
			return t, nil
		}
	}
	if t := h.catalog.Find(id); t != nil {
		return t, nil
	}

	track, err := h.library.GetTrack(ctx, id)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return nil, err
		}
		logger.Error("Track lookup failed", logger.Int64("id", id), logger.ErrorField(err))
		return nil, errors.New("track lookup failed")
	}
	return track, nil
}
