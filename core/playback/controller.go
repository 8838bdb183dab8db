package playback

import (
	"math"
	"sync"

	"otakuwave/logger"
	"otakuwave/model"
)

// Controller drives one Element through a list of tracks: selection,
// play/pause, seeking and wraparound skipping. It advances automatically
// when a track ends.
//
// All methods are safe for concurrent use. Element events and user commands
// are serialized behind one mutex, so a command never observes a half
// applied event.
type Controller struct {
	mu sync.Mutex

	element      Element
	cancelEvents func()
	releaseOnce  sync.Once
	released     bool

	tracks      []*model.Track
	current     *model.Track
	state       State
	currentTime float64
	duration    float64
	// endedHandled is set once Ended was acted on and cleared by every play.
	endedHandled bool

	subsMu sync.Mutex
	subs   []*Subscription
}

// NewController binds a controller to element and starts listening for its
// timing events. Call Release when the controller is no longer needed.
func NewController(element Element) *Controller {
	c := &Controller{element: element}
	c.cancelEvents = element.Subscribe(elementEvents{c})
	return c
}

// SetTracks replaces the list that skipping and auto-advance walk. An empty
// list stops playback and clears the current track. The current track may
// be absent from a non-empty list; it keeps playing.
func (c *Controller) SetTracks(tracks []*model.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}

	c.tracks = append(c.tracks[:0:0], tracks...)
	if len(c.tracks) == 0 && c.current != nil {
		c.closeLocked()
	}
}

// Tracks returns a copy of the current list.
func (c *Controller) Tracks() []*model.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*model.Track(nil), c.tracks...)
}

// SelectTrack toggles track: selecting the playing track pauses it, any
// other selection (including the paused current track) plays it.
func (c *Controller) SelectTrack(track *model.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || track == nil {
		return
	}

	if c.isCurrent(track) && c.state == StatePlaying {
		c.pauseLocked()
		return
	}
	c.playLocked(track)
}

// Play makes track current and plays it. Unlike SelectTrack it never
// pauses; a track that is already playing is left alone.
func (c *Controller) Play(track *model.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || track == nil {
		return
	}
	if c.isCurrent(track) && c.state == StatePlaying {
		return
	}
	c.playLocked(track)
}

// Pause pauses playback if anything is playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || !c.playing() {
		return
	}
	c.pauseLocked()
}

// Resume continues the current track if it is paused. No-op without a
// current track or while already playing.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || c.current == nil || c.playing() {
		return
	}
	c.resumeLocked()
}

// TogglePlayPause flips between playing and paused. No-op without a
// current track.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || c.current == nil {
		return
	}

	if c.playing() {
		c.pauseLocked()
		return
	}
	c.resumeLocked()
}

// Seek moves playback to percent of the track duration. percent is clamped
// to [0, 100]. The reported position updates immediately rather than
// waiting for the element's next tick. No-op while the duration is
// unknown.
func (c *Controller) Seek(percent float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || c.current == nil || !knownDuration(c.duration) {
		return
	}

	switch {
	case math.IsNaN(percent), percent < 0:
		percent = 0
	case percent > 100:
		percent = 100
	}

	pos := percent / 100 * c.duration
	c.element.Seek(pos)
	c.currentTime = pos
	c.publishLocked()
}

// SkipToNext plays the track after the current one, wrapping from the last
// to the first.
func (c *Controller) SkipToNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.skipLocked(1)
}

// SkipToPrevious plays the track before the current one, wrapping from the
// first to the last.
func (c *Controller) SkipToPrevious() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.skipLocked(-1)
}

// Close stops playback and clears the current track.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.closeLocked()
}

// State returns a snapshot of the controller's state.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a subscription receiving a snapshot after every state
// change. Subscribing after Release returns an already closed subscription.
func (c *Controller) Subscribe() *Subscription {
	sub := newSubscription(c.unsubscribe)

	c.mu.Lock()
	released := c.released
	c.mu.Unlock()
	if released {
		sub.Close()
		return sub
	}

	c.subsMu.Lock()
	c.subs = append(c.subs, sub)
	c.subsMu.Unlock()
	return sub
}

// Release detaches the controller from its element's events and closes all
// subscriptions. The element is left as is. Later calls do nothing.
func (c *Controller) Release() {
	c.releaseOnce.Do(func() {
		c.mu.Lock()
		c.released = true
		c.mu.Unlock()

		c.cancelEvents()

		c.subsMu.Lock()
		subs := c.subs
		c.subs = nil
		c.subsMu.Unlock()
		for _, s := range subs {
			s.Close()
		}
	})
}

func (c *Controller) unsubscribe(target *Subscription) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for i, s := range c.subs {
		if s == target {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

func (c *Controller) isCurrent(track *model.Track) bool {
	return c.current != nil && c.current.ID == track.ID
}

func (c *Controller) playing() bool {
	return c.state == StatePlaying || c.state == StateLoading
}

// playLocked resumes track if it is the paused current track, otherwise
// loads it from the start.
func (c *Controller) playLocked(track *model.Track) {
	if c.isCurrent(track) {
		c.current = track
		c.resumeLocked()
		return
	}

	c.current = track
	c.currentTime = 0
	c.duration = 0
	c.endedHandled = false
	c.state = StateLoading
	c.publishLocked()

	logger.Debug("Loading track",
		logger.Int64("id", track.ID),
		logger.String("name", track.Name))
	c.element.Load(track.AudioURL)
	c.element.Play()
	c.state = StatePlaying
	c.publishLocked()
}

// resumeLocked restarts the loaded source. A source that already ended
// plays again from wherever the element left it, so its next Ended counts.
func (c *Controller) resumeLocked() {
	c.element.Play()
	c.endedHandled = false
	c.state = StatePlaying
	c.publishLocked()
}

func (c *Controller) pauseLocked() {
	c.element.Pause()
	c.state = StatePaused
	c.publishLocked()
}

func (c *Controller) closeLocked() {
	c.element.Pause()
	c.current = nil
	c.state = StateIdle
	c.currentTime = 0
	c.duration = 0
	c.endedHandled = false
	c.publishLocked()
}

// skipLocked moves delta positions through the list with wraparound. When
// the current track is not in the list, next lands on the first track and
// previous on the last.
func (c *Controller) skipLocked(delta int) {
	n := len(c.tracks)
	if c.current == nil || n == 0 {
		return
	}

	idx := c.indexOfCurrent()
	var target int
	switch {
	case idx < 0 && delta > 0:
		target = 0
	case idx < 0:
		target = n - 1
	default:
		target = ((idx+delta)%n + n) % n
	}

	next := c.tracks[target]
	if next == nil || c.isCurrent(next) {
		return
	}
	c.playLocked(next)
}

func (c *Controller) indexOfCurrent() int {
	for i, t := range c.tracks {
		if t != nil && t.ID == c.current.ID {
			return i
		}
	}
	return -1
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:       c.state,
		Track:       c.current,
		Playing:     c.playing(),
		CurrentTime: c.currentTime,
		Duration:    c.duration,
	}
}

// publishLocked must be called with c.mu held so subscribers see snapshots
// in mutation order.
func (c *Controller) publishLocked() {
	snap := c.snapshotLocked()
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	for _, s := range c.subs {
		s.send(snap)
	}
}

// elementEvents adapts the controller to Listener without exposing the
// callbacks on Controller itself.
type elementEvents struct {
	c *Controller
}

func (e elementEvents) TimeUpdate(current, duration float64) {
	c := e.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || c.current == nil {
		return
	}

	if knownDuration(duration) {
		c.duration = duration
	}
	c.currentTime = clampPosition(current, c.duration)
	c.publishLocked()
}

func (e elementEvents) MetadataLoaded(duration float64) {
	c := e.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || c.current == nil {
		return
	}

	if knownDuration(duration) {
		c.duration = duration
	} else {
		c.duration = 0
	}
	c.currentTime = clampPosition(c.currentTime, c.duration)
	c.publishLocked()
}

func (e elementEvents) Ended() {
	c := e.c
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || c.current == nil || c.endedHandled {
		return
	}

	c.endedHandled = true
	c.state = StatePaused
	c.publishLocked()
	c.skipLocked(1)
}
