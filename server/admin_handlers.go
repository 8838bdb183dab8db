package server

import (
	"errors"
	"fmt"
	"net/http"

	"otakuwave/core/library"
	"otakuwave/logger"
	"otakuwave/model"

	"go.uber.org/zap"
)

const multipartMemory = 32 << 20

type trackResponse struct {
	Track        *model.Track         `json:"track"`
	Notification library.Notification `json:"notification"`
}

type notificationResponse struct {
	Notification library.Notification `json:"notification"`
}

// ListAdminTracksHandler returns the full, unfiltered track list.
// URL: GET /api/admin/tracks
func (h *APIHandler) ListAdminTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.library.ListTracks(r.Context())
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	if tracks == nil {
		tracks = []*model.Track{}
	}
	writeJSON(w, http.StatusOK, tracks)
}

// CreateTrackHandler uploads a new track.
// Expected multipart form fields:
// - name, artist: required
// - songFile: the audio file, required
// - coverFile: cover image, optional
// - coverUrl: cover locator used when coverFile is absent, optional
//
// URL: POST /api/admin/tracks
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	form, cleanup, err := h.parseTrackForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	track, note, err := h.library.Submit(r.Context(), form, nil)
	if err != nil {
		writeDomainError(w, err, &note)
		return
	}

	logger.Info("Track uploaded by admin", append(actorFields(r), logger.Int64("trackId", track.ID))...)
	writeJSON(w, http.StatusCreated, trackResponse{Track: track, Notification: note})
}

// UpdateTrackHandler edits a track. songFile becomes optional and the
// stored audio is kept without one.
// URL: PUT /api/admin/tracks/{id}
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := trackIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	form, cleanup, err := h.parseTrackForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	existing, err := h.library.GetTrack(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	track, note, err := h.library.Submit(r.Context(), form, existing)
	if err != nil {
		writeDomainError(w, err, &note)
		return
	}

	logger.Info("Track updated by admin", append(actorFields(r), logger.Int64("trackId", track.ID))...)
	writeJSON(w, http.StatusOK, trackResponse{Track: track, Notification: note})
}

// DeleteTrackHandler deletes a track and its stored files.
// URL: DELETE /api/admin/tracks/{id}
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := trackIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	note, err := h.library.RemoveByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, &note)
		return
	}

	logger.Info("Track deleted by admin", append(actorFields(r), logger.Int64("trackId", id))...)
	writeJSON(w, http.StatusOK, notificationResponse{Notification: note})
}

// parseTrackForm reads the admin form. The returned cleanup closes any
// opened upload parts.
func (h *APIHandler) parseTrackForm(w http.ResponseWriter, r *http.Request) (library.Form, func(), error) {
	if h.cfg.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return library.Form{}, nil, fmt.Errorf("failed to parse form: %w", err)
	}

	form := library.Form{
		Name:     r.FormValue("name"),
		Artist:   r.FormValue("artist"),
		CoverURL: r.FormValue("coverUrl"),
	}

	var closers []func() error
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	for field, dst := range map[string]**library.File{"songFile": &form.Audio, "coverFile": &form.Cover} {
		if r.MultipartForm == nil {
			break
		}
		file, header, err := r.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			cleanup()
			return library.Form{}, nil, fmt.Errorf("failed to read %s: %w", field, err)
		}
		closers = append(closers, file.Close)
		if header.Size == 0 {
			continue
		}
		*dst = &library.File{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Reader:      file,
		}
	}
	return form, cleanup, nil
}

func actorFields(r *http.Request) []zap.Field {
	var fields []zap.Field
	if id, err := GetAdminIDFromContext(r.Context()); err == nil {
		fields = append(fields, logger.Int64("adminId", id))
	}
	if name, err := GetUsernameFromContext(r.Context()); err == nil {
		fields = append(fields, logger.String("admin", name))
	}
	return fields
}
