package server

import (
	"net/http"

	"otakuwave/logger"
	"otakuwave/model"
)

type catalogResponse struct {
	Tracks   []*model.Track `json:"tracks"`
	Trending *model.Track   `json:"trending"`
}

// GetTracksHandler refreshes the catalog and returns the tracks matching
// the optional ?q= name filter plus the trending pick. A failed refresh
// serves the previous catalog when there is one.
// URL: GET /api/tracks?q=
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Refresh(r.Context()); err != nil {
		if len(h.catalog.Tracks()) == 0 {
			writeDomainError(w, err, nil)
			return
		}
		logger.Warn("Serving stale catalog", logger.ErrorField(err))
	}

	query := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, catalogResponse{
		Tracks:   h.catalog.Visible(query),
		Trending: h.catalog.Trending(),
	})
}

// GetTrackHandler returns one track.
// URL: GET /api/tracks/{id}
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := trackIDFromPath(r)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	track, err := h.library.GetTrack(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, track)
}
