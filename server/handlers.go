package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"otakuwave/config"
	"otakuwave/core/auth"
	"otakuwave/core/catalog"
	"otakuwave/core/library"
	"otakuwave/logger"
	"otakuwave/repository"
	"otakuwave/storage"

	"github.com/gorilla/mux"
)

// ObjectReader serves stored binaries.
type ObjectReader interface {
	GetObject(ctx context.Context, bucket, name string) (io.ReadCloser, *storage.ObjectInfo, error)
	HasBucket(bucket string) bool
}

// APIHandler handles all API requests.
type APIHandler struct {
	library *library.Client
	catalog *catalog.Catalog
	admins  repository.AdminRepository
	tokens  *auth.TokenManager
	objects ObjectReader
	cfg     *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	lib *library.Client,
	cat *catalog.Catalog,
	admins repository.AdminRepository,
	tokens *auth.TokenManager,
	objects ObjectReader,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		library: lib,
		catalog: cat,
		admins:  admins,
		tokens:  tokens,
		objects: objects,
		cfg:     cfg,
	}
}

type errorResponse struct {
	Error        string                `json:"error"`
	Notification *library.Notification `json:"notification,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrNotFound), errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError answers with the status for err. Server-side failures
// are logged and reported generically.
func writeDomainError(w http.ResponseWriter, err error, note *library.Notification) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", logger.ErrorField(err))
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, Notification: note})
}

func trackIDFromPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, library.ErrNotFound
	}
	return id, nil
}

// NotFoundHandler answers unknown API routes with a JSON 404.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}
