package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"otakuwave/logger"
	"otakuwave/storage"

	"github.com/gorilla/mux"
)

const objectIOTimeout = 30 * time.Second

// StorageHandler serves stored binaries at the public locator path
// /storage/v1/object/public/{bucket}/{object}.
type StorageHandler struct {
	objects ObjectReader
}

// NewStorageHandler creates a StorageHandler reading from objects.
func NewStorageHandler(objects ObjectReader) *StorageHandler {
	return &StorageHandler{objects: objects}
}

// ServeHTTP implements http.Handler.
func (h *StorageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bucket, name := vars["bucket"], vars["object"]
	if !h.objects.HasBucket(bucket) || name == "" {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), objectIOTimeout)
	defer cancel()

	object, info, err := h.objects.GetObject(ctx, bucket, name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		logger.Error("Error opening object", logger.String("bucket", bucket), logger.String("object", name), logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "Storage unavailable")
		return
	}
	defer object.Close()

	contentType := info.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentTypeFor(name)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if info.ETag != "" {
		w.Header().Set("ETag", `"`+info.ETag+`"`)
	}

	// Range requests let the player seek without downloading the whole file.
	if rs, ok := object.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, info.LastModified, rs)
		return
	}

	if _, err := io.Copy(w, object); err != nil {
		logger.Error("Error serving file from MinIO", logger.ErrorField(err))
	}
}
