// Package library is the track repository client: track rows in the
// database, audio and cover binaries in the object store, and an optional
// cache of the full list.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"otakuwave/logger"
	"otakuwave/model"
	"otakuwave/repository"
	"otakuwave/storage"
)

var (
	// ErrValidation marks input rejected before any remote call.
	ErrValidation = errors.New("validation failed")
	// ErrRepository marks any failed database or object store call.
	ErrRepository = errors.New("repository error")
	// ErrNotFound is returned when a track id does not exist.
	ErrNotFound = errors.New("track not found")
)

// ObjectStore stores binaries by bucket and key.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, name string, r io.Reader, size int64, contentType string) error
	RemoveObject(ctx context.Context, bucket, name string) error
}

// ListCache caches the full track list.
type ListCache interface {
	Get(ctx context.Context) ([]*model.Track, bool, error)
	Set(ctx context.Context, tracks []*model.Track) error
	Invalidate(ctx context.Context) error
}

// File is an upload: a named binary with a known size.
type File struct {
	Name        string
	Size        int64
	ContentType string // guessed from Name when empty
	Reader      io.Reader
}

// Options names the buckets and the URL locators are built from.
type Options struct {
	PublicBaseURL string
	AudioBucket   string
	CoverBucket   string
	DefaultCover  string
}

// Client talks to the track table and the two buckets.
type Client struct {
	repo  repository.TrackRepository
	store ObjectStore
	cache ListCache
	opts  Options
	now   func() time.Time
}

// NewClient creates a Client without a list cache.
func NewClient(repo repository.TrackRepository, store ObjectStore, opts Options) *Client {
	return &Client{repo: repo, store: store, opts: opts, now: time.Now}
}

// WithCache enables the list cache. Every write invalidates it.
func (c *Client) WithCache(cache ListCache) *Client {
	c.cache = cache
	return c
}

// Options returns the client's bucket configuration.
func (c *Client) Options() Options {
	return c.opts
}

// ListTracks returns every track in backend order. Cache failures fall
// back to the database.
func (c *Client) ListTracks(ctx context.Context) ([]*model.Track, error) {
	if c.cache != nil {
		tracks, ok, err := c.cache.Get(ctx)
		if err != nil {
			logger.Warn("Track cache read failed", logger.ErrorField(err))
		} else if ok {
			return tracks, nil
		}
	}

	tracks, err := c.repo.ListTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list tracks: %w", ErrRepository, err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, tracks); err != nil {
			logger.Warn("Track cache write failed", logger.ErrorField(err))
		}
	}
	return tracks, nil
}

// GetTrack returns one track or ErrNotFound.
func (c *Client) GetTrack(ctx context.Context, id int64) (*model.Track, error) {
	track, err := c.repo.GetTrackByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: get track %d: %w", ErrRepository, id, err)
	}
	if track == nil {
		return nil, ErrNotFound
	}
	return track, nil
}

// CreateTrack inserts rec and returns the new id.
func (c *Client) CreateTrack(ctx context.Context, rec model.TrackRecord) (int64, error) {
	id, err := c.repo.CreateTrack(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("%w: create track: %w", ErrRepository, err)
	}
	c.invalidate(ctx)
	return id, nil
}

// UpdateTrack replaces the row with id.
func (c *Client) UpdateTrack(ctx context.Context, id int64, rec model.TrackRecord) error {
	if err := c.repo.UpdateTrack(ctx, id, rec); err != nil {
		return fmt.Errorf("%w: update track %d: %w", ErrRepository, id, err)
	}
	c.invalidate(ctx)
	return nil
}

// DeleteTrack removes the row with id. Its binaries are left alone.
func (c *Client) DeleteTrack(ctx context.Context, id int64) error {
	if err := c.repo.DeleteTrack(ctx, id); err != nil {
		return fmt.Errorf("%w: delete track %d: %w", ErrRepository, id, err)
	}
	c.invalidate(ctx)
	return nil
}

// UploadFile stores file in bucket under a timestamp-prefixed key and
// returns its public locator.
func (c *Client) UploadFile(ctx context.Context, file File, bucket string) (string, error) {
	name := storage.ObjectName(c.now(), file.Name)
	contentType := file.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentTypeFor(name)
	}

	if err := c.store.PutObject(ctx, bucket, name, file.Reader, file.Size, contentType); err != nil {
		return "", fmt.Errorf("%w: upload %s to %s: %w", ErrRepository, file.Name, bucket, err)
	}

	logger.Info("File uploaded",
		logger.String("bucket", bucket),
		logger.String("object", name),
		logger.Int64("size", file.Size))
	return storage.PublicURL(c.opts.PublicBaseURL, bucket, name), nil
}

// RemoveFile deletes the object locator points to in bucket. Locators
// outside bucket are external and are skipped; removed reports whether a
// removal was issued.
func (c *Client) RemoveFile(ctx context.Context, bucket, locator string) (removed bool, err error) {
	name, ok := storage.ObjectPath(locator, bucket)
	if !ok {
		logger.Debug("Skipping removal of external locator",
			logger.String("bucket", bucket),
			logger.String("locator", locator))
		return false, nil
	}

	if err := c.store.RemoveObject(ctx, bucket, name); err != nil {
		return false, fmt.Errorf("%w: remove %s from %s: %w", ErrRepository, name, bucket, err)
	}
	return true, nil
}

func (c *Client) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx); err != nil {
		logger.Warn("Track cache invalidation failed", logger.ErrorField(err))
	}
}
