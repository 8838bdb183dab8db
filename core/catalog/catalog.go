// Package catalog holds the browsable track list: the full list from the
// last successful fetch, a name filter over it and the trending pick.
package catalog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"otakuwave/logger"
	"otakuwave/model"
)

// Source lists tracks in backend order.
type Source interface {
	ListTracks(ctx context.Context) ([]*model.Track, error)
}

// Catalog caches the track list between fetches. It is safe for
// concurrent use.
type Catalog struct {
	source Source
	pick   func(n int) int

	mu       sync.RWMutex
	all      []*model.Track
	trending *model.Track
}

// New creates a Catalog over source. The list is empty until Refresh.
func New(source Source) *Catalog {
	return &Catalog{source: source, pick: rand.IntN}
}

// Refresh fetches the list. A successful fetch always replaces the list
// and draws a new trending track, which is nil when the list is empty. A
// failed fetch keeps the previous list and trending pick.
func (c *Catalog) Refresh(ctx context.Context) error {
	tracks, err := c.source.ListTracks(ctx)
	if err != nil {
		logger.Error("Failed to fetch tracks", logger.ErrorField(err))
		return fmt.Errorf("failed to refresh catalog: %w", err)
	}

	var trending *model.Track
	if len(tracks) > 0 {
		trending = tracks[c.pick(len(tracks))]
	}

	c.mu.Lock()
	c.all = tracks
	c.trending = trending
	c.mu.Unlock()

	if trending == nil {
		logger.Debug("Catalog refreshed with no tracks")
		return nil
	}
	logger.Debug("Catalog refreshed",
		logger.Int("tracks", len(tracks)),
		logger.Int64("trendingId", trending.ID))
	return nil
}

// Tracks returns a copy of the full list.
func (c *Catalog) Tracks() []*model.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*model.Track(nil), c.all...)
}

// Trending returns the current trending pick, or nil before the first
// successful fetch.
func (c *Catalog) Trending() *model.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.trending
}

// Visible returns the tracks whose names match query.
func (c *Catalog) Visible(query string) []*model.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Filter(c.all, query)
}

// Find returns the cached track with id, or nil.
func (c *Catalog) Find(id int64) *model.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.all {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Filter returns a new slice with the tracks whose name contains query,
// ignoring case. An empty query matches everything. tracks is not modified.
func Filter(tracks []*model.Track, query string) []*model.Track {
	q := strings.ToLower(query)
	out := make([]*model.Track, 0, len(tracks))
	for _, t := range tracks {
		if strings.Contains(strings.ToLower(t.Name), q) {
			out = append(out, t)
		}
	}
	return out
}
