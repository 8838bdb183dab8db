package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"otakuwave/model"

	"github.com/go-redis/redis/v8"
)

const trackListKey = "otakuwave:tracks"

// TrackCache keeps the full track list in Redis between writes.
type TrackCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTrackCache returns a cache that expires entries after ttl.
func NewTrackCache(client *redis.Client, ttl time.Duration) *TrackCache {
	return &TrackCache{client: client, ttl: ttl}
}

// Get returns the cached list. ok is false on a miss.
func (c *TrackCache) Get(ctx context.Context) (tracks []*model.Track, ok bool, err error) {
	data, err := c.client.Get(ctx, trackListKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read track cache: %w", err)
	}

	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal track cache: %w", err)
	}
	return tracks, true, nil
}

// Set stores the full list.
func (c *TrackCache) Set(ctx context.Context, tracks []*model.Track) error {
	data, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("failed to marshal track cache: %w", err)
	}
	if err := c.client.Set(ctx, trackListKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write track cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached list.
func (c *TrackCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, trackListKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate track cache: %w", err)
	}
	return nil
}
