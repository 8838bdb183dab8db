package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"otakuwave/model"
)

func newTestTrackCache(t *testing.T, ttl time.Duration) (*TrackCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTrackCache(client, ttl), mr
}

func TestTrackCache_MissIsNotAnError(t *testing.T) {
	c, _ := newTestTrackCache(t, time.Minute)

	tracks, ok, err := c.Get(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, tracks)
}

func TestTrackCache_SetThenGet(t *testing.T) {
	c, mr := newTestTrackCache(t, 5*time.Minute)
	ctx := context.Background()
	want := []*model.Track{
		{ID: 1, Name: "Gurenge", Artist: "LiSA", AudioURL: "http://x/songs/1.mp3", CoverURL: "http://x/covers/1.png"},
		{ID: 2, Name: "Unravel", Artist: "TK", AudioURL: "http://x/songs/2.mp3"},
	}

	require.NoError(t, c.Set(ctx, want))
	assert.Equal(t, 5*time.Minute, mr.TTL(trackListKey))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, want[0].Name, got[0].Name)
	assert.Equal(t, want[0].CoverURL, got[0].CoverURL)
	assert.Equal(t, want[1].ID, got[1].ID)
}

func TestTrackCache_EmptyListIsAHit(t *testing.T) {
	c, _ := newTestTrackCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, []*model.Track{}))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestTrackCache_Expires(t *testing.T) {
	c, mr := newTestTrackCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, []*model.Track{{ID: 1, Name: "a"}}))

	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackCache_Invalidate(t *testing.T) {
	c, mr := newTestTrackCache(t, time.Minute)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, []*model.Track{{ID: 1, Name: "a"}}))

	require.NoError(t, c.Invalidate(ctx))

	assert.False(t, mr.Exists(trackListKey))
	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// Invalidating an absent key is fine.
	require.NoError(t, c.Invalidate(ctx))
}

func TestTrackCache_CorruptEntry(t *testing.T) {
	c, mr := newTestTrackCache(t, time.Minute)
	require.NoError(t, mr.Set(trackListKey, "not json"))

	_, ok, err := c.Get(context.Background())

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestTrackCache_ServerDown(t *testing.T) {
	c, mr := newTestTrackCache(t, time.Minute)
	mr.Close()
	ctx := context.Background()

	_, ok, err := c.Get(ctx)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.Set(ctx, []*model.Track{{ID: 1}}))
	assert.Error(t, c.Invalidate(ctx))
}
