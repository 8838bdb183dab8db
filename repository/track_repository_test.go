package repository

import (
	"context"
	"database/sql"
	"testing"

	"otakuwave/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE songs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		artist TEXT NOT NULL,
		audio_url TEXT NOT NULL,
		cover_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP
	)`)
	require.NoError(t, err)
	return db
}

func TestTrackRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLTrackRepository(newTestDB(t))

	idA, err := repo.CreateTrack(ctx, model.TrackRecord{Name: "A", Artist: "X", AudioURL: "a.mp3", CoverURL: "a.jpg"})
	require.NoError(t, err)
	idB, err := repo.CreateTrack(ctx, model.TrackRecord{Name: "B", Artist: "Y", AudioURL: "b.mp3"})
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)

	tracks, err := repo.ListTracks(ctx)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "A", tracks[0].Name)
	assert.Equal(t, "a.jpg", tracks[0].CoverURL)
	assert.Equal(t, "B", tracks[1].Name)
	assert.False(t, tracks[0].CreatedAt.IsZero())
}

func TestTrackRepository_ListEmpty(t *testing.T) {
	repo := NewSQLTrackRepository(newTestDB(t))

	tracks, err := repo.ListTracks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tracks)
	assert.Empty(t, tracks)
}

func TestTrackRepository_GetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLTrackRepository(newTestDB(t))

	id, err := repo.CreateTrack(ctx, model.TrackRecord{Name: "Old", Artist: "X", AudioURL: "a.mp3"})
	require.NoError(t, err)

	err = repo.UpdateTrack(ctx, id, model.TrackRecord{Name: "New", Artist: "Z", AudioURL: "b.mp3", CoverURL: "c.jpg"})
	require.NoError(t, err)

	got, err := repo.GetTrackByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.TrackRecord{Name: "New", Artist: "Z", AudioURL: "b.mp3", CoverURL: "c.jpg"}, got.Record())

	require.NoError(t, repo.DeleteTrack(ctx, id))

	got, err = repo.GetTrackByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTrackRepository_ClosedDBFails(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLTrackRepository(db)
	db.Close()

	_, err := repo.ListTracks(context.Background())
	assert.Error(t, err)
	_, err = repo.CreateTrack(context.Background(), model.TrackRecord{Name: "A"})
	assert.Error(t, err)
}
