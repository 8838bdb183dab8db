package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"otakuwave/logger"
	"otakuwave/model"
)

// TrackRepository defines the data operations on track metadata.
type TrackRepository interface {
	ListTracks(ctx context.Context) ([]*model.Track, error)
	GetTrackByID(ctx context.Context, id int64) (*model.Track, error)
	CreateTrack(ctx context.Context, rec model.TrackRecord) (int64, error)
	UpdateTrack(ctx context.Context, id int64, rec model.TrackRecord) error
	DeleteTrack(ctx context.Context, id int64) error
}

// sqlTrackRepository implements TrackRepository on database/sql.
// Queries only use `?` placeholders so MySQL and SQLite both accept them.
type sqlTrackRepository struct {
	db *sql.DB
}

// NewSQLTrackRepository creates a TrackRepository backed by db.
func NewSQLTrackRepository(db *sql.DB) TrackRepository {
	return &sqlTrackRepository{db: db}
}

const trackColumns = `id, name, artist, audio_url, cover_url, created_at`

func scanTrack(row interface{ Scan(...any) error }) (*model.Track, error) {
	track := &model.Track{}
	if err := row.Scan(&track.ID, &track.Name, &track.Artist, &track.AudioURL, &track.CoverURL, &track.CreatedAt); err != nil {
		return nil, err
	}
	return track, nil
}

// ListTracks returns every track in insertion order.
func (r *sqlTrackRepository) ListTracks(ctx context.Context) ([]*model.Track, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+trackColumns+` FROM songs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in ListTracks: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListTracks: %w", err)
	}
	return tracks, nil
}

// GetTrackByID returns the track with id, or nil when none exists.
func (r *sqlTrackRepository) GetTrackByID(ctx context.Context, id int64) (*model.Track, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM songs WHERE id = ?`, id)
	track, err := scanTrack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

// CreateTrack inserts rec and returns the new track ID.
func (r *sqlTrackRepository) CreateTrack(ctx context.Context, rec model.TrackRecord) (int64, error) {
	query := `INSERT INTO songs (name, artist, audio_url, cover_url, created_at) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, rec.Name, rec.Artist, rec.AudioURL, rec.CoverURL, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateTrack: %w", err)
	}
	logger.Info("Track created", logger.Int64("trackId", id), logger.String("name", rec.Name))
	return id, nil
}

// UpdateTrack overwrites the writable fields of track id.
func (r *sqlTrackRepository) UpdateTrack(ctx context.Context, id int64, rec model.TrackRecord) error {
	query := `UPDATE songs SET name = ?, artist = ?, audio_url = ?, cover_url = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, rec.Name, rec.Artist, rec.AudioURL, rec.CoverURL, id); err != nil {
		return fmt.Errorf("failed to execute UpdateTrack for track ID %d: %w", id, err)
	}
	logger.Info("Track updated", logger.Int64("trackId", id))
	return nil
}

// DeleteTrack removes the row for track id.
func (r *sqlTrackRepository) DeleteTrack(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to execute DeleteTrack for track ID %d: %w", id, err)
	}
	logger.Info("Track deleted", logger.Int64("trackId", id))
	return nil
}
