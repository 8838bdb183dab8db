package model

import "time"

// Track is one playable song record: metadata plus an audio and a cover locator.
type Track struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Artist    string    `json:"artist"`
	AudioURL  string    `json:"audio_url"`
	CoverURL  string    `json:"cover_url"`
	CreatedAt time.Time `json:"created_at"`
}

// TrackRecord carries the writable fields of a track for insert and update.
type TrackRecord struct {
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	AudioURL string `json:"audio_url"`
	CoverURL string `json:"cover_url"`
}

// Record returns the writable fields of t.
func (t *Track) Record() TrackRecord {
	return TrackRecord{
		Name:     t.Name,
		Artist:   t.Artist,
		AudioURL: t.AudioURL,
		CoverURL: t.CoverURL,
	}
}
