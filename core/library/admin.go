package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"otakuwave/logger"
	"otakuwave/model"
)

// NotificationDismiss is how long a notification stays visible.
const NotificationDismiss = 3 * time.Second

// Notification texts shown to the admin.
const (
	MsgMissingFields = "Please fill in all required fields"
	MsgUploaded      = "Song uploaded successfully!"
	MsgUpdated       = "Song updated successfully!"
	MsgUploadFailed  = "Error uploading song. Please try again."
	MsgDeleted       = "Song deleted successfully."
	MsgDeleteFailed  = "Error deleting song."
)

type NotificationType string

const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
)

// Notification is a transient banner for the admin view.
type Notification struct {
	Message        string           `json:"message"`
	Type           NotificationType `json:"type"`
	DismissAfterMs int64            `json:"dismissAfterMs"`
}

func notify(typ NotificationType, msg string) Notification {
	return Notification{Message: msg, Type: typ, DismissAfterMs: NotificationDismiss.Milliseconds()}
}

// Form is the admin upload/edit form.
type Form struct {
	Name     string
	Artist   string
	CoverURL string // used when Cover is nil
	Audio    *File
	Cover    *File
}

// Validate checks the required fields. The audio file is only required
// when creating.
func (f Form) Validate(editing bool) error {
	if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Artist) == "" {
		return ErrValidation
	}
	if !editing && f.Audio == nil {
		return ErrValidation
	}
	return nil
}

// Submit creates a track from form, or updates editing when it is non-nil.
//
// The audio is uploaded first, then the cover. An explicit cover file wins
// over the cover URL field; with neither, an edit keeps its cover and a
// new track gets the default one. Nothing already uploaded is rolled back
// when a later step fails.
func (c *Client) Submit(ctx context.Context, form Form, editing *model.Track) (*model.Track, Notification, error) {
	if err := form.Validate(editing != nil); err != nil {
		return nil, notify(NotifyError, MsgMissingFields), err
	}

	rec := model.TrackRecord{
		Name:   strings.TrimSpace(form.Name),
		Artist: strings.TrimSpace(form.Artist),
	}
	if editing != nil {
		rec.AudioURL = editing.AudioURL
		rec.CoverURL = editing.CoverURL
	}

	var uploaded []string
	fail := func(err error) (*model.Track, Notification, error) {
		for _, loc := range uploaded {
			logger.Warn("Orphaned object left in storage", logger.String("locator", loc))
		}
		logger.Error("Failed to save track", logger.String("name", rec.Name), logger.ErrorField(err))
		return nil, notify(NotifyError, MsgUploadFailed), err
	}

	if form.Audio != nil {
		loc, err := c.UploadFile(ctx, *form.Audio, c.opts.AudioBucket)
		if err != nil {
			return fail(err)
		}
		rec.AudioURL = loc
		uploaded = append(uploaded, loc)
	}

	switch {
	case form.Cover != nil:
		loc, err := c.UploadFile(ctx, *form.Cover, c.opts.CoverBucket)
		if err != nil {
			return fail(err)
		}
		rec.CoverURL = loc
		uploaded = append(uploaded, loc)
	case strings.TrimSpace(form.CoverURL) != "":
		rec.CoverURL = strings.TrimSpace(form.CoverURL)
	}
	if rec.CoverURL == "" {
		rec.CoverURL = c.opts.DefaultCover
	}

	if editing != nil {
		if err := c.UpdateTrack(ctx, editing.ID, rec); err != nil {
			return fail(err)
		}
		track := &model.Track{ID: editing.ID, CreatedAt: editing.CreatedAt}
		applyRecord(track, rec)
		logger.Info("Track updated", logger.Int64("id", track.ID), logger.String("name", track.Name))
		return track, notify(NotifySuccess, MsgUpdated), nil
	}

	id, err := c.CreateTrack(ctx, rec)
	if err != nil {
		return fail(err)
	}
	track := &model.Track{ID: id, CreatedAt: c.now()}
	applyRecord(track, rec)
	logger.Info("Track created", logger.Int64("id", id), logger.String("name", track.Name))
	return track, notify(NotifySuccess, MsgUploaded), nil
}

// Remove deletes the track's audio, its cover unless it is the default
// cover or an external URL, and finally the row.
func (c *Client) Remove(ctx context.Context, track *model.Track) (Notification, error) {
	if track == nil {
		return notify(NotifyError, MsgDeleteFailed), ErrNotFound
	}

	fail := func(err error) (Notification, error) {
		logger.Error("Failed to delete track", logger.Int64("id", track.ID), logger.ErrorField(err))
		return notify(NotifyError, MsgDeleteFailed), err
	}

	if _, err := c.RemoveFile(ctx, c.opts.AudioBucket, track.AudioURL); err != nil {
		return fail(err)
	}
	if track.CoverURL != "" && track.CoverURL != c.opts.DefaultCover {
		if _, err := c.RemoveFile(ctx, c.opts.CoverBucket, track.CoverURL); err != nil {
			return fail(err)
		}
	}
	if err := c.DeleteTrack(ctx, track.ID); err != nil {
		return fail(err)
	}

	logger.Info("Track deleted", logger.Int64("id", track.ID))
	return notify(NotifySuccess, MsgDeleted), nil
}

// RemoveByID looks the track up and removes it.
func (c *Client) RemoveByID(ctx context.Context, id int64) (Notification, error) {
	track, err := c.GetTrack(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return notify(NotifyError, MsgDeleteFailed), err
		}
		return notify(NotifyError, MsgDeleteFailed), fmt.Errorf("lookup before delete: %w", err)
	}
	return c.Remove(ctx, track)
}

func applyRecord(t *model.Track, rec model.TrackRecord) {
	t.Name = rec.Name
	t.Artist = rec.Artist
	t.AudioURL = rec.AudioURL
	t.CoverURL = rec.CoverURL
}
