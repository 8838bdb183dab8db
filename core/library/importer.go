package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"otakuwave/logger"
	"otakuwave/model"
)

const unknownArtist = "Unknown Artist"

var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
	".aac":  true,
}

// IsAudioFile reports whether path has an importable extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// Importer creates tracks from local audio files, taking name, artist and
// cover from the file's tags.
type Importer struct {
	client *Client
}

// NewImporter creates an Importer uploading through client.
func NewImporter(client *Client) *Importer {
	return &Importer{client: client}
}

// ImportFile uploads one audio file and inserts its track.
func (im *Importer) ImportFile(ctx context.Context, path string) (*model.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	form := Form{
		Name:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Artist: unknownArtist,
	}

	meta, err := tag.ReadFrom(f)
	switch {
	case err == nil:
		applyTags(&form, meta)
	case errors.Is(err, tag.ErrNoTagsFound):
		logger.Debug("No tags found, using file name", logger.String("path", path))
	default:
		logger.Warn("Failed to read tags", logger.String("path", path), logger.ErrorField(err))
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind %s: %w", path, err)
	}
	form.Audio = &File{Name: filepath.Base(path), Size: info.Size(), Reader: f}

	track, _, err := im.client.Submit(ctx, form, nil)
	if err != nil {
		return nil, err
	}
	return track, nil
}

// ImportDir imports every audio file directly inside dir. It keeps going
// past failures and returns the tracks it created along with the first
// error.
func (im *Importer) ImportDir(ctx context.Context, dir string) ([]*model.Track, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var (
		created  []*model.Track
		firstErr error
	)
	for _, e := range entries {
		if e.IsDir() || !IsAudioFile(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return created, err
		}

		path := filepath.Join(dir, e.Name())
		track, err := im.ImportFile(ctx, path)
		if err != nil {
			logger.Error("Import failed", logger.String("path", path), logger.ErrorField(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Info("Imported track",
			logger.String("path", path),
			logger.Int64("id", track.ID),
			logger.String("name", track.Name))
		created = append(created, track)
	}
	return created, firstErr
}

func applyTags(form *Form, meta tag.Metadata) {
	if title := strings.TrimSpace(meta.Title()); title != "" {
		form.Name = title
	}
	if artist := strings.TrimSpace(meta.Artist()); artist != "" {
		form.Artist = artist
	} else if artist := strings.TrimSpace(meta.AlbumArtist()); artist != "" {
		form.Artist = artist
	}

	if pic := meta.Picture(); pic != nil && len(pic.Data) > 0 {
		ext := pic.Ext
		if ext == "" {
			ext = "jpg"
		}
		form.Cover = &File{
			Name:        "cover." + strings.TrimPrefix(ext, "."),
			Size:        int64(len(pic.Data)),
			ContentType: pic.MIMEType,
			Reader:      bytes.NewReader(pic.Data),
		}
	}
}
