package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"otakuwave/cache"
	"otakuwave/config"
	"otakuwave/core/library"
	"otakuwave/db"
	"otakuwave/logger"
	"otakuwave/repository"
	"otakuwave/storage"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// settleDelay is how long a file must go unwritten before it is imported.
const settleDelay = 2 * time.Second

var importWatch bool

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import audio files from a directory",
	Long: `Upload every audio file in <dir> as a track, taking name, artist and cover
from the file's tags. With --watch, keep running and import files added later.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]

		lib, closeFn, err := newLibraryClient(cfg)
		if err != nil {
			return err
		}
		defer closeFn()
		importer := library.NewImporter(lib)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		created, err := importer.ImportDir(ctx, dir)
		fmt.Printf("Imported %d tracks from %s\n", len(created), dir)
		if err != nil && !importWatch {
			return err
		}

		if !importWatch {
			return nil
		}
		return watchDir(ctx, dir, importer)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVarP(&importWatch, "watch", "w", false, "keep watching the directory for new files")
}

// newLibraryClient wires the track client the same way the server does.
func newLibraryClient(cfg *config.Config) (*library.Client, func(), error) {
	store, err := storage.InitMinio(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.ConnectDB(cfg); err != nil {
		return nil, nil, err
	}
	if err := db.InitDB(); err != nil {
		db.CloseDB()
		return nil, nil, err
	}

	lib := library.NewClient(repository.NewSQLTrackRepository(db.DB), store, library.Options{
		PublicBaseURL: cfg.PublicBaseURL,
		AudioBucket:   cfg.AudioBucket,
		CoverBucket:   cfg.CoverBucket,
		DefaultCover:  config.DefaultCoverURL,
	})

	closeFn := func() { db.CloseDB() }
	// A running server may hold the list in Redis; imports must invalidate it.
	if cfg.TrackCacheTTL > 0 {
		if err := cache.ConnectRedis(cfg); err != nil {
			logger.Warn("Redis unavailable, server cache will expire on its own", logger.ErrorField(err))
		} else {
			lib.WithCache(cache.NewTrackCache(cache.RedisClient, cfg.TrackCacheTTL))
			closeFn = func() {
				cache.CloseRedis()
				db.CloseDB()
			}
		}
	}
	return lib, closeFn, nil
}

// watchDir imports audio files created in dir once they stop changing.
func watchDir(ctx context.Context, dir string, importer *library.Importer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.Info("Watching for new audio files", logger.String("dir", dir))

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !library.IsAudioFile(event.Name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				pending[event.Name] = time.Now()
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", logger.ErrorField(err))

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < settleDelay {
					continue
				}
				delete(pending, path)

				track, err := importer.ImportFile(ctx, path)
				if err != nil {
					logger.Error("Import failed", logger.String("path", path), logger.ErrorField(err))
					continue
				}
				fmt.Printf("Imported %q by %s (id %d)\n", track.Name, track.Artist, track.ID)
			}
		}
	}
}
