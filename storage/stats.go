package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"otakuwave/logger"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
)

// BucketStats summarizes the objects under a prefix.
type BucketStats struct {
	Bucket       string
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	ByExtension  map[string]int64
}

// ListObjects lists the objects of bucket under prefix together with totals.
func (s *MinioStore) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, *BucketStats, error) {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		return nil, nil, fmt.Errorf("bucket %s does not exist", bucket)
	}

	stats := &BucketStats{Bucket: bucket, ByExtension: make(map[string]int64)}
	var objects []ObjectInfo

	objectCh := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("failed to list objects in %s: %w", bucket, object.Err)
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		stats.ByExtension[extensionOf(object.Key)]++

		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}

	return objects, stats, nil
}

func extensionOf(key string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(key), "."))
	if ext == "" {
		return "unknown"
	}
	return ext
}

// WriteStats prints a bucket summary to w.
func WriteStats(w io.Writer, stats *BucketStats) {
	fmt.Fprintf(w, "\n=== Bucket %s ===\n", stats.Bucket)
	fmt.Fprintf(w, "Total size:    %s\n", humanize.Bytes(uint64(stats.TotalSize)))
	fmt.Fprintf(w, "Objects:       %s\n", humanize.Comma(stats.TotalObjects))
	if !stats.LastModified.IsZero() {
		fmt.Fprintf(w, "Last modified: %s (%s)\n", stats.LastModified.Format(time.RFC3339), humanize.Time(stats.LastModified))
	}

	exts := make([]string, 0, len(stats.ByExtension))
	for ext := range stats.ByExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	fmt.Fprintln(w, "\nBy extension:")
	for _, ext := range exts {
		fmt.Fprintf(w, "  %-8s %d\n", ext, stats.ByExtension[ext])
	}
}

// WriteObjects prints one line per object to w.
func WriteObjects(w io.Writer, objects []ObjectInfo) {
	for _, obj := range objects {
		fmt.Fprintf(w, "%s  %10s  %s\n",
			obj.LastModified.Format("2006-01-02 15:04:05"),
			humanize.Bytes(uint64(obj.Size)),
			obj.Key)
	}
}

// WriteTree prints objects grouped by their "/"-separated directories.
func WriteTree(w io.Writer, prefix string, objects []ObjectInfo) {
	dirs := make(map[string]bool)
	for _, obj := range objects {
		parts := strings.Split(obj.Key, "/")
		for i := 1; i < len(parts); i++ {
			dirs[strings.Join(parts[:i], "/")] = true
		}
	}

	sortedDirs := make([]string, 0, len(dirs))
	for dir := range dirs {
		if strings.HasPrefix(dir, prefix) {
			sortedDirs = append(sortedDirs, dir)
		}
	}
	sort.Strings(sortedDirs)

	for _, dir := range sortedDirs {
		indent := strings.Repeat("  ", strings.Count(dir, "/"))
		fmt.Fprintf(w, "%s%s/\n", indent, dir)
		for _, obj := range objects {
			rest := strings.TrimPrefix(obj.Key, dir+"/")
			if strings.HasPrefix(obj.Key, dir+"/") && !strings.Contains(rest, "/") {
				fmt.Fprintf(w, "%s  %s (%s)\n", indent, rest, humanize.Bytes(uint64(obj.Size)))
			}
		}
	}

	for _, obj := range objects {
		if !strings.Contains(obj.Key, "/") {
			fmt.Fprintf(w, "%s (%s)\n", obj.Key, humanize.Bytes(uint64(obj.Size)))
		}
	}
}

// DeletePrefix removes every object of bucket under prefix and returns how
// many were removed.
func (s *MinioStore) DeletePrefix(ctx context.Context, bucket, prefix string) (int, error) {
	objects, _, err := s.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return 0, err
	}
	if len(objects) == 0 {
		return 0, fmt.Errorf("prefix %s is empty or does not exist in %s", prefix, bucket)
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	for _, obj := range objects {
		objectsCh <- minio.ObjectInfo{Key: obj.Key}
	}
	close(objectsCh)

	for rmErr := range s.client.RemoveObjects(ctx, bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rmErr.Err != nil {
			return 0, fmt.Errorf("failed to remove %s: %w", rmErr.ObjectName, rmErr.Err)
		}
	}

	logger.Info("Removed objects",
		logger.String("bucket", bucket),
		logger.String("prefix", prefix),
		logger.Int("count", len(objects)))
	return len(objects), nil
}
