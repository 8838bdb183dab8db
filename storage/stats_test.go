package storage

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWriteTree_GroupsByDirectory(t *testing.T) {
	objects := []ObjectInfo{
		{Key: "2024/1-a.mp3", Size: 2048},
		{Key: "2024/06/2-b.mp3", Size: 10},
		{Key: "3-c.mp3", Size: 1},
	}

	var buf bytes.Buffer
	WriteTree(&buf, "", objects)
	out := buf.String()

	assert.Contains(t, out, "2024/\n")
	assert.Contains(t, out, "  1-a.mp3 (2.0 kB)")
	assert.Contains(t, out, "  2024/06/\n")
	assert.Contains(t, out, "3-c.mp3 (1 B)")
}

func TestWriteStats(t *testing.T) {
	stats := &BucketStats{
		Bucket:       "songs",
		TotalObjects: 1200,
		TotalSize:    5_000_000,
		LastModified: time.Now().Add(-time.Hour),
		ByExtension:  map[string]int64{"mp3": 1000, "flac": 200},
	}

	var buf bytes.Buffer
	WriteStats(&buf, stats)
	out := buf.String()

	assert.Contains(t, out, "=== Bucket songs ===")
	assert.Contains(t, out, "5.0 MB")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "flac")
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, "mp3", extensionOf("a/b/1-x.MP3"))
	assert.Equal(t, "unknown", extensionOf("noext"))
}
