package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectName_TimestampPrefixed(t *testing.T) {
	now := time.UnixMilli(1745563632000)

	assert.Equal(t, "1745563632000-My_Song.mp3", ObjectName(now, "My Song.mp3"))
	assert.Equal(t, "1745563632000-passwd", ObjectName(now, "../../etc/passwd"))
	assert.Equal(t, "1745563632000-file.png", ObjectName(now, "???.PNG"))
}

func TestPublicURL_ObjectPath_RoundTrip(t *testing.T) {
	url := PublicURL("http://localhost:8080/", "songs", "1-a.mp3")
	assert.Equal(t, "http://localhost:8080/storage/v1/object/public/songs/1-a.mp3", url)

	name, ok := ObjectPath(url, "songs")
	assert.True(t, ok)
	assert.Equal(t, "1-a.mp3", name)
}

func TestObjectPath_Rejects(t *testing.T) {
	cases := map[string]struct {
		locator string
		bucket  string
	}{
		"external url":  {"https://img.example.com/cover.jpg", "covers"},
		"other bucket":  {"http://h/storage/v1/object/public/songs/1-a.mp3", "covers"},
		"missing name":  {"http://h/storage/v1/object/public/covers/", "covers"},
		"bucket only":   {"http://h/storage/v1/object/public/covers", "covers"},
		"empty locator": {"", "covers"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := ObjectPath(tc.locator, tc.bucket)
			assert.False(t, ok)
		})
	}
}

func TestObjectPath_StripsQuery(t *testing.T) {
	name, ok := ObjectPath("http://h/storage/v1/object/public/covers/1-c.jpg?v=2", "covers")
	assert.True(t, ok)
	assert.Equal(t, "1-c.jpg", name)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "audio/mpeg", ContentTypeFor("x.MP3"))
	assert.Equal(t, "image/jpeg", ContentTypeFor("x.jpeg"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("x"))
}
