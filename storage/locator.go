package storage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// PublicPathPrefix is the URL path under which stored objects are served.
const PublicPathPrefix = "/storage/v1/object/public/"

var (
	unsafeChars    = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
	multipleSpaces = regexp.MustCompile(`\s+`)
)

const maxNameLength = 150

// SanitizeFilename reduces name to characters safe in an object key.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))

	base = multipleSpaces.ReplaceAllString(base, "_")
	base = unsafeChars.ReplaceAllString(base, "")
	ext = unsafeChars.ReplaceAllString(ext, "")

	if len(base) > maxNameLength {
		base = base[:maxNameLength]
	}
	if base == "" || base == "." {
		base = "file"
	}
	return base + ext
}

// ObjectName returns a collision-avoiding key for filename, prefixed with
// the upload time in unix milliseconds.
func ObjectName(now time.Time, filename string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeFilename(filename))
}

// PublicURL builds the publicly resolvable locator for bucket/name.
func PublicURL(baseURL, bucket, name string) string {
	return strings.TrimRight(baseURL, "/") + PublicPathPrefix + bucket + "/" + name
}

// ObjectPath recovers the object key inside bucket from a locator built by
// PublicURL. It reports false for locators that do not point into bucket,
// such as external cover URLs.
func ObjectPath(locator, bucket string) (string, bool) {
	_, rest, found := strings.Cut(locator, PublicPathPrefix)
	if !found {
		return "", false
	}
	// drop any query string a client may have appended
	rest, _, _ = strings.Cut(rest, "?")

	gotBucket, name, found := strings.Cut(rest, "/")
	if !found || gotBucket != bucket || name == "" {
		return "", false
	}
	return name, true
}

// ContentTypeFor guesses a content type from the object key's extension.
func ContentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".aac":
		return "audio/aac"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".opus":
		return "audio/opus"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
