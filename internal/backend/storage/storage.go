package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrNotFound is returned by Read when the object does not exist.
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid storage key")
)

// Storage keeps originals and thumbnails under slash-separated keys such as "user_1/<name>".
type Storage interface {
	Save(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	// Remove deletes the object; a missing object is not an error.
	Remove(ctx context.Context, key string) error
}

const thumbnailPrefix = "thumb_"

// UserDir is the per-user namespace all of a user's files live under.
func UserDir(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

// ThumbnailName derives the thumbnail file name from the original's unique name.
func ThumbnailName(name string) string {
	return thumbnailPrefix + name
}

// Key joins path elements into a storage key.
func Key(elem ...string) string {
	return path.Join(elem...)
}

// cleanKey rejects keys that are empty, absolute or escape the storage root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
