// Package storage provides key-addressed blob storage for pipeline artifacts.
//
// Keys are slash separated relative paths such as "iteration-3/index.md".
// Implementations exist for the local filesystem, memory and S3 compatible
// object stores.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

// Store persists blobs under keys.
type Store interface {
	// Put writes data under key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get returns the data stored under key.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Returns ErrNotFound if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// List returns all keys starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Location returns a human readable address for key (a path or URL).
	Location(key string) string

	// Close releases any resources held by the store.
	Close() error
}

// ErrNotFound is returned when a key doesn't exist.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	return "object not found: " + e.Key
}

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// ErrInvalidKey is returned for empty keys and keys escaping the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// CleanKey normalizes key and rejects keys that are empty or point outside
// the store.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
