// Package kvstore provides the small durable key-value abstraction the site
// cache persists into, with memory, directory, SQL (SQLite, PostgreSQL),
// Redis and MongoDB backends.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound is returned by Get when the key has never been written or
	// has been deleted.
	ErrNotFound = errors.New("kvstore: key not found")

	// ErrInvalidKey is returned for keys outside [A-Za-z0-9_.-]{1,128}.
	ErrInvalidKey = errors.New("kvstore: invalid key")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("kvstore: store closed")
)

// Store is a string-keyed blob store. Implementations must be safe for
// concurrent use. Values are returned as copies; callers may modify them.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put creates or overwrites key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend. The store must not be used afterwards.
	Close() error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// ValidateKey reports whether key is acceptable to every backend. Keys become
// file names in the directory backend, so path separators are rejected.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
