// Package store persists JSON documents in named collections. Backends are
// last-writer-wins and do not coordinate across processes.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent from its collection.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidKey is returned for keys or collection names that are not
	// safe to use as file names.
	ErrInvalidKey = errors.New("store: invalid key")
)

// Record is one stored document.
type Record struct {
	Key       string
	Data      []byte
	UpdatedAt time.Time
}

// Store is a keyed document store split into collections.
type Store interface {
	Save(ctx context.Context, collection, key string, data []byte) error
	Get(ctx context.Context, collection, key string) ([]byte, error)
	// All returns the records of a collection ordered by key.
	All(ctx context.Context, collection string) ([]Record, error)
	Delete(ctx context.Context, collection, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the named backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile, "":
		return &FileStore{Dir: dir}, nil
	case BackendSQLite:
		return NewSQLite(dir)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func checkKey(collection, key string) error {
	if !keyRe.MatchString(collection) {
		return fmt.Errorf("%w: collection %q", ErrInvalidKey, collection)
	}
	if !keyRe.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
