// Package storage persists timeex state in a key-value store. Values are
// JSON documents; two backends exist: one JSON file per key, or a single
// SQLite table.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned by Store.Get when a key has no value.
var ErrNotFound = errors.New("key not found")

// ErrCorrupt is returned when a stored value is not valid JSON.
var ErrCorrupt = errors.New("corrupt value")

// Store is a flat key-value namespace.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists the stored keys starting with prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.@-]+$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}

// Open returns the backend named by backend. dataDir holds the file
// backend's documents; sqlitePath is the database file of the SQLite
// backend.
func Open(backend, dataDir, sqlitePath string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(dataDir)
	case BackendSQLite:
		return NewSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", backend)
	}
}
