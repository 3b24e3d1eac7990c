// Package store persists the named record collections (movies, series,
// admins, sessions) behind one interface with file, SQLite and Badger
// implementations.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"moviemania/internal/apperr"
	"moviemania/internal/config"
)

type Collection string

const (
	Movies   Collection = "movies"
	Series   Collection = "series"
	Admins   Collection = "admins"
	Sessions Collection = "sessions"
)

// Collections lists every collection in backup order.
var Collections = []Collection{Movies, Series, Admins, Sessions}

// Document is one record. Data always carries the key field of the
// collection's layout set to Key.
type Document struct {
	Key  string
	Data json.RawMessage
}

type Store interface {
	Backend() string
	// List returns every document in stored order.
	List(ctx context.Context, c Collection) ([]Document, error)
	Get(ctx context.Context, c Collection, key string) (Document, error)
	// Insert fails with apperr.Conflict when the key exists.
	Insert(ctx context.Context, c Collection, doc Document) error
	// Replace overwrites the document stored under key. doc.Key may differ
	// from key to rename the record; the stored position is kept.
	Replace(ctx context.Context, c Collection, key string, doc Document) error
	// Delete is idempotent and reports whether a document was removed.
	Delete(ctx context.Context, c Collection, key string) (bool, error)
	Count(ctx context.Context, c Collection) (int, error)
	Close() error
}

// Open returns the adapter selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return OpenFile(cfg.DataDir)
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.BackendBadger:
		return OpenBadger(cfg.BadgerDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func notFound(c Collection, key string) error {
	return apperr.New(apperr.NotFound, fmt.Sprintf("%s %q not found", singular(c), key))
}

func conflict(c Collection, key string) error {
	return apperr.New(apperr.Conflict, fmt.Sprintf("%s %q already exists", singular(c), key))
}

func singular(c Collection) string {
	switch c {
	case Movies:
		return "movie"
	case Admins:
		return "admin"
	case Sessions:
		return "session"
	default:
		return string(c)
	}
}
