// Package storage persists book records and answers whether a book has
// already been stored, keyed by the book id taken from its URL.
package storage

import (
	"fmt"
	"log/slog"

	"github.com/shadowDragonCloud/rosario/internal/config"
	"github.com/shadowDragonCloud/rosario/internal/types"
)

// Gateway is the interface for all record store backends.
type Gateway interface {
	// Contains reports whether a record for id has been stored.
	Contains(id string) bool

	// Put persists rec under id. Storing an id twice is not an error; the
	// duplicate is logged.
	Put(id string, rec *types.BookRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// New creates the backend selected by cfg.Type.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Gateway, error) {
	switch cfg.Type {
	case "file", "":
		return NewFileStore(cfg.Dir, logger)
	case "jsonl":
		return NewJSONLStore(cfg.JSONLPath, logger)
	case "mongo":
		return NewMongoStore(cfg, logger)
	case "multi":
		files, err := NewFileStore(cfg.Dir, logger)
		if err != nil {
			return nil, err
		}
		db, err := NewMongoStore(cfg, logger)
		if err != nil {
			files.Close()
			return nil, err
		}
		return NewMultiStore([]Gateway{files, db}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// --- Multi-Store Fan-Out ---

// MultiStore writes records to several backends. A book counts as stored
// only once every backend holds it.
type MultiStore struct {
	backends []Gateway
	logger   *slog.Logger
}

// NewMultiStore creates a store that fans out to backends.
func NewMultiStore(backends []Gateway, logger *slog.Logger) *MultiStore {
	return &MultiStore{
		backends: backends,
		logger:   logger.With("component", "multi_store"),
	}
}

func (s *MultiStore) Name() string { return "multi" }

func (s *MultiStore) Contains(id string) bool {
	if len(s.backends) == 0 {
		return false
	}
	for _, b := range s.backends {
		if !b.Contains(id) {
			return false
		}
	}
	return true
}

func (s *MultiStore) Put(id string, rec *types.BookRecord) error {
	var firstErr error
	for _, b := range s.backends {
		if err := b.Put(id, rec); err != nil {
			s.logger.Error("backend put failed", "backend", b.Name(), "id", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiStore) Close() error {
	var firstErr error
	for _, b := range s.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
