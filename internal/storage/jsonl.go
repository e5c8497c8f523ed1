package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shadowDragonCloud/rosario/internal/types"
)

// jsonlLine is one record in the JSONL file.
type jsonlLine struct {
	ID string `json:"id"`
	*types.BookRecord
}

// JSONLStore appends records as newline-delimited JSON. Existing lines
// seed the key set, so a rerun skips books already in the file.
type JSONLStore struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	keys   *KeySet
	count  int
	mu     sync.Mutex
	logger *slog.Logger
}

// NewJSONLStore opens path for appending.
func NewJSONLStore(path string, logger *slog.Logger) (*JSONLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("create output dir: %w", err)}
	}

	s := &JSONLStore{
		path:   path,
		keys:   NewKeySet(1024),
		logger: logger.With("component", "jsonl_store"),
	}
	if err := s.seed(); err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: err}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("open output file: %w", err)}
	}
	s.file = f
	s.enc = json.NewEncoder(f)
	s.enc.SetEscapeHTML(false)

	s.logger.Info("jsonl store ready", "path", path, "books", s.keys.Len())
	return s, nil
}

func (s *JSONLStore) seed() error {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open existing file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		var line struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil || line.ID == "" {
			s.logger.Warn("skipping unreadable jsonl line", "line", lineNo, "error", err)
			continue
		}
		s.keys.Add(line.ID)
	}
	return scanner.Err()
}

func (s *JSONLStore) Name() string { return "jsonl" }

func (s *JSONLStore) Contains(id string) bool {
	return s.keys.Contains(id)
}

func (s *JSONLStore) Put(id string, rec *types.BookRecord) error {
	if id == "" {
		return &types.StorageError{Backend: "jsonl", Err: types.ErrNoBookID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(jsonlLine{ID: id, BookRecord: rec}); err != nil {
		return &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("encode JSONL: %w", err)}
	}
	s.count++
	if !s.keys.Add(id) {
		s.logger.Warn("duplicate book id stored", "id", id)
	}
	return nil
}

func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("JSONL written", "path", s.path, "records", s.count)
	return s.file.Close()
}
