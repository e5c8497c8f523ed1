package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shadowDragonCloud/rosario/internal/types"
)

// FileStore writes one rendered text file per book, named
// "{title}_{id}". The set of stored ids is rebuilt from the file names on
// start-up.
type FileStore struct {
	dir    string
	keys   *KeySet
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates dir if needed and seeds the key set from it.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("create store dir: %w", err)}
	}

	s := &FileStore{
		dir:    dir,
		keys:   NewKeySet(1024),
		logger: logger.With("component", "file_store"),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("read store dir: %w", err)}
	}
	for _, entry := range entries {
		id := idFromFileName(entry.Name())
		if id == "" {
			s.logger.Warn("cannot derive book id from file name", "name", entry.Name())
			continue
		}
		if !s.keys.Add(id) {
			s.logger.Warn("duplicate book id in store dir", "id", id, "name", entry.Name())
		}
		s.logger.Debug("stored book found", "name", entry.Name(), "id", id)
	}

	s.logger.Info("file store ready", "dir", dir, "books", s.keys.Len())
	return s, nil
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Contains(id string) bool {
	return s.keys.Contains(id)
}

func (s *FileStore) Put(id string, rec *types.BookRecord) error {
	if id == "" {
		return &types.StorageError{Backend: "file", Err: types.ErrNoBookID}
	}

	name := FileName(rec.Title, id)
	path := filepath.Join(s.dir, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(path, []byte(rec.Render()), 0o644); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("write %s: %w", name, err)}
	}
	if !s.keys.Add(id) {
		s.logger.Warn("duplicate book id stored", "id", id, "name", name)
	}
	s.logger.Debug("book written", "path", path)
	return nil
}

func (s *FileStore) Close() error {
	s.logger.Info("file store closing", "books", s.keys.Len())
	return nil
}

// FileName builds the record file name. Path separators in the title are
// replaced so the file always lands in the store dir.
func FileName(title, id string) string {
	title = strings.NewReplacer("/", "-", `\`, "-").Replace(title)
	return title + "_" + id
}

// idFromFileName returns the last non-blank "_"-separated block.
func idFromFileName(name string) string {
	blocks := strings.Split(name, "_")
	for i := len(blocks) - 1; i >= 0; i-- {
		if b := strings.TrimSpace(blocks[i]); b != "" {
			return b
		}
	}
	return ""
}
