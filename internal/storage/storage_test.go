package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shadowDragonCloud/rosario/internal/config"
	"github.com/shadowDragonCloud/rosario/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func sampleRecord() *types.BookRecord {
	rec := types.NewBookRecord("https://book.douban.com/subject/4913064/")
	rec.Title = "活着"
	rec.Authors = []string{"余华"}
	rec.Press = "作家出版社"
	rec.Score.Average = 9.4
	return rec
}

// --- KeySet ---

func TestKeySetAdd(t *testing.T) {
	k := NewKeySet(0)
	if !k.Add("1") {
		t.Error("first add should be new")
	}
	if k.Add("1") {
		t.Error("second add should not be new")
	}
	if !k.Contains("1") || k.Contains("2") || k.Len() != 1 {
		t.Errorf("unexpected state: len=%d", k.Len())
	}
}

// --- FileStore ---

func TestFileStorePutThenContains(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "books")
	s, err := NewFileStore(dir, testLogger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	if s.Contains("4913064") {
		t.Fatal("empty store contains id")
	}
	rec := sampleRecord()
	if err := s.Put("4913064", rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !s.Contains("4913064") {
		t.Error("Contains after Put = false")
	}

	data, err := os.ReadFile(filepath.Join(dir, "活着_4913064"))
	if err != nil {
		t.Fatalf("record file: %v", err)
	}
	if string(data) != rec.Render() {
		t.Errorf("file content differs from Render()")
	}
	if !strings.HasPrefix(string(data), "书名: 活着\n") {
		t.Errorf("unexpected record layout: %q", string(data)[:40])
	}
}

func TestFileStoreDuplicatePut(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), testLogger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	rec := sampleRecord()
	if err := s.Put("4913064", rec); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if err := s.Put("4913064", rec); err != nil {
		t.Fatalf("duplicate Put must not fail: %v", err)
	}
	if s.keys.Len() != 1 {
		t.Errorf("keys = %d, want 1", s.keys.Len())
	}
}

func TestFileStoreRejectsEmptyID(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), testLogger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	err = s.Put("", sampleRecord())
	if !errors.Is(err, types.ErrNoBookID) {
		t.Fatalf("err = %v, want ErrNoBookID", err)
	}
	var se *types.StorageError
	if !errors.As(err, &se) || se.Backend != "file" {
		t.Errorf("err = %v, want file StorageError", err)
	}
}

func TestFileStoreSeedsFromDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"活着_4913064", "围城_1008145_", "a_b_c_42", "___", "noid"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s, err := NewFileStore(dir, testLogger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, id := range []string{"4913064", "1008145", "42", "noid"} {
		if !s.Contains(id) {
			t.Errorf("seeded store missing %q", id)
		}
	}
	if s.keys.Len() != 4 {
		t.Errorf("keys = %d, want 4", s.keys.Len())
	}
}

func TestFileNameSanitizesTitle(t *testing.T) {
	if got := FileName("上/下", "1"); got != "上-下_1" {
		t.Errorf("FileName = %q", got)
	}
	s, err := NewFileStore(t.TempDir(), testLogger)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	rec := sampleRecord()
	rec.Title = "../escape"
	if err := s.Put("7", rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.dir, "..-escape_7")); err != nil {
		t.Errorf("sanitized file missing: %v", err)
	}
}

func TestIDFromFileName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"活着_4913064", "4913064"},
		{"title_with_underscores_12", "12"},
		{"t_12_ ", "12"},
		{"_", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := idFromFileName(tt.in); got != tt.want {
			t.Errorf("idFromFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- JSONLStore ---

func TestJSONLStoreReopenSkipsStored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "books.jsonl")

	s, err := NewJSONLStore(path, testLogger)
	if err != nil {
		t.Fatalf("NewJSONLStore: %v", err)
	}
	if err := s.Put("4913064", sampleRecord()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("4913064", sampleRecord()); err != nil {
		t.Fatalf("duplicate Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"id":"4913064"`) || !strings.Contains(string(data), `"title":"活着"`) {
		t.Errorf("unexpected JSONL: %s", data)
	}

	if err := os.WriteFile(path, append(data, []byte("not json\n")...), 0o644); err != nil {
		t.Fatal(err)
	}

	again, err := NewJSONLStore(path, testLogger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if !again.Contains("4913064") {
		t.Error("reopened store lost id")
	}
	if again.keys.Len() != 1 {
		t.Errorf("keys = %d, want 1", again.keys.Len())
	}
}

// --- MongoStore ---

type fakeCollection struct {
	docs     map[string]mongoBook
	counts   int
	countErr error
}

func (c *fakeCollection) CountDocuments(_ context.Context, filter interface{}, _ ...*options.CountOptions) (int64, error) {
	c.counts++
	if c.countErr != nil {
		return 0, c.countErr
	}
	if _, ok := c.docs[idOf(filter)]; ok {
		return 1, nil
	}
	return 0, nil
}

func (c *fakeCollection) ReplaceOne(_ context.Context, filter interface{}, replacement interface{}, _ ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	id := idOf(filter)
	_, existed := c.docs[id]
	c.docs[id] = replacement.(mongoBook)
	if existed {
		return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}
	return &mongo.UpdateResult{UpsertedCount: 1, UpsertedID: id}, nil
}

func idOf(filter interface{}) string {
	for _, e := range filter.(bson.D) {
		if e.Key == "_id" {
			return e.Value.(string)
		}
	}
	return ""
}

func TestMongoStorePutThenContains(t *testing.T) {
	coll := &fakeCollection{docs: make(map[string]mongoBook)}
	s, err := newMongoStore(coll, 16, testLogger)
	if err != nil {
		t.Fatalf("newMongoStore: %v", err)
	}

	if s.Contains("4913064") {
		t.Fatal("empty collection contains id")
	}
	if err := s.Put("4913064", sampleRecord()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("4913064", sampleRecord()); err != nil {
		t.Fatalf("duplicate Put: %v", err)
	}

	countsBefore := coll.counts
	if !s.Contains("4913064") {
		t.Error("Contains after Put = false")
	}
	if coll.counts != countsBefore {
		t.Error("cached id should not hit the collection")
	}

	doc := coll.docs["4913064"]
	if doc.ID != "4913064" || doc.Title != "活着" || doc.Score.Average != 9.4 {
		t.Errorf("stored doc = %+v", doc)
	}
}

func TestMongoStoreContainsFromServer(t *testing.T) {
	coll := &fakeCollection{docs: map[string]mongoBook{"1008145": {ID: "1008145"}}}
	s, err := newMongoStore(coll, 16, testLogger)
	if err != nil {
		t.Fatalf("newMongoStore: %v", err)
	}
	if !s.Contains("1008145") || !s.Contains("1008145") {
		t.Fatal("existing id not found")
	}
	if coll.counts != 1 {
		t.Errorf("count queries = %d, want 1 (second answered from cache)", coll.counts)
	}
}

func TestMongoStoreLookupErrorIsAbsent(t *testing.T) {
	coll := &fakeCollection{docs: map[string]mongoBook{}, countErr: errors.New("server selection timeout")}
	s, err := newMongoStore(coll, 16, testLogger)
	if err != nil {
		t.Fatalf("newMongoStore: %v", err)
	}
	if s.Contains("1") {
		t.Error("lookup error must report absent")
	}
	if err := s.Put("", sampleRecord()); !errors.Is(err, types.ErrNoBookID) {
		t.Errorf("err = %v, want ErrNoBookID", err)
	}
}

// --- MultiStore and factory ---

func TestMultiStore(t *testing.T) {
	a, err := NewFileStore(t.TempDir(), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewJSONLStore(filepath.Join(t.TempDir(), "books.jsonl"), testLogger)
	if err != nil {
		t.Fatal(err)
	}
	m := NewMultiStore([]Gateway{a, b}, testLogger)
	defer m.Close()

	if err := a.Put("1", sampleRecord()); err != nil {
		t.Fatal(err)
	}
	if m.Contains("1") {
		t.Error("id held by one backend only should not count as stored")
	}
	if err := m.Put("1", sampleRecord()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !m.Contains("1") {
		t.Error("Contains after fan-out Put = false")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig().Storage
	cfg.Dir = filepath.Join(dir, "books")
	cfg.JSONLPath = filepath.Join(dir, "books.jsonl")

	for _, typ := range []string{"file", "jsonl"} {
		cfg.Type = typ
		g, err := New(&cfg, testLogger)
		if err != nil {
			t.Fatalf("New(%s): %v", typ, err)
		}
		if g.Name() != typ {
			t.Errorf("New(%s).Name() = %s", typ, g.Name())
		}
		g.Close()
	}

	cfg.Type = "sqlite"
	if _, err := New(&cfg, testLogger); err == nil {
		t.Error("expected error for unsupported type")
	}
}
