package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shadowDragonCloud/rosario/internal/config"
	"github.com/shadowDragonCloud/rosario/internal/types"
)

const mongoOpTimeout = 10 * time.Second

// bookCollection is the part of *mongo.Collection the store uses.
type bookCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// mongoBook is the stored document; the book id is the primary key.
type mongoBook struct {
	ID               string `bson:"_id"`
	types.BookRecord `bson:",inline"`
}

// MongoStore upserts records into a MongoDB collection. Known ids are
// cached so a rerun does not query the server for every listed book.
type MongoStore struct {
	client     *mongo.Client
	collection bookCollection
	known      *lru.Cache[string, struct{}]
	logger     *slog.Logger
}

// NewMongoStore connects to the configured server.
func NewMongoStore(cfg *config.StorageConfig, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	s, err := newMongoStore(client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection), cfg.CacheSize, logger)
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	s.client = client
	return s, nil
}

func newMongoStore(coll bookCollection, cacheSize int, logger *slog.Logger) (*MongoStore, error) {
	if cacheSize < 1 {
		cacheSize = 1
	}
	known, err := lru.New[string, struct{}](cacheSize)
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("create id cache: %w", err)}
	}
	return &MongoStore{
		collection: coll,
		known:      known,
		logger:     logger.With("component", "mongo_store"),
	}, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

// Contains answers from the cache first. A lookup error is logged and
// treated as absent, so the book is fetched again rather than lost.
func (s *MongoStore) Contains(id string) bool {
	if s.known.Contains(id) {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	n, err := s.collection.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		s.logger.Warn("mongodb lookup failed", "id", id, "error", err)
		return false
	}
	if n > 0 {
		s.known.Add(id, struct{}{})
		return true
	}
	return false
}

func (s *MongoStore) Put(id string, rec *types.BookRecord) error {
	if id == "" {
		return &types.StorageError{Backend: "mongodb", Err: types.ErrNoBookID}
	}
	if rec == nil {
		return &types.StorageError{Backend: "mongodb", Err: errors.New("nil record")}
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	res, err := s.collection.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		mongoBook{ID: id, BookRecord: *rec},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("upsert %s: %w", id, err)}
	}
	if res != nil && res.MatchedCount > 0 {
		s.logger.Warn("duplicate book id stored", "id", id)
	}
	s.known.Add(id, struct{}{})
	s.logger.Debug("book upserted", "id", id)
	return nil
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}
	s.logger.Info("mongodb store closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
