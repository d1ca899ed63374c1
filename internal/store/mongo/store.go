// Package mongo persists records to a MongoDB collection.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"weibo-harvest/internal/harvest"
)

// Config holds connection settings for the document store.
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store implements harvest.RecordStore on a single MongoDB collection.
// Records with a source URL upsert by that natural key; the rest insert.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

// New connects, pings, and ensures the collection's indexes.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = "posts"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	ensureIndexes(ctx, coll)

	return &Store{client: client, coll: coll, logger: logger}, nil
}

func ensureIndexes(ctx context.Context, coll *mongo.Collection) {
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "source_url", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "keyword", Value: 1}}},
		{Keys: bson.D{{Key: "fetched_at", Value: 1}}},
	})
}

// Save upserts by source_url when present, otherwise inserts. Failures
// come back as StorageWriteError carrying the offending key.
func (s *Store) Save(ctx context.Context, record harvest.Record) error {
	if record.SourceURL != "" {
		filter := bson.M{"source_url": record.SourceURL}
		opts := options.Replace().SetUpsert(true)
		if _, err := s.coll.ReplaceOne(ctx, filter, record, opts); err != nil {
			return &harvest.StorageWriteError{Key: record.SourceURL, Err: err}
		}
		s.logger.Debug("record upserted", zap.String("source_url", record.SourceURL))
		return nil
	}

	if _, err := s.coll.InsertOne(ctx, record); err != nil {
		return &harvest.StorageWriteError{Key: record.TextHash, Err: err}
	}
	s.logger.Debug("record inserted", zap.String("text_hash", record.TextHash))
	return nil
}

// Ping checks the server is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
