// Package mongostore persists per-title compatibility results in MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/codenarok/SteamGameFetcher/config"
)

// Store wraps a MongoDB collection of game documents keyed by their full
// field set.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect opens a client and pings the deployment so a bad URI fails here
// rather than on the first write.
func Connect(ctx context.Context, cfg config.MongoDB) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Close releases the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// UpsertResult writes one game document. The filter matches every field of
// the document, so a document is inserted only when no identical one exists
// and existing documents are never modified.
func (s *Store) UpsertResult(ctx context.Context, doc bson.M) (inserted bool, err error) {
	update := bson.M{"$setOnInsert": doc}
	res, err := s.coll.UpdateOne(ctx, doc, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("upsert game document: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

// UpsertResults writes a batch of documents and reports how many were new.
func (s *Store) UpsertResults(ctx context.Context, docs []bson.M) (inserted int, err error) {
	for _, doc := range docs {
		ok, err := s.UpsertResult(ctx, doc)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	slog.Info("mongo upsert batch complete",
		slog.Int("documents", len(docs)),
		slog.Int("inserted", inserted),
	)
	return inserted, nil
}
