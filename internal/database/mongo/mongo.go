// Package mongo implements the durable store for shortened URLs on top of
// MongoDB. It is the authoritative source for URL records and synced click
// totals; click deltas accrued between reconciliations live in the cache.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// New connects to the MongoDB deployment at uri and verifies the
// connection with a ping. The caller owns the returned client and must
// disconnect it on shutdown.
func New(ctx context.Context, uri string) (*mongo.Client, error) {
	const op = "database.mongo.New"

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return client, nil
}
