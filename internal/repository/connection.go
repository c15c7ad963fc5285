package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoOptions describes the shared cart state database used by the hosted
// deployment. Device builds use OpenSQLite instead.
type MongoOptions struct {
	URI      string
	Database string
	AppName  string
	// MaxPoolSize defaults to 20; one process serves two carts.
	MaxPoolSize uint64
}

// OpenMongoCartStore connects, checks the server is reachable and makes sure
// the cart indexes exist. The returned func disconnects the client.
func OpenMongoCartStore(ctx context.Context, o MongoOptions) (CartStateRepository, func(context.Context) error, error) {
	if o.MaxPoolSize == 0 {
		o.MaxPoolSize = 20
	}
	clientOpts := options.Client().
		ApplyURI(o.URI).
		SetAppName(o.AppName).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(o.MaxPoolSize).
		SetWriteConcern(writeconcern.Majority())

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	disconnect := func(ctx context.Context) error { return client.Disconnect(ctx) }

	if err := client.Ping(ctx, nil); err != nil {
		_ = disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	repo := &mongoRepository{collection: client.Database(o.Database).Collection("cart_states")}
	if err := repo.CreateIndexes(ctx); err != nil {
		_ = disconnect(ctx)
		return nil, nil, err
	}
	return repo, disconnect, nil
}
