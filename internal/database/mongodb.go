package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/sitecraft/siteadmin/internal/config"
)

// Mongo is an open connection plus the collection the document repository
// writes to. Callers must Close it.
type Mongo struct {
	Client    *mongo.Client
	Documents *mongo.Collection
	timeout   time.Duration
}

// ConnectMongo opens a connection, pings the primary and returns the
// documents collection.
func ConnectMongo(ctx context.Context, cfg config.MongoDBConfig) (*Mongo, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("siteadmin-store").
		SetWriteConcern(writeconcern.Majority())
	client, err := mongo.Connect(cctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Mongo{
		Client:    client,
		Documents: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:   timeout,
	}, nil
}

// Ping reports whether the primary is reachable.
func (m *Mongo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
