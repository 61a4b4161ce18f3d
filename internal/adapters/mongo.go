package adapters

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chess_mate/internal/bootstrap"
)

type AdapterMongo struct {
	Client   *mongo.Client
	Database *mongo.Database
	cfg      *bootstrap.Config
}

func NewAdapterMongo(cfg *bootstrap.Config) *AdapterMongo {
	return &AdapterMongo{
		cfg: cfg,
	}
}

func (a *AdapterMongo) Init(ctx context.Context) error {
	clientOpts := options.Client().ApplyURI(a.cfg.MongoUri)

	ctxConnect, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctxConnect, clientOpts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	a.Client = client
	a.Database = client.Database(a.cfg.MongoDatabase)

	return nil
}

func (a *AdapterMongo) Close(ctx context.Context) error {
	if a.Client != nil {
		return a.Client.Disconnect(ctx)
	}
	return nil
}
