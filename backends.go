package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sitecraft/siteadmin/internal/config"
	"github.com/sitecraft/siteadmin/internal/database"
	"github.com/sitecraft/siteadmin/internal/document/repository"
	"github.com/sitecraft/siteadmin/internal/gitstore"
	"github.com/sitecraft/siteadmin/internal/storage"
	"github.com/sitecraft/siteadmin/pkg/logger"
)

// backends holds the opened storage for one process. Close releases the
// network clients.
type backends struct {
	repo   repository.Repository
	assets storage.AssetStore
	redis  *redis.Client
	mongo  *database.Mongo
	git    *gitstore.Store
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}
	if err := b.connect(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *backends) connect(ctx context.Context, cfg *config.Config) error {
	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			if cfg.Store.Backend == "redis" {
				return fmt.Errorf("redis %s: %w", addr, err)
			}
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
		} else {
			b.redis = client
			logger.Infof("connected to Redis: %s", addr)
		}
	}

	if cfg.Store.Backend == "mongo" {
		m, err := connectMongoWithRetry(ctx, cfg.MongoDB)
		if err != nil {
			return err
		}
		b.mongo = m
	}

	if cfg.Store.Backend == "git" || cfg.Assets.Backend == "git" {
		gs, err := gitstore.Open(cfg.Store.GitDir, cfg.Store.Author)
		if err != nil {
			return fmt.Errorf("open git store %s: %w", cfg.Store.GitDir, err)
		}
		b.git = gs
	}

	switch cfg.Store.Backend {
	case "memory":
		b.repo = repository.NewMemoryRepo()
	case "git":
		b.repo = repository.NewGitRepo(b.git)
	case "mongo":
		b.repo = repository.NewMongoRepo(b.mongo.Documents)
	case "redis":
		b.repo = repository.NewRedisRepo(b.redis, "")
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	switch cfg.Assets.Backend {
	case "memory":
		b.assets = storage.NewMemoryAssetStore(cfg.Assets.BaseURL)
	case "git":
		b.assets = storage.NewGitAssetStore(b.git, cfg.Assets.BaseURL)
	case "minio":
		s, err := storage.NewMinIOStorage(&storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
			PublicURL: cfg.MinIO.PublicURL,
		})
		if err != nil {
			return err
		}
		b.assets = s
	default:
		return fmt.Errorf("unknown assets backend %q", cfg.Assets.Backend)
	}

	logger.Infof("backends: documents=%s assets=%s redis=%v", cfg.Store.Backend, cfg.Assets.Backend, b.redis != nil)
	return nil
}

// connectMongoWithRetry tolerates the database coming up after the service.
func connectMongoWithRetry(ctx context.Context, cfg config.MongoDBConfig) (*database.Mongo, error) {
	const maxAttempts = 5
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		m, err := database.ConnectMongo(ctx, cfg)
		if err == nil {
			return m, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", maxAttempts, lastErr)
}

// ready pings the network dependencies in use.
func (b *backends) ready(ctx context.Context) map[string]bool {
	deps := map[string]bool{}
	if b.redis != nil {
		deps["redis"] = b.redis.Ping(ctx).Err() == nil
	}
	if b.mongo != nil {
		deps["mongo"] = b.mongo.Ping(ctx) == nil
	}
	return deps
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.mongo.Close(ctx)
	}
}
