package main

import (
	"context"
	"fmt"
	"os"

	"threadline/internal/config"
	"threadline/internal/gitrepo"
	"threadline/internal/store"
)

// openStore builds the backend named by cfg.Store. For postgres the schema
// is migrated first when migrate is set.
func openStore(ctx context.Context, cfg config.Config, migrate bool) (store.RecordStore, error) {
	switch cfg.Store {
	case config.BackendFile:
		return store.NewFileStore(cfg.CommentsFile)

	case config.BackendPostgres:
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		if migrate {
			if err := store.ApplyMigrations(ctx, db, os.DirFS(cfg.MigrationsDir)); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("migrations failed: %w", err)
			}
		}
		return store.NewPostgresStore(db), nil

	case config.BackendRedis:
		return store.NewRedisStore(cfg.RedisURL, cfg.RedisKey)

	case config.BackendGit:
		return gitrepo.New(cfg.GitDir, cfg.Author)

	case config.BackendS3:
		return store.NewObjectStore(ctx, store.ObjectStoreOptions{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Key:       cfg.S3Key,
			UseSSL:    cfg.S3UseSSL,
		})

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store)
	}
}
