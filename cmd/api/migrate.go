package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/warikan-app/warikan-api/internal/adapters/postgres"
	"github.com/warikan-app/warikan-api/internal/platform/logger"
)

func runMigrate(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath, false)
	if err != nil {
		return err
	}
	if cfg.Storage.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for migrate")
	}
	log := logger.Named("migrate")
	defer func() { _ = logger.Sync() }()

	pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL, postgres.PoolOptions{MaxConns: 2})
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	applied, err := postgres.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	log.Info("migrations applied", zap.Ints("versions", applied), logger.Count(len(applied)))
	return nil
}
