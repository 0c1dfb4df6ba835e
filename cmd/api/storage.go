package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	memidempotency "github.com/warikan-app/warikan-api/internal/adapters/memory/idempotency"
	memrepo "github.com/warikan-app/warikan-api/internal/adapters/memory/warikanrepo"
	"github.com/warikan-app/warikan-api/internal/adapters/postgres"
	pgidempotency "github.com/warikan-app/warikan-api/internal/adapters/postgres/idempotency"
	pgrepo "github.com/warikan-app/warikan-api/internal/adapters/postgres/warikanrepo"
	redisrepo "github.com/warikan-app/warikan-api/internal/adapters/redis/warikanrepo"
	"github.com/warikan-app/warikan-api/internal/platform/config"
	"github.com/warikan-app/warikan-api/internal/platform/logger"
	"github.com/warikan-app/warikan-api/internal/ports/out/idempotency"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

const idempotencyPurgeInterval = time.Hour

type storage struct {
	Repo    repo.Repository
	Idem    idempotency.Store
	closers []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (*storage, error) {
	st := &storage{}
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		st.closers = append(st.closers, pool.Close)

		idem := pgidempotency.NewStore(pool, cfg.Idempotency.TTL)
		purgeCtx, cancel := context.WithCancel(ctx)
		st.closers = append(st.closers, cancel)
		go purgeIdempotency(purgeCtx, idem, log)

		st.Repo = pgrepo.NewRepo(pool)
		st.Idem = idem
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr: cfg.Storage.Redis.Addr,
			DB:   cfg.Storage.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		st.closers = append(st.closers, func() { _ = rdb.Close() })
		st.Repo = redisrepo.NewRepo(rdb, cfg.Storage.Redis.Prefix)
		st.Idem = memidempotency.NewStore(cfg.Idempotency.TTL)
	default:
		st.Repo = memrepo.NewRepo()
		st.Idem = memidempotency.NewStore(cfg.Idempotency.TTL)
	}
	return st, nil
}

func purgeIdempotency(ctx context.Context, s *pgidempotency.Store, log *zap.Logger) {
	t := time.NewTicker(idempotencyPurgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Purge(ctx)
			if err != nil {
				log.Warn("idempotency purge failed", logger.Err(err))
				continue
			}
			log.Debug("idempotency purged", logger.Count(int(n)))
		}
	}
}
