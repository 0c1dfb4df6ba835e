package idempotency

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/warikan-app/warikan-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// Records expire after the configured TTL. It is safe for concurrent use.
type Store struct {
	c *gocache.Cache
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Store{c: gocache.New(ttl, time.Minute)}
}

func cacheKey(fp idempotency.Fingerprint) string {
	return strings.Join([]string{string(fp.Key), string(fp.Subject), fp.Method, fp.Route, fp.BodyHash}, "\x00")
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	v, ok := s.c.Get(cacheKey(fp))
	if !ok {
		return idempotency.Record{}, false, nil
	}
	rec := v.(idempotency.Record)
	rec.Body = append([]byte(nil), rec.Body...)
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	rec.Body = append([]byte(nil), rec.Body...)
	s.c.Set(cacheKey(fp), rec, gocache.DefaultExpiration)
	return nil
}
