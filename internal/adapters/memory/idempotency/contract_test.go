package idempotency

import (
	"testing"
	"time"

	"github.com/warikan-app/warikan-api/internal/adapters/contracttest"
	idempotencyport "github.com/warikan-app/warikan-api/internal/ports/out/idempotency"
)

func TestContract_IdempotencyStore(t *testing.T) {
	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, contracttest.CleanupFunc) {
		t.Helper()
		return NewStore(time.Hour), nil
	})
}
