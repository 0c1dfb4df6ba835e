package warikanrepo

import (
	"testing"

	"github.com/warikan-app/warikan-api/internal/adapters/contracttest"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

func TestContract_Repository(t *testing.T) {
	contracttest.RunRepository(t, func(t *testing.T) (repo.Repository, contracttest.CleanupFunc) {
		t.Helper()
		return NewRepo(), nil
	})
}
