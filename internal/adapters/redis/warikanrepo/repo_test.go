package warikanrepo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warikan-app/warikan-api/internal/adapters/contracttest"
	"github.com/warikan-app/warikan-api/internal/domain"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestContract_RedisRepository(t *testing.T) {
	contracttest.RunRepository(t, func(t *testing.T) (repo.Repository, contracttest.CleanupFunc) {
		t.Helper()
		_, rdb := newMiniredis(t)
		return NewRepo(rdb, "test"), nil
	})
}

func TestRepo_KeyLayout(t *testing.T) {
	t.Parallel()

	mr, rdb := newMiniredis(t)
	r := NewRepo(rdb, "wk")
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := r.CreateGroup(ctx, domain.Group{ID: "g1", CreatedAt: now, Title: "t", Participants: []domain.UserID{"alice"}})
	require.NoError(t, err)
	_, err = r.CreatePayment(ctx, domain.Payment{ID: "p1", CreatedAt: now, Title: "x", Group: "g1", Creditor: "alice", Debtors: []domain.UserID{"bob"}})
	require.NoError(t, err)

	assert.True(t, mr.Exists("wk:group:g1"))
	assert.True(t, mr.Exists("wk:payment:p1"))
	members, err := mr.ZMembers("wk:user-groups:alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, members)
	members, err = mr.ZMembers("wk:group-payments:g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, members)

	require.NoError(t, r.DeletePayment(ctx, "p1"))
	require.NoError(t, r.DeleteGroup(ctx, "g1"))
	assert.False(t, mr.Exists("wk:group:g1"))
	assert.False(t, mr.Exists("wk:user-groups:alice"), "empty index zset is removed")
}

func TestRepo_ServerErrorsSurface(t *testing.T) {
	t.Parallel()

	mr, rdb := newMiniredis(t)
	r := NewRepo(rdb, "wk")
	mr.SetError("ERR server unavailable")

	_, _, err := r.GetGroup(context.Background(), "g1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repo.ErrNotFound)
}

func TestRepo_SubjectsWithColonsDoNotCollideWithIndexes(t *testing.T) {
	t.Parallel()

	mr, rdb := newMiniredis(t)
	r := NewRepo(rdb, "wk")
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []domain.UserID{"alice:groups", "g1:payments"} {
		_, err := r.CreateUser(ctx, domain.User{ID: id, Name: "x"})
		require.NoError(t, err)
	}
	_, err := r.CreateGroup(ctx, domain.Group{ID: "g1", CreatedAt: now, Title: "t", Participants: []domain.UserID{"alice"}})
	require.NoError(t, err)
	_, err = r.CreatePayment(ctx, domain.Payment{ID: "p1", CreatedAt: now, Title: "x", Group: "g1", Creditor: "alice"})
	require.NoError(t, err)

	gs, err := r.GetGroupsByUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, gs, 1)
	assert.Equal(t, domain.GroupID("g1"), gs[0].ID)

	u, ok, err := r.GetUser(ctx, "alice:groups")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.UserID("alice:groups"), u.ID)
	assert.True(t, mr.Exists("wk:user:alice:groups"))
	assert.True(t, mr.Exists("wk:user-groups:alice"))
}
