// Package contracttest holds behavior suites that every port implementation
// must pass. Store packages call them from their own _test.go files.
package contracttest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warikan-app/warikan-api/internal/domain"
	idempotencyport "github.com/warikan-app/warikan-api/internal/ports/out/idempotency"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

type CleanupFunc = func()

type RepositoryFactory func(t *testing.T) (repo.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// Timestamps are UTC at microsecond precision so every store round-trips them exactly.
// runTimestamps covers the case where callers hand in finer precision.
var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newUserID() domain.UserID       { return domain.UserID("user-" + uuid.NewString()) }
func newGroupID() domain.GroupID     { return domain.GroupID("group-" + uuid.NewString()) }
func newPaymentID() domain.PaymentID { return domain.PaymentID("payment-" + uuid.NewString()) }

func open(t *testing.T, newRepo RepositoryFactory) repo.Repository {
	t.Helper()
	r, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	return r
}

func RunRepository(t *testing.T, newRepo RepositoryFactory) {
	t.Helper()

	t.Run("users", func(t *testing.T) { runUsers(t, open(t, newRepo)) })
	t.Run("groups", func(t *testing.T) { runGroups(t, open(t, newRepo)) })
	t.Run("payments", func(t *testing.T) { runPayments(t, open(t, newRepo)) })
	t.Run("concurrent access", func(t *testing.T) { runConcurrent(t, open(t, newRepo)) })
	t.Run("timestamps", func(t *testing.T) { runTimestamps(t, open(t, newRepo)) })
	t.Run("ids with colons", func(t *testing.T) { runColonIDs(t, open(t, newRepo)) })
}

func runUsers(t *testing.T, r repo.Repository) {
	ctx := context.Background()

	u := domain.User{ID: newUserID(), Name: "Alice"}
	got, err := r.CreateUser(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = r.CreateUser(ctx, domain.User{ID: u.ID, Name: "Alice again"})
	assert.ErrorIs(t, err, repo.ErrAlreadyExists)

	found, ok, err := r.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u, found)

	_, ok, err = r.GetUser(ctx, newUserID())
	require.NoError(t, err)
	assert.False(t, ok, "absent user must be reported as ok=false, not an error")

	require.NoError(t, r.DeleteUser(ctx, u.ID))
	assert.ErrorIs(t, r.DeleteUser(ctx, u.ID), repo.ErrNotFound)

	_, ok, err = r.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func runGroups(t *testing.T, r repo.Repository) {
	ctx := context.Background()

	alice, bob, carol := newUserID(), newUserID(), newUserID()
	g1 := domain.Group{ID: newGroupID(), CreatedAt: base, Title: "Trip", Participants: []domain.UserID{alice}}
	g2 := domain.Group{ID: newGroupID(), CreatedAt: base.Add(time.Second), Title: "Dinner", Participants: []domain.UserID{bob, alice}}
	g3 := domain.Group{ID: newGroupID(), CreatedAt: base.Add(2 * time.Second), Title: "Rent", Participants: []domain.UserID{bob}}

	// Insert out of creation order; listing must still follow CreatedAt.
	for _, g := range []domain.Group{g2, g3, g1} {
		got, err := r.CreateGroup(ctx, g)
		require.NoError(t, err)
		assert.Equal(t, g, got)
	}
	_, err := r.CreateGroup(ctx, domain.Group{ID: g1.ID, CreatedAt: base, Title: "dup", Participants: []domain.UserID{carol}})
	assert.ErrorIs(t, err, repo.ErrAlreadyExists)

	found, ok, err := r.GetGroup(ctx, g2.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, g2, found)

	_, ok, err = r.GetGroup(ctx, newGroupID())
	require.NoError(t, err)
	assert.False(t, ok)

	byAlice, err := r.GetGroupsByUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupID{g1.ID, g2.ID}, groupIDs(byAlice))

	none, err := r.GetGroupsByUser(ctx, carol)
	require.NoError(t, err)
	assert.Empty(t, none)

	// Participants are append-only and keep insertion order.
	require.NoError(t, r.AddGroupParticipant(ctx, g1.ID, carol))
	require.NoError(t, r.AddGroupParticipant(ctx, g1.ID, carol))
	found, ok, err = r.GetGroup(ctx, g1.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []domain.UserID{alice, carol}, found.Participants)

	byCarol, err := r.GetGroupsByUser(ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupID{g1.ID}, groupIDs(byCarol))

	assert.ErrorIs(t, r.AddGroupParticipant(ctx, newGroupID(), carol), repo.ErrNotFound)

	require.NoError(t, r.DeleteGroup(ctx, g2.ID))
	assert.ErrorIs(t, r.DeleteGroup(ctx, g2.ID), repo.ErrNotFound)

	byAlice, err = r.GetGroupsByUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupID{g1.ID}, groupIDs(byAlice))
}

func runPayments(t *testing.T, r repo.Repository) {
	ctx := context.Background()

	alice, bob := newUserID(), newUserID()
	group, other := newGroupID(), newGroupID()
	p1 := domain.Payment{ID: newPaymentID(), CreatedAt: base, Title: "Taxi", Group: group, Creditor: alice, Debtors: []domain.UserID{bob}}
	p2 := domain.Payment{ID: newPaymentID(), CreatedAt: base.Add(time.Minute), Title: "Hotel", Group: group, Creditor: bob, Debtors: []domain.UserID{alice, bob}}
	p3 := domain.Payment{ID: newPaymentID(), CreatedAt: base, Title: "Elsewhere", Group: other, Creditor: bob, Debtors: []domain.UserID{alice}}

	for _, p := range []domain.Payment{p2, p1, p3} {
		got, err := r.CreatePayment(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := r.CreatePayment(ctx, p1)
	assert.ErrorIs(t, err, repo.ErrAlreadyExists)

	found, ok, err := r.GetPayment(ctx, p2.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p2, found)

	_, ok, err = r.GetPayment(ctx, newPaymentID())
	require.NoError(t, err)
	assert.False(t, ok)

	inGroup, err := r.GetPaymentsByGroup(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, []domain.Payment{p1, p2}, inGroup)

	empty, err := r.GetPaymentsByGroup(ctx, newGroupID())
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, r.DeletePayment(ctx, p1.ID))
	assert.ErrorIs(t, r.DeletePayment(ctx, p1.ID), repo.ErrNotFound)

	inGroup, err = r.GetPaymentsByGroup(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, []domain.Payment{p2}, inGroup)
}

func runConcurrent(t *testing.T, r repo.Repository) {
	ctx := context.Background()

	group := newGroupID()
	const n = 16
	ids := make([]domain.PaymentID, n)
	for i := range ids {
		ids[i] = newPaymentID()
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.CreatePayment(ctx, domain.Payment{
				ID: id, CreatedAt: base.Add(time.Duration(i) * time.Millisecond), Title: "p",
				Group: group, Creditor: "alice", Debtors: []domain.UserID{"bob"},
			})
			errs <- err
		}()
	}
	wg.Wait()

	for _, id := range ids {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- r.DeletePayment(ctx, id)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	left, err := r.GetPaymentsByGroup(ctx, group)
	require.NoError(t, err)
	assert.Empty(t, left)
}

// Create must return what a later Get returns, even when the store keeps
// less precision than it was given.
func runTimestamps(t *testing.T, r repo.Repository) {
	ctx := context.Background()

	at := base.Add(123456789 * time.Nanosecond)
	alice := newUserID()

	g, err := r.CreateGroup(ctx, domain.Group{ID: newGroupID(), CreatedAt: at, Title: "Trip", Participants: []domain.UserID{alice}})
	require.NoError(t, err)
	gotG, ok, err := r.GetGroup(ctx, g.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, g, gotG)
	assert.WithinDuration(t, at, g.CreatedAt, time.Microsecond)

	p, err := r.CreatePayment(ctx, domain.Payment{ID: newPaymentID(), CreatedAt: at, Title: "Taxi", Group: g.ID, Creditor: alice, Debtors: []domain.UserID{alice}})
	require.NoError(t, err)
	gotP, ok, err := r.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, gotP)
	assert.WithinDuration(t, at, p.CreatedAt, time.Microsecond)
}

func runColonIDs(t *testing.T, r repo.Repository) {
	ctx := context.Background()

	alice := domain.UserID("colon-" + uuid.NewString())
	lookalike := domain.UserID(string(alice) + ":groups")
	_, err := r.CreateUser(ctx, domain.User{ID: lookalike, Name: "Mallory"})
	require.NoError(t, err)
	_, err = r.CreateUser(ctx, domain.User{ID: alice, Name: "Alice"})
	require.NoError(t, err)

	g := domain.Group{ID: newGroupID(), CreatedAt: base, Title: "Trip", Participants: []domain.UserID{alice}}
	_, err = r.CreateGroup(ctx, g)
	require.NoError(t, err)

	p := domain.Payment{ID: newPaymentID(), CreatedAt: base, Title: "Taxi", Group: g.ID, Creditor: alice, Debtors: []domain.UserID{lookalike}}
	_, err = r.CreatePayment(ctx, p)
	require.NoError(t, err)

	groups, err := r.GetGroupsByUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []domain.GroupID{g.ID}, groupIDs(groups))

	groups, err = r.GetGroupsByUser(ctx, lookalike)
	require.NoError(t, err)
	assert.Empty(t, groups)

	payments, err := r.GetPaymentsByGroup(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Payment{p}, payments)

	u, ok, err := r.GetUser(ctx, lookalike)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Mallory", u.Name)
}

func groupIDs(gs []domain.Group) []domain.GroupID {
	out := make([]domain.GroupID, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.ID)
	}
	return out
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.SubjectID("alice"),
		Method:   "POST",
		Route:    "/groups",
		BodyHash: "hash-abc",
	}

	_, ok, err := store.Get(ctx, fp)
	require.NoError(t, err)
	require.False(t, ok)

	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"id":"g1"}`),
		CreatedAt:   base,
	}
	require.NoError(t, store.Put(ctx, fp, rec))

	got, ok, err := store.Get(ctx, fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 201, got.StatusCode)
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, `{"id":"g1"}`, string(got.Body))

	// Any differing fingerprint field is a different request.
	other := fp
	other.Subject = "bob"
	_, ok, err = store.Get(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)

	other = fp
	other.BodyHash = "hash-def"
	_, ok, err = store.Get(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"id":"g2"}`)
	require.NoError(t, store.Put(ctx, fp, rec2))
	got, ok, err = store.Get(ctx, fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"id":"g2"}`, string(got.Body))
}
