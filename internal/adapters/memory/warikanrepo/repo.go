package warikanrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/warikan-app/warikan-api/internal/domain"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

// Repo is an in-memory implementation of repo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	users    map[domain.UserID]domain.User
	groups   map[domain.GroupID]domain.Group
	payments map[domain.PaymentID]domain.Payment
}

var _ repo.Repository = (*Repo)(nil)

func NewRepo() *Repo {
	return &Repo{
		users:    make(map[domain.UserID]domain.User),
		groups:   make(map[domain.GroupID]domain.Group),
		payments: make(map[domain.PaymentID]domain.Payment),
	}
}

func (r *Repo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; ok {
		return domain.User{}, repo.ErrAlreadyExists
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *Repo) DeleteUser(ctx context.Context, id domain.UserID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *Repo) GetUser(ctx context.Context, id domain.UserID) (domain.User, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	return u, ok, nil
}

func (r *Repo) CreateGroup(ctx context.Context, g domain.Group) (domain.Group, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[g.ID]; ok {
		return domain.Group{}, repo.ErrAlreadyExists
	}
	r.groups[g.ID] = g.Clone()
	return g.Clone(), nil
}

func (r *Repo) DeleteGroup(ctx context.Context, id domain.GroupID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.groups, id)
	return nil
}

func (r *Repo) GetGroup(ctx context.Context, id domain.GroupID) (domain.Group, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return domain.Group{}, false, nil
	}
	return g.Clone(), true, nil
}

func (r *Repo) GetGroupsByUser(ctx context.Context, user domain.UserID) ([]domain.Group, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Group, 0)
	for _, g := range r.groups {
		if g.HasParticipant(user) {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repo) AddGroupParticipant(ctx context.Context, id domain.GroupID, user domain.UserID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[id]
	if !ok {
		return repo.ErrNotFound
	}
	if g.HasParticipant(user) {
		return nil
	}
	g = g.Clone()
	g.Participants = append(g.Participants, user)
	r.groups[id] = g
	return nil
}

func (r *Repo) CreatePayment(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; ok {
		return domain.Payment{}, repo.ErrAlreadyExists
	}
	r.payments[p.ID] = p.Clone()
	return p.Clone(), nil
}

func (r *Repo) DeletePayment(ctx context.Context, id domain.PaymentID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.payments, id)
	return nil
}

func (r *Repo) GetPayment(ctx context.Context, id domain.PaymentID) (domain.Payment, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[id]
	if !ok {
		return domain.Payment{}, false, nil
	}
	return p.Clone(), true, nil
}

func (r *Repo) GetPaymentsByGroup(ctx context.Context, group domain.GroupID) ([]domain.Payment, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Payment, 0)
	for _, p := range r.payments {
		if p.Group == group {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
