package repo

import (
	"context"

	"github.com/warikan-app/warikan-api/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	// CreateUser stores u and returns it unchanged. ErrAlreadyExists if u.ID is taken.
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	// DeleteUser removes the user. ErrNotFound if it does not exist.
	DeleteUser(ctx context.Context, id domain.UserID) error
	// GetUser returns ok=false when the user does not exist; absence is not an error.
	GetUser(ctx context.Context, id domain.UserID) (domain.User, bool, error)
}

// GroupRepository persists groups.
//
// Result ordering expectations:
// - GetGroupsByUser returns groups in creation order (CreatedAt, then ID).
type GroupRepository interface {
	CreateGroup(ctx context.Context, g domain.Group) (domain.Group, error)
	DeleteGroup(ctx context.Context, id domain.GroupID) error
	GetGroup(ctx context.Context, id domain.GroupID) (domain.Group, bool, error)

	// GetGroupsByUser returns every group whose participants contain user.
	GetGroupsByUser(ctx context.Context, user domain.UserID) ([]domain.Group, error)

	// AddGroupParticipant appends user to the group's participants unless already present.
	// ErrNotFound if the group does not exist.
	AddGroupParticipant(ctx context.Context, id domain.GroupID, user domain.UserID) error
}

// PaymentRepository persists payments.
//
// Result ordering expectations:
// - GetPaymentsByGroup returns payments in creation order (CreatedAt, then ID).
type PaymentRepository interface {
	CreatePayment(ctx context.Context, p domain.Payment) (domain.Payment, error)
	DeletePayment(ctx context.Context, id domain.PaymentID) error
	GetPayment(ctx context.Context, id domain.PaymentID) (domain.Payment, bool, error)

	// GetPaymentsByGroup returns every payment whose Group equals group.
	GetPaymentsByGroup(ctx context.Context, group domain.GroupID) ([]domain.Payment, error)
}

// Repository is the full persistence contract the use-case layer depends on.
// Concrete stores implement all three entity repositories.
//
// Implementations must be safe for concurrent use and must enforce ID uniqueness
// per entity collection. Any other failure is returned as an opaque store error.
type Repository interface {
	UserRepository
	GroupRepository
	PaymentRepository
}
