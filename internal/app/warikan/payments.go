package warikan

import (
	"context"
	"errors"

	"github.com/warikan-app/warikan-api/internal/domain"
	"github.com/warikan-app/warikan-api/internal/platform/logger"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

type CreatePaymentInput struct {
	Title    string
	Group    domain.GroupID
	Creditor domain.UserID
	Debtors  []domain.UserID
}

// CreatePayment records a payment in a group the caller participates in.
// Creditor and debtors are stored as given.
func (s *Service) CreatePayment(ctx context.Context, auth domain.AuthState, in CreatePaymentInput) (domain.Payment, error) {
	if _, _, err := s.requireMember(ctx, auth, in.Group, "CreatePayment"); err != nil {
		return domain.Payment{}, err
	}
	now := s.clock.Now()
	p := domain.Payment{
		ID:        domain.PaymentID(s.newID(now)),
		CreatedAt: now,
		Title:     domain.NormalizeHumanName(in.Title),
		Group:     in.Group,
		Creditor:  in.Creditor,
		Debtors:   append([]domain.UserID{}, in.Debtors...),
	}
	created, err := s.repo.CreatePayment(ctx, p)
	if err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return domain.Payment{}, conflict("payment", string(p.ID))
		}
		return domain.Payment{}, err
	}
	return created, nil
}

// FindPayment returns ok=false when the payment does not exist. An existing
// payment is only visible to participants of its group.
func (s *Service) FindPayment(ctx context.Context, auth domain.AuthState, id domain.PaymentID) (domain.Payment, bool, error) {
	caller, err := s.caller(ctx, auth, "FindPayment")
	if err != nil {
		return domain.Payment{}, false, err
	}
	p, ok, err := s.repo.GetPayment(ctx, id)
	if err != nil || !ok {
		return domain.Payment{}, false, err
	}
	if err := s.authorizePayment(ctx, caller, p, "FindPayment"); err != nil {
		return domain.Payment{}, false, err
	}
	return p, true, nil
}

func (s *Service) GetPayment(ctx context.Context, auth domain.AuthState, id domain.PaymentID) (domain.Payment, error) {
	p, ok, err := s.FindPayment(ctx, auth, id)
	if err != nil {
		return domain.Payment{}, err
	}
	if !ok {
		return domain.Payment{}, notFound("payment", string(id))
	}
	return p, nil
}

func (s *Service) DeletePayment(ctx context.Context, auth domain.AuthState, id domain.PaymentID) (domain.PaymentID, error) {
	if _, err := s.GetPayment(ctx, auth, id); err != nil {
		return "", err
	}
	if err := s.repo.DeletePayment(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", notFound("payment", string(id))
		}
		return "", err
	}
	return id, nil
}

// ListPaymentsByGroup returns the group's payments in creation order.
func (s *Service) ListPaymentsByGroup(ctx context.Context, auth domain.AuthState, group domain.GroupID) ([]domain.Payment, error) {
	if _, _, err := s.requireMember(ctx, auth, group, "ListPaymentsByGroup"); err != nil {
		return nil, err
	}
	return s.repo.GetPaymentsByGroup(ctx, group)
}

// authorizePayment checks membership in the payment's group. A payment whose
// group no longer exists is visible to nobody.
func (s *Service) authorizePayment(ctx context.Context, caller domain.UserID, p domain.Payment, op string) error {
	_, found, err := s.groupFor(ctx, caller, p.Group, op)
	if err != nil {
		return err
	}
	if !found {
		logger.From(ctx).Debug("payment of missing group denied",
			logger.Op(op), logger.PaymentID(string(p.ID)), logger.GroupID(string(p.Group)))
		return ErrUnauthorized
	}
	return nil
}
