// Package warikan implements the use cases for users, groups and payments.
// Every operation takes the caller's AuthState and decides authorization
// before touching data; membership is always re-read from the repository.
package warikan

import (
	"context"
	"time"

	"github.com/warikan-app/warikan-api/internal/domain"
	"github.com/warikan-app/warikan-api/internal/platform/ids"
	"github.com/warikan-app/warikan-api/internal/platform/logger"
	"github.com/warikan-app/warikan-api/internal/ports/out/clock"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

type Service struct {
	repo  repo.Repository
	clock clock.Clock

	newID func(now time.Time) string
}

func NewService(r repo.Repository, clk clock.Clock) *Service {
	return &Service{
		repo:  r,
		clock: clk,
		newID: ids.New,
	}
}

// SetNewIDForTest overrides group and payment ID generation for deterministic tests.
func (s *Service) SetNewIDForTest(fn func() string) {
	if fn != nil {
		s.newID = func(time.Time) string { return fn() }
	}
}

// caller returns the authenticated subject or ErrUnauthorized.
func (s *Service) caller(ctx context.Context, auth domain.AuthState, op string) (domain.UserID, error) {
	sub, ok := auth.Subject()
	if !ok {
		logger.From(ctx).Debug("unauthenticated caller denied", logger.Op(op))
		return "", ErrUnauthorized
	}
	return sub, nil
}

// groupFor loads the group and checks that the caller participates in it.
// found=false means the group does not exist; callers decide whether that is
// NotFound or Unauthorized.
func (s *Service) groupFor(ctx context.Context, caller domain.UserID, id domain.GroupID, op string) (g domain.Group, found bool, err error) {
	g, found, err = s.repo.GetGroup(ctx, id)
	if err != nil || !found {
		return domain.Group{}, found, err
	}
	if !g.HasParticipant(caller) {
		logger.From(ctx).Debug("non-member denied",
			logger.Op(op), logger.Subject(string(caller)), logger.GroupID(string(id)))
		return domain.Group{}, true, ErrUnauthorized
	}
	return g, true, nil
}

// requireMember is groupFor where a missing group is indistinguishable from non-membership.
func (s *Service) requireMember(ctx context.Context, auth domain.AuthState, id domain.GroupID, op string) (domain.UserID, domain.Group, error) {
	caller, err := s.caller(ctx, auth, op)
	if err != nil {
		return "", domain.Group{}, err
	}
	g, found, err := s.groupFor(ctx, caller, id, op)
	if err != nil {
		return "", domain.Group{}, err
	}
	if !found {
		return "", domain.Group{}, ErrUnauthorized
	}
	return caller, g, nil
}
