package warikan

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/warikan-app/warikan-api/internal/domain"
	"github.com/warikan-app/warikan-api/internal/platform/logger"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

// CreateUser registers the caller as a user; the user ID is the caller's subject.
func (s *Service) CreateUser(ctx context.Context, auth domain.AuthState, name string) (domain.User, error) {
	caller, err := s.caller(ctx, auth, "CreateUser")
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.repo.CreateUser(ctx, domain.User{ID: caller, Name: domain.NormalizeHumanName(name)})
	if err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return domain.User{}, conflict("user", string(caller))
		}
		return domain.User{}, err
	}
	return u, nil
}

// DeleteUser removes the caller's own user record. Deleting anyone else is Unauthorized.
func (s *Service) DeleteUser(ctx context.Context, auth domain.AuthState, id domain.UserID) (domain.UserID, error) {
	caller, err := s.caller(ctx, auth, "DeleteUser")
	if err != nil {
		return "", err
	}
	if caller != id {
		logger.From(ctx).Debug("cross-user delete denied",
			logger.Op("DeleteUser"), logger.Subject(string(caller)), logger.UserID(string(id)))
		return "", ErrUnauthorized
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", notFound("user", string(id))
		}
		return "", err
	}
	return id, nil
}

// FindUser returns ok=false when the user does not exist.
func (s *Service) FindUser(ctx context.Context, auth domain.AuthState, id domain.UserID) (domain.User, bool, error) {
	if _, err := s.caller(ctx, auth, "FindUser"); err != nil {
		return domain.User{}, false, err
	}
	return s.repo.GetUser(ctx, id)
}

func (s *Service) GetUser(ctx context.Context, auth domain.AuthState, id domain.UserID) (domain.User, error) {
	u, ok, err := s.FindUser(ctx, auth, id)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, notFound("user", string(id))
	}
	return u, nil
}

// GetUsers fetches all ids concurrently and returns them in request order.
// The first failure (including a missing user) fails the whole call.
func (s *Service) GetUsers(ctx context.Context, auth domain.AuthState, userIDs []domain.UserID) ([]domain.User, error) {
	if _, err := s.caller(ctx, auth, "GetUsers"); err != nil {
		return nil, err
	}

	out := make([]domain.User, len(userIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range userIDs {
		i, id := i, id
		g.Go(func() error {
			u, ok, err := s.repo.GetUser(gctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return notFound("user", string(id))
			}
			out[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
