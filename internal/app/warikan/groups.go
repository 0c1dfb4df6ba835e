package warikan

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/warikan-app/warikan-api/internal/domain"
	"github.com/warikan-app/warikan-api/internal/platform/logger"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

// CreateGroup creates a group whose only participant is the caller.
func (s *Service) CreateGroup(ctx context.Context, auth domain.AuthState, title string) (domain.Group, error) {
	caller, err := s.caller(ctx, auth, "CreateGroup")
	if err != nil {
		return domain.Group{}, err
	}
	now := s.clock.Now()
	g := domain.Group{
		ID:           domain.GroupID(s.newID(now)),
		CreatedAt:    now,
		Title:        domain.NormalizeHumanName(title),
		Participants: []domain.UserID{caller},
	}
	created, err := s.repo.CreateGroup(ctx, g)
	if err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			return domain.Group{}, conflict("group", string(g.ID))
		}
		return domain.Group{}, err
	}
	return created, nil
}

// DeleteGroup deletes every payment of the group concurrently and then the group.
// If any payment deletion fails the group is kept; payments already removed stay removed.
func (s *Service) DeleteGroup(ctx context.Context, auth domain.AuthState, id domain.GroupID) (domain.GroupID, error) {
	caller, err := s.caller(ctx, auth, "DeleteGroup")
	if err != nil {
		return "", err
	}
	if _, found, err := s.groupFor(ctx, caller, id, "DeleteGroup"); err != nil {
		return "", err
	} else if !found {
		return "", notFound("group", string(id))
	}

	payments, err := s.repo.GetPaymentsByGroup(ctx, id)
	if err != nil {
		return "", err
	}
	eg, egctx := errgroup.WithContext(ctx)
	for _, p := range payments {
		p := p
		eg.Go(func() error {
			err := s.repo.DeletePayment(egctx, p.ID)
			if errors.Is(err, repo.ErrNotFound) {
				// Already gone.
				return nil
			}
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		logger.From(ctx).Warn("group cascade aborted",
			logger.GroupID(string(id)), logger.Count(len(payments)), logger.Err(err))
		return "", err
	}

	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", notFound("group", string(id))
		}
		return "", err
	}
	return id, nil
}

// FindGroup returns ok=false when the group does not exist. Non-members get
// Unauthorized whether or not it exists.
func (s *Service) FindGroup(ctx context.Context, auth domain.AuthState, id domain.GroupID) (domain.Group, bool, error) {
	caller, err := s.caller(ctx, auth, "FindGroup")
	if err != nil {
		return domain.Group{}, false, err
	}
	g, found, err := s.groupFor(ctx, caller, id, "FindGroup")
	if err != nil {
		return domain.Group{}, false, err
	}
	return g, found, nil
}

func (s *Service) GetGroup(ctx context.Context, auth domain.AuthState, id domain.GroupID) (domain.Group, error) {
	g, ok, err := s.FindGroup(ctx, auth, id)
	if err != nil {
		return domain.Group{}, err
	}
	if !ok {
		return domain.Group{}, notFound("group", string(id))
	}
	return g, nil
}

// ListGroupsForUser returns the groups the caller participates in.
func (s *Service) ListGroupsForUser(ctx context.Context, auth domain.AuthState) ([]domain.Group, error) {
	caller, err := s.caller(ctx, auth, "ListGroupsForUser")
	if err != nil {
		return nil, err
	}
	return s.repo.GetGroupsByUser(ctx, caller)
}

// AddParticipant lets a member add another user to the group. Adding an
// existing participant is a no-op. The added user is not required to exist.
func (s *Service) AddParticipant(ctx context.Context, auth domain.AuthState, id domain.GroupID, user domain.UserID) (domain.Group, error) {
	_, g, err := s.requireMember(ctx, auth, id, "AddParticipant")
	if err != nil {
		return domain.Group{}, err
	}
	if g.HasParticipant(user) {
		return g, nil
	}
	if err := s.repo.AddGroupParticipant(ctx, id, user); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Group{}, notFound("group", string(id))
		}
		return domain.Group{}, err
	}
	g.Participants = append(g.Participants, user)
	return g, nil
}
