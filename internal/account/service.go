// Package account reads and updates the authenticated user's profile.
package account

import (
	"context"
	"errors"
	"log/slog"

	"shopsync/internal/guard"
	"shopsync/internal/model"
	"shopsync/internal/remote"
)

// Remote is the part of the remote client the account service uses.
type Remote interface {
	Profile(ctx context.Context, token string) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, token string, update model.ProfileUpdate) (*model.UserProfile, error)
}

// Service exposes the user profile. It keeps no state of its own.
type Service struct {
	remote Remote
	guard  *guard.Guard
	logger *slog.Logger
}

// New creates a Service.
func New(r Remote, g *guard.Guard, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{remote: r, guard: g, logger: logger.With(slog.String("engine", "account"))}
}

// Profile fetches the current user.
func (s *Service) Profile(ctx context.Context) (*model.UserProfile, error) {
	token, err := s.guard.Token(ctx, remote.OpProfileGet, "view your profile", true)
	if err != nil {
		return nil, err
	}
	user, err := s.remote.Profile(ctx, token)
	if err != nil {
		return nil, s.guard.Fail(ctx, err, "Failed to fetch user profile.")
	}
	return user, nil
}

// UpdateProfile validates the optional contact fields and submits update.
func (s *Service) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.UserProfile, error) {
	if err := update.Validate(); err != nil {
		var opErr *model.OpError
		if errors.As(err, &opErr) {
			return nil, s.guard.Invalid(opErr)
		}
		return nil, err
	}

	token, err := s.guard.Token(ctx, remote.OpProfileUpdate, "update your profile", true)
	if err != nil {
		return nil, err
	}
	user, err := s.remote.UpdateProfile(ctx, token, update)
	if err != nil {
		return nil, s.guard.Fail(ctx, err, "Failed to update profile")
	}

	s.logger.Debug("profile updated", slog.String("user_id", user.ID))
	s.guard.Success("Profile updated!")
	return user, nil
}
