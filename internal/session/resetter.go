package session

import (
	"context"
	"fmt"
	"log/slog"

	"shopsync/internal/notify"
)

// Resettable is a collection that can be emptied locally.
type Resettable interface {
	Reset(ctx context.Context)
}

// CredentialClearer removes the token from every scope.
type CredentialClearer interface {
	Clear(ctx context.Context) error
}

// Resetter tears the session down on logout.
type Resetter struct {
	creds       CredentialClearer
	collections []Resettable
	nav         notify.Navigator
	logger      *slog.Logger
}

// NewResetter creates a Resetter. collections are reset in the given order
// after the credential is cleared.
func NewResetter(creds CredentialClearer, nav notify.Navigator, logger *slog.Logger, collections ...Resettable) *Resetter {
	if nav == nil {
		nav = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resetter{creds: creds, collections: collections, nav: nav, logger: logger}
}

// Logout clears the credential first so nothing triggered by the reset can
// authenticate with it, then resets every collection and navigates to login.
// A credential-clear failure is returned, but the resets always run.
func (r *Resetter) Logout(ctx context.Context) error {
	clearErr := r.creds.Clear(ctx)
	if clearErr != nil {
		r.logger.Error("credential clear failed during logout", slog.String("error", clearErr.Error()))
		clearErr = fmt.Errorf("clearing credential: %w", clearErr)
	}

	for _, c := range r.collections {
		c.Reset(ctx)
	}

	r.nav.Navigate(notify.RouteLogin)
	r.logger.Info("session reset")
	return clearErr
}
