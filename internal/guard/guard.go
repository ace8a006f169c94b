// Package guard implements the credential gate and failure policy shared by
// every engine, so that a 401 is handled the same way regardless of which
// operation received it.
package guard

import (
	"context"
	"errors"
	"log/slog"

	"shopsync/internal/model"
	"shopsync/internal/notify"
)

// Credentials is the part of the credential resolver the engines need.
type Credentials interface {
	Get(ctx context.Context) (string, bool)
	Clear(ctx context.Context) error
}

// Guard resolves credentials before remote calls and converts failures into
// notifications and navigation signals.
type Guard struct {
	creds  Credentials
	sink   notify.Sink
	nav    notify.Navigator
	logger *slog.Logger
}

// New creates a Guard. Nil sink or navigator discard their signals.
func New(creds Credentials, sink notify.Sink, nav notify.Navigator, logger *slog.Logger) *Guard {
	if sink == nil {
		sink = notify.Discard
	}
	if nav == nil {
		nav = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{creds: creds, sink: sink, nav: nav, logger: logger}
}

// Token returns the active credential for op.
//
// When none exists it returns an AuthRequired error. With redirect set it
// also tells the user to log in to perform action and navigates to login.
func (g *Guard) Token(ctx context.Context, op, action string, redirect bool) (string, error) {
	if token, ok := g.creds.Get(ctx); ok {
		return token, nil
	}
	if redirect {
		g.sink.Notify(notify.LevelError, "Please log in to "+action)
		g.nav.Navigate(notify.RouteLogin)
	}
	return "", model.NewAuthRequiredError(op)
}

// Has reports whether a credential is present.
func (g *Guard) Has(ctx context.Context) bool {
	_, ok := g.creds.Get(ctx)
	return ok
}

// Fail applies the failure policy to err and returns it unchanged:
//   - SessionExpired: clear both credential scopes, notify, navigate to login
//   - DataShape: log the detail, notify fallback
//   - anything else: notify the best-available message, or fallback
//
// The returned error is always non-nil when err is non-nil.
func (g *Guard) Fail(ctx context.Context, err error, fallback string) error {
	return g.fail(ctx, err, "", fallback)
}

// FailPrefixed is Fail with prefix prepended to the notified message for
// every failure except session expiry.
func (g *Guard) FailPrefixed(ctx context.Context, err error, prefix, fallback string) error {
	return g.fail(ctx, err, prefix, fallback)
}

func (g *Guard) fail(ctx context.Context, err error, prefix, fallback string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrSessionExpired):
		if clearErr := g.creds.Clear(ctx); clearErr != nil {
			g.logger.Error("credential clear failed after 401",
				slog.String("error", clearErr.Error()),
			)
		}
		g.sink.Notify(notify.LevelError, model.Message(err, "Session expired. Please log in again."))
		g.nav.Navigate(notify.RouteLogin)

	case errors.Is(err, model.ErrDataShape):
		g.logger.Error("unexpected response shape", slog.String("error", err.Error()))
		g.sink.Notify(notify.LevelError, prefix+fallback)

	default:
		g.logger.Warn("operation failed", slog.String("error", err.Error()))
		g.sink.Notify(notify.LevelError, prefix+model.Message(err, fallback))
	}

	return err
}

// Success notifies a successful operation.
func (g *Guard) Success(message string) {
	g.sink.Notify(notify.LevelSuccess, message)
}

// Invalid notifies a validation failure and returns it.
func (g *Guard) Invalid(err *model.OpError) error {
	g.sink.Notify(notify.LevelError, err.Message)
	return err
}

// Navigate forwards a navigation signal.
func (g *Guard) Navigate(route notify.Route) {
	g.nav.Navigate(route)
}
