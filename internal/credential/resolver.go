// Package credential resolves the session's bearer token across the two
// storage scopes. Call sites never inspect the scopes directly.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"shopsync/internal/storage"
)

// Scope names a storage scope.
type Scope string

const (
	ScopePersistent Scope = "persistent"
	ScopeSession    Scope = "session"
)

// Resolver determines whether a usable credential exists and where.
//
// Lookup order is fixed: persistent first, then session. Every engine goes
// through the same Resolver, so they cannot disagree about login state.
type Resolver struct {
	persistent storage.KV
	session    storage.KV
	logger     *slog.Logger
}

// NewResolver creates a resolver over the two scopes. Either scope may be nil
// when the host has no such storage.
func NewResolver(persistent, session storage.KV, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		persistent: persistent,
		session:    session,
		logger:     logger,
	}
}

// Has reports whether a credential is present in either scope.
func (r *Resolver) Has(ctx context.Context) bool {
	_, ok := r.Get(ctx)
	return ok
}

// Get returns the active token. A read failure in one scope is logged and
// treated as absence in that scope.
func (r *Resolver) Get(ctx context.Context) (string, bool) {
	token, _, ok := r.Lookup(ctx)
	return token, ok
}

// Lookup returns the active token together with the scope it came from.
func (r *Resolver) Lookup(ctx context.Context) (string, Scope, bool) {
	for _, s := range r.scopes() {
		token, ok, err := s.kv.Get(ctx, storage.KeyToken)
		if err != nil {
			r.logger.Warn("credential read failed",
				slog.String("scope", string(s.name)),
				slog.String("error", err.Error()),
			)
			continue
		}
		if ok && token != "" {
			return token, s.name, true
		}
	}
	return "", "", false
}

// Save stores token after login. remember selects the persistent scope,
// otherwise the session scope; the other scope is cleared so only one
// credential is ever active.
func (r *Resolver) Save(ctx context.Context, token string, remember bool) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}

	target, other := r.session, r.persistent
	if remember {
		target, other = r.persistent, r.session
	}
	if target == nil {
		return fmt.Errorf("no storage for remember=%t", remember)
	}

	if other != nil {
		if err := other.Delete(ctx, storage.KeyToken); err != nil {
			return fmt.Errorf("clearing previous credential: %w", err)
		}
	}
	if err := target.Set(ctx, storage.KeyToken, token); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	return nil
}

// Clear removes the token from both scopes so logout is total.
// Both deletes are always attempted; failures are joined.
func (r *Resolver) Clear(ctx context.Context) error {
	var errs []error
	for _, s := range r.scopes() {
		if err := s.kv.Delete(ctx, storage.KeyToken); err != nil {
			errs = append(errs, fmt.Errorf("%s scope: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

type namedScope struct {
	name Scope
	kv   storage.KV
}

func (r *Resolver) scopes() []namedScope {
	out := make([]namedScope, 0, 2)
	if r.persistent != nil {
		out = append(out, namedScope{ScopePersistent, r.persistent})
	}
	if r.session != nil {
		out = append(out, namedScope{ScopeSession, r.session})
	}
	return out
}
