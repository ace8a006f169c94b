package credential

import (
	"context"
	"errors"
	"testing"

	"shopsync/internal/storage"
)

// failingKV fails every operation.
type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk error")
}
func (failingKV) Set(context.Context, string, string) error { return errors.New("disk error") }
func (failingKV) Delete(context.Context, string) error      { return errors.New("disk error") }

func TestResolver_LookupOrder(t *testing.T) {
	ctx := context.Background()
	persistent := storage.NewMemory()
	session := storage.NewMemory()
	r := NewResolver(persistent, session, nil)

	if r.Has(ctx) {
		t.Fatal("Has() = true on empty scopes")
	}

	session.Set(ctx, storage.KeyToken, "session-token")
	token, scope, ok := r.Lookup(ctx)
	if !ok || token != "session-token" || scope != ScopeSession {
		t.Errorf("Lookup() = %q, %q, %v; want session-token, session, true", token, scope, ok)
	}

	persistent.Set(ctx, storage.KeyToken, "persistent-token")
	token, scope, _ = r.Lookup(ctx)
	if token != "persistent-token" || scope != ScopePersistent {
		t.Errorf("Lookup() = %q, %q; want persistent scope first", token, scope)
	}
}

func TestResolver_EmptyTokenIsAbsent(t *testing.T) {
	ctx := context.Background()
	persistent := storage.NewMemory()
	persistent.Set(ctx, storage.KeyToken, "")
	r := NewResolver(persistent, storage.NewMemory(), nil)

	if r.Has(ctx) {
		t.Error("Has() = true for empty stored token")
	}
}

func TestResolver_ReadFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	session := storage.NewMemory()
	session.Set(ctx, storage.KeyToken, "session-token")
	r := NewResolver(failingKV{}, session, nil)

	token, ok := r.Get(ctx)
	if !ok || token != "session-token" {
		t.Errorf("Get() = %q, %v; want session-token, true", token, ok)
	}
}

func TestResolver_Save(t *testing.T) {
	tests := []struct {
		name      string
		remember  bool
		wantScope Scope
	}{
		{"remember me", true, ScopePersistent},
		{"this session only", false, ScopeSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			persistent := storage.NewMemory()
			session := storage.NewMemory()
			persistent.Set(ctx, storage.KeyToken, "old")
			session.Set(ctx, storage.KeyToken, "old")
			r := NewResolver(persistent, session, nil)

			if err := r.Save(ctx, "  new-token ", tt.remember); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			token, scope, ok := r.Lookup(ctx)
			if !ok || token != "new-token" || scope != tt.wantScope {
				t.Errorf("Lookup() = %q, %q, %v; want new-token, %q", token, scope, ok, tt.wantScope)
			}

			other := session
			if !tt.remember {
				other = persistent
			}
			if _, ok, _ := other.Get(ctx, storage.KeyToken); ok {
				t.Error("other scope still holds a credential")
			}
		})
	}
}

func TestResolver_SaveRejectsEmpty(t *testing.T) {
	r := NewResolver(storage.NewMemory(), storage.NewMemory(), nil)
	if err := r.Save(context.Background(), "   ", true); err == nil {
		t.Error("expected error for blank token")
	}
}

func TestResolver_Clear(t *testing.T) {
	ctx := context.Background()
	persistent := storage.NewMemory()
	session := storage.NewMemory()
	persistent.Set(ctx, storage.KeyToken, "a")
	session.Set(ctx, storage.KeyToken, "b")
	r := NewResolver(persistent, session, nil)

	if err := r.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if r.Has(ctx) {
		t.Error("Has() = true after Clear")
	}
}

func TestResolver_ClearAttemptsBothScopes(t *testing.T) {
	ctx := context.Background()
	session := storage.NewMemory()
	session.Set(ctx, storage.KeyToken, "b")
	r := NewResolver(failingKV{}, session, nil)

	if err := r.Clear(ctx); err == nil {
		t.Error("expected joined error from failing scope")
	}
	if _, ok, _ := session.Get(ctx, storage.KeyToken); ok {
		t.Error("session scope not cleared when persistent delete failed")
	}
}
