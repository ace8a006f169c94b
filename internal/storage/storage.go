// Package storage provides the key/value scopes the session reads and writes:
// a durable SQLite-backed persistent scope and an in-memory session scope.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// KV is a string key/value scope.
// Get reports ok=false for a missing key; that is not an error.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Well-known keys. Only the credential resolver writes KeyToken; each engine
// writes only its own cache key.
const (
	KeyToken    = "token"
	KeyCart     = "cartItems"
	KeyWishlist = "wishlistItems"
)

// Memory is an in-process KV. It backs the session scope, which is gone
// when the process exits.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an empty in-memory scope.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Slot binds one key of a scope as JSON-encoded storage for a single value.
// An engine gets the slot for its own collection and nothing else.
type Slot struct {
	kv  KV
	key string
}

// NewSlot binds key in kv. A nil kv yields a slot whose operations are no-ops.
func NewSlot(kv KV, key string) *Slot {
	return &Slot{kv: kv, key: key}
}

// Key returns the bound key.
func (s *Slot) Key() string { return s.key }

// Load decodes the stored value into dst. ok is false when nothing is stored.
func (s *Slot) Load(ctx context.Context, dst any) (bool, error) {
	if s == nil || s.kv == nil {
		return false, nil
	}
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", s.key, err)
	}
	return true, nil
}

// Save encodes v and stores it under the bound key.
func (s *Slot) Save(ctx context.Context, v any) error {
	if s == nil || s.kv == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", s.key, err)
	}
	return s.kv.Set(ctx, s.key, string(data))
}

// Clear removes the bound key.
func (s *Slot) Clear(ctx context.Context) error {
	if s == nil || s.kv == nil {
		return nil
	}
	return s.kv.Delete(ctx, s.key)
}
