// Package catalog is the read-only Product Lookup Service the engines join
// against for pricing and display data. The core never owns product records.
package catalog

import (
	"context"
	"errors"
	"sync"

	"shopsync/internal/model"
)

// ErrNotFound reports that a product id no longer resolves. Callers degrade
// by skipping the product, never by failing the operation.
var ErrNotFound = errors.New("product not found")

// Lookup resolves a product id to its catalog record.
// Interface allows substituting a snapshot in tests.
type Lookup interface {
	Product(ctx context.Context, id model.ProductID) (model.ProductRecord, error)
}

// Snapshot is an in-memory Lookup built from a product list.
// Safe for concurrent use.
type Snapshot struct {
	mu       sync.RWMutex
	products map[model.ProductID]model.ProductRecord
}

// NewSnapshot indexes records by id. Later duplicates win.
func NewSnapshot(records ...model.ProductRecord) *Snapshot {
	s := &Snapshot{products: make(map[model.ProductID]model.ProductRecord, len(records))}
	for _, r := range records {
		s.products[r.ID] = r
	}
	return s
}

func (s *Snapshot) Product(_ context.Context, id model.ProductID) (model.ProductRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.products[id]
	if !ok {
		return model.ProductRecord{}, ErrNotFound
	}
	return rec, nil
}

// Put adds or replaces records.
func (s *Snapshot) Put(records ...model.ProductRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.products[r.ID] = r
	}
}

// Delete drops id so later lookups report ErrNotFound.
func (s *Snapshot) Delete(id model.ProductID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// Len returns the number of indexed products.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

var (
	_ Lookup = (*Snapshot)(nil)
	_ Lookup = (*HTTPLookup)(nil)
)
