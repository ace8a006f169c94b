// Package wishlist implements the Wishlist Synchronization Engine: a
// server-mirrored presence set of product ids with hydrated snapshots.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"shopsync/internal/guard"
	"shopsync/internal/model"
	"shopsync/internal/reconcile"
	"shopsync/internal/remote"
	"shopsync/internal/storage"
)

// Remote is the part of the remote client the wishlist uses.
type Remote interface {
	Wishlist(ctx context.Context, token string) ([]model.WishlistEntry, error)
	AddToWishlist(ctx context.Context, token string, product model.ProductID) ([]model.WishlistEntry, error)
	RemoveFromWishlist(ctx context.Context, token string, product model.ProductID) ([]model.WishlistEntry, error)
}

const (
	msgAdded   = "Product added to wishlist"
	msgRemoved = "Product removed from wishlist"
)

// Options configures an Engine.
type Options struct {
	Remote Remote
	Guard  *guard.Guard
	// Slot persists the confirmed id set. Nil disables persistence.
	Slot   *storage.Slot
	Logger *slog.Logger
}

type pendingToggle struct {
	want bool
	seq  uint64
}

// Engine owns the mirrored wishlist. Safe for concurrent use.
//
// Committed state (entries, snapshots) changes only from a server response.
// Add and Remove write a pending overlay first so Contains reflects the
// toggle immediately; the overlay entry is dropped when the call settles,
// which rolls the display back on failure.
type Engine struct {
	remote Remote
	guard  *guard.Guard
	slot   *storage.Slot
	logger *slog.Logger
	group  singleflight.Group

	mu        sync.RWMutex
	entries   map[model.ProductID]bool
	snapshots []model.ProductRecord
	fetched   bool
	pending   map[model.ProductID]pendingToggle
	seq       uint64
	gen       uint64
	inflight  int
	lastErr   string
}

// New creates an Engine. Remote and Guard are required.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		remote:  opts.Remote,
		guard:   opts.Guard,
		slot:    opts.Slot,
		logger:  logger.With(slog.String("engine", "wishlist")),
		entries: make(map[model.ProductID]bool),
		pending: make(map[model.ProductID]pendingToggle),
	}
}

// === Remote operations ===

// Fetch loads the wishlist once per session.
//
// With no credential it notifies and navigates to login; the wishlist is
// only reached by explicit navigation, so this is not a silent no-op.
// Once a fetch has succeeded further calls return nil without a network
// call until Reset. Concurrent callers within one generation share one
// request; a caller whose ctx ends stops waiting without failing the others.
func (e *Engine) Fetch(ctx context.Context) error {
	token, err := e.guard.Token(ctx, remote.OpWishlistGet, "view your wishlist", true)
	if err != nil {
		return err
	}
	if e.Fetched() {
		return nil
	}

	gen := e.generation()
	flightCtx := context.WithoutCancel(ctx)
	ch := e.group.DoChan(fmt.Sprintf("fetch-%d", gen), func() (any, error) {
		if e.Fetched() {
			return nil, nil
		}
		e.begin()
		entries, err := e.remote.Wishlist(flightCtx, token)
		return nil, e.finish(flightCtx, gen, remote.OpWishlistGet, entries, err, "Failed to fetch wishlist", "")
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Add puts product in the wishlist.
func (e *Engine) Add(ctx context.Context, product model.ProductID) error {
	return e.toggle(ctx, product, true)
}

// Remove takes product out of the wishlist.
func (e *Engine) Remove(ctx context.Context, product model.ProductID) error {
	return e.toggle(ctx, product, false)
}

// Toggle adds product if it is not displayed as wishlisted, otherwise
// removes it.
func (e *Engine) Toggle(ctx context.Context, product model.ProductID) error {
	if e.Contains(product) {
		return e.Remove(ctx, product)
	}
	return e.Add(ctx, product)
}

func (e *Engine) toggle(ctx context.Context, product model.ProductID, want bool) error {
	if strings.TrimSpace(string(product)) == "" {
		return e.guard.Invalid(model.NewValidationError("productId", "Please select a product"))
	}

	op, action, call := remote.OpWishlistAdd, "add items to your wishlist", e.remote.AddToWishlist
	fallback, success := "Failed to add to wishlist", msgAdded
	if !want {
		op, action, call = remote.OpWishlistRemove, "remove items from your wishlist", e.remote.RemoveFromWishlist
		fallback, success = "Failed to remove from wishlist", msgRemoved
	}

	token, err := e.guard.Token(ctx, op, action, true)
	if err != nil {
		return err
	}

	seq := e.markPending(product, want)
	defer e.clearPending(product, seq)

	gen := e.begin()
	entries, err := call(ctx, token, product)
	return e.finish(ctx, gen, op, entries, err, fallback, success)
}

// === Local operations ===

// Reset clears the wishlist and its fetched marker locally.
// Responses still in flight when Reset runs are not mirrored.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = make(map[model.ProductID]bool)
	e.snapshots = nil
	e.pending = make(map[model.ProductID]pendingToggle)
	e.fetched = false
	e.lastErr = ""
	e.gen++
	if err := e.slot.Clear(ctx); err != nil {
		e.logger.Warn("wishlist cache clear failed", slog.String("error", err.Error()))
	}
}

// Restore seeds the presence set from the persisted id set. Snapshots carry
// only ids until the next Fetch, and the fetched marker stays unset.
func (e *Engine) Restore(ctx context.Context) error {
	var ids []model.ProductID
	ok, err := e.slot.Load(ctx, &ids)
	if err != nil || !ok {
		return err
	}
	if err := reconcile.CheckSet(ids); err != nil {
		e.logger.Warn("discarding invalid cached wishlist", slog.String("error", err.Error()))
		return e.slot.Clear(ctx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = make(map[model.ProductID]bool, len(ids))
	e.snapshots = make([]model.ProductRecord, 0, len(ids))
	for _, id := range ids {
		e.entries[id] = true
		e.snapshots = append(e.snapshots, model.ProductRecord{ID: id})
	}
	return nil
}

// === Read accessors ===

// Contains reports whether product is displayed as wishlisted, reading a
// pending toggle before the committed set.
func (e *Engine) Contains(product model.ProductID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if p, ok := e.pending[product]; ok {
		return p.want
	}
	return e.entries[product]
}

// Confirmed reports whether the server has confirmed product in the set.
func (e *Engine) Confirmed(product model.ProductID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.entries[product]
}

// Pending reports whether a toggle for product is in flight.
func (e *Engine) Pending(product model.ProductID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.pending[product]
	return ok
}

// Snapshots returns the hydrated products in server order.
func (e *Engine) Snapshots() []model.ProductRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.ProductRecord, len(e.snapshots))
	copy(out, e.snapshots)
	return out
}

// Count returns the number of confirmed entries.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.entries)
}

// Fetched reports whether a fetch has succeeded since the last Reset.
func (e *Engine) Fetched() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fetched
}

// Status reports the engine's loading and error state.
func (e *Engine) Status() model.Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch {
	case e.inflight > 0:
		return model.Status{State: model.StatusLoading}
	case e.lastErr != "":
		return model.Failed(e.lastErr)
	}
	return model.Idle()
}

// === Internals ===

func (e *Engine) markPending(product model.ProductID, want bool) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seq++
	e.pending[product] = pendingToggle{want: want, seq: e.seq}
	return e.seq
}

// clearPending drops the overlay entry unless a later toggle replaced it.
func (e *Engine) clearPending(product model.ProductID, seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.pending[product]; ok && p.seq == seq {
		delete(e.pending, product)
	}
}

func (e *Engine) generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gen
}

func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight++
	return e.gen
}

func (e *Engine) finish(ctx context.Context, gen uint64, op string, entries []model.WishlistEntry, err error, fallback, success string) error {
	ids := make([]model.ProductID, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ProductRef.ID
	}
	if err == nil {
		if checkErr := reconcile.CheckSet(ids); checkErr != nil {
			err = model.NewDataShapeError(op, checkErr.Error())
		}
	}

	if err != nil {
		e.mu.Lock()
		e.inflight--
		e.lastErr = model.Message(err, fallback)
		if errors.Is(err, model.ErrDataShape) {
			e.lastErr = fallback
		}
		e.mu.Unlock()
		return e.guard.Fail(ctx, err, fallback)
	}

	next := make(map[model.ProductID]bool, len(ids))
	snapshots := make([]model.ProductRecord, len(entries))
	for i, entry := range entries {
		next[ids[i]] = true
		snapshots[i] = entry.ProductRef
	}

	e.mu.Lock()
	if gen != e.gen {
		e.inflight--
		e.mu.Unlock()
		e.logger.Debug("dropping response from before reset", slog.String("operation", op))
		return nil
	}
	diff := reconcile.DiffSet(e.entries, next)
	e.entries = next
	e.snapshots = snapshots
	if op == remote.OpWishlistGet {
		e.fetched = true
	}
	e.inflight--
	e.lastErr = ""
	if saveErr := e.slot.Save(ctx, sortedIDs(next)); saveErr != nil {
		e.logger.Warn("wishlist cache write failed", slog.String("error", saveErr.Error()))
	}
	e.mu.Unlock()

	e.logger.Debug("wishlist replaced",
		slog.String("operation", op),
		slog.Int("added", len(diff.Added)),
		slog.Int("removed", len(diff.Removed)),
	)
	if success != "" {
		e.guard.Success(success)
	}
	return nil
}

func sortedIDs(set map[model.ProductID]bool) []model.ProductID {
	ids := make([]model.ProductID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
