// Package cart implements the Cart Synchronization Engine. The engine keeps
// a mirror of the server's cart and replaces it wholesale from every
// successful response; it never applies a delta locally.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"shopsync/internal/catalog"
	"shopsync/internal/guard"
	"shopsync/internal/model"
	"shopsync/internal/reconcile"
	"shopsync/internal/remote"
	"shopsync/internal/storage"
)

// Remote is the part of the remote client the cart uses.
type Remote interface {
	Cart(ctx context.Context, token string) ([]model.CartLineItem, error)
	AddToCart(ctx context.Context, token string, product model.ProductID, quantity int, size string) ([]model.CartLineItem, error)
	IncreaseLine(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error)
	DecreaseLine(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error)
	RemoveLine(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error)
}

// User-facing messages.
const (
	msgAdded   = "Item Added To The Cart"
	msgUpdated = "Cart Updated"
	msgRemoved = "Item Removed From The Cart"
	msgNoSize  = "Please Select a Size"
)

// Options configures an Engine.
type Options struct {
	Remote  Remote
	Guard   *guard.Guard
	Catalog catalog.Lookup
	// Slot persists the confirmed cart. Nil disables persistence.
	Slot *storage.Slot

	// Currency and DeliveryFee feed Totals. Defaults: "$" and 10.
	Currency    string
	DeliveryFee *decimal.Decimal

	Logger *slog.Logger
}

// Engine owns the mirrored cart. Safe for concurrent use; the mutex guards
// state only and is never held across a remote call.
type Engine struct {
	remote   Remote
	guard    *guard.Guard
	catalog  catalog.Lookup
	slot     *storage.Slot
	currency string
	fee      decimal.Decimal
	logger   *slog.Logger

	mu       sync.RWMutex
	items    []model.CartLineItem
	inflight int
	lastErr  string
	// gen advances on Reset; responses to calls begun earlier are dropped.
	gen uint64
}

// New creates an Engine. Remote, Guard and Catalog are required.
func New(opts Options) *Engine {
	currency := opts.Currency
	if currency == "" {
		currency = model.DefaultCurrency
	}
	fee := decimal.NewFromInt(model.DefaultDeliveryFee)
	if opts.DeliveryFee != nil {
		fee = *opts.DeliveryFee
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		remote:   opts.Remote,
		guard:    opts.Guard,
		catalog:  opts.Catalog,
		slot:     opts.Slot,
		currency: currency,
		fee:      fee,
		logger:   logger.With(slog.String("engine", "cart")),
	}
}

// === Remote operations ===

// Fetch replaces the cart from the server.
//
// With no credential this is a no-op: no network call and no redirect, so
// the app-mount fetch cannot loop through the login view.
func (e *Engine) Fetch(ctx context.Context) error {
	token, err := e.guard.Token(ctx, remote.OpCartGet, "view your cart", false)
	if err != nil {
		return nil
	}

	gen := e.begin()
	items, err := e.remote.Cart(ctx, token)
	return e.finish(ctx, gen, remote.OpCartGet, items, err, "Failed to fetch cart", "")
}

// Add puts one unit of (product, size) in the cart.
// An empty size fails before any network call.
func (e *Engine) Add(ctx context.Context, product model.ProductID, size string) error {
	size = strings.TrimSpace(size)
	if size == "" {
		return e.guard.Invalid(model.NewValidationError("size", msgNoSize))
	}
	if strings.TrimSpace(string(product)) == "" {
		return e.guard.Invalid(model.NewValidationError("productId", "Please select a product"))
	}

	token, err := e.guard.Token(ctx, remote.OpCartAdd, "add items to your cart", true)
	if err != nil {
		return err
	}

	gen := e.begin()
	items, err := e.remote.AddToCart(ctx, token, product, 1, size)
	return e.finish(ctx, gen, remote.OpCartAdd, items, err, "Failed to add to cart", msgAdded)
}

// UpdateQuantity moves the (product, size) line toward quantity by one
// remote step.
//
// Quantity 0 removes the line. Otherwise the step is increase or decrease,
// chosen by comparing quantity with the locally known quantity; an equal
// quantity is a no-op. That comparison reads the mirror as it is now: if
// another update for the same line is still in flight, the mirror is stale
// and the chosen step may not match intent. The engine does not serialize
// per-line updates; callers must keep at most one update per line in flight.
func (e *Engine) UpdateQuantity(ctx context.Context, product model.ProductID, size string, quantity int) error {
	if quantity < 0 {
		return e.guard.Invalid(model.NewValidationError("quantity", "Quantity cannot be negative"))
	}
	if quantity == 0 {
		return e.Remove(ctx, product, size)
	}

	dir := reconcile.Step(e.Quantity(product, size), quantity)
	op, step := remote.OpCartIncrease, e.remote.IncreaseLine
	if dir == reconcile.Decrease {
		op, step = remote.OpCartDecrease, e.remote.DecreaseLine
	}

	token, err := e.guard.Token(ctx, op, "update your cart", true)
	if err != nil {
		return err
	}
	if dir == reconcile.None {
		return nil
	}

	gen := e.begin()
	items, err := step(ctx, token, product, size)
	return e.finish(ctx, gen, op, items, err, "Failed to update cart", msgUpdated)
}

// Remove deletes the (product, size) line.
func (e *Engine) Remove(ctx context.Context, product model.ProductID, size string) error {
	token, err := e.guard.Token(ctx, remote.OpCartRemove, "remove items from your cart", true)
	if err != nil {
		return err
	}

	gen := e.begin()
	items, err := e.remote.RemoveLine(ctx, token, product, size)
	return e.finish(ctx, gen, remote.OpCartRemove, items, err, "Failed to remove from cart", msgRemoved)
}

// === Local operations ===

// Reset empties the cart locally and drops the persisted copy.
// It never calls the remote; use it after logout or order placement.
// Responses still in flight when Reset runs are not mirrored.
func (e *Engine) Reset(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = nil
	e.lastErr = ""
	e.gen++
	if err := e.slot.Clear(ctx); err != nil {
		e.logger.Warn("cart cache clear failed", slog.String("error", err.Error()))
	}
}

// Restore seeds the mirror from the persisted copy. A cached cart that
// breaks the line invariants is discarded.
func (e *Engine) Restore(ctx context.Context) error {
	var items []model.CartLineItem
	ok, err := e.slot.Load(ctx, &items)
	if err != nil || !ok {
		return err
	}
	if err := reconcile.CheckLines(items); err != nil {
		e.logger.Warn("discarding invalid cached cart", slog.String("error", err.Error()))
		return e.slot.Clear(ctx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = items
	return nil
}

// === Read accessors ===

// Items returns a copy of the mirrored cart.
func (e *Engine) Items() []model.CartLineItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]model.CartLineItem, len(e.items))
	copy(out, e.items)
	return out
}

// Quantity returns the mirrored quantity of (product, size), 0 if absent.
func (e *Engine) Quantity(product model.ProductID, size string) int {
	key := model.LineKey{Product: product, Size: size}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, item := range e.items {
		if item.Key() == key {
			return item.Quantity
		}
	}
	return 0
}

// Count returns the total number of units in the cart.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	total := 0
	for _, item := range e.items {
		total += item.Quantity
	}
	return total
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

// Currency returns the display currency symbol.
func (e *Engine) Currency() string { return e.currency }

// === Internals ===

func (e *Engine) begin() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inflight++
	return e.gen
}

// finish ends a remote call: on success the mirror is replaced with items,
// on failure the mirror is left untouched and the guard policy applies.
func (e *Engine) finish(ctx context.Context, gen uint64, op string, items []model.CartLineItem, err error, fallback, success string) error {
	if err == nil {
		if checkErr := reconcile.CheckLines(items); checkErr != nil {
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

	e.mu.Lock()
	if gen != e.gen {
		e.inflight--
		e.mu.Unlock()
		e.logger.Debug("dropping response from before reset", slog.String("operation", op))
		return nil
	}
	diff := reconcile.DiffLines(e.items, items)
	e.items = append([]model.CartLineItem(nil), items...)
	e.inflight--
	e.lastErr = ""
	if saveErr := e.slot.Save(ctx, e.items); saveErr != nil {
		e.logger.Warn("cart cache write failed", slog.String("error", saveErr.Error()))
	}
	e.mu.Unlock()

	e.logger.Debug("cart replaced",
		slog.String("operation", op),
		slog.Int("added", len(diff.Added)),
		slog.Int("removed", len(diff.Removed)),
		slog.Int("changed", len(diff.Changed)),
	)
	if success != "" {
		e.guard.Success(success)
	}
	return nil
}
