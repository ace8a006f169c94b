// Package order implements order placement and the local order history.
package order

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"shopsync/internal/guard"
	"shopsync/internal/model"
	"shopsync/internal/notify"
	"shopsync/internal/remote"
)

// Remote is the part of the remote client orders use.
type Remote interface {
	Orders(ctx context.Context, token string) ([]model.Order, error)
	PlaceOrder(ctx context.Context, token string, address model.ShippingAddress, idempotencyKey string) (*model.Order, error)
}

// CartResetter empties the cart locally once an order is confirmed.
type CartResetter interface {
	Reset(ctx context.Context)
}

const msgPlaced = "Order placed successfully!"

// Options configures a Coordinator.
type Options struct {
	Remote Remote
	Guard  *guard.Guard
	Cart   CartResetter
	// NewKey generates Idempotency-Key values. Defaults to uuid.NewString.
	NewKey func() string
	Logger *slog.Logger
}

// Coordinator submits orders and mirrors the order history.
type Coordinator struct {
	remote Remote
	guard  *guard.Guard
	cart   CartResetter
	newKey func() string
	logger *slog.Logger

	mu       sync.RWMutex
	history  []model.Order
	inflight int
	lastErr  string
	// gen advances on Reset; responses to calls begun earlier are dropped.
	gen uint64
}

// New creates a Coordinator. Remote, Guard and Cart are required.
func New(opts Options) *Coordinator {
	newKey := opts.NewKey
	if newKey == nil {
		newKey = uuid.NewString
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		remote: opts.Remote,
		guard:  opts.Guard,
		cart:   opts.Cart,
		newKey: newKey,
		logger: logger.With(slog.String("engine", "order")),
	}
}

// PlaceOrder submits address for the current cart.
//
// The address is trimmed and validated first; a rejected address never
// reaches the network. On confirmation the cart is reset locally (the server
// has already consumed it), the order is appended to the history, and the
// host is sent to the orders view. On failure cart and history are untouched.
//
// A confirmation arriving after Reset is returned to the caller but touches
// neither the cart nor the history; both belong to whoever logged in since.
func (c *Coordinator) PlaceOrder(ctx context.Context, address model.ShippingAddress) (*model.Order, error) {
	address = address.Trimmed()
	if err := address.Validate(); err != nil {
		var opErr *model.OpError
		if errors.As(err, &opErr) {
			return nil, c.guard.Invalid(opErr)
		}
		return nil, err
	}

	token, err := c.guard.Token(ctx, remote.OpOrderPlace, "place an order", true)
	if err != nil {
		return nil, err
	}

	key := c.newKey()
	gen := c.begin()
	placed, err := c.remote.PlaceOrder(ctx, token, address, key)
	if err != nil {
		c.end(model.Message(err, "please try again"))
		c.logger.Warn("order placement failed", slog.String("idempotency_key", key))
		return nil, c.guard.FailPrefixed(ctx, err, "Failed to place order: ", "please try again")
	}

	c.mu.Lock()
	if gen != c.gen {
		c.inflight--
		c.mu.Unlock()
		c.logger.Warn("order confirmed after reset",
			slog.String("order_id", placed.ID),
			slog.String("idempotency_key", key),
		)
		return placed, nil
	}
	c.history = append(c.history, *placed)
	c.inflight--
	c.lastErr = ""
	c.mu.Unlock()

	c.cart.Reset(ctx)

	c.logger.Info("order placed",
		slog.String("order_id", placed.ID),
		slog.Int("lines", len(placed.Items)),
	)
	c.guard.Success(msgPlaced)
	c.guard.Navigate(notify.RouteOrders)
	return placed, nil
}

// FetchOrders replaces the history from the server. With no credential it
// is a no-op, like the cart's mount fetch.
func (c *Coordinator) FetchOrders(ctx context.Context) error {
	token, err := c.guard.Token(ctx, remote.OpOrdersGet, "view your orders", false)
	if err != nil {
		return nil
	}

	gen := c.begin()
	orders, err := c.remote.Orders(ctx, token)
	if err != nil {
		c.end(model.Message(err, "Failed to fetch orders"))
		return c.guard.Fail(ctx, err, "Failed to fetch orders")
	}

	c.mu.Lock()
	if gen != c.gen {
		c.inflight--
		c.mu.Unlock()
		c.logger.Debug("dropping response from before reset", slog.String("operation", remote.OpOrdersGet))
		return nil
	}
	c.history = append([]model.Order(nil), orders...)
	c.inflight--
	c.lastErr = ""
	c.mu.Unlock()
	return nil
}

// Orders returns a copy of the order history.
func (c *Coordinator) Orders() []model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Order, len(c.history))
	copy(out, c.history)
	return out
}

// Reset drops the local history. Responses still in flight when Reset runs
// are not mirrored.
func (c *Coordinator) Reset(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
	c.lastErr = ""
	c.gen++
}

// Status reports the coordinator's loading and error state.
func (c *Coordinator) Status() model.Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.inflight > 0:
		return model.Status{State: model.StatusLoading}
	case c.lastErr != "":
		return model.Failed(c.lastErr)
	}
	return model.Idle()
}

func (c *Coordinator) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight++
	return c.gen
}

func (c *Coordinator) end(failure string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	c.lastErr = failure
}
