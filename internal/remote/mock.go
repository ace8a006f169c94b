package remote

import (
	"context"
	"net/http"
	"sync"

	"shopsync/internal/model"
)

// Mock implements the remote store operations for testing.
// Each method can be configured via function fields; every call is counted
// by operation name. Reads default to an empty collection, writes default
// to a RemoteOperationError.
type Mock struct {
	CartFunc               func(ctx context.Context, token string) ([]model.CartLineItem, error)
	AddToCartFunc          func(ctx context.Context, token string, product model.ProductID, quantity int, size string) ([]model.CartLineItem, error)
	IncreaseLineFunc       func(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error)
	DecreaseLineFunc       func(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error)
	RemoveLineFunc         func(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error)
	WishlistFunc           func(ctx context.Context, token string) ([]model.WishlistEntry, error)
	AddToWishlistFunc      func(ctx context.Context, token string, product model.ProductID) ([]model.WishlistEntry, error)
	RemoveFromWishlistFunc func(ctx context.Context, token string, product model.ProductID) ([]model.WishlistEntry, error)
	OrdersFunc             func(ctx context.Context, token string) ([]model.Order, error)
	PlaceOrderFunc         func(ctx context.Context, token string, address model.ShippingAddress, idempotencyKey string) (*model.Order, error)
	ProfileFunc            func(ctx context.Context, token string) (*model.UserProfile, error)
	UpdateProfileFunc      func(ctx context.Context, token string, update model.ProfileUpdate) (*model.UserProfile, error)

	mu    sync.Mutex
	calls map[string]int
}

// Calls returns how many times op was invoked.
func (m *Mock) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (m *Mock) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *Mock) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

func notConfigured(op string) error {
	return model.NewRemoteError(op, http.StatusNotImplemented, op+" not configured")
}

func (m *Mock) Cart(ctx context.Context, token string) ([]model.CartLineItem, error) {
	m.record(OpCartGet)
	if m.CartFunc != nil {
		return m.CartFunc(ctx, token)
	}
	return []model.CartLineItem{}, nil
}

func (m *Mock) AddToCart(ctx context.Context, token string, product model.ProductID, quantity int, size string) ([]model.CartLineItem, error) {
	m.record(OpCartAdd)
	if m.AddToCartFunc != nil {
		return m.AddToCartFunc(ctx, token, product, quantity, size)
	}
	return nil, notConfigured(OpCartAdd)
}

func (m *Mock) IncreaseLine(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error) {
	m.record(OpCartIncrease)
	if m.IncreaseLineFunc != nil {
		return m.IncreaseLineFunc(ctx, token, product, size)
	}
	return nil, notConfigured(OpCartIncrease)
}

func (m *Mock) DecreaseLine(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error) {
	m.record(OpCartDecrease)
	if m.DecreaseLineFunc != nil {
		return m.DecreaseLineFunc(ctx, token, product, size)
	}
	return nil, notConfigured(OpCartDecrease)
}

func (m *Mock) RemoveLine(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error) {
	m.record(OpCartRemove)
	if m.RemoveLineFunc != nil {
		return m.RemoveLineFunc(ctx, token, product, size)
	}
	return nil, notConfigured(OpCartRemove)
}

func (m *Mock) Wishlist(ctx context.Context, token string) ([]model.WishlistEntry, error) {
	m.record(OpWishlistGet)
	if m.WishlistFunc != nil {
		return m.WishlistFunc(ctx, token)
	}
	return []model.WishlistEntry{}, nil
}

func (m *Mock) AddToWishlist(ctx context.Context, token string, product model.ProductID) ([]model.WishlistEntry, error) {
	m.record(OpWishlistAdd)
	if m.AddToWishlistFunc != nil {
		return m.AddToWishlistFunc(ctx, token, product)
	}
	return nil, notConfigured(OpWishlistAdd)
}

func (m *Mock) RemoveFromWishlist(ctx context.Context, token string, product model.ProductID) ([]model.WishlistEntry, error) {
	m.record(OpWishlistRemove)
	if m.RemoveFromWishlistFunc != nil {
		return m.RemoveFromWishlistFunc(ctx, token, product)
	}
	return nil, notConfigured(OpWishlistRemove)
}

func (m *Mock) Orders(ctx context.Context, token string) ([]model.Order, error) {
	m.record(OpOrdersGet)
	if m.OrdersFunc != nil {
		return m.OrdersFunc(ctx, token)
	}
	return []model.Order{}, nil
}

func (m *Mock) PlaceOrder(ctx context.Context, token string, address model.ShippingAddress, idempotencyKey string) (*model.Order, error) {
	m.record(OpOrderPlace)
	if m.PlaceOrderFunc != nil {
		return m.PlaceOrderFunc(ctx, token, address, idempotencyKey)
	}
	return nil, notConfigured(OpOrderPlace)
}

func (m *Mock) Profile(ctx context.Context, token string) (*model.UserProfile, error) {
	m.record(OpProfileGet)
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, token)
	}
	return nil, notConfigured(OpProfileGet)
}

func (m *Mock) UpdateProfile(ctx context.Context, token string, update model.ProfileUpdate) (*model.UserProfile, error) {
	m.record(OpProfileUpdate)
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, token, update)
	}
	return nil, notConfigured(OpProfileUpdate)
}
