// Package view renders session state as flat, display-ready structures.
// Amounts are formatted strings so the shapes serialize without decimal
// or time encodings.
package view

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"shopsync/internal/cart"
	"shopsync/internal/model"
	"shopsync/internal/wishlist"
)

// Formatter renders an amount with a currency symbol.
type Formatter func(decimal.Decimal) string

// Line is one cart or order line.
type Line struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// Cart is the cart with its priced totals.
type Cart struct {
	Items       []Line       `json:"items"`
	Count       int          `json:"count"`
	Subtotal    string       `json:"subtotal"`
	DeliveryFee string       `json:"delivery_fee"`
	Total       string       `json:"total"`
	Unresolved  []string     `json:"unresolved"`
	Status      model.Status `json:"status"`
}

// Product is a wishlisted product snapshot.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Price string `json:"price,omitempty"`
}

// Wishlist is the confirmed wishlist.
type Wishlist struct {
	Products []Product    `json:"products"`
	Count    int          `json:"count"`
	Status   model.Status `json:"status"`
}

// Order is a placed order.
type Order struct {
	ID        string `json:"id"`
	Status    string `json:"status,omitempty"`
	Amount    string `json:"amount"`
	Items     []Line `json:"items"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Orders is the order history.
type Orders struct {
	Orders []Order      `json:"orders"`
	Status model.Status `json:"status"`
}

// Profile is the authenticated user.
type Profile struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile,omitempty"`
}

// Session reports whether a credential is held.
type Session struct {
	LoggedIn bool `json:"logged_in"`
}

// NewCart prices c against its catalog.
func NewCart(ctx context.Context, c *cart.Engine) Cart {
	totals := c.Totals(ctx)

	v := Cart{
		Items:       Lines(c.Items()),
		Count:       c.Count(),
		Subtotal:    c.Format(totals.Subtotal),
		DeliveryFee: c.Format(totals.DeliveryFee),
		Total:       c.Format(totals.Total),
		Unresolved:  make([]string, 0, len(totals.Unresolved)),
		Status:      c.Status(),
	}
	for _, k := range totals.Unresolved {
		v.Unresolved = append(v.Unresolved, k.String())
	}
	return v
}

// NewWishlist lists w's confirmed snapshots. Id-only snapshots carry no
// name or price.
func NewWishlist(w *wishlist.Engine, format Formatter) Wishlist {
	snapshots := w.Snapshots()

	v := Wishlist{
		Products: make([]Product, 0, len(snapshots)),
		Count:    w.Count(),
		Status:   w.Status(),
	}
	for _, p := range snapshots {
		pv := Product{ID: string(p.ID), Name: p.Name}
		if !p.Price.IsZero() {
			pv.Price = format(p.Price)
		}
		v.Products = append(v.Products, pv)
	}
	return v
}

// NewOrder renders o.
func NewOrder(o model.Order, format Formatter) Order {
	v := Order{
		ID:     o.ID,
		Status: o.Status,
		Amount: format(o.Amount),
		Items:  Lines(o.Items),
	}
	if !o.CreatedAt.IsZero() {
		v.CreatedAt = o.CreatedAt.UTC().Format(time.RFC3339)
	}
	return v
}

// NewOrders renders an order history.
func NewOrders(orders []model.Order, status model.Status, format Formatter) Orders {
	v := Orders{Orders: make([]Order, 0, len(orders)), Status: status}
	for _, o := range orders {
		v.Orders = append(v.Orders, NewOrder(o, format))
	}
	return v
}

// NewProfile renders u.
func NewProfile(u *model.UserProfile) Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Mobile: u.Mobile}
}

// Lines renders cart lines; the result is never nil.
func Lines(items []model.CartLineItem) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{
			ProductID: string(it.ProductRef),
			Size:      it.Size,
			Quantity:  it.Quantity,
		})
	}
	return lines
}
