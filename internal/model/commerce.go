// Package model defines the session data structures shared by the engines
// and the remote store wire format.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProductID identifies a catalog product. The core never owns product data;
// a ProductID is a foreign reference into the product lookup.
type ProductID string

// UnmarshalJSON accepts either a plain id string or a populated product
// object carrying "_id". The remote store returns both forms depending on
// whether the reference was populated server-side.
func (p *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = ProductID(s)
		return nil
	}

	var ref struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &ref); err != nil {
		return fmt.Errorf("product reference: %w", err)
	}
	*p = ProductID(ref.ID)
	return nil
}

// === Cart ===

// LineKey identifies a cart line. At most one line exists per key.
type LineKey struct {
	Product ProductID
	Size    string
}

func (k LineKey) String() string {
	return string(k.Product) + "/" + k.Size
}

// CartLineItem is one (product, size, quantity) record in the cart.
// Quantity is always >= 1 once stored; zero is a removal signal, not a state.
type CartLineItem struct {
	ProductRef ProductID `json:"productId"`
	Size       string    `json:"size"`
	Quantity   int       `json:"quantity"`
}

// Key returns the line's uniqueness key.
func (c CartLineItem) Key() LineKey {
	return LineKey{Product: c.ProductRef, Size: c.Size}
}

// === Catalog ===

// ProductRecord is the read-only catalog record joined at read time.
type ProductRecord struct {
	ID          ProductID       `json:"_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images,omitempty"`
	Category    string          `json:"category,omitempty"`
	SubCategory string          `json:"subCategory,omitempty"`
	Sizes       []string        `json:"sizes,omitempty"`
}

// WishlistEntry is a wishlisted product in hydrated form.
type WishlistEntry struct {
	ProductRef ProductRecord `json:"productId"`
}

// UnmarshalJSON accepts an unpopulated entry whose productId is a bare
// string; the snapshot then carries only the id.
func (w *WishlistEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProductRef json.RawMessage `json:"productId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ref := bytes.TrimSpace(raw.ProductRef)
	if len(ref) == 0 || bytes.Equal(ref, []byte("null")) {
		*w = WishlistEntry{}
		return nil
	}
	if ref[0] == '"' {
		var id ProductID
		if err := json.Unmarshal(ref, &id); err != nil {
			return err
		}
		*w = WishlistEntry{ProductRef: ProductRecord{ID: id}}
		return nil
	}

	var rec ProductRecord
	if err := json.Unmarshal(ref, &rec); err != nil {
		return fmt.Errorf("wishlist product: %w", err)
	}
	*w = WishlistEntry{ProductRef: rec}
	return nil
}

// === Orders ===

// ShippingAddress is the destination submitted with an order.
// Email is validated with the address but is not part of the order payload.
type ShippingAddress struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Zip     string `json:"zip" validate:"required"`
	Country string `json:"country" validate:"required"`
	Mobile  string `json:"mobile" validate:"required,mobile"`
	Email   string `json:"-" validate:"contact_email"`
}

// Order is an immutable, server-confirmed order.
type Order struct {
	ID              string          `json:"_id"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Items           []CartLineItem  `json:"items"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// === Account ===

// UserProfile is the authenticated user's record from auth/user.
type UserProfile struct {
	ID              string           `json:"_id"`
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	Mobile          string           `json:"mobile,omitempty"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty"`
}

// ProfileUpdate carries the editable profile fields. Empty fields are omitted.
type ProfileUpdate struct {
	Name            string           `json:"name,omitempty"`
	Email           string           `json:"email,omitempty" validate:"omitempty,contact_email"`
	Mobile          string           `json:"mobile,omitempty" validate:"omitempty,mobile"`
	ShippingAddress *ShippingAddress `json:"shippingAddress,omitempty" validate:"-"`
}

// === Engine status ===

// StatusState is the coarse lifecycle of an engine's last remote operation.
type StatusState string

const (
	StatusIdle    StatusState = "idle"
	StatusLoading StatusState = "loading"
	StatusError   StatusState = "error"
)

// Status reports an engine's last-operation state and error message, if any.
type Status struct {
	State   StatusState `json:"state"`
	Message string      `json:"message,omitempty"`
}

// Idle is the zero-error status.
func Idle() Status { return Status{State: StatusIdle} }

// Failed returns an error status carrying the user-facing message.
func Failed(message string) Status { return Status{State: StatusError, Message: message} }
