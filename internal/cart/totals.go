package cart

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"shopsync/internal/catalog"
	"shopsync/internal/model"
)

// Totals is the priced view of the cart, joined against the catalog at
// read time.
type Totals struct {
	Currency    string          `json:"currency"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
	// Unresolved lists lines whose product no longer resolves; they
	// contribute nothing to the subtotal.
	Unresolved []model.LineKey `json:"unresolved,omitempty"`
}

// Amount returns Σ price × quantity over lines whose product resolves.
func (e *Engine) Amount(ctx context.Context) decimal.Decimal {
	amount, _ := e.price(ctx, e.Items())
	return amount
}

// Totals prices the cart. The delivery fee applies only to a non-empty
// subtotal, so an empty cart totals zero.
func (e *Engine) Totals(ctx context.Context) Totals {
	subtotal, unresolved := e.price(ctx, e.Items())

	t := Totals{
		Currency:    e.currency,
		Subtotal:    subtotal,
		DeliveryFee: e.fee,
		Total:       decimal.Zero,
		Unresolved:  unresolved,
	}
	if !subtotal.IsZero() {
		t.Total = subtotal.Add(e.fee)
	}
	return t
}

// Format renders an amount with the cart's currency symbol.
func (e *Engine) Format(d decimal.Decimal) string {
	return model.FormatAmount(e.currency, d)
}

func (e *Engine) price(ctx context.Context, items []model.CartLineItem) (decimal.Decimal, []model.LineKey) {
	total := decimal.Zero
	var unresolved []model.LineKey

	for _, item := range items {
		rec, err := e.catalog.Product(ctx, item.ProductRef)
		if err != nil {
			if !errors.Is(err, catalog.ErrNotFound) {
				e.logger.Warn("product lookup failed",
					slog.String("product", string(item.ProductRef)),
					slog.String("error", err.Error()),
				)
			}
			unresolved = append(unresolved, item.Key())
			continue
		}
		total = total.Add(rec.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, unresolved
}
