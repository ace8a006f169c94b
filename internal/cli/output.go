package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"shopsync/internal/notify"
	"shopsync/internal/session"
	"shopsync/internal/view"
)

// runner opens the session for a command and renders its result.
type runner struct {
	opts *RootOptions
	open Opener
}

// action performs one operation and returns the value to print, or nil
// for none.
type action func(ctx context.Context, s *session.Session) (any, error)

// run adapts fn into a cobra RunE. Notifications go to stderr as they
// arrive; the result goes to stdout in the selected format.
func (r *runner) run(fn action) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p := &printer{w: cmd.ErrOrStderr(), verbose: r.opts.Verbose}

		sess, closer, err := r.open(ctx, r.opts, p, p)
		if err != nil {
			return err
		}
		defer closer.Close()

		sess.Restore(ctx)

		result, err := fn(ctx, sess)
		if err != nil {
			return err
		}
		if result == nil {
			return nil
		}
		return r.emit(cmd.OutOrStdout(), result)
	}
}

func (r *runner) emit(w io.Writer, v any) error {
	if r.opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	switch v := v.(type) {
	case view.Cart:
		writeCart(tw, v)
	case view.Wishlist:
		writeWishlist(tw, v)
	case view.Orders:
		if len(v.Orders) == 0 {
			fmt.Fprintln(tw, "no orders")
		}
		for _, o := range v.Orders {
			writeOrder(tw, o)
		}
	case view.Order:
		writeOrder(tw, v)
	case view.Profile:
		fmt.Fprintf(tw, "id\t%s\nname\t%s\nemail\t%s\n", v.ID, v.Name, v.Email)
		if v.Mobile != "" {
			fmt.Fprintf(tw, "mobile\t%s\n", v.Mobile)
		}
	case statusView:
		fmt.Fprintf(tw, "logged in\t%t\ncart items\t%d\nwishlist\t%d\n", v.LoggedIn, v.CartCount, v.WishlistCount)
	default:
		fmt.Fprintf(tw, "%v\n", v)
	}
	return nil
}

func writeCart(w io.Writer, c view.Cart) {
	if len(c.Items) == 0 {
		fmt.Fprintln(w, "cart is empty")
		return
	}
	for _, l := range c.Items {
		fmt.Fprintf(w, "%s\t%s\tx%d\n", l.ProductID, l.Size, l.Quantity)
	}
	fmt.Fprintf(w, "subtotal\t\t%s\n", c.Subtotal)
	fmt.Fprintf(w, "delivery\t\t%s\n", c.DeliveryFee)
	fmt.Fprintf(w, "total\t\t%s\n", c.Total)
	for _, k := range c.Unresolved {
		fmt.Fprintf(w, "unavailable\t%s\t\n", k)
	}
}

func writeWishlist(w io.Writer, l view.Wishlist) {
	if len(l.Products) == 0 {
		fmt.Fprintln(w, "wishlist is empty")
		return
	}
	for _, p := range l.Products {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.Price)
	}
}

func writeOrder(w io.Writer, o view.Order) {
	fmt.Fprintf(w, "order %s\t%s\t%s\t%s\n", o.ID, o.Status, o.Amount, o.CreatedAt)
	for _, l := range o.Items {
		fmt.Fprintf(w, "  %s\t%s\tx%d\t\n", l.ProductID, l.Size, l.Quantity)
	}
}

// printer is the CLI's notification sink and navigator.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func (p *printer) Notify(level notify.Level, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	marker := "-"
	switch level {
	case notify.LevelSuccess:
		marker = "✓"
	case notify.LevelError:
		marker = "✗"
	}
	fmt.Fprintf(p.w, "%s %s\n", marker, message)
}

// Navigate reports the view the session asked for. A terminal has no
// views, so this only matters with --verbose.
func (p *printer) Navigate(route notify.Route) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "→ %s\n", route)
}
