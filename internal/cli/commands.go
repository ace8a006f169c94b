package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shopsync/internal/model"
	"shopsync/internal/session"
	"shopsync/internal/view"
)

// statusView summarizes the local session.
type statusView struct {
	LoggedIn      bool `json:"logged_in"`
	CartCount     int  `json:"cart_count"`
	WishlistCount int  `json:"wishlist_count"`
}

// exactArgs is cobra.ExactArgs reported as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// === Session ===

func newLoginCommand(r *runner) *cobra.Command {
	var token string
	var remember bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a credential and load the cart and orders",
		Long: `Store a bearer credential issued by the store.

Without --remember the credential lasts only for this invocation. The
token may also be given in SHOPSYNC_TOKEN.`,
		Args: exactArgs(0),
		RunE: r.run(func(ctx context.Context, s *session.Session) (any, error) {
			if token == "" {
				token = os.Getenv("SHOPSYNC_TOKEN")
			}
			if strings.TrimSpace(token) == "" {
				return nil, usageError(fmt.Errorf("--token or SHOPSYNC_TOKEN is required"))
			}
			if err := s.Login(ctx, token, remember); err != nil {
				return nil, err
			}
			return view.NewCart(ctx, s.Cart), nil
		}),
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer credential")
	cmd.Flags().BoolVar(&remember, "remember", false, "persist the credential for later invocations")
	return cmd
}

func newLogoutCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the credential and every cached collection",
		Args:  exactArgs(0),
		RunE: r.run(func(ctx context.Context, s *session.Session) (any, error) {
			return nil, s.Logout(ctx)
		}),
	}
}

func newStatusCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cached session state without contacting the store",
		Args:  exactArgs(0),
		RunE: r.run(func(ctx context.Context, s *session.Session) (any, error) {
			return statusView{
				LoggedIn:      s.LoggedIn(ctx),
				CartCount:     s.Cart.Count(),
				WishlistCount: s.Wishlist.Count(),
			}, nil
		}),
	}
}

// === Cart ===

func newCartCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart with totals",
		Args:  exactArgs(0),
		RunE: r.run(func(ctx context.Context, s *session.Session) (any, error) {
			if err := s.Cart.Fetch(ctx); err != nil {
				return nil, err
			}
			return view.NewCart(ctx, s.Cart), nil
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <product> <size>",
		Short: "Add one unit of a product",
		Args:  exactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return r.run(func(ctx context.Context, s *session.Session) (any, error) {
				if err := s.Cart.Add(ctx, model.ProductID(args[0]), args[1]); err != nil {
					return nil, err
				}
				return view.NewCart(ctx, s.Cart), nil
			})(c, args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "qty <product> <size> <quantity>",
		Short: "Step a line toward quantity; 0 removes it",
		Args:  exactArgs(3),
		RunE: func(c *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[2])
			if err != nil {
				return usageError(fmt.Errorf("quantity %q is not a number", args[2]))
			}
			return r.run(func(ctx context.Context, s *session.Session) (any, error) {
				if err := s.Cart.UpdateQuantity(ctx, model.ProductID(args[0]), args[1], qty); err != nil {
					return nil, err
				}
				return view.NewCart(ctx, s.Cart), nil
			})(c, args)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <product> <size>",
		Aliases: []string{"remove"},
		Short:   "Remove a line",
		Args:    exactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return r.run(func(ctx context.Context, s *session.Session) (any, error) {
				if err := s.Cart.Remove(ctx, model.ProductID(args[0]), args[1]); err != nil {
					return nil, err
				}
				return view.NewCart(ctx, s.Cart), nil
			})(c, args)
		},
	})

	return cmd
}

// === Wishlist ===

func newWishlistCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Show the wishlist",
		Args:  exactArgs(0),
		RunE: r.run(func(ctx context.Context, s *session.Session) (any, error) {
			if err := s.Wishlist.Fetch(ctx); err != nil {
				return nil, err
			}
			return view.NewWishlist(s.Wishlist, s.Cart.Format), nil
		}),
	}

	mutate := func(use, short string, op func(ctx context.Context, s *session.Session, id model.ProductID) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <product>",
			Short: short,
			Args:  exactArgs(1),
			RunE: func(c *cobra.Command, args []string) error {
				return r.run(func(ctx context.Context, s *session.Session) (any, error) {
					if err := op(ctx, s, model.ProductID(args[0])); err != nil {
						return nil, err
					}
					return view.NewWishlist(s.Wishlist, s.Cart.Format), nil
				})(c, args)
			},
		}
	}

	cmd.AddCommand(mutate("add", "Add a product", func(ctx context.Context, s *session.Session, id model.ProductID) error {
		return s.Wishlist.Add(ctx, id)
	}))
	cmd.AddCommand(mutate("rm", "Remove a product", func(ctx context.Context, s *session.Session, id model.ProductID) error {
		return s.Wishlist.Remove(ctx, id)
	}))
	cmd.AddCommand(mutate("toggle", "Add the product if absent, otherwise remove it", func(ctx context.Context, s *session.Session, id model.ProductID) error {
		return s.Wishlist.Toggle(ctx, id)
	}))

	return cmd
}

// === Orders ===

func newOrdersCommand(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List placed orders",
		Args:  exactArgs(0),
		RunE: r.run(func(ctx context.Context, s *session.Session) (any, error) {
			if !s.LoggedIn(ctx) {
				return nil, usageError(fmt.Errorf("not logged in"))
			}
			if err := s.Orders.FetchOrders(ctx); err != nil {
				return nil, err
			}
			return view.NewOrders(s.Orders.Orders(), s.Orders.Status(), s.Cart.Format), nil
		}),
	}
}

func newOrderCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Order commands",
	}

	var addr model.ShippingAddress
	place := &cobra.Command{
		Use:   "place",
		Short: "Place an order for the current cart",
		Args:  exactArgs(0),
		RunE: r.run(func(ctx context.Context, s *session.Session) (any, error) {
			placed, err := s.Orders.PlaceOrder(ctx, addr)
			if err != nil {
				return nil, err
			}
			return view.NewOrder(*placed, s.Cart.Format), nil
		}),
	}
	f := place.Flags()
	f.StringVar(&addr.Street, "street", "", "street address")
	f.StringVar(&addr.City, "city", "", "city")
	f.StringVar(&addr.State, "state", "", "state or region")
	f.StringVar(&addr.Zip, "zip", "", "postal code")
	f.StringVar(&addr.Country, "country", "", "country")
	f.StringVar(&addr.Mobile, "mobile", "", "mobile number, 7 to 15 digits")
	f.StringVar(&addr.Email, "email", "", "contact email")

	cmd.AddCommand(place)
	return cmd
}

// === Profile ===

func newProfileCommand(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the user profile",
		Args:  exactArgs(0),
		RunE: r.run(func(ctx context.Context, s *session.Session) (any, error) {
			user, err := s.Account.Profile(ctx)
			if err != nil {
				return nil, err
			}
			return view.NewProfile(user), nil
		}),
	}

	var update model.ProfileUpdate
	upd := &cobra.Command{
		Use:   "update",
		Short: "Update name, email or mobile",
		Args:  exactArgs(0),
		RunE: r.run(func(ctx context.Context, s *session.Session) (any, error) {
			user, err := s.Account.UpdateProfile(ctx, update)
			if err != nil {
				return nil, err
			}
			return view.NewProfile(user), nil
		}),
	}
	upd.Flags().StringVar(&update.Name, "name", "", "display name")
	upd.Flags().StringVar(&update.Email, "email", "", "contact email")
	upd.Flags().StringVar(&update.Mobile, "mobile", "", "mobile number")

	cmd.AddCommand(upd)
	return cmd
}
