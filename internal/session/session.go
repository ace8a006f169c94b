// Package session wires the credential resolver, the collection engines and
// the reset coordinator into one client session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"shopsync/internal/account"
	"shopsync/internal/cart"
	"shopsync/internal/catalog"
	"shopsync/internal/credential"
	"shopsync/internal/guard"
	"shopsync/internal/notify"
	"shopsync/internal/order"
	"shopsync/internal/remote"
	"shopsync/internal/storage"
	"shopsync/internal/wishlist"
)

// Remote is the full remote store surface a session uses.
type Remote interface {
	cart.Remote
	wishlist.Remote
	order.Remote
	account.Remote
}

// Options configures a Session. Zero values select in-memory storage and
// HTTP-backed remote and catalog clients.
type Options struct {
	// Persistent and Ephemeral are the two credential scopes. Persistent
	// also holds the cart and wishlist caches.
	Persistent storage.KV
	Ephemeral  storage.KV

	// Remote overrides the HTTP client built from BaseURL.
	Remote        Remote
	BaseURL       string
	HTTPClient    *http.Client
	Agent         remote.Agent
	MinAPIVersion string
	Metrics       *remote.Metrics

	// Catalog overrides the HTTP lookup built from CatalogURL. CatalogURL
	// defaults to BaseURL.
	Catalog    catalog.Lookup
	CatalogURL string

	Currency    string
	DeliveryFee *decimal.Decimal

	Sink      notify.Sink
	Navigator notify.Navigator
	Logger    *slog.Logger
}

// Session is one shopper's synchronized state.
type Session struct {
	Credentials *credential.Resolver
	Cart        *cart.Engine
	Wishlist    *wishlist.Engine
	Orders      *order.Coordinator
	Account     *account.Service
	Resetter    *Resetter

	logger *slog.Logger
}

// New builds a Session leaf-first: storage, credential, catalog, remote,
// cart, order, wishlist, account, resetter. Nothing holds a reference back
// up the chain.
func New(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	persistent := opts.Persistent
	if persistent == nil {
		persistent = storage.NewMemory()
	}
	ephemeral := opts.Ephemeral
	if ephemeral == nil {
		ephemeral = storage.NewMemory()
	}

	creds := credential.NewResolver(persistent, ephemeral, logger)

	lookup := opts.Catalog
	if lookup == nil {
		catalogURL := opts.CatalogURL
		if catalogURL == "" {
			catalogURL = opts.BaseURL
		}
		httpLookup, err := catalog.NewHTTPLookup(catalog.HTTPConfig{
			BaseURL:    catalogURL,
			HTTPClient: opts.HTTPClient,
		})
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		lookup = httpLookup
	}

	client := opts.Remote
	if client == nil {
		httpClient, err := remote.New(remote.Options{
			BaseURL:       opts.BaseURL,
			HTTPClient:    opts.HTTPClient,
			Agent:         opts.Agent,
			MinAPIVersion: opts.MinAPIVersion,
			Metrics:       opts.Metrics,
			Logger:        logger,
		})
		if err != nil {
			return nil, fmt.Errorf("remote: %w", err)
		}
		client = httpClient
	}

	g := guard.New(creds, opts.Sink, opts.Navigator, logger)

	cartEngine := cart.New(cart.Options{
		Remote:      client,
		Guard:       g,
		Catalog:     lookup,
		Slot:        storage.NewSlot(persistent, storage.KeyCart),
		Currency:    opts.Currency,
		DeliveryFee: opts.DeliveryFee,
		Logger:      logger,
	})

	orders := order.New(order.Options{
		Remote: client,
		Guard:  g,
		Cart:   cartEngine,
		Logger: logger,
	})

	wishlistEngine := wishlist.New(wishlist.Options{
		Remote: client,
		Guard:  g,
		Slot:   storage.NewSlot(persistent, storage.KeyWishlist),
		Logger: logger,
	})

	return &Session{
		Credentials: creds,
		Cart:        cartEngine,
		Wishlist:    wishlistEngine,
		Orders:      orders,
		Account:     account.New(client, g, logger),
		Resetter:    NewResetter(creds, opts.Navigator, logger, cartEngine, wishlistEngine, orders),
		logger:      logger,
	}, nil
}

// Restore loads the cached cart and wishlist without a network call. A
// corrupt cache is logged and left empty.
func (s *Session) Restore(ctx context.Context) {
	if err := s.Cart.Restore(ctx); err != nil {
		s.logger.Warn("cart cache restore failed", slog.String("error", err.Error()))
	}
	if err := s.Wishlist.Restore(ctx); err != nil {
		s.logger.Warn("wishlist cache restore failed", slog.String("error", err.Error()))
	}
}

// Mount is the app-start bootstrap. It restores the cached collections,
// then fetches the cart and the order history concurrently; one failing
// does not cancel the other. Both fetches are silent no-ops for an
// anonymous session. The wishlist is fetched only on demand.
func (s *Session) Mount(ctx context.Context) error {
	s.Restore(ctx)

	var g errgroup.Group
	g.Go(func() error { return s.Cart.Fetch(ctx) })
	g.Go(func() error { return s.Orders.FetchOrders(ctx) })
	return g.Wait()
}

// Login stores token and mounts the session for the new user.
func (s *Session) Login(ctx context.Context, token string, remember bool) error {
	if err := s.Credentials.Save(ctx, token, remember); err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	s.logger.Info("session login", slog.Bool("remember", remember))
	return s.Mount(ctx)
}

// Logout tears the session down.
func (s *Session) Logout(ctx context.Context) error {
	return s.Resetter.Logout(ctx)
}

// LoggedIn reports whether a credential is present.
func (s *Session) LoggedIn(ctx context.Context) bool {
	return s.Credentials.Has(ctx)
}
