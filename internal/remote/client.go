// Package remote is the Remote Collection Client: authenticated JSON calls
// against the store's cart, wishlist, order and auth resources, with every
// failure translated into a *model.OpError.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"shopsync/internal/model"
)

// =============================================================================
// REMOTE STORE CLIENT
// =============================================================================
//
// Every call carries "Authorization: Bearer <token>". Collection endpoints
// answer with the full canonical collection ({items: [...]}) so the engines
// can replace their mirror wholesale. Failure translation:
//
//   transport error/timeout → TRANSPORT_ERROR (wraps ErrRemote)
//   401                     → ErrSessionExpired
//   other status >= 400     → ErrRemote, server "error" then "message" field
//   2xx with wrong shape    → ErrDataShape
//
// There is no retry. Timeouts come from the http.Client.
// =============================================================================

// API paths, relative to the base URL.
const (
	pathCart           = "/cart"
	pathCartAdd        = "/cart/add"
	pathCartIncrease   = "/cart/increase"
	pathCartDecrease   = "/cart/decrease"
	pathCartRemove     = "/cart/remove"
	pathWishlist       = "/wishlist"
	pathWishlistAdd    = "/wishlist/add"
	pathWishlistRemove = "/wishlist/remove"
	pathOrder          = "/order"
	pathUser           = "/auth/user"
	pathUpdateProfile  = "/auth/update-profile"

	userAgent = "shopsync/1.0"

	headerAgent       = "Session-Agent"
	headerAPIVersion  = "API-Version"
	headerIdempotency = "Idempotency-Key"
)

// Operation names, used as the error Op and the metrics label.
const (
	OpCartGet        = "cart.get"
	OpCartAdd        = "cart.add"
	OpCartIncrease   = "cart.increase"
	OpCartDecrease   = "cart.decrease"
	OpCartRemove     = "cart.remove"
	OpWishlistGet    = "wishlist.get"
	OpWishlistAdd    = "wishlist.add"
	OpWishlistRemove = "wishlist.remove"
	OpOrdersGet      = "order.list"
	OpOrderPlace     = "order.place"
	OpProfileGet     = "profile.get"
	OpProfileUpdate  = "profile.update"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "https://shop.example/api".
	BaseURL string

	// HTTPClient defaults to a client with a 30-second timeout.
	HTTPClient *http.Client

	// Agent is sent as the Session-Agent header when non-empty.
	Agent Agent

	// MinAPIVersion, when set, logs a warning once if the server
	// advertises an older API-Version.
	MinAPIVersion string

	Metrics *Metrics
	Logger  *slog.Logger
}

// Client is the remote store HTTP client. Safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	agentHeader string
	minVersion  string
	metrics     *Metrics
	logger      *slog.Logger
	versionOnce sync.Once
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}

	agent, err := opts.Agent.Header()
	if err != nil {
		return nil, fmt.Errorf("encoding %s header: %w", headerAgent, err)
	}

	minVersion := ""
	if opts.MinAPIVersion != "" {
		minVersion = normalizeVersion(opts.MinAPIVersion)
		if !semver.IsValid(minVersion) {
			return nil, fmt.Errorf("invalid minimum API version %q", opts.MinAPIVersion)
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		httpClient:  httpClient,
		agentHeader: agent,
		minVersion:  minVersion,
		metrics:     opts.Metrics,
		logger:      logger,
	}, nil
}

// === Cart ===

type lineRequest struct {
	ProductID model.ProductID `json:"productId"`
	Quantity  int             `json:"quantity,omitempty"`
	Size      string          `json:"size"`
}

// Cart fetches the canonical cart.
func (c *Client) Cart(ctx context.Context, token string) ([]model.CartLineItem, error) {
	return c.cartCall(ctx, OpCartGet, http.MethodGet, pathCart, token, nil)
}

// AddToCart adds quantity units of (product, size) and returns the new cart.
func (c *Client) AddToCart(ctx context.Context, token string, product model.ProductID, quantity int, size string) ([]model.CartLineItem, error) {
	body := &lineRequest{ProductID: product, Quantity: quantity, Size: size}
	return c.cartCall(ctx, OpCartAdd, http.MethodPost, pathCartAdd, token, body)
}

// IncreaseLine increments the (product, size) line by one.
func (c *Client) IncreaseLine(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error) {
	body := &lineRequest{ProductID: product, Size: size}
	return c.cartCall(ctx, OpCartIncrease, http.MethodPost, pathCartIncrease, token, body)
}

// DecreaseLine decrements the (product, size) line by one.
func (c *Client) DecreaseLine(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error) {
	body := &lineRequest{ProductID: product, Size: size}
	return c.cartCall(ctx, OpCartDecrease, http.MethodPost, pathCartDecrease, token, body)
}

// RemoveLine deletes the (product, size) line.
func (c *Client) RemoveLine(ctx context.Context, token string, product model.ProductID, size string) ([]model.CartLineItem, error) {
	body := &lineRequest{ProductID: product, Size: size}
	return c.cartCall(ctx, OpCartRemove, http.MethodPost, pathCartRemove, token, body)
}

func (c *Client) cartCall(ctx context.Context, op, method, path, token string, body any) ([]model.CartLineItem, error) {
	var resp struct {
		Items *[]model.CartLineItem `json:"items"`
	}
	if err := c.call(ctx, op, method, path, token, body, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return nil, c.shapeError(op, "response missing items")
	}
	return *resp.Items, nil
}

// === Wishlist ===

type productRequest struct {
	ProductID model.ProductID `json:"productId"`
}

// Wishlist fetches the hydrated wishlist.
func (c *Client) Wishlist(ctx context.Context, token string) ([]model.WishlistEntry, error) {
	return c.wishlistCall(ctx, OpWishlistGet, http.MethodGet, pathWishlist, token, nil)
}

// AddToWishlist adds product and returns the new wishlist.
func (c *Client) AddToWishlist(ctx context.Context, token string, product model.ProductID) ([]model.WishlistEntry, error) {
	return c.wishlistCall(ctx, OpWishlistAdd, http.MethodPost, pathWishlistAdd, token, &productRequest{ProductID: product})
}

// RemoveFromWishlist removes product and returns the new wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, token string, product model.ProductID) ([]model.WishlistEntry, error) {
	return c.wishlistCall(ctx, OpWishlistRemove, http.MethodPost, pathWishlistRemove, token, &productRequest{ProductID: product})
}

func (c *Client) wishlistCall(ctx context.Context, op, method, path, token string, body any) ([]model.WishlistEntry, error) {
	var resp struct {
		Items *[]model.WishlistEntry `json:"items"`
	}
	if err := c.call(ctx, op, method, path, token, body, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		return nil, c.shapeError(op, "response missing items")
	}
	return *resp.Items, nil
}

// === Orders ===

// Orders fetches the order history. The response is a bare array.
func (c *Client) Orders(ctx context.Context, token string) ([]model.Order, error) {
	var orders []model.Order
	if err := c.call(ctx, OpOrdersGet, http.MethodGet, pathOrder, token, nil, &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// PlaceOrder submits the shipping address for the server-side cart.
// idempotencyKey is forwarded so a caller-driven retry cannot double-place.
func (c *Client) PlaceOrder(ctx context.Context, token string, address model.ShippingAddress, idempotencyKey string) (*model.Order, error) {
	body := struct {
		ShippingAddress model.ShippingAddress `json:"shippingAddress"`
	}{address}

	req, err := c.newRequest(ctx, http.MethodPost, pathOrder, body, token)
	if err != nil {
		return nil, fmt.Errorf("creating place order request: %w", err)
	}
	if idempotencyKey != "" {
		req.Header.Set(headerIdempotency, idempotencyKey)
	}

	var raw json.RawMessage
	if err := c.do(req, OpOrderPlace, &raw); err != nil {
		return nil, err
	}
	order, err := decodeOrder(raw)
	if err != nil {
		return nil, c.shapeError(OpOrderPlace, err.Error())
	}
	return order, nil
}

// decodeOrder accepts a bare Order or one wrapped as {"order": {...}}.
func decodeOrder(raw json.RawMessage) (*model.Order, error) {
	var order model.Order
	if err := json.Unmarshal(raw, &order); err == nil && order.ID != "" {
		return &order, nil
	}

	var wrapped struct {
		Order *model.Order `json:"order"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding order: %w", err)
	}
	if wrapped.Order == nil || wrapped.Order.ID == "" {
		return nil, errors.New("response missing order id")
	}
	return wrapped.Order, nil
}

// === Account ===

type userEnvelope struct {
	User *model.UserProfile `json:"user"`
}

// Profile fetches the authenticated user's record.
func (c *Client) Profile(ctx context.Context, token string) (*model.UserProfile, error) {
	var resp userEnvelope
	if err := c.call(ctx, OpProfileGet, http.MethodGet, pathUser, token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, c.shapeError(OpProfileGet, "response missing user")
	}
	return resp.User, nil
}

// UpdateProfile submits the editable profile fields and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, token string, update model.ProfileUpdate) (*model.UserProfile, error) {
	var resp userEnvelope
	if err := c.call(ctx, OpProfileUpdate, http.MethodPost, pathUpdateProfile, token, update, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, c.shapeError(OpProfileUpdate, "response missing user")
	}
	return resp.User, nil
}

// === HTTP Helpers ===

func (c *Client) call(ctx context.Context, op, method, path, token string, body, result any) error {
	req, err := c.newRequest(ctx, method, path, body, token)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", op, err)
	}
	return c.do(req, op, result)
}

// newRequest creates a JSON request with Bearer token authentication.
func (c *Client) newRequest(ctx context.Context, method, path string, body any, token string) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+token)
	if c.agentHeader != "" {
		req.Header.Set(headerAgent, c.agentHeader)
	}

	return req, nil
}

// do executes the request, records metrics and decodes a success body into result.
func (c *Client) do(req *http.Request, op string, result any) error {
	start := time.Now()
	outcome := "ok"
	defer func() {
		c.metrics.observe(op, outcome, time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "transport"
		return model.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	c.checkVersion(resp.Header.Get(headerAPIVersion))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "transport"
		return model.NewTransportError(op, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		outcome = "error"
		if resp.StatusCode == http.StatusUnauthorized {
			outcome = "unauthorized"
		}
		return parseError(op, resp, body)
	}

	if result == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		outcome = "shape"
		return c.shapeError(op, "empty response body")
	}
	if err := json.Unmarshal(body, result); err != nil {
		outcome = "shape"
		return c.shapeError(op, "decoding response: "+err.Error())
	}
	return nil
}

func (c *Client) shapeError(op, detail string) error {
	c.logger.Warn("unexpected response shape",
		slog.String("operation", op),
		slog.String("detail", detail),
	)
	return model.NewDataShapeError(op, detail)
}

// checkVersion warns once when the server's advertised API version is older
// than the configured minimum. Unparseable versions are ignored.
func (c *Client) checkVersion(advertised string) {
	if c.minVersion == "" || advertised == "" {
		return
	}
	v := normalizeVersion(advertised)
	if !semver.IsValid(v) || semver.Compare(v, c.minVersion) >= 0 {
		return
	}
	c.versionOnce.Do(func() {
		c.logger.Warn("remote API older than supported minimum",
			slog.String("advertised", advertised),
			slog.String("minimum", c.minVersion),
		)
	})
}

// normalizeVersion adds "v" prefix if needed for semver parsing.
func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return v
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
