// MCP transport handler using the official MCP Go SDK.
// Exposes the session's cart, wishlist, order and account operations as tools.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"shopsync/internal/model"
	"shopsync/internal/remote"
	"shopsync/internal/view"
)

// === MCP Tool Input Types ===

// EmptyInput is the input schema for tools that take no arguments.
type EmptyInput struct{}

// LoginInput is the input schema for session_login.
type LoginInput struct {
	Token    string `json:"token" jsonschema:"bearer credential issued by the store"`
	Remember bool   `json:"remember,omitempty" jsonschema:"keep the credential across restarts"`
}

// ProductInput names a single product.
type ProductInput struct {
	ProductID string `json:"product_id" jsonschema:"product identifier"`
}

// LineInput names a cart line.
type LineInput struct {
	ProductID string `json:"product_id" jsonschema:"product identifier"`
	Size      string `json:"size" jsonschema:"size variant of the line"`
}

// QuantityInput sets a cart line's quantity. Zero removes the line.
type QuantityInput struct {
	ProductID string `json:"product_id" jsonschema:"product identifier"`
	Size      string `json:"size" jsonschema:"size variant of the line"`
	Quantity  int    `json:"quantity" jsonschema:"desired quantity (0 removes the line)"`
}

// AddressInput is a shipping address with its contact email.
type AddressInput struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	Mobile  string `json:"mobile" jsonschema:"7 to 15 digits"`
	Email   string `json:"email"`
}

func (a AddressInput) toModel() model.ShippingAddress {
	return model.ShippingAddress{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
		Country: a.Country,
		Mobile:  a.Mobile,
		Email:   a.Email,
	}
}

// PlaceOrderInput is the input schema for order_place.
type PlaceOrderInput struct {
	Address AddressInput `json:"address" jsonschema:"shipping address for the order"`
}

// ProfileUpdateInput is the input schema for profile_update. Empty fields are left unchanged.
type ProfileUpdateInput struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Mobile string `json:"mobile,omitempty"`
}

// NewMCPServer creates an MCP server with the session tools registered.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "shopsync",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "Shopping session synchronized with the remote store. " +
				"Log in, then use these tools to manage the cart and wishlist and to place orders.",
		},
	)

	// Session tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_login",
		Description: "Store a credential and load the cart and order history for that user.",
	}, h.mcpLogin)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_logout",
		Description: "Clear the credential and every cached collection.",
	}, h.mcpLogout)

	// Cart tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_get",
		Description: "Fetch the cart from the store and return it with totals.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_add",
		Description: "Add one unit of a product in the given size to the cart.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_update_quantity",
		Description: "Move a cart line one step toward the given quantity. Quantity 0 removes the line.",
	}, h.mcpUpdateQuantity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cart_remove",
		Description: "Remove a line from the cart.",
	}, h.mcpRemoveFromCart)

	// Wishlist tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "wishlist_get",
		Description: "Return the wishlist, fetching it from the store on first use.",
	}, h.mcpGetWishlist)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "wishlist_add",
		Description: "Add a product to the wishlist.",
	}, h.mcpAddToWishlist)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "wishlist_remove",
		Description: "Remove a product from the wishlist.",
	}, h.mcpRemoveFromWishlist)

	// Order tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "orders_list",
		Description: "Fetch the order history from the store.",
	}, h.mcpListOrders)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "order_place",
		Description: "Place an order for the current cart. The cart is emptied on success.",
	}, h.mcpPlaceOrder)

	// Account tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "profile_get",
		Description: "Fetch the authenticated user's profile.",
	}, h.mcpGetProfile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "profile_update",
		Description: "Update the user's name, email or mobile number.",
	}, h.mcpUpdateProfile)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpLogin(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input LoginInput,
) (*mcp.CallToolResult, view.Session, error) {
	if strings.TrimSpace(input.Token) == "" {
		return nil, view.Session{}, h.toolError(model.NewValidationError("token", "token is required"))
	}
	if err := h.session.Login(ctx, input.Token, input.Remember); err != nil {
		return nil, view.Session{}, h.toolError(err)
	}
	return nil, view.Session{LoggedIn: true}, nil
}

func (h *Handler) mcpLogout(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, view.Session, error) {
	if err := h.session.Logout(ctx); err != nil {
		return nil, view.Session{}, h.toolError(err)
	}
	return nil, view.Session{LoggedIn: h.session.LoggedIn(ctx)}, nil
}

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, view.Cart, error) {
	if err := h.session.Cart.Fetch(ctx); err != nil {
		return nil, view.Cart{}, h.toolError(err)
	}
	return nil, view.NewCart(ctx, h.session.Cart), nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input LineInput,
) (*mcp.CallToolResult, view.Cart, error) {
	if err := h.session.Cart.Add(ctx, model.ProductID(input.ProductID), input.Size); err != nil {
		return nil, view.Cart{}, h.toolError(err)
	}
	return nil, view.NewCart(ctx, h.session.Cart), nil
}

func (h *Handler) mcpUpdateQuantity(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input QuantityInput,
) (*mcp.CallToolResult, view.Cart, error) {
	err := h.session.Cart.UpdateQuantity(ctx, model.ProductID(input.ProductID), input.Size, input.Quantity)
	if err != nil {
		return nil, view.Cart{}, h.toolError(err)
	}
	return nil, view.NewCart(ctx, h.session.Cart), nil
}

func (h *Handler) mcpRemoveFromCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input LineInput,
) (*mcp.CallToolResult, view.Cart, error) {
	if err := h.session.Cart.Remove(ctx, model.ProductID(input.ProductID), input.Size); err != nil {
		return nil, view.Cart{}, h.toolError(err)
	}
	return nil, view.NewCart(ctx, h.session.Cart), nil
}

func (h *Handler) mcpGetWishlist(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, view.Wishlist, error) {
	if err := h.session.Wishlist.Fetch(ctx); err != nil {
		return nil, view.Wishlist{}, h.toolError(err)
	}
	return nil, view.NewWishlist(h.session.Wishlist, h.session.Cart.Format), nil
}

func (h *Handler) mcpAddToWishlist(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, view.Wishlist, error) {
	if err := h.session.Wishlist.Add(ctx, model.ProductID(input.ProductID)); err != nil {
		return nil, view.Wishlist{}, h.toolError(err)
	}
	return nil, view.NewWishlist(h.session.Wishlist, h.session.Cart.Format), nil
}

func (h *Handler) mcpRemoveFromWishlist(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, view.Wishlist, error) {
	if err := h.session.Wishlist.Remove(ctx, model.ProductID(input.ProductID)); err != nil {
		return nil, view.Wishlist{}, h.toolError(err)
	}
	return nil, view.NewWishlist(h.session.Wishlist, h.session.Cart.Format), nil
}

func (h *Handler) mcpListOrders(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, view.Orders, error) {
	if !h.session.LoggedIn(ctx) {
		return nil, view.Orders{}, h.toolError(model.NewAuthRequiredError(remote.OpOrdersGet))
	}
	if err := h.session.Orders.FetchOrders(ctx); err != nil {
		return nil, view.Orders{}, h.toolError(err)
	}

	orders := view.NewOrders(h.session.Orders.Orders(), h.session.Orders.Status(), h.session.Cart.Format)
	return nil, orders, nil
}

func (h *Handler) mcpPlaceOrder(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input PlaceOrderInput,
) (*mcp.CallToolResult, view.Order, error) {
	placed, err := h.session.Orders.PlaceOrder(ctx, input.Address.toModel())
	if err != nil {
		return nil, view.Order{}, h.toolError(err)
	}
	return nil, view.NewOrder(*placed, h.session.Cart.Format), nil
}

func (h *Handler) mcpGetProfile(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input EmptyInput,
) (*mcp.CallToolResult, view.Profile, error) {
	user, err := h.session.Account.Profile(ctx)
	if err != nil {
		return nil, view.Profile{}, h.toolError(err)
	}
	return nil, view.NewProfile(user), nil
}

func (h *Handler) mcpUpdateProfile(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProfileUpdateInput,
) (*mcp.CallToolResult, view.Profile, error) {
	user, err := h.session.Account.UpdateProfile(ctx, model.ProfileUpdate{
		Name:   input.Name,
		Email:  input.Email,
		Mobile: input.Mobile,
	})
	if err != nil {
		return nil, view.Profile{}, h.toolError(err)
	}
	return nil, view.NewProfile(user), nil
}
