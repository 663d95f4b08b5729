package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	cart     *service.CartService
	checkout *service.CheckoutService
	logger   *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(cart *service.CartService, checkout *service.CheckoutService, logger *slog.Logger) *CartHandler {
	return &CartHandler{cart: cart, checkout: checkout, logger: logger}
}

// --- Request DTOs ---

// AddItemRequest is the JSON body for adding a product. A quantity below 1
// adds a single unit.
type AddItemRequest struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// UpdateQuantityRequest is the JSON body for setting a line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.cart.Cart())
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if req.Product.ID.IsZero() {
		err := apperrors.InvalidInput("product id is required")
		err.Fields = map[string]string{"product.id": "is required"}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if req.Product.EffectivePrice().IsNegative() {
		err := apperrors.InvalidInput("product price must not be negative")
		err.Fields = map[string]string{"product.price": "must be greater than or equal to 0"}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.cart.AddItem(r.Context(), req.Product, req.Quantity))
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productId")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.cart.UpdateQuantity(r.Context(), id, req.Quantity))
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productId")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.cart.RemoveItem(r.Context(), id))
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.cart.Clear(r.Context()))
}

// ValidateCart handles POST /api/v1/cart/validate
func (h *CartHandler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	res, err := h.checkout.Validate(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, res)
}

// Checkout handles POST /api/v1/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var details domain.ShippingDetails
	if err := decodeBody(w, r, &details); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	res, err := h.checkout.Checkout(r.Context(), details)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, res)
}
