package service

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OrderSubmitter is the remote side of checkout.
type OrderSubmitter interface {
	Checkout(ctx context.Context, payload domain.OrderPayload) (domain.CheckoutResult, error)
	ValidateCart(ctx context.Context, items []domain.LineItem) (domain.CartValidation, error)
}

// CheckoutService turns the cart into an order.
type CheckoutService struct {
	cart       *CartService
	api        OrderSubmitter
	events     event.Publisher
	shopperID  string
	logger     *slog.Logger
	submitting atomic.Bool
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(cart *CartService, api OrderSubmitter, events event.Publisher, shopperID string, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		cart:      cart,
		api:       api,
		events:    events,
		shopperID: shopperID,
		logger:    logger,
	}
}

// Checkout submits the cart with the shipping details exactly once. On
// failure the cart is left as it was and the remote error is returned. On
// success the cart is cleared and the placed order is returned.
func (s *CheckoutService) Checkout(ctx context.Context, details domain.ShippingDetails) (domain.CheckoutResult, error) {
	items := s.cart.Items()
	if len(items) == 0 {
		return domain.CheckoutResult{}, apperrors.InvalidInput("cart is empty")
	}

	details.Normalize()
	if err := validate(details); err != nil {
		return domain.CheckoutResult{}, err
	}

	if !s.submitting.CompareAndSwap(false, true) {
		return domain.CheckoutResult{}, apperrors.Conflict("checkout already in progress")
	}
	defer s.submitting.Store(false)

	payload := domain.NewOrderPayload(details, items)
	result, err := s.api.Checkout(ctx, payload)
	if err != nil {
		checkoutsTotal.WithLabelValues("failed").Inc()
		s.logger.WarnContext(ctx, "checkout failed",
			slog.Int("item_count", len(items)),
			slog.String("error", err.Error()),
		)
		return domain.CheckoutResult{}, err
	}
	checkoutsTotal.WithLabelValues("placed").Inc()

	// The order exists remotely; a caller that went away must not leave the
	// cart behind.
	ctx = context.WithoutCancel(ctx)
	s.cart.Clear(ctx)

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", result.Order.ID.String()),
		slog.String("order_number", result.Order.OrderNumber),
		slog.Int("item_count", len(items)),
	)

	if err := s.events.PublishOrderPlaced(ctx, s.shopperID, result.Order, len(items)); err != nil {
		s.logger.WarnContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", result.Order.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	return result, nil
}

// Validate asks the API to price the current cart.
func (s *CheckoutService) Validate(ctx context.Context) (domain.CartValidation, error) {
	return s.api.ValidateCart(ctx, s.cart.Items())
}
