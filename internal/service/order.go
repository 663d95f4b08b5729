package service

import (
	"context"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OrdersAPI is the remote side of order history.
type OrdersAPI interface {
	MyOrders(ctx context.Context) ([]domain.Order, error)
	GetOrder(ctx context.Context, id domain.ID) (domain.Order, error)
	CreateOrder(ctx context.Context, payload domain.OrderPayload) (domain.Order, error)
	CancelOrder(ctx context.Context, id domain.ID) (domain.Order, error)
	OrderStatus(ctx context.Context, id domain.ID) (domain.OrderStatusInfo, error)
}

// OrderService implements the profile page's order history.
type OrderService struct {
	api    OrdersAPI
	logger *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(api OrdersAPI, logger *slog.Logger) *OrderService {
	return &OrderService{api: api, logger: logger}
}

// MyOrders lists the shopper's orders.
func (s *OrderService) MyOrders(ctx context.Context) ([]domain.Order, error) {
	return s.api.MyOrders(ctx)
}

// Get returns one order.
func (s *OrderService) Get(ctx context.Context, id domain.ID) (domain.Order, error) {
	return s.api.GetOrder(ctx, id)
}

// Status returns the current status of an order.
func (s *OrderService) Status(ctx context.Context, id domain.ID) (domain.OrderStatusInfo, error) {
	return s.api.OrderStatus(ctx, id)
}

// Create places an order for items without going through the cart. The cart
// is not touched.
func (s *OrderService) Create(ctx context.Context, details domain.ShippingDetails, items []domain.LineItem) (domain.Order, error) {
	details.Normalize()
	if err := validate(details); err != nil {
		return domain.Order{}, err
	}
	if len(items) == 0 {
		return domain.Order{}, apperrors.InvalidInput("order must contain at least one item")
	}
	for _, it := range items {
		if it.ProductID.IsZero() || it.Quantity < 1 {
			return domain.Order{}, apperrors.InvalidInput("every order item needs a product id and a positive quantity")
		}
		if it.Price.IsNegative() {
			return domain.Order{}, apperrors.InvalidInput("item price must not be negative")
		}
	}

	order, err := s.api.CreateOrder(ctx, domain.NewOrderPayload(details, items))
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID.String()),
		slog.String("order_number", order.OrderNumber),
	)
	return order, nil
}

// Cancel cancels an order. The API refuses delivered orders.
func (s *OrderService) Cancel(ctx context.Context, id domain.ID) (domain.Order, error) {
	order, err := s.api.CancelOrder(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "order cancel rejected",
			slog.String("order_id", id.String()),
			slog.String("error", err.Error()),
		)
		return domain.Order{}, err
	}

	s.logger.InfoContext(ctx, "order cancelled",
		slog.String("order_id", order.ID.String()),
		slog.String("order_number", order.OrderNumber),
	)
	return order, nil
}
