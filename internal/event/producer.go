package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Kafka topic constants for storefront events.
const (
	TopicCartUpdated = "storefront.cart.updated"
	TopicCartCleared = "storefront.cart.cleared"
	TopicOrderPlaced = "storefront.order.placed"
)

// Aggregate types.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// SourceStorefront identifies events published by this process.
const SourceStorefront = "storefront-bff"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	ShopperID string            `json:"shopper_id"`
	Items     []domain.LineItem `json:"items"`
	ItemCount int               `json:"item_count"`
	Total     decimal.Decimal   `json:"total"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	ShopperID string `json:"shopper_id"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	ShopperID   string             `json:"shopper_id"`
	OrderID     domain.ID          `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	Status      domain.OrderStatus `json:"status"`
	Total       decimal.Decimal    `json:"total"`
	ItemCount   int                `json:"item_count"`
}

// Publisher is what services use to announce state changes.
type Publisher interface {
	PublishCartUpdated(ctx context.Context, shopperID string, cart domain.CartView) error
	PublishCartCleared(ctx context.Context, shopperID string) error
	PublishOrderPlaced(ctx context.Context, shopperID string, order domain.Order, itemCount int) error
}

// EventWriter sends an enveloped event to a topic. *pkgkafka.Producer
// satisfies it.
type EventWriter interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront events to Kafka.
type Producer struct {
	kafka  EventWriter
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka EventWriter, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(ctx, topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, shopperID string, cart domain.CartView) error {
	data := CartUpdatedData{
		ShopperID: shopperID,
		Items:     cart.Items,
		ItemCount: cart.ItemCount,
		Total:     cart.Total,
	}
	if data.Items == nil {
		data.Items = []domain.LineItem{}
	}

	if err := p.publish(ctx, TopicCartUpdated, shopperID, AggregateTypeCart, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("shopper_id", shopperID),
		slog.Int("item_count", cart.ItemCount),
	)
	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, shopperID string) error {
	if err := p.publish(ctx, TopicCartCleared, shopperID, AggregateTypeCart, CartClearedData{ShopperID: shopperID}); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("shopper_id", shopperID),
	)
	return nil
}

// PublishOrderPlaced publishes an order.placed event keyed by the order id.
func (p *Producer) PublishOrderPlaced(ctx context.Context, shopperID string, order domain.Order, itemCount int) error {
	data := OrderPlacedData{
		ShopperID:   shopperID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Total:       order.Total,
		ItemCount:   itemCount,
	}

	if err := p.publish(ctx, TopicOrderPlaced, order.ID.String(), AggregateTypeOrder, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published order.placed event",
		slog.String("order_id", order.ID.String()),
		slog.String("order_number", order.OrderNumber),
	)
	return nil
}

// NopPublisher drops every event. It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) PublishCartUpdated(context.Context, string, domain.CartView) error { return nil }

func (NopPublisher) PublishCartCleared(context.Context, string) error { return nil }

func (NopPublisher) PublishOrderPlaced(context.Context, string, domain.Order, int) error { return nil }
