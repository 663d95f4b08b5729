package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

type published struct {
	topic string
	event *pkgkafka.Event
}

type fakeWriter struct {
	sent []published
	err  error
}

func (f *fakeWriter) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{topic: topic, event: event})
	return nil
}

func newTestProducer() (*Producer, *fakeWriter) {
	w := &fakeWriter{}
	return NewProducer(w, slog.New(slog.NewTextHandler(io.Discard, nil))), w
}

func TestPublishCartUpdated(t *testing.T) {
	p, w := newTestProducer()
	cart := domain.NewCart()
	cart.Add(domain.Product{ID: "1", Name: "Mug", Price: decimal.NewFromInt(8)}, 2)

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	require.NoError(t, p.PublishCartUpdated(ctx, "shopper-1", cart.View()))

	require.Len(t, w.sent, 1)
	sent := w.sent[0]
	assert.Equal(t, TopicCartUpdated, sent.topic)
	assert.Equal(t, TopicCartUpdated, sent.event.EventType)
	assert.Equal(t, "shopper-1", sent.event.AggregateID)
	assert.Equal(t, AggregateTypeCart, sent.event.AggregateType)
	assert.Equal(t, SourceStorefront, sent.event.Source)
	assert.Equal(t, "corr-1", sent.event.CorrelationID)

	var data CartUpdatedData
	require.NoError(t, sent.event.DecodeData(&data))
	assert.Equal(t, 1, data.ItemCount)
	assert.True(t, decimal.NewFromInt(16).Equal(data.Total))
	require.Len(t, data.Items, 1)
}

func TestPublishCartUpdated_EmptyItemsIsArray(t *testing.T) {
	p, w := newTestProducer()

	require.NoError(t, p.PublishCartUpdated(context.Background(), "s", domain.CartView{}))
	assert.Contains(t, string(w.sent[0].event.Data), `"items":[]`)
}

func TestPublishCartCleared(t *testing.T) {
	p, w := newTestProducer()

	require.NoError(t, p.PublishCartCleared(context.Background(), "shopper-1"))
	require.Len(t, w.sent, 1)
	assert.Equal(t, TopicCartCleared, w.sent[0].topic)
	assert.Empty(t, w.sent[0].event.CorrelationID)
}

func TestPublishOrderPlaced(t *testing.T) {
	p, w := newTestProducer()
	order := domain.Order{ID: "31", OrderNumber: "ORD-31", Status: domain.OrderStatusPending, Total: decimal.NewFromInt(20)}

	require.NoError(t, p.PublishOrderPlaced(context.Background(), "shopper-1", order, 2))

	sent := w.sent[0]
	assert.Equal(t, TopicOrderPlaced, sent.topic)
	assert.Equal(t, "31", sent.event.AggregateID)
	assert.Equal(t, AggregateTypeOrder, sent.event.AggregateType)

	var data OrderPlacedData
	require.NoError(t, sent.event.DecodeData(&data))
	assert.Equal(t, domain.ID("31"), data.OrderID)
	assert.Equal(t, "ORD-31", data.OrderNumber)
	assert.Equal(t, 2, data.ItemCount)
}

func TestPublish_WrapsWriterError(t *testing.T) {
	p, w := newTestProducer()
	w.err = errors.New("broker down")

	err := p.PublishCartCleared(context.Background(), "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish storefront.cart.cleared event")
	assert.ErrorIs(t, err, w.err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishCartUpdated(context.Background(), "s", domain.CartView{}))
	assert.NoError(t, p.PublishCartCleared(context.Background(), "s"))
	assert.NoError(t, p.PublishOrderPlaced(context.Background(), "s", domain.Order{}, 0))
}
