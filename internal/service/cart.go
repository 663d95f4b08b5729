package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CartService owns the shopper's cart. Every mutation runs under one lock,
// is written through to the snapshot store and is announced as an event.
// Storage and event failures are logged and never reach the caller.
type CartService struct {
	mu        sync.Mutex
	cart      *domain.Cart
	repo      repository.CartRepository
	events    event.Publisher
	shopperID string
	logger    *slog.Logger
}

// NewCartService restores the cart from repo. A missing snapshot gives an
// empty cart; an unreadable one is logged and also gives an empty cart.
func NewCartService(ctx context.Context, repo repository.CartRepository, events event.Publisher, shopperID string, logger *slog.Logger) *CartService {
	s := &CartService{
		cart:      domain.NewCart(),
		repo:      repo,
		events:    events,
		shopperID: shopperID,
		logger:    logger,
	}

	items, err := repo.Load(ctx)
	switch {
	case err == nil:
		s.cart = domain.RestoreCart(items)
		logger.InfoContext(ctx, "cart restored",
			slog.Int("item_count", s.cart.ItemCount()),
			slog.String("total", s.cart.Total().String()),
		)
	case errors.Is(err, apperrors.ErrNotFound):
		// First run.
	default:
		logger.WarnContext(ctx, "discarding unreadable cart snapshot",
			slog.String("error", err.Error()),
		)
	}

	return s
}

// Cart returns the current cart.
func (s *CartService) Cart() domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.View()
}

// Items returns a copy of the current line items.
func (s *CartService) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items()
}

// AddItem adds quantity units of p. A quantity below 1 adds one unit.
func (s *CartService) AddItem(ctx context.Context, p domain.Product, quantity int) domain.CartView {
	return s.mutate(ctx, "add", func(c *domain.Cart) {
		c.Add(p, quantity)
	}, slog.String("product_id", p.ID.String()), slog.Int("quantity", quantity))
}

// RemoveItem drops the line for id. Removing an absent product still
// rewrites the snapshot.
func (s *CartService) RemoveItem(ctx context.Context, id domain.ID) domain.CartView {
	return s.mutate(ctx, "remove", func(c *domain.Cart) {
		c.Remove(id)
	}, slog.String("product_id", id.String()))
}

// UpdateQuantity sets the quantity of the line for id. Callers reject
// quantities below 1.
func (s *CartService) UpdateQuantity(ctx context.Context, id domain.ID, quantity int) domain.CartView {
	return s.mutate(ctx, "update", func(c *domain.Cart) {
		c.SetQuantity(id, quantity)
	}, slog.String("product_id", id.String()), slog.Int("quantity", quantity))
}

// Clear empties the cart and removes its snapshot.
func (s *CartService) Clear(ctx context.Context) domain.CartView {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	s.cart.Clear()
	view := s.cart.View()
	cartMutations.WithLabelValues("clear").Inc()
	if err := s.repo.Delete(ctx); err != nil {
		s.persistFailed(ctx, "clear", err)
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "cart cleared")
	if err := s.events.PublishCartCleared(ctx, s.shopperID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart.cleared event",
			slog.String("error", err.Error()),
		)
	}
	return view
}

// mutate applies fn and writes the snapshot while holding the lock, so
// snapshots land in mutation order. The write uses a context detached from
// cancellation because the in-memory change has already happened.
func (s *CartService) mutate(ctx context.Context, op string, fn func(*domain.Cart), attrs ...any) domain.CartView {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	fn(s.cart)
	view := s.cart.View()
	cartMutations.WithLabelValues(op).Inc()
	if err := s.repo.Save(ctx, view.Items); err != nil {
		s.persistFailed(ctx, op, err)
	}
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "cart "+op,
		append(attrs,
			slog.Int("item_count", view.ItemCount),
			slog.String("total", view.Total.String()),
		)...,
	)

	if err := s.events.PublishCartUpdated(ctx, s.shopperID, view); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart.updated event",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
	return view
}

func (s *CartService) persistFailed(ctx context.Context, op string, err error) {
	cartPersistFailures.WithLabelValues(op).Inc()
	s.logger.WarnContext(ctx, "failed to persist cart snapshot",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
}
