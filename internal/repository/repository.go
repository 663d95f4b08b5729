package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// Well-known snapshot keys.
const (
	CartKey         = "cart"
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// SnapshotStore is a small key/value store for client-side state, the
// counterpart of browser local storage.
type SnapshotStore interface {
	// Get returns the value stored under key, or an error wrapping
	// apperrors.ErrNotFound when nothing is stored.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores data under key, replacing any previous value.
	Set(ctx context.Context, key string, data []byte) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// CartRepository persists the cart snapshot.
type CartRepository interface {
	// Load returns the stored line items, or an error wrapping
	// apperrors.ErrNotFound when no snapshot exists.
	Load(ctx context.Context) ([]domain.LineItem, error)

	// Save replaces the snapshot with items.
	Save(ctx context.Context, items []domain.LineItem) error

	// Delete removes the snapshot.
	Delete(ctx context.Context) error
}

// TokenRepository persists the session tokens.
type TokenRepository interface {
	// Load returns the stored tokens. Missing tokens are empty strings.
	Load(ctx context.Context) (domain.Tokens, error)

	// Save stores both tokens. An empty refresh token leaves the stored one
	// in place.
	Save(ctx context.Context, tokens domain.Tokens) error

	// Delete removes both tokens.
	Delete(ctx context.Context) error
}
