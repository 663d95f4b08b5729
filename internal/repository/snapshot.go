package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type cartSnapshot struct {
	store SnapshotStore
}

// NewCartRepository stores the cart as a single JSON array under CartKey.
func NewCartRepository(store SnapshotStore) CartRepository {
	return &cartSnapshot{store: store}
}

func (r *cartSnapshot) Load(ctx context.Context) ([]domain.LineItem, error) {
	data, err := r.store.Get(ctx, CartKey)
	if err != nil {
		return nil, err
	}

	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return items, nil
}

func (r *cartSnapshot) Save(ctx context.Context, items []domain.LineItem) error {
	if items == nil {
		items = []domain.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	return r.store.Set(ctx, CartKey, data)
}

func (r *cartSnapshot) Delete(ctx context.Context) error {
	return r.store.Remove(ctx, CartKey)
}

type tokenSnapshot struct {
	store SnapshotStore
}

// NewTokenRepository stores each token as a raw string under its own key.
func NewTokenRepository(store SnapshotStore) TokenRepository {
	return &tokenSnapshot{store: store}
}

func (r *tokenSnapshot) Load(ctx context.Context) (domain.Tokens, error) {
	access, err := r.get(ctx, AccessTokenKey)
	if err != nil {
		return domain.Tokens{}, err
	}
	refresh, err := r.get(ctx, RefreshTokenKey)
	if err != nil {
		return domain.Tokens{}, err
	}
	return domain.Tokens{Access: access, Refresh: refresh}, nil
}

func (r *tokenSnapshot) get(ctx context.Context, key string) (string, error) {
	data, err := r.store.Get(ctx, key)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return string(data), nil
}

func (r *tokenSnapshot) Save(ctx context.Context, tokens domain.Tokens) error {
	if err := r.store.Set(ctx, AccessTokenKey, []byte(tokens.Access)); err != nil {
		return fmt.Errorf("save %s: %w", AccessTokenKey, err)
	}
	if tokens.Refresh == "" {
		return nil
	}
	if err := r.store.Set(ctx, RefreshTokenKey, []byte(tokens.Refresh)); err != nil {
		return fmt.Errorf("save %s: %w", RefreshTokenKey, err)
	}
	return nil
}

func (r *tokenSnapshot) Delete(ctx context.Context) error {
	return errors.Join(
		r.store.Remove(ctx, AccessTokenKey),
		r.store.Remove(ctx, RefreshTokenKey),
	)
}
