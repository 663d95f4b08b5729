package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// --- Mock Repositories ---

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Load(ctx context.Context) ([]domain.LineItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LineItem), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, items []domain.LineItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockTokenRepository struct {
	mock.Mock
}

func (m *mockTokenRepository) Load(ctx context.Context) (domain.Tokens, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Tokens), args.Error(1)
}

func (m *mockTokenRepository) Save(ctx context.Context, tokens domain.Tokens) error {
	args := m.Called(ctx, tokens)
	return args.Error(0)
}

func (m *mockTokenRepository) Delete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Mock Publisher ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishCartUpdated(ctx context.Context, shopperID string, cart domain.CartView) error {
	args := m.Called(ctx, shopperID, cart)
	return args.Error(0)
}

func (m *mockPublisher) PublishCartCleared(ctx context.Context, shopperID string) error {
	args := m.Called(ctx, shopperID)
	return args.Error(0)
}

func (m *mockPublisher) PublishOrderPlaced(ctx context.Context, shopperID string, order domain.Order, itemCount int) error {
	args := m.Called(ctx, shopperID, order, itemCount)
	return args.Error(0)
}

// --- Mock Remote APIs ---

type mockOrderSubmitter struct {
	mock.Mock
}

func (m *mockOrderSubmitter) Checkout(ctx context.Context, payload domain.OrderPayload) (domain.CheckoutResult, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(domain.CheckoutResult), args.Error(1)
}

func (m *mockOrderSubmitter) ValidateCart(ctx context.Context, items []domain.LineItem) (domain.CartValidation, error) {
	args := m.Called(ctx, items)
	return args.Get(0).(domain.CartValidation), args.Error(1)
}

type mockAuthAPI struct {
	mock.Mock
}

func (m *mockAuthAPI) Login(ctx context.Context, creds domain.Credentials) (domain.AuthResult, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(domain.AuthResult), args.Error(1)
}

func (m *mockAuthAPI) Register(ctx context.Context, reg domain.Registration) (domain.AuthResult, error) {
	args := m.Called(ctx, reg)
	return args.Get(0).(domain.AuthResult), args.Error(1)
}

func (m *mockAuthAPI) Logout(ctx context.Context, refresh string) error {
	args := m.Called(ctx, refresh)
	return args.Error(0)
}

func (m *mockAuthAPI) Refresh(ctx context.Context, refresh string) (domain.Tokens, error) {
	args := m.Called(ctx, refresh)
	return args.Get(0).(domain.Tokens), args.Error(1)
}

func (m *mockAuthAPI) Profile(ctx context.Context) (domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *mockAuthAPI) UpdateProfile(ctx context.Context, upd domain.ProfileUpdate) (domain.User, error) {
	args := m.Called(ctx, upd)
	return args.Get(0).(domain.User), args.Error(1)
}

type mockCatalogAPI struct {
	mock.Mock
}

func (m *mockCatalogAPI) ListProducts(ctx context.Context, filter domain.ProductFilter, page pagination.Params) (domain.ProductPage, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).(domain.ProductPage), args.Error(1)
}

func (m *mockCatalogAPI) GetProduct(ctx context.Context, id domain.ID) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *mockCatalogAPI) FeaturedProducts(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockCatalogAPI) RelatedProducts(ctx context.Context, id domain.ID) ([]domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockCatalogAPI) ProductsByCategory(ctx context.Context, categoryID domain.ID) ([]domain.Product, error) {
	args := m.Called(ctx, categoryID)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockCatalogAPI) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *mockCatalogAPI) GetCategory(ctx context.Context, id domain.ID) (domain.Category, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Category), args.Error(1)
}

type mockOrdersAPI struct {
	mock.Mock
}

func (m *mockOrdersAPI) MyOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrdersAPI) GetOrder(ctx context.Context, id domain.ID) (domain.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *mockOrdersAPI) CreateOrder(ctx context.Context, payload domain.OrderPayload) (domain.Order, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *mockOrdersAPI) CancelOrder(ctx context.Context, id domain.ID) (domain.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *mockOrdersAPI) OrderStatus(ctx context.Context, id domain.ID) (domain.OrderStatusInfo, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.OrderStatusInfo), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}
