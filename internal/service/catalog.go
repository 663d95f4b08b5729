package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// CatalogAPI is the remote side of the catalog.
type CatalogAPI interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter, page pagination.Params) (domain.ProductPage, error)
	GetProduct(ctx context.Context, id domain.ID) (domain.Product, error)
	FeaturedProducts(ctx context.Context) ([]domain.Product, error)
	RelatedProducts(ctx context.Context, id domain.ID) ([]domain.Product, error)
	ProductsByCategory(ctx context.Context, categoryID domain.ID) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id domain.ID) (domain.Category, error)
}

// Messages shown when a catalog load fails.
const (
	msgProductsFailed = "Error loading products"
	msgProductFailed  = "Error loading product"
)

// FilterUpdate carries the filter fields to change. Nil fields keep their
// current value.
type FilterUpdate struct {
	Category *domain.ID `json:"category"`
	Search   *string    `json:"search"`
	Sort     *string    `json:"sort"`
}

// CatalogState is the product browsing view.
type CatalogState struct {
	Products        []domain.Product     `json:"products"`
	ProductCount    int                  `json:"product_count"`
	Categories      []domain.Category    `json:"categories"`
	SelectedProduct *domain.Product      `json:"selected_product"`
	Loading         bool                 `json:"loading"`
	Error           string               `json:"error,omitempty"`
	Filters         domain.ProductFilter `json:"filters"`
}

// CatalogService keeps the catalog view state. Loads run outside the lock
// and only the latest load of each kind may write its result.
type CatalogService struct {
	mu         sync.Mutex
	api        CatalogAPI
	state      CatalogState
	inFlight   int
	products   *viewGuard
	categories *viewGuard
	product    *viewGuard
	logger     *slog.Logger
}

// NewCatalogService creates a catalog with default filters.
func NewCatalogService(api CatalogAPI, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		api: api,
		state: CatalogState{
			Products:   []domain.Product{},
			Categories: []domain.Category{},
			Filters:    domain.DefaultProductFilter(),
		},
		products:   newViewGuard("products", logger),
		categories: newViewGuard("categories", logger),
		product:    newViewGuard("product", logger),
		logger:     logger,
	}
}

// State returns a copy of the view state.
func (s *CatalogService) State() CatalogState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.state
	out.Loading = s.inFlight > 0
	out.Products = append([]domain.Product(nil), s.state.Products...)
	out.Categories = append([]domain.Category(nil), s.state.Categories...)
	if s.state.SelectedProduct != nil {
		p := *s.state.SelectedProduct
		out.SelectedProduct = &p
	}
	return out
}

// Filters returns the current filters.
func (s *CatalogService) Filters() domain.ProductFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Filters
}

// SetFilters merges upd into the current filters.
func (s *CatalogService) SetFilters(upd FilterUpdate) domain.ProductFilter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if upd.Category != nil {
		s.state.Filters.Category = *upd.Category
	}
	if upd.Search != nil {
		s.state.Filters.Search = *upd.Search
	}
	if upd.Sort != nil {
		s.state.Filters.Sort = *upd.Sort
	}
	return s.state.Filters
}

// ClearFilters restores the default filters.
func (s *CatalogService) ClearFilters() domain.ProductFilter {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filters = domain.DefaultProductFilter()
	return s.state.Filters
}

// LoadProducts fetches a page of products with the current filters.
func (s *CatalogService) LoadProducts(ctx context.Context, page pagination.Params) (domain.ProductPage, error) {
	ticket := s.begin(s.products, true)
	filters := s.Filters()

	res, err := s.api.ListProducts(ctx, filters, page)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if !s.products.current(ctx, ticket) {
		return res, err
	}
	if err != nil {
		s.state.Error = msgProductsFailed
		s.logger.WarnContext(ctx, "failed to load products", slog.String("error", err.Error()))
		return domain.ProductPage{}, err
	}
	s.state.Products = res.Results
	s.state.ProductCount = res.Count
	return res, nil
}

// LoadCategories fetches every category. Failures are not shown as a view
// error.
func (s *CatalogService) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	ticket := s.begin(s.categories, false)

	cats, err := s.api.ListCategories(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if err != nil {
		s.logger.WarnContext(ctx, "failed to load categories", slog.String("error", err.Error()))
		return nil, err
	}
	if s.categories.current(ctx, ticket) {
		s.state.Categories = cats
	}
	return cats, nil
}

// LoadProduct fetches one product and makes it the selected product.
func (s *CatalogService) LoadProduct(ctx context.Context, id domain.ID) (domain.Product, error) {
	ticket := s.begin(s.product, true)

	p, err := s.api.GetProduct(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if !s.product.current(ctx, ticket) {
		return p, err
	}
	if err != nil {
		s.state.Error = msgProductFailed
		if !apperrors.IsNotFound(err) {
			s.logger.WarnContext(ctx, "failed to load product",
				slog.String("product_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
		return domain.Product{}, err
	}
	s.state.SelectedProduct = &p
	return p, nil
}

// FeaturedProducts lists featured products.
func (s *CatalogService) FeaturedProducts(ctx context.Context) ([]domain.Product, error) {
	return s.api.FeaturedProducts(ctx)
}

// RelatedProducts lists products related to id.
func (s *CatalogService) RelatedProducts(ctx context.Context, id domain.ID) ([]domain.Product, error) {
	return s.api.RelatedProducts(ctx, id)
}

// ProductsByCategory lists the products of one category.
func (s *CatalogService) ProductsByCategory(ctx context.Context, categoryID domain.ID) ([]domain.Product, error) {
	return s.api.ProductsByCategory(ctx, categoryID)
}

// Category returns one category.
func (s *CatalogService) Category(ctx context.Context, id domain.ID) (domain.Category, error) {
	cat, err := s.api.GetCategory(ctx, id)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			s.logger.WarnContext(ctx, "failed to load category",
				slog.String("category_id", id.String()),
				slog.String("error", err.Error()),
			)
		}
		return domain.Category{}, err
	}
	return cat, nil
}

// begin marks a load as started. clearErr resets the view error the way a
// fresh product load does.
func (s *CatalogService) begin(g *viewGuard, clearErr bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	if clearErr {
		s.state.Error = ""
	}
	return g.begin()
}
