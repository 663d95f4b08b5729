package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// CatalogHandler serves product and category browsing.
type CatalogHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(catalog *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// ListProducts handles GET /api/v1/products. The category, search and sort
// query parameters update the catalog filters before loading.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if upd, ok := filterUpdateFromQuery(r); ok {
		h.catalog.SetFilters(upd)
	}

	params := pagination.FromRequest(r)
	page, err := h.catalog.LoadProducts(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, pagination.NewResult(page.Results, page.Count, params))
}

// FeaturedProducts handles GET /api/v1/products/featured
func (h *CatalogHandler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.FeaturedProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// GetProduct handles GET /api/v1/products/{id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	p, err := h.catalog.LoadProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, p)
}

// RelatedProducts handles GET /api/v1/products/{id}/related
func (h *CatalogHandler) RelatedProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	products, err := h.catalog.RelatedProducts(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.LoadCategories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cats)
}

// GetCategory handles GET /api/v1/categories/{id}
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cat, err := h.catalog.Category(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cat)
}

// CategoryProducts handles GET /api/v1/categories/{id}/products. The API
// returns the whole category, which is paged here.
func (h *CatalogHandler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	products, err := h.catalog.ProductsByCategory(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, pagination.Slice(products, pagination.FromRequest(r)))
}

// State handles GET /api/v1/catalog
func (h *CatalogHandler) State(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.catalog.State())
}

// SetFilters handles PUT /api/v1/catalog/filters. Omitted fields keep their
// value.
func (h *CatalogHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	var upd service.FilterUpdate
	if err := decodeBody(w, r, &upd); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, h.catalog.SetFilters(upd))
}

// ClearFilters handles DELETE /api/v1/catalog/filters
func (h *CatalogHandler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.catalog.ClearFilters())
}

func filterUpdateFromQuery(r *http.Request) (service.FilterUpdate, bool) {
	q := r.URL.Query()
	var upd service.FilterUpdate
	found := false

	if q.Has("category") {
		id := domain.ID(q.Get("category"))
		upd.Category = &id
		found = true
	}
	if q.Has("search") {
		s := q.Get("search")
		upd.Search = &s
		found = true
	}
	if q.Has("sort") {
		s := q.Get("sort")
		upd.Sort = &s
		found = true
	}
	return upd, found
}
