package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ListProducts returns one page of the catalog. Empty filter fields are not
// sent; the sort order maps onto the API's ordering parameter.
func (c *Client) ListProducts(ctx context.Context, filter domain.ProductFilter, page pagination.Params) (domain.ProductPage, error) {
	q := url.Values{}
	if !filter.Category.IsZero() {
		q.Set("category", filter.Category.String())
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Sort != "" {
		q.Set("ordering", filter.Sort)
	}
	if page.Page > 0 {
		q.Set("page", strconv.Itoa(page.Page))
	}
	if page.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(page.PageSize))
	}

	var out listOrPage[domain.Product]
	if err := c.get(ctx, "list products", "/api/products/", q, &out); err != nil {
		return domain.ProductPage{}, err
	}
	return domain.ProductPage{
		Count:    out.Count,
		Next:     out.Next,
		Previous: out.Previous,
		Results:  nonNil(out.Results),
	}, nil
}

// GetProduct returns a single product.
func (c *Client) GetProduct(ctx context.Context, id domain.ID) (domain.Product, error) {
	var p domain.Product
	err := c.get(ctx, "get product", "/api/products/"+escape(id)+"/", nil, &p)
	return p, err
}

// FeaturedProducts returns the products flagged as featured.
func (c *Client) FeaturedProducts(ctx context.Context) ([]domain.Product, error) {
	var out listOrPage[domain.Product]
	if err := c.get(ctx, "featured products", "/api/products/featured/", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Results), nil
}

// RelatedProducts returns products from the same category as id.
func (c *Client) RelatedProducts(ctx context.Context, id domain.ID) ([]domain.Product, error) {
	var out listOrPage[domain.Product]
	if err := c.get(ctx, "related products", "/api/products/"+escape(id)+"/related/", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Results), nil
}

// ProductsByCategory lists every product in a category.
func (c *Client) ProductsByCategory(ctx context.Context, categoryID domain.ID) ([]domain.Product, error) {
	q := url.Values{"category_id": {categoryID.String()}}

	var out listOrPage[domain.Product]
	if err := c.get(ctx, "products by category", "/api/products/by_category/", q, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Results), nil
}

// ListCategories returns every category.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out listOrPage[domain.Category]
	if err := c.get(ctx, "list categories", "/api/categories/", nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out.Results), nil
}

// GetCategory returns a single category.
func (c *Client) GetCategory(ctx context.Context, id domain.ID) (domain.Category, error) {
	var cat domain.Category
	err := c.get(ctx, "get category", "/api/categories/"+escape(id)+"/", nil, &cat)
	return cat, err
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
