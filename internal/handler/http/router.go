package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Services are the application services exposed over HTTP.
type Services struct {
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Session  *service.SessionService
	Catalog  *service.CatalogService
	Orders   *service.OrderService
}

// RouterConfig holds the HTTP-layer settings.
type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	// CatalogMaxAge is the browser cache lifetime of the pure catalog lookups, in seconds.
	CatalogMaxAge int
	CORS          middleware.CORSConfig
	PprofCIDRs    []string
	// RateLimit guards login, registration and checkout. Name is set per group.
	RateLimit middleware.RateLimitConfig
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger, svc.Session.UserID))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	cartHandler := NewCartHandler(svc.Cart, svc.Checkout, logger)
	catalogHandler := NewCatalogHandler(svc.Catalog, logger)
	authHandler := NewAuthHandler(svc.Session, logger)
	orderHandler := NewOrderHandler(svc.Orders, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/validate", cartHandler.ValidateCart)

			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productId}", cartHandler.UpdateItemQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
		})
		r.With(middleware.RateLimit(limiter(cfg.RateLimit, "checkout"), logger)).
			Post("/checkout", cartHandler.Checkout)

		// Listing and detail read the stored filters and update the catalog
		// view, so only the pure lookups may be cached by the browser.
		cached := middleware.CacheControl(cfg.CatalogMaxAge)

		r.Route("/products", func(r chi.Router) {
			r.With(middleware.NoStore).Get("/", catalogHandler.ListProducts)
			r.With(middleware.NoStore).Get("/{id}", catalogHandler.GetProduct)
			r.With(cached).Get("/featured", catalogHandler.FeaturedProducts)
			r.With(cached).Get("/{id}/related", catalogHandler.RelatedProducts)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Use(cached)
			r.Get("/", catalogHandler.ListCategories)
			r.Get("/{id}", catalogHandler.GetCategory)
			r.Get("/{id}/products", catalogHandler.CategoryProducts)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Get("/", catalogHandler.State)
			r.Put("/filters", catalogHandler.SetFilters)
			r.Patch("/filters", catalogHandler.SetFilters)
			r.Delete("/filters", catalogHandler.ClearFilters)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter(cfg.RateLimit, "auth"), logger))
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.Post("/logout", authHandler.Logout)
			r.Post("/refresh", authHandler.Refresh)
			r.Get("/session", authHandler.Session)
		})
		r.Get("/profile", authHandler.GetProfile)
		r.Put("/profile", authHandler.UpdateProfile)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.ListOrders)
			r.Post("/", orderHandler.CreateOrder)
			r.Get("/{id}", orderHandler.GetOrder)
			r.Get("/{id}/status", orderHandler.OrderStatus)
			r.Post("/{id}/cancel", orderHandler.CancelOrder)
		})
	})

	return r
}

func limiter(cfg middleware.RateLimitConfig, name string) middleware.RateLimitConfig {
	cfg.Name = name
	return cfg
}
