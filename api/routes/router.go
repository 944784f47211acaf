package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	analyticscontrollers "github.com/angelmondragon/storefront-backend/api/controllers/analytics"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/analytics"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/profiles"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const cartRateWindow = time.Minute

type sessionManager interface {
	session.RevocationChecker
	Revoke(ctx context.Context, accessID string, expiresAt time.Time) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	metricsHandler http.Handler,
	httpMetrics *metrics.HTTPMetrics,
	idempotencyStore pkgredis.IdempotencyStore,
	rateLimiter pkgredis.RateLimiter,
	sessionManager sessionManager,
	carts *cart.Registry,
	productService products.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	profileService profiles.Service,
	analyticsService analytics.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/products", controllers.PublicProducts(productService, logg))
		r.Get("/products/{slug}", controllers.PublicProductDetail(productService, logg))
		r.Get("/categories", controllers.PublicCategories(productService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/v1", func(r chi.Router) {
			r.Post("/session", controllers.SessionOpen(carts, logg))
			r.Delete("/session", controllers.SessionClose(carts, sessionManager, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(rateLimiter, "cart", cfg.Cart.MutationsPerMinute, cartRateWindow, logg))

				r.Get("/cart", cartcontrollers.CartFetch(carts, logg))
				r.Delete("/cart", cartcontrollers.CartClear(carts, logg))
				r.Post("/cart/items", cartcontrollers.CartAddItem(carts, logg))
				r.Patch("/cart/items/{itemId}", cartcontrollers.CartUpdateItem(carts, logg))
				r.Delete("/cart/items/{itemId}", cartcontrollers.CartRemoveItem(carts, logg))
				r.Post("/checkout", controllers.Checkout(checkoutService, carts, analyticsService, logg))
			})

			r.Get("/orders", controllers.OrderHistory(ordersService, logg))
			r.Get("/profile", controllers.ProfileFetch(profileService, logg))
			r.Put("/profile", controllers.ProfileUpdate(profileService, logg))
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

			r.Get("/dashboard", analyticscontrollers.AdminDashboard(analyticsService, logg))
			r.Get("/products", controllers.AdminListProducts(productService, logg))
			r.Post("/products", controllers.AdminCreateProduct(productService, logg))
			r.Put("/products/{productId}", controllers.AdminUpdateProduct(productService, logg))
			r.Delete("/products/{productId}", controllers.AdminDeleteProduct(productService, logg))
			r.Get("/orders", controllers.AdminListOrders(ordersService, logg))
			r.Patch("/orders/{orderId}/status", controllers.AdminUpdateOrderStatus(ordersService, analyticsService, logg))
		})
	})

	return r
}
