package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/salesorders-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/salesorders-backend/api/controllers/orders"
	statscontrollers "github.com/angelmondragon/salesorders-backend/api/controllers/stats"
	"github.com/angelmondragon/salesorders-backend/api/middleware"
	"github.com/angelmondragon/salesorders-backend/internal/conversions"
	"github.com/angelmondragon/salesorders-backend/internal/discounts"
	"github.com/angelmondragon/salesorders-backend/internal/orders"
	"github.com/angelmondragon/salesorders-backend/internal/products"
	"github.com/angelmondragon/salesorders-backend/internal/stats"
	"github.com/angelmondragon/salesorders-backend/pkg/config"
	"github.com/angelmondragon/salesorders-backend/pkg/db"
	"github.com/angelmondragon/salesorders-backend/pkg/logger"
	"github.com/angelmondragon/salesorders-backend/pkg/redis"
)

// NewRouter mounts the API. redisClient may be nil, in which case idempotency
// replay is off and readiness skips the redis check. metricsHandler may be nil.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	productService products.Service,
	aliasRegistry conversions.Registry,
	discountService discounts.Service,
	ordersService orders.Service,
	statsService stats.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	// a nil *redis.Client must not reach the middleware as a non-nil interface
	var idempotencyStore redis.IdempotencyStore
	var redisPinger controllers.Pinger
	if redisClient != nil {
		idempotencyStore = redisClient
		redisPinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// attached per route so the middleware sees the final route pattern
	idempotent := middleware.Idempotency(idempotencyStore, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/resolve", controllers.ResolveProducts(productService, logg))
			r.Get("/resolve/one", controllers.ResolveProduct(productService, logg))
			r.Post("/", controllers.CreateProduct(productService, logg))
			r.Get("/{productId}", controllers.GetProduct(productService, logg))
			r.Put("/{productId}/alias", controllers.SaveAlias(aliasRegistry, logg))
		})

		r.Get("/aliases/{ref}", controllers.ResolveAlias(aliasRegistry, logg))

		r.Route("/discounts", func(r chi.Router) {
			r.Get("/", controllers.ListDiscounts(discountService, logg))
			r.Post("/", controllers.CreateDiscount(discountService, logg))
			r.Get("/{discountId}", controllers.GetDiscount(discountService, logg))
			r.Put("/{discountId}", controllers.UpdateDiscount(discountService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(idempotent).Post("/", ordercontrollers.Create(ordersService, logg))
			r.Delete("/items/{itemId}", ordercontrollers.RemoveItem(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.Delete("/{orderId}", ordercontrollers.Delete(ordersService, logg))
			r.Post("/{orderId}/items", ordercontrollers.AddItem(ordersService, logg))
			r.With(idempotent).Put("/{orderId}/items", ordercontrollers.ReplaceItems(ordersService, logg))
			r.Get("/{orderId}/totals", ordercontrollers.Totals(ordersService, logg))
			r.With(idempotent).Post("/{orderId}/confirm", ordercontrollers.Confirm(ordersService, logg))
			r.Put("/{orderId}/discount", ordercontrollers.ApplyDiscount(ordersService, logg))
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/orders", statscontrollers.Orders(statsService, logg))
			r.Get("/representatives", statscontrollers.Representatives(statsService, logg))
			r.Get("/brands", statscontrollers.Brands(statsService, logg))
			r.Get("/top-products", statscontrollers.TopProducts(statsService, logg))
		})
	})

	return r
}
