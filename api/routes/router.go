package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// Dependencies is everything the router wires into handlers. Nil stores
// disable the middleware that needs them.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	Sessions    session.AccessSessionChecker
	RateLimiter middleware.RateLimiterStore
	Idempotency middleware.IdempotencyStore
	Health      map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	Auth      auth.Service
	Catalog   catalog.Service
	Cart      cart.Service
	Addresses address.Service
	Checkout  checkout.Service
	Orders    orders.Service
	Payments  controllers.PaymentService
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg, deps.HTTPMetrics),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
	)

	limits := cfg.AuthRateLimit
	loginPolicy := middleware.RateLimitPolicy{Name: "login", Window: limits.LoginWindow, PerIP: limits.LoginIPLimit, PerEmail: limits.LoginEmailLimit}
	signupPolicy := middleware.RateLimitPolicy{Name: "signup", Window: limits.SignupWindow, PerIP: limits.SignupIPLimit, PerEmail: limits.SignupEmailLimit}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	replay := func(policy middleware.IdempotencyPolicy) func(http.Handler) http.Handler {
		return middleware.Idempotent(deps.Idempotency, policy, logg)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(signupPolicy, deps.RateLimiter, logg), replay(middleware.ShortReplay)).Post("/signup", controllers.AuthSignup(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, deps.RateLimiter, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			// Both accept an expired access token, so they sit outside Auth.
			r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/home", controllers.CatalogHome(deps.Catalog, logg))
			r.Get("/categories", controllers.CatalogCategories(deps.Catalog, logg))
			r.Get("/categories/{slug}/products", controllers.CatalogCategoryProducts(deps.Catalog, logg))
			r.Get("/products/{slug}", controllers.CatalogProduct(deps.Catalog, logg))
			r.Get("/search", controllers.CatalogSearch(deps.Catalog, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

			r.Get("/me", controllers.Me(deps.Auth, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(deps.Cart, logg))
				r.With(replay(middleware.ShortReplay)).Post("/items", controllers.CartAddItem(deps.Cart, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(deps.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Cart, logg))
			})

			r.Get("/checkout", controllers.CheckoutPreview(deps.Checkout, logg))

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.AddressList(deps.Addresses, logg))
				r.With(replay(middleware.ShortReplay)).Post("/", controllers.AddressCreate(deps.Addresses, logg))
				r.Put("/{addressId}", controllers.AddressUpdate(deps.Addresses, logg))
				r.Delete("/{addressId}", controllers.AddressDelete(deps.Addresses, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(replay(middleware.MoneyReplay.MustHaveKey())).Post("/", controllers.PlaceOrder(deps.Checkout, logg))
				r.Get("/", controllers.OrdersList(deps.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
				r.Get("/{orderId}/success", controllers.OrderSuccess(deps.Orders, logg))
				r.With(replay(middleware.MoneyReplay)).Post("/{orderId}/payment", controllers.PaymentRecord(deps.Payments, logg))
				r.Get("/{orderId}/payment", controllers.PaymentFetch(deps.Payments, logg))
			})
		})
	})

	return r
}
