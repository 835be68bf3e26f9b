package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercaura/mercaura-backend/api/controllers"
	"github.com/mercaura/mercaura-backend/api/middleware"
	"github.com/mercaura/mercaura-backend/internal/auth"
	"github.com/mercaura/mercaura-backend/internal/cart"
	checkoutsvc "github.com/mercaura/mercaura-backend/internal/checkout"
	"github.com/mercaura/mercaura-backend/internal/orders"
	"github.com/mercaura/mercaura-backend/internal/payments"
	"github.com/mercaura/mercaura-backend/internal/products"
	"github.com/mercaura/mercaura-backend/pkg/auth/session"
	"github.com/mercaura/mercaura-backend/pkg/config"
	"github.com/mercaura/mercaura-backend/pkg/db"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	"github.com/mercaura/mercaura-backend/pkg/logger"
	"github.com/mercaura/mercaura-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// RouterParams collects everything the HTTP surface depends on.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              db.Pinger
	Redis           *redis.Client
	SessionManager  sessionManager
	AuthService     auth.Service
	RegisterService auth.RegisterService
	ProductService  products.Service
	CartService     cart.Service
	CheckoutService checkoutsvc.Service
	OrdersService   orders.Service
	PaymentService  payments.Service
	Metrics         *prometheus.Registry
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, p.Redis, logg),
			middleware.Idempotency(p.Redis, logg),
		).Post("/register", controllers.AuthRegister(p.RegisterService, logg))
		r.Post("/logout", controllers.AuthLogout(p.SessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.SessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(p.ProductService, logg))
		r.Get("/{productId}", controllers.GetProduct(p.ProductService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.SessionManager, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(p.CartService, logg))
			r.Put("/", controllers.ReplaceCart(p.CartService, logg))
			r.Delete("/", controllers.ClearCart(p.CartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(p.CheckoutService, logg))
		r.Post("/payment/verify", controllers.VerifyPayment(p.PaymentService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/mine", controllers.ListMyOrders(p.OrdersService, logg))
			r.Get("/mine/{orderId}", controllers.GetMyOrder(p.OrdersService, logg))
			r.With(middleware.RequireRole(string(enums.MemberRoleVendor), logg)).
				Get("/vendor", controllers.ListVendorOrders(p.OrdersService, logg))
			r.With(middleware.RequireAnyRole(logg, string(enums.MemberRoleVendor), string(enums.MemberRoleAdmin))).
				Put("/{subOrderId}/status", controllers.UpdateSubOrderStatus(p.OrdersService, logg))
			r.Put("/{parentOrderId}/cancel", controllers.CancelParentOrder(p.OrdersService, logg))
		})
	})

	return r
}
