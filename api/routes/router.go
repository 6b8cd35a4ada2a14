package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rmoreno-dev/mesa-backend/api/controllers"
	"github.com/rmoreno-dev/mesa-backend/api/middleware"
	auditsvc "github.com/rmoreno-dev/mesa-backend/internal/audit"
	"github.com/rmoreno-dev/mesa-backend/internal/auth"
	cartsvc "github.com/rmoreno-dev/mesa-backend/internal/cart"
	checkoutsvc "github.com/rmoreno-dev/mesa-backend/internal/checkout"
	invsvc "github.com/rmoreno-dev/mesa-backend/internal/inventory"
	menusvc "github.com/rmoreno-dev/mesa-backend/internal/menu"
	ordersvc "github.com/rmoreno-dev/mesa-backend/internal/orders"
	ressvc "github.com/rmoreno-dev/mesa-backend/internal/reservations"
	"github.com/rmoreno-dev/mesa-backend/pkg/auth/session"
	"github.com/rmoreno-dev/mesa-backend/pkg/config"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
	"github.com/rmoreno-dev/mesa-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          *redis.Client
	SessionManager sessionManager
	ReadyDeps      map[string]controllers.Pinger

	AuthService     auth.Service
	RegisterService auth.RegisterService
	CartService     cartsvc.Service
	CheckoutService checkoutsvc.Service
	MenuService     menusvc.Service
	Inventory       invsvc.Service
	OrderService    ordersvc.Service
	Reservations    ressvc.Service
	AuditService    auditsvc.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.CartToken,
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.ReadyDeps))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.AuthService, cfg, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.RegisterService, logg))
		r.Post("/logout", controllers.AuthLogout(deps.SessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.SessionManager, cfg.JWT, logg))
	})

	// Carts work before login; the opaque token is the only credential.
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", controllers.CartFetch(deps.CartService, cfg, logg))
		r.Post("/", controllers.CartSubmit(deps.CartService, cfg, logg))
	})

	r.Route("/api/v1/menu", func(r chi.Router) {
		r.Get("/", controllers.MenuList(deps.MenuService, logg))
		r.Get("/{itemId}", controllers.MenuDetail(deps.MenuService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
			r.Use(middleware.RequireRole("admin", logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))
			r.Post("/", controllers.MenuCreate(deps.MenuService, logg))
			r.Patch("/{itemId}", controllers.MenuUpdate(deps.MenuService, logg))
			r.Delete("/{itemId}", controllers.MenuDelete(deps.MenuService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Post("/checkout", controllers.Checkout(deps.CheckoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(deps.OrderService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.OrderService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(deps.OrderService, logg))
			r.Post("/{orderId}/complete", controllers.OrderComplete(deps.OrderService, logg))
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Get("/", controllers.ReservationsList(deps.Reservations, logg))
			r.Post("/", controllers.ReservationCreate(deps.Reservations, logg))
			r.Post("/{reservationId}/cancel", controllers.ReservationCancel(deps.Reservations, logg))
			r.Post("/{reservationId}/seat", controllers.ReservationSeat(deps.Reservations, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/{itemId}", controllers.InventoryDetail(deps.Inventory, logg))
			r.Put("/{itemId}", controllers.InventorySet(deps.Inventory, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.RequireRole("admin", logg))
		r.Get("/audit", controllers.AuditList(deps.AuditService, logg))
	})

	return r
}
