package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/rmoreno-dev/mesa-backend/api/controllers"
	"github.com/rmoreno-dev/mesa-backend/api/routes"
	auditsvc "github.com/rmoreno-dev/mesa-backend/internal/audit"
	"github.com/rmoreno-dev/mesa-backend/internal/auth"
	cartsvc "github.com/rmoreno-dev/mesa-backend/internal/cart"
	checkoutsvc "github.com/rmoreno-dev/mesa-backend/internal/checkout"
	invsvc "github.com/rmoreno-dev/mesa-backend/internal/inventory"
	menusvc "github.com/rmoreno-dev/mesa-backend/internal/menu"
	ordersvc "github.com/rmoreno-dev/mesa-backend/internal/orders"
	ressvc "github.com/rmoreno-dev/mesa-backend/internal/reservations"
	"github.com/rmoreno-dev/mesa-backend/internal/users"
	"github.com/rmoreno-dev/mesa-backend/pkg/auth/session"
	"github.com/rmoreno-dev/mesa-backend/pkg/config"
	"github.com/rmoreno-dev/mesa-backend/pkg/db"
	"github.com/rmoreno-dev/mesa-backend/pkg/logger"
	"github.com/rmoreno-dev/mesa-backend/pkg/migrate"
	"github.com/rmoreno-dev/mesa-backend/pkg/outbox"
	"github.com/rmoreno-dev/mesa-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	inventoryRepo := invsvc.NewRepository(gormDB)
	cartRepo := cartsvc.NewRepository(gormDB)
	userRepo := users.NewRepository(gormDB)

	pricing, err := cartsvc.NewPricing(cfg.Tax.Rate)
	if err != nil {
		logg.Error(context.Background(), "failed to parse tax rate", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(cartRepo, inventoryRepo, dbClient, outboxService, pricing, cfg.Cart.TokenBytes, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		CartAttacher:   cartService,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	auditService, err := auditsvc.NewService(auditsvc.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	menuService, err := menusvc.NewService(menusvc.NewRepository(gormDB), inventoryRepo, dbClient, auditService)
	if err != nil {
		logg.Error(context.Background(), "failed to create menu service", err)
		os.Exit(1)
	}

	inventoryService, err := invsvc.NewService(inventoryRepo, dbClient, auditService)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	ordersRepo := ordersvc.NewRepository(gormDB)
	orderService, err := ordersvc.NewService(ordersRepo, inventoryRepo, dbClient, outboxService, auditService)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(dbClient, cartRepo, ordersRepo, inventoryRepo, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	reservationService, err := ressvc.NewService(ressvc.NewRepository(gormDB), dbClient, outboxService, auditService)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	router := routes.NewRouter(routes.Dependencies{
		Config:          cfg,
		Logger:          logg,
		Redis:           redisClient,
		SessionManager:  sessionManager,
		ReadyDeps:       controllers.ReadyDeps(dbClient, redisClient, nil),
		AuthService:     authService,
		RegisterService: registerService,
		CartService:     cartService,
		CheckoutService: checkoutService,
		MenuService:     menuService,
		Inventory:       inventoryService,
		OrderService:    orderService,
		Reservations:    reservationService,
		AuditService:    auditService,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
