package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      logger.ParseFormat(cfg.App.LogFormat),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

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
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	userRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	addressRepo := address.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		Tx:             dbClient,
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		fatal(logg, "failed to create auth service", err)
	}
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		fatal(logg, "failed to create catalog service", err)
	}
	cartService, err := cart.NewService(cartRepo, catalogRepo)
	if err != nil {
		fatal(logg, "failed to create cart service", err)
	}
	addressService, err := address.NewService(addressRepo)
	if err != nil {
		fatal(logg, "failed to create address service", err)
	}
	ordersService, err := orders.NewService(ordersRepo, dbClient, emitter)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}
	checkoutService, err := checkout.NewService(checkout.Deps{
		Tx:        dbClient,
		Catalog:   catalogRepo,
		Carts:     cartRepo,
		Addresses: addressRepo,
		Orders:    ordersRepo,
		Users:     userRepo,
		Outbox:    emitter,
		Metrics:   metrics.NewOrderMetrics(reg),
		Logger:    logg,
	})
	if err != nil {
		fatal(logg, "failed to create checkout service", err)
	}
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:   payments.NewRepository(conn),
		Tx:     dbClient,
		Outbox: emitter,
	})
	if err != nil {
		fatal(logg, "failed to create payments service", err)
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:      cfg,
		Logger:      logg,
		Sessions:    sessionManager,
		RateLimiter: redisClient,
		Idempotency: redisClient,
		Health: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
		Auth:        authService,
		Catalog:     catalogService,
		Cart:        cartService,
		Addresses:   addressService,
		Checkout:    checkoutService,
		Orders:      ordersService,
		Payments:    paymentsService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
