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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/analytics"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/gateway"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/profiles"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(rootCtx, cfg.DB, logg)
	requireResource(rootCtx, logg, "database", err)

	if err := migrate.MaybeRunDev(rootCtx, cfg, logg, dbClient); err != nil {
		logg.Error(rootCtx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(rootCtx, cfg.Redis, logg)
	requireResource(rootCtx, logg, "redis", err)

	sessionManager, err := session.NewManager(redisClient)
	requireResource(rootCtx, logg, "session manager", err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gw := gateway.New(dbClient.DB())

	carts := cart.NewRegistry(cart.RegistryOptions{
		Gateway:    gw.CartItems,
		Logger:     logg,
		Metrics:    metrics.NewCartMetrics(reg),
		SessionTTL: cfg.Cart.SessionTTL,
	})
	go carts.Run(rootCtx, cfg.Cart.SweepInterval)

	productService, err := products.NewService(gw.Products)
	requireResource(rootCtx, logg, "product service", err)

	checkoutService, err := checkout.NewService(gw.Orders, gw.Profiles, logg, metrics.NewCheckoutMetrics(reg))
	requireResource(rootCtx, logg, "checkout service", err)

	ordersService, err := orders.NewService(gw.Orders, logg)
	requireResource(rootCtx, logg, "orders service", err)

	profileService, err := profiles.NewService(gw.Profiles)
	requireResource(rootCtx, logg, "profile service", err)

	analyticsService, err := analytics.NewService(gw.Orders, gw.Products, redisClient, logg, cfg.Analytics)
	requireResource(rootCtx, logg, "analytics service", err)

	handler := routes.NewRouter(
		cfg,
		logg,
		map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		metrics.NewHTTPMetrics(reg),
		redisClient,
		redisClient,
		sessionManager,
		carts,
		productService,
		checkoutService,
		ordersService,
		profileService,
		analyticsService,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(rootCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-rootCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	carts.CloseAll()
	err = multierr.Combine(err, redisClient.Close(), dbClient.Close())
	if err != nil {
		logg.Error(ctx, "error during shutdown", err)
		exitCode = 1
	}

	logg.Info(ctx, "api server stopped")
	cancel()
	stop()
	os.Exit(exitCode)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
