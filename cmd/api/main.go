package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/fleetparts-backend/api/routes"
	"github.com/angelmondragon/fleetparts-backend/internal/auth"
	"github.com/angelmondragon/fleetparts-backend/internal/categories"
	"github.com/angelmondragon/fleetparts-backend/internal/orders"
	"github.com/angelmondragon/fleetparts-backend/internal/parts"
	"github.com/angelmondragon/fleetparts-backend/internal/reports"
	"github.com/angelmondragon/fleetparts-backend/internal/sequence"
	"github.com/angelmondragon/fleetparts-backend/internal/stock"
	"github.com/angelmondragon/fleetparts-backend/internal/suppliers"
	"github.com/angelmondragon/fleetparts-backend/internal/users"
	"github.com/angelmondragon/fleetparts-backend/pkg/auth/session"
	"github.com/angelmondragon/fleetparts-backend/pkg/config"
	"github.com/angelmondragon/fleetparts-backend/pkg/db"
	"github.com/angelmondragon/fleetparts-backend/pkg/logger"
	"github.com/angelmondragon/fleetparts-backend/pkg/metrics"
	"github.com/angelmondragon/fleetparts-backend/pkg/migrate"
	"github.com/angelmondragon/fleetparts-backend/pkg/redis"
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

	sequenceService, err := sequence.NewService(sequence.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create sequence service", err)
		os.Exit(1)
	}

	partsService, err := parts.NewService(dbClient, parts.NewRepository(dbClient.DB()), sequenceService, parts.ServiceConfig{})
	if err != nil {
		logg.Error(context.Background(), "failed to create parts service", err)
		os.Exit(1)
	}

	partsRepo := parts.NewRepository(dbClient.DB())
	suppliersService, err := suppliers.NewService(dbClient, suppliers.NewRepository(dbClient.DB()), partsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create suppliers service", err)
		os.Exit(1)
	}

	categoriesService, err := categories.NewService(dbClient, categories.NewRepository(dbClient.DB()), partsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create categories service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.NewRepository(dbClient.DB()), cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(dbClient, orders.NewRepository(dbClient.DB()), partsService, sequenceService, orders.ServiceConfig{})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	stockMetrics := metrics.NewStockMetrics(prometheus.DefaultRegisterer)
	stockService, err := stock.NewService(dbClient, stock.NewRepository(dbClient.DB()), partsService, sequenceService, ordersService, stock.ServiceConfig{
		ReconcileMaxRetries: cfg.Stock.ReconcileMaxRetries,
		Metrics:             stockMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	reportsService, err := reports.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create reports service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(usersService, redisClient, sessionManager, cfg.JWT, cfg.AuthRateLimit, auth.ServiceConfig{})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
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

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Sessions:   sessionManager,
			Auth:       authService,
			Parts:      partsService,
			Suppliers:  suppliersService,
			Categories: categoriesService,
			Users:      usersService,
			Stock:      stockService,
			Orders:     ordersService,
			Reports:    reportsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
