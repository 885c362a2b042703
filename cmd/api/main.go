package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pharmacy-backend/api/routes"
	"github.com/angelmondragon/pharmacy-backend/internal/accounts"
	"github.com/angelmondragon/pharmacy-backend/internal/catalog"
	"github.com/angelmondragon/pharmacy-backend/internal/dashboard"
	"github.com/angelmondragon/pharmacy-backend/internal/discounts"
	"github.com/angelmondragon/pharmacy-backend/internal/inventory"
	"github.com/angelmondragon/pharmacy-backend/internal/prescriptions"
	"github.com/angelmondragon/pharmacy-backend/internal/sales"
	"github.com/angelmondragon/pharmacy-backend/internal/seed"
	"github.com/angelmondragon/pharmacy-backend/pkg/auth/session"
	"github.com/angelmondragon/pharmacy-backend/pkg/config"
	"github.com/angelmondragon/pharmacy-backend/pkg/db"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/angelmondragon/pharmacy-backend/pkg/metrics"
	"github.com/angelmondragon/pharmacy-backend/pkg/migrate"
	"github.com/angelmondragon/pharmacy-backend/pkg/redis"
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
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "migrations", err)

	if cfg.FeatureFlags.SeedOnStart {
		seeder, err := seed.New(dbClient.DB(), cfg.Seed, cfg.Password, logg)
		requireResource(ctx, logg, "seeder", err)
		if err := seeder.Run(ctx); err != nil {
			// partial seed data is not fatal; each failure is listed once
			for _, e := range multierr.Errors(err) {
				logg.Warn(logg.WithField(ctx, "error", e.Error()), "seed step failed")
			}
		}
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	registry := metrics.NewRegistry()
	services, err := buildServices(cfg, logg, dbClient, sessionManager, registry)
	requireResource(ctx, logg, "services", err)

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"dialect": dbClient.Dialect(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, registry, services),
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

	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	shutdownErr := multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if shutdownErr != nil {
		logg.Error(ctx, "unclean shutdown", shutdownErr)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager, registry *metrics.Registry) (routes.Services, error) {
	conn := dbClient.DB()

	accountsSvc, err := accounts.NewService(accounts.ServiceParams{
		Repo:           accounts.NewRepository(conn),
		SessionManager: sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("accounts service: %w", err)
	}

	catalogRepo := catalog.NewRepository(conn)
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		return routes.Services{}, fmt.Errorf("catalog service: %w", err)
	}

	inventoryRepo := inventory.NewRepository(conn)
	inventorySvc, err := inventory.NewService(inventoryRepo, catalogRepo)
	if err != nil {
		return routes.Services{}, fmt.Errorf("inventory service: %w", err)
	}

	prescriptionRepo := prescriptions.NewRepository(conn)
	prescriptionSvc, err := prescriptions.NewService(dbClient, prescriptionRepo)
	if err != nil {
		return routes.Services{}, fmt.Errorf("prescriptions service: %w", err)
	}

	discountSvc, err := discounts.NewService(conn)
	if err != nil {
		return routes.Services{}, fmt.Errorf("discounts service: %w", err)
	}

	salesRepo := sales.NewRepository(conn)
	salesSvc, err := sales.NewService(dbClient, salesRepo, inventory.NewLedger(), metrics.NewSaleMetrics(registry.Registerer()), logg)
	if err != nil {
		return routes.Services{}, fmt.Errorf("sales service: %w", err)
	}

	dashboardSvc, err := dashboard.NewService(dashboard.ServiceParams{
		Medicines:     catalogRepo,
		Inventory:     inventoryRepo,
		Sales:         salesRepo,
		Prescriptions: prescriptionRepo,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("dashboard service: %w", err)
	}

	return routes.Services{
		Accounts:      accountsSvc,
		Catalog:       catalogSvc,
		Inventory:     inventorySvc,
		Prescriptions: prescriptionSvc,
		Discounts:     discountSvc,
		Dashboard:     dashboardSvc,
		Sales:         salesSvc,
	}, nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
