package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pharmacy-backend/api/controllers"
	salescontrollers "github.com/angelmondragon/pharmacy-backend/api/controllers/sales"
	"github.com/angelmondragon/pharmacy-backend/api/middleware"
	"github.com/angelmondragon/pharmacy-backend/internal/accounts"
	"github.com/angelmondragon/pharmacy-backend/internal/authz"
	"github.com/angelmondragon/pharmacy-backend/internal/catalog"
	"github.com/angelmondragon/pharmacy-backend/internal/dashboard"
	"github.com/angelmondragon/pharmacy-backend/internal/discounts"
	"github.com/angelmondragon/pharmacy-backend/internal/inventory"
	"github.com/angelmondragon/pharmacy-backend/internal/prescriptions"
	"github.com/angelmondragon/pharmacy-backend/internal/sales"
	"github.com/angelmondragon/pharmacy-backend/pkg/config"
	"github.com/angelmondragon/pharmacy-backend/pkg/db"
	"github.com/angelmondragon/pharmacy-backend/pkg/logger"
	"github.com/angelmondragon/pharmacy-backend/pkg/metrics"
	"github.com/angelmondragon/pharmacy-backend/pkg/redis"
)

// Services groups the domain services exposed over HTTP.
type Services struct {
	Accounts      accounts.Service
	Catalog       catalog.Service
	Inventory     inventory.Service
	Prescriptions prescriptions.Service
	Discounts     discounts.Service
	Dashboard     dashboard.Service
	Sales         sales.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager middleware.SessionLookup,
	registry *metrics.Registry,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if registry != nil {
		r.Use(registry.Middleware)
	}
	r.Use(
		middleware.SecureHeaders(cfg.App.IsProd()),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginIdentifierLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterIdentifierLim,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readinessDeps(dbP, redisClient), logg))
	})
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", registry.Handler())
	}

	authenticate := middleware.Auth(cfg.JWT, cfg.Session.CookieName, sessionManager, svc.Accounts, logg)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svc.Accounts, cfg.Session, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svc.Accounts, logg))
		r.With(authenticate).Post("/logout", controllers.AuthLogout(svc.Accounts, cfg.Session, logg))
		r.With(authenticate).Get("/me", controllers.AuthMe(svc.Accounts, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.Throttle(cfg.HTTP.RequestsPerMinute, logg))
		r.Use(middleware.Idempotency(redisClient, cfg.HTTP.IdempotencyTTL, logg))

		r.Route("/accounts", func(r chi.Router) {
			r.Use(middleware.RequireCapability(authz.AccountsManage, logg))
			r.Get("/", controllers.AccountsList(svc.Accounts, logg))
			r.Post("/", controllers.AccountsCreate(svc.Accounts, logg))
			r.Get("/{id}", controllers.AccountsGet(svc.Accounts, logg))
			r.Patch("/{id}", controllers.AccountsUpdate(svc.Accounts, logg))
			r.Put("/{id}/suspend", controllers.AccountsSuspend(svc.Accounts, logg))
		})
		r.With(middleware.RequireCapability(authz.CustomersRead, logg)).Get("/customers", controllers.CustomersList(svc.Accounts, logg))

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoriesList(svc.Catalog, logg))
			r.Post("/", controllers.CategoriesCreate(svc.Catalog, logg))
		})
		r.Route("/medicines", func(r chi.Router) {
			r.Get("/", controllers.MedicinesList(svc.Catalog, logg))
			r.Post("/", controllers.MedicinesCreate(svc.Catalog, logg))
			r.Get("/{id}", controllers.MedicinesGet(svc.Catalog, logg))
			r.Put("/{id}", controllers.MedicinesUpdate(svc.Catalog, logg))
			r.Delete("/{id}", controllers.MedicinesDelete(svc.Catalog, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(middleware.RequireCapability(authz.InventoryRead, logg))
			r.Get("/", controllers.InventoryList(svc.Inventory, logg))
			r.Get("/low-stock", controllers.InventoryLowStock(svc.Inventory, logg))
			r.Post("/", controllers.InventoryCreate(svc.Inventory, logg))
			r.Put("/{medicineId}", controllers.InventoryUpdate(svc.Inventory, logg))
		})

		r.Route("/prescriptions", func(r chi.Router) {
			r.Use(middleware.RequireCapability(authz.PrescriptionsRead, logg))
			r.Get("/", controllers.PrescriptionsList(svc.Prescriptions, logg))
			r.Post("/", controllers.PrescriptionsCreate(svc.Prescriptions, logg))
			r.Get("/{id}", controllers.PrescriptionsGet(svc.Prescriptions, logg))
			r.Put("/{id}", controllers.PrescriptionsUpdateStatus(svc.Prescriptions, logg))
		})

		r.Route("/discounts", func(r chi.Router) {
			r.Get("/", controllers.DiscountsList(svc.Discounts, logg))
			r.Get("/active", controllers.DiscountsActive(svc.Discounts, logg))
			r.Post("/", controllers.DiscountsCreate(svc.Discounts, logg))
		})

		r.With(middleware.RequireCapability(authz.DashboardRead, logg)).Get("/dashboard/stats", controllers.DashboardStats(svc.Dashboard, logg))

		r.Route("/sales", func(r chi.Router) {
			r.Use(middleware.RequireCapability(authz.SalesRead, logg))
			r.Get("/", salescontrollers.List(svc.Sales, logg))
			r.Post("/", salescontrollers.Create(svc.Sales, logg))
			r.Get("/{id}", salescontrollers.Get(svc.Sales, logg))
			r.Delete("/{id}", salescontrollers.Delete(svc.Sales, logg))
			r.Put("/{id}", salescontrollers.UpdateStatus(svc.Sales, logg))
		})
	})

	return r
}

func readinessDeps(dbP db.Pinger, redisClient *redis.Client) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["db"] = dbP
	}
	if redisClient != nil {
		deps["redis"] = redisClient
	}
	return deps
}
