package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/fleetparts-backend/api/controllers"
	"github.com/angelmondragon/fleetparts-backend/api/middleware"
	"github.com/angelmondragon/fleetparts-backend/internal/auth"
	"github.com/angelmondragon/fleetparts-backend/internal/categories"
	"github.com/angelmondragon/fleetparts-backend/internal/orders"
	"github.com/angelmondragon/fleetparts-backend/internal/parts"
	"github.com/angelmondragon/fleetparts-backend/internal/reports"
	"github.com/angelmondragon/fleetparts-backend/internal/stock"
	"github.com/angelmondragon/fleetparts-backend/internal/suppliers"
	"github.com/angelmondragon/fleetparts-backend/internal/users"
	"github.com/angelmondragon/fleetparts-backend/pkg/auth/session"
	"github.com/angelmondragon/fleetparts-backend/pkg/config"
	"github.com/angelmondragon/fleetparts-backend/pkg/db"
	"github.com/angelmondragon/fleetparts-backend/pkg/enums"
	"github.com/angelmondragon/fleetparts-backend/pkg/logger"
	"github.com/angelmondragon/fleetparts-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs. Optional fields may be nil
// and the affected routes degrade instead of panicking.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    db.Pinger
	Redis *redis.Client

	Sessions session.AccessSessionChecker

	Auth       auth.Service
	Parts      parts.Service
	Suppliers  suppliers.Service
	Categories categories.Service
	Users      users.Service
	Stock      stock.Service
	Orders     orders.Service
	Reports    reports.Service
}

// NewRouter wires controllers, middleware and capability gates into the
// public HTTP handler.
func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]db.Pinger{
			"postgres": d.DB,
			"redis":    pinger(d.Redis),
		}))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
		r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).
			Post("/logout", controllers.AuthLogout(d.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		if d.Redis != nil {
			r.Use(middleware.Idempotency(d.Redis, logg))
		}

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", controllers.PartList(d.Parts, logg))
			r.Get("/{partID}", controllers.PartGet(d.Parts, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(enums.CapabilityManageCatalog, logg))
				r.Post("/", controllers.PartCreate(d.Parts, logg))
				r.Put("/{partID}", controllers.PartUpdate(d.Parts, logg))
				r.Post("/{partID}/deactivate", controllers.PartDeactivate(d.Parts, logg))
				r.Post("/{partID}/activate", controllers.PartActivate(d.Parts, logg))
			})
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", controllers.SupplierList(d.Suppliers, logg))
			r.Get("/{supplierID}", controllers.SupplierGet(d.Suppliers, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(enums.CapabilityManageCatalog, logg))
				r.Post("/", controllers.SupplierCreate(d.Suppliers, logg))
				r.Put("/{supplierID}", controllers.SupplierUpdate(d.Suppliers, logg))
				r.Post("/{supplierID}/deactivate", controllers.SupplierDeactivate(d.Suppliers, logg))
				r.Delete("/{supplierID}", controllers.SupplierDelete(d.Suppliers, logg))
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(d.Categories, logg))
			r.Get("/{categoryID}", controllers.CategoryGet(d.Categories, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(enums.CapabilityManageCatalog, logg))
				r.Post("/", controllers.CategoryCreate(d.Categories, logg))
				r.Put("/{categoryID}", controllers.CategoryUpdate(d.Categories, logg))
				r.Delete("/{categoryID}", controllers.CategoryDelete(d.Categories, logg))
			})
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/low-stock", controllers.InventoryLowStock(d.Reports, logg))
			r.Get("/{partID}", controllers.InventorySnapshot(d.Stock, logg))
			r.With(middleware.RequireCapability(enums.CapabilityManageCatalog, logg)).
				Put("/{partID}/threshold", controllers.InventoryThreshold(d.Parts, logg))
			r.With(middleware.RequireCapability(enums.CapabilityReconcileStock, logg)).
				Post("/check", controllers.InventoryCheck(d.Stock, logg))
		})

		r.Route("/movements", func(r chi.Router) {
			r.Get("/", controllers.MovementList(d.Stock, logg))
			r.With(middleware.RequireCapability(enums.CapabilityMoveStock, logg)).
				Post("/in", controllers.MovementIn(d.Stock, logg))
			r.With(middleware.RequireCapability(enums.CapabilityMoveStock, logg)).
				Post("/out", controllers.MovementOut(d.Stock, logg))
			r.With(middleware.RequireCapability(enums.CapabilityVoidLedgerEntries, logg)).
				Delete("/{entryID}", controllers.MovementVoid(d.Stock, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(d.Orders, logg))
			r.Get("/{orderID}", controllers.OrderGet(d.Orders, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(enums.CapabilityManageOrders, logg))
				r.Post("/", controllers.OrderCreate(d.Orders, logg))
				r.Put("/{orderID}", controllers.OrderUpdate(d.Orders, logg))
				r.Post("/{orderID}/transition", controllers.OrderTransition(d.Orders, logg))
				r.Delete("/{orderID}", controllers.OrderDelete(d.Orders, logg))
			})
			r.With(middleware.RequireCapability(enums.CapabilityApproveOrders, logg)).
				Post("/{orderID}/approve", controllers.OrderApprove(d.Orders, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/me/password", controllers.UserChangePassword(d.Users, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCapability(enums.CapabilityManageUsers, logg))
				r.Get("/", controllers.UserList(d.Users, logg))
				r.Post("/", controllers.UserCreate(d.Users, logg))
				r.Get("/{userID}", controllers.UserGet(d.Users, logg))
				r.Put("/{userID}", controllers.UserUpdate(d.Users, logg))
				r.Post("/{userID}/reset-password", controllers.UserResetPassword(d.Users, logg))
				r.Post("/{userID}/deactivate", controllers.UserDeactivate(d.Users, logg))
				r.Post("/{userID}/activate", controllers.UserActivate(d.Users, logg))
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(middleware.RequireCapability(enums.CapabilityViewReports, logg))
			r.Get("/movements", controllers.ReportMovementSummary(d.Reports, logg))
			r.Get("/valuation", controllers.ReportStockValuation(d.Reports, logg))
			r.Get("/low-stock", controllers.ReportLowStock(d.Reports, logg))
		})
	})

	return r
}

// pinger keeps a typed nil redis client from sneaking into the health checks.
func pinger(client *redis.Client) db.Pinger {
	if client == nil {
		return nil
	}
	return client
}
