package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/distribusi/internal/auth"
	"github.com/odyssey-erp/distribusi/internal/invoice"
	"github.com/odyssey-erp/distribusi/internal/observability"
	"github.com/odyssey-erp/distribusi/internal/payments"
	"github.com/odyssey-erp/distribusi/internal/platform/httpx"
	"github.com/odyssey-erp/distribusi/internal/reports"
	"github.com/odyssey-erp/distribusi/internal/sales"
	"github.com/odyssey-erp/distribusi/internal/shared"
	"github.com/odyssey-erp/distribusi/internal/stock"
	"github.com/odyssey-erp/distribusi/jobs"
)

// Check is a named readiness probe.
type Check struct {
	Name     string
	Required bool
	Probe    func(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	Auth            *auth.Service
	StockHandler    *stock.Handler
	SalesHandler    *sales.Handler
	PaymentsHandler *payments.Handler
	ReportsHandler  *reports.Handler
	InvoiceHandler  *invoice.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
	Checks          []Check
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, http.StatusText(http.StatusNotFound), "Halaman tidak ditemukan")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed), "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Checks, logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(auth.Middleware(params.Auth, logger))
		api.Get("/me", auth.Me)

		api.Group(func(staff chi.Router) {
			staff.Use(auth.RequireRole(shared.RoleAdmin, shared.RoleKaryawan))
			if params.StockHandler != nil {
				params.StockHandler.MountRoutes(staff)
			}
			if params.SalesHandler != nil {
				params.SalesHandler.MountRoutes(staff)
			}
			if params.ReportsHandler != nil {
				params.ReportsHandler.MountRoutes(staff)
			}
		})

		api.Group(func(admin chi.Router) {
			admin.Use(auth.RequireRole(shared.RoleAdmin))
			if params.SalesHandler != nil {
				params.SalesHandler.MountAdminRoutes(admin)
			}
			if params.PaymentsHandler != nil {
				params.PaymentsHandler.MountRoutes(admin)
			}
			if params.ReportsHandler != nil {
				params.ReportsHandler.MountAdminRoutes(admin)
			}
			if params.InvoiceHandler != nil {
				params.InvoiceHandler.MountAdminRoutes(admin)
			}
			if params.JobHandler != nil {
				params.JobHandler.MountAdminRoutes(admin)
			}
		})
	})

	return r
}

func readiness(checks []Check, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, check := range checks {
			if err := check.Probe(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("check", check.Name), slog.Any("error", err))
				results[check.Name] = "unavailable"
				if check.Required {
					status = http.StatusServiceUnavailable
				}
				continue
			}
			results[check.Name] = "ok"
		}
		httpx.JSON(w, status, map[string]any{"checks": results})
	}
}
