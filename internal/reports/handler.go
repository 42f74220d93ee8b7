package reports

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/distribusi/internal/platform/httpx"
)

// Handler wires HTTP endpoints for reports and dashboards.
type Handler struct {
	service *Service
}

// NewHandler constructs reports handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountRoutes registers routes open to every authenticated user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard/staff", h.handleStaffDashboard)
}

// MountAdminRoutes registers routes reserved for administrators.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/reports/overview", h.handleOverview)
	r.Get("/reports/balances", h.handleBalances)
	r.Get("/dashboard/admin", h.handleAdminDashboard)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	filter, err := httpx.ListFilterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.Offset = 0
	httpx.JSON(w, http.StatusOK, h.service.Overview(r.Context(), filter))
}

func (h *Handler) handleBalances(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"balances": h.service.Balances(r.Context())})
}

func (h *Handler) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.AdminDashboard(r.Context()))
}

func (h *Handler) handleStaffDashboard(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.StaffDashboard(r.Context()))
}
