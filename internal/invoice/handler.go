package invoice

import (
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/distribusi/internal/platform/httpx"
)

// Handler exposes invoice endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs invoice handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// MountAdminRoutes registers invoice routes reserved for administrators.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/outlets/{id}/invoice", h.handleInvoice)
}

func (h *Handler) handleInvoice(w http.ResponseWriter, r *http.Request) {
	outletID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter, err := httpx.ListFilterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.OutletID = outletID

	if r.URL.Query().Get("format") != "pdf" {
		inv, err := h.service.Build(r.Context(), filter)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, inv)
		return
	}

	inv, pdf, err := h.service.PDF(r.Context(), filter)
	if errors.Is(err, ErrRenderUnavailable) {
		httpx.Problem(w, http.StatusBadGateway, http.StatusText(http.StatusBadGateway), "Gagal membuat PDF invoice")
		return
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": FileName(inv)}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
