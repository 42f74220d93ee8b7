package sales

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/distribusi/internal/platform/httpx"
	"github.com/odyssey-erp/distribusi/internal/shared"
)

// Handler wires HTTP endpoints for sales.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes open to every authenticated user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales", h.handleCreate)
	r.Get("/sales", h.handleList)
	r.Get("/bills/preview", h.handlePreview)
}

// MountAdminRoutes registers routes reserved for administrators.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/outlets/{id}/balance", h.handleBalance)
}

type saleRequest struct {
	OutletID  int64      `json:"outlet_id" validate:"required,gt=0"`
	ProductID int64      `json:"product_id" validate:"required,gt=0"`
	Quantity  int64      `json:"quantity" validate:"required,gt=0"`
	SoldAt    *time.Time `json:"sold_at"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input := SaleInput{
		OutletID:       req.OutletID,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		ActorID:        actor.ID,
	}
	if req.SoldAt != nil {
		input.SoldAt = *req.SoldAt
	}
	sale, err := h.service.RecordSale(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, SuccessMessage(sale), sale)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := httpx.ListFilterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"sales": items})
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.QueryInt64(r, "product_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	quantity, err := httpx.QueryInt64(r, "quantity")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bill, err := h.service.PreviewBill(r.Context(), productID, quantity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bill)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	outletID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	balance, err := h.service.OutletBalance(r.Context(), outletID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, OutletBalance{OutletID: outletID, Balance: balance})
}
