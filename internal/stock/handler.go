package stock

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/distribusi/internal/platform/httpx"
	"github.com/odyssey-erp/distribusi/internal/shared"
)

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs stock handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/distributions", h.handleCreate)
	r.Get("/distributions", h.handleList)
	r.Get("/outlets/{id}/stock/{productID}", h.handleProductStock)
	r.Get("/outlets/{id}/slots", h.handleSlots)
}

type distributionRequest struct {
	OutletID      int64      `json:"outlet_id" validate:"required,gt=0"`
	ProductID     int64      `json:"product_id" validate:"required,gt=0"`
	Quantity      int64      `json:"quantity" validate:"required,gt=0"`
	DistributedAt *time.Time `json:"distributed_at"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req distributionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input := DistributionInput{
		OutletID:       req.OutletID,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		ActorID:        actor.ID,
	}
	if req.DistributedAt != nil {
		input.DistributedAt = *req.DistributedAt
	}
	dist, err := h.service.RecordDistribution(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, "Distribusi berhasil dicatat", dist)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := httpx.ListFilterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListDistributions(r.Context(), filter)
	if err != nil {
		h.logger.Error("list distributions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Distribution{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"distributions": items})
}

func (h *Handler) handleProductStock(w http.ResponseWriter, r *http.Request) {
	outletID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	productID, err := httpx.PathID(r, "productID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	available, err := h.service.OutletProductStock(r.Context(), outletID, productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"outlet_id":  outletID,
		"product_id": productID,
		"available":  available,
	})
}

func (h *Handler) handleSlots(w http.ResponseWriter, r *http.Request) {
	outletID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	usage, err := h.service.OutletSlotUsage(r.Context(), outletID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, usage)
}
