package payments

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/distribusi/internal/platform/httpx"
	"github.com/odyssey-erp/distribusi/internal/shared"
)

// Handler wires HTTP endpoints for payments. Every route is admin only.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs payments handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/payments", h.handleCreate)
	r.Get("/payments", h.handleList)
	r.Get("/payments/{id}", h.handleGet)
}

type paymentRequest struct {
	OutletID int64           `json:"outlet_id" validate:"required,gt=0"`
	Amount   decimal.Decimal `json:"amount"`
	PaidOn   string          `json:"paid_on" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	input := PaymentInput{
		OutletID:       req.OutletID,
		Amount:         req.Amount,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		ActorID:        actor.ID,
	}
	if req.PaidOn != "" {
		paidOn, err := time.Parse(httpx.DateLayout, req.PaidOn)
		if err != nil {
			httpx.RespondError(w, shared.NewDomainError(shared.ErrInvalidInput, "Tanggal bayar tidak valid"))
			return
		}
		input.PaidOn = paidOn
	}
	result, err := h.service.RecordPayment(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Created(w, "Pembayaran berhasil dicatat", result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := httpx.ListFilterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListPayments(r.Context(), filter)
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": items})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}
