package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/odyssey-erp/distribusi/internal/shared"
)

// ErrRenderUnavailable is returned when the PDF renderer cannot produce a document.
var ErrRenderUnavailable = errors.New("invoice: pdf renderer unavailable")

// RepositoryPort abstracts invoice reads.
type RepositoryPort interface {
	Outlet(ctx context.Context, outletID int64) (Outlet, error)
	UnpaidLines(ctx context.Context, filter shared.ListFilter) ([]Line, error)
}

// Renderer converts HTML into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Service assembles and renders invoices.
type Service struct {
	repo     RepositoryPort
	renderer Renderer
	company  Company
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service. renderer may be nil, which disables PDF output.
func NewService(repo RepositoryPort, renderer Renderer, company Company, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, renderer: renderer, company: company, logger: logger, now: time.Now}
}

// Build assembles the unpaid invoice of filter.OutletID.
func (s *Service) Build(ctx context.Context, filter shared.ListFilter) (Invoice, error) {
	if filter.OutletID <= 0 {
		return Invoice{}, shared.NewDomainError(shared.ErrInvalidInput, "Outlet tidak valid")
	}
	outlet, err := s.repo.Outlet(ctx, filter.OutletID)
	if errors.Is(err, shared.ErrNotFound) {
		return Invoice{}, shared.NewDomainError(shared.ErrNotFound, "Outlet tidak ditemukan")
	}
	if err != nil {
		return Invoice{}, shared.StorageFailure("invoice: load outlet", err)
	}
	lines, err := s.repo.UnpaidLines(ctx, filter)
	if err != nil {
		return Invoice{}, shared.StorageFailure("invoice: unpaid sales", err)
	}
	return Assemble(s.company, outlet, lines, s.now()), nil
}

// PDF assembles the invoice and renders it to PDF.
func (s *Service) PDF(ctx context.Context, filter shared.ListFilter) (Invoice, []byte, error) {
	inv, err := s.Build(ctx, filter)
	if err != nil {
		return Invoice{}, nil, err
	}
	if s.renderer == nil {
		return Invoice{}, nil, ErrRenderUnavailable
	}
	html, err := RenderHTML(inv)
	if err != nil {
		return Invoice{}, nil, err
	}
	pdf, err := s.renderer.RenderHTML(ctx, html)
	if err != nil {
		s.logger.Error("render invoice pdf", slog.String("invoice", inv.Number), slog.Any("error", err))
		return Invoice{}, nil, fmt.Errorf("%w: %v", ErrRenderUnavailable, err)
	}
	s.logger.Info("invoice rendered",
		slog.String("invoice", inv.Number),
		slog.Int64("outlet_id", inv.Outlet.ID),
		slog.Int("lines", len(inv.Lines)))
	return inv, pdf, nil
}
