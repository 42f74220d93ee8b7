package reports

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/distribusi/internal/sales"
	"github.com/odyssey-erp/distribusi/internal/shared"
	"github.com/odyssey-erp/distribusi/internal/stock"
)

// recentLimit is the number of rows shown in dashboard activity feeds.
const recentLimit = 5

// Store exposes the queries the service depends on.
type Store interface {
	Totals(ctx context.Context, filter shared.ListFilter) (Totals, error)
	DetailLines(ctx context.Context, filter shared.ListFilter) ([]DetailLine, error)
	DetailSummary(ctx context.Context, filter shared.ListFilter) (DetailSummary, error)
	SlotOutlets(ctx context.Context, outletID int64) ([]SlotOutlet, error)
	Balances(ctx context.Context) ([]BalanceLine, error)
	Counts(ctx context.Context) (outlets, products int64, err error)
	RecentDistributions(ctx context.Context, limit int) ([]stock.Distribution, error)
	RecentSales(ctx context.Context, limit int) ([]sales.Sale, error)
}

// Service composes report views. Failing sections degrade to zero values
// and are logged; reports never return an error to the caller.
type Service struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
}

// NewService wires a Store with a Cache helper.
func NewService(store Store, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// Totals returns overall ledger figures for the filter window.
func (s *Service) Totals(ctx context.Context, filter shared.ListFilter) Totals {
	var totals Totals
	s.cached(ctx, "totals", filterKey(filter), &totals, zeroTotals(), func(ctx context.Context) (any, error) {
		return s.store.Totals(ctx, filter)
	})
	return totals
}

// Detailed returns one page of the detailed sales report. The summary
// covers every sale in the filter window, not only the returned page.
func (s *Service) Detailed(ctx context.Context, filter shared.ListFilter) ([]DetailLine, DetailSummary) {
	lines := []DetailLine{}
	s.cached(ctx, "detail", filterKey(filter), &lines, []DetailLine{}, func(ctx context.Context) (any, error) {
		items, err := s.store.DetailLines(ctx, filter)
		if items == nil {
			items = []DetailLine{}
		}
		return items, err
	})
	var summary DetailSummary
	s.cached(ctx, "detail_summary", windowKey(filter), &summary, zeroSummary(), func(ctx context.Context) (any, error) {
		return s.store.DetailSummary(ctx, filter)
	})
	return lines, summary
}

// SlotUsage returns capacity usage for one outlet, or every outlet when outletID is zero.
func (s *Service) SlotUsage(ctx context.Context, outletID int64) []SlotReport {
	slots := []SlotReport{}
	s.cached(ctx, "slots", strconv.FormatInt(outletID, 10), &slots, []SlotReport{}, func(ctx context.Context) (any, error) {
		outlets, err := s.store.SlotOutlets(ctx, outletID)
		if err != nil {
			return nil, err
		}
		out := make([]SlotReport, 0, len(outlets))
		for _, o := range outlets {
			out = append(out, BuildSlotReport(o))
		}
		return out, nil
	})
	return slots
}

// Balances returns every outlet's outstanding balance.
func (s *Service) Balances(ctx context.Context) []BalanceLine {
	balances := []BalanceLine{}
	s.cached(ctx, "balances", "all", &balances, []BalanceLine{}, func(ctx context.Context) (any, error) {
		items, err := s.store.Balances(ctx)
		if items == nil {
			items = []BalanceLine{}
		}
		return items, err
	})
	return balances
}

// Overview assembles the report page concurrently.
func (s *Service) Overview(ctx context.Context, filter shared.ListFilter) Overview {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Totals = s.Totals(gctx, filter)
		return nil
	})
	g.Go(func() error {
		out.Lines, out.Summary = s.Detailed(gctx, filter)
		return nil
	})
	g.Go(func() error {
		out.Slots = s.SlotUsage(gctx, filter.OutletID)
		return nil
	})
	_ = g.Wait()
	return out
}

// AdminDashboard assembles the administrator dashboard.
func (s *Service) AdminDashboard(ctx context.Context) AdminDashboard {
	var out AdminDashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Totals = s.Totals(gctx, shared.ListFilter{})
		return nil
	})
	g.Go(func() error {
		out.Slots = s.SlotUsage(gctx, 0)
		return nil
	})
	g.Go(func() error {
		out.Balances = s.Balances(gctx)
		return nil
	})
	_ = g.Wait()
	return out
}

// StaffDashboard assembles the staff dashboard. Activity feeds are read live.
func (s *Service) StaffDashboard(ctx context.Context) StaffDashboard {
	out := StaffDashboard{RecentDistributions: []stock.Distribution{}, RecentSales: []sales.Sale{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Totals = s.Totals(gctx, shared.ListFilter{})
		return nil
	})
	g.Go(func() error {
		outlets, products, err := s.store.Counts(gctx)
		if err != nil {
			s.degraded("counts", err)
			return nil
		}
		out.OutletCount, out.ProductCount = outlets, products
		return nil
	})
	g.Go(func() error {
		items, err := s.store.RecentDistributions(gctx, recentLimit)
		if err != nil {
			s.degraded("recent distributions", err)
			return nil
		}
		if items != nil {
			out.RecentDistributions = items
		}
		return nil
	})
	g.Go(func() error {
		items, err := s.store.RecentSales(gctx, recentLimit)
		if err != nil {
			s.degraded("recent sales", err)
			return nil
		}
		if items != nil {
			out.RecentSales = items
		}
		return nil
	})
	_ = g.Wait()
	return out
}

// Warm loads the default report views into the cache.
func (s *Service) Warm(ctx context.Context) {
	_ = s.AdminDashboard(ctx)
	_ = s.Overview(ctx, shared.ListFilter{})
}

// cached resolves section through the cache. On any failure the zero value
// is copied into dest and the failure is logged.
func (s *Service) cached(ctx context.Context, section, token string, dest any, zero any, loader func(context.Context) (any, error)) {
	var loadErr error
	tracked := func(ctx context.Context) (any, error) {
		value, err := loader(ctx)
		loadErr = err
		return value, err
	}
	key, err := s.cache.BuildKey(ctx, section, token)
	if err == nil {
		err = s.cache.FetchJSON(ctx, key, dest, tracked)
	}
	if err != nil && loadErr == nil {
		s.logger.Warn("report cache unavailable", slog.String("section", section), slog.Any("error", err))
		err = load(ctx, dest, loader, nil)
	}
	if err != nil {
		s.degraded(section, err)
		_ = load(ctx, dest, func(context.Context) (any, error) { return zero, nil }, nil)
	}
}

func (s *Service) degraded(section string, err error) {
	s.logger.Warn("report degraded to empty result", slog.String("section", section), slog.Any("error", err))
}

func filterKey(f shared.ListFilter) string {
	return windowKey(f) + ":" + strconv.Itoa(f.LimitOrDefault())
}

// windowKey identifies the filter window without its page size.
func windowKey(f shared.ListFilter) string {
	from, to := "-", "-"
	if !f.From.IsZero() {
		from = f.From.Format(time.DateOnly)
	}
	if !f.To.IsZero() {
		to = f.To.Format(time.DateOnly)
	}
	return strconv.FormatInt(f.OutletID, 10) + ":" + from + ":" + to
}
