package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/distribusi/cmd/distribusi/cli"
	"github.com/odyssey-erp/distribusi/internal/app"
	"github.com/odyssey-erp/distribusi/internal/auth"
	"github.com/odyssey-erp/distribusi/internal/invoice"
	"github.com/odyssey-erp/distribusi/internal/observability"
	"github.com/odyssey-erp/distribusi/internal/payments"
	"github.com/odyssey-erp/distribusi/internal/platform/cache"
	"github.com/odyssey-erp/distribusi/internal/platform/db"
	"github.com/odyssey-erp/distribusi/internal/reports"
	"github.com/odyssey-erp/distribusi/internal/sales"
	"github.com/odyssey-erp/distribusi/internal/stock"
	"github.com/odyssey-erp/distribusi/jobs"
	"github.com/odyssey-erp/distribusi/report"
)

const usage = `usage: distribusi <command>

commands:
  serve                 run the HTTP API (default)
  migrate up|down|version
  jobs trigger <task>   enqueue ledger:integrity_scan, reports:warmup or idempotency:cleanup
  jobs stats            show default queue counters`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "migrate":
		err = migrateCmd(cfg, logger, args)
	case "jobs":
		err = jobsCmd(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(command+" failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)

	stockService := stock.NewService(stock.NewRepository(pool), reportCache, metrics, logger)
	salesService := sales.NewService(sales.NewRepository(pool), reportCache, metrics, logger)
	paymentsService := payments.NewService(payments.NewRepository(pool), reportCache, metrics, logger)
	reportsService := reports.NewService(reports.NewRepository(pool), reportCache, logger)

	pdfClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	invoiceService := invoice.NewService(invoice.NewRepository(pool), pdfClient, invoice.Company{
		Name:    cfg.InvoiceCompanyName,
		Contact: cfg.InvoiceCompanyContact,
	}, logger)

	redisOpts := cfg.RedisOptions().Asynq()
	jobClient := jobs.NewClient(redisOpts)
	defer jobClient.Close()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Auth:            auth.NewService(auth.NewRepository(pool)),
		StockHandler:    stock.NewHandler(logger, stockService),
		SalesHandler:    sales.NewHandler(logger, salesService),
		PaymentsHandler: payments.NewHandler(logger, paymentsService),
		ReportsHandler:  reports.NewHandler(reportsService),
		InvoiceHandler:  invoice.NewHandler(invoiceService),
		JobHandler:      jobs.NewHandler(jobClient, inspector, logger),
		Metrics:         metrics,
		Checks:          readinessChecks(pool, redisClient, pdfClient),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

func readinessChecks(pool *pgxpool.Pool, redisClient *redis.Client, pdf *report.Client) []app.Check {
	checks := []app.Check{
		{Name: "postgres", Required: true, Probe: pool.Ping},
		{Name: "gotenberg", Probe: pdf.Ping},
	}
	if redisClient != nil {
		checks = append(checks, app.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}
	return checks
}

func migrateCmd(cfg *app.Config, logger *slog.Logger, args []string) error {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}
	migrator, err := db.NewMigrator(cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("close migrator", slog.Any("error", err))
		}
	}()

	switch direction {
	case "up":
		return migrator.Up()
	case "down":
		return migrator.Down()
	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown migrate direction %q", direction)
	}
}

func jobsCmd(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	jobsCLI := cli.NewJobsCLI(cfg.RedisOptions().Asynq())
	defer jobsCLI.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("jobs trigger: task name required")
		}
		info, err := jobsCLI.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	case "stats":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return nil
	default:
		return fmt.Errorf("unknown jobs command %q", args[0])
	}
}
