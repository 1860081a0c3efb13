package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/fatura-engine/internal/app"
	"github.com/segyhp/fatura-engine/internal/config"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/internal/service"

	"github.com/robfig/cron/v3"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "failed to initialize ledger", "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	c := cron.New(cron.WithSeconds(), cron.WithLocation(cfg.Location()))

	if err := setupCronJobs(ctx, c, cfg.GetClosingJobSpec(), ledger.Closer, ledger.Opener, logger); err != nil {
		logger.Error(ctx, "failed to schedule jobs", "error", err)
		os.Exit(1)
	}

	c.Start()
	logger.Info(ctx, "scheduler started", "closing_job", cfg.GetClosingJobSpec(), "timezone", cfg.Location().String())

	<-ctx.Done()

	logger.Info(context.Background(), "shutting down scheduler")
	<-c.Stop().Done()
	logger.Info(context.Background(), "scheduler stopped")
}

type cycleCloser interface {
	CloseCycle(ctx context.Context, now time.Time) (*service.CloseReport, error)
}

type cycleOpener interface {
	OpenCycle(ctx context.Context, now time.Time) (*service.OpenReport, error)
}

// setupCronJobs registers the closing job. Each run closes the period that just
// ended and then applies recurring templates to the one that opened. Runs never
// overlap.
func setupCronJobs(ctx context.Context, c *cron.Cron, spec string, closer cycleCloser, opener cycleOpener, logger logging.Logger) error {
	job := cron.FuncJob(func() {
		now := time.Now()

		report, err := closer.CloseCycle(ctx, now)
		switch {
		case err != nil:
			logger.Error(ctx, "cycle closing failed", "error", err)
		case report.Failed > 0:
			logger.Warn(ctx, "cycle closed with failures", "period", report.Period.String(), "failed", report.Failed)
		}

		opened, err := opener.OpenCycle(ctx, now)
		switch {
		case err != nil:
			logger.Error(ctx, "cycle opening failed", "error", err)
		case opened.Failed > 0:
			logger.Warn(ctx, "cycle opened with failures", "period", opened.Period.String(), "failed", opened.Failed)
		}
	})

	_, err := c.AddJob(spec, cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(job))
	return err
}
