// Command recalc rebuilds the monthly limit snapshots for one year, either for
// a single tenant or for every tenant that has documents dated in that year.
// Usage: go run ./cmd/recalc -year 2024 [-tenant t1]
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"limitguard/internal/app"
	"limitguard/internal/config"
	"limitguard/internal/logging"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("exiting")
	}
}

func run() error {
	year := flag.Int("year", time.Now().UTC().Year(), "fiscal year to recalculate")
	tenant := flag.String("tenant", "", "single tenant to recalculate (default: all tenants)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer func() { _ = a.Close() }()

	// Alerts raised by the run are delivered before exit.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	waitConsumer := a.Start(consumerCtx)
	defer func() {
		stopConsumer()
		_ = waitConsumer()
	}()

	entry := logger.WithField("year", *year)

	if *tenant != "" {
		dash, err := a.Limits.RecalcLimits(ctx, *tenant, *year, nil)
		if err != nil {
			return fmt.Errorf("recalculating tenant %s: %w", *tenant, err)
		}
		entry.WithFields(logrus.Fields{
			"tenant_id":   *tenant,
			"state":       dash.State,
			"accumulated": dash.Accumulated.String(),
			"forecast":    dash.Forecast.String(),
		}).Info("recalculated")
		return nil
	}

	report, err := a.Limits.RecalcYear(ctx, *year)
	if err != nil {
		return fmt.Errorf("recalculating year %d: %w", *year, err)
	}
	for tenantID, ferr := range report.Failed {
		entry.WithField("tenant_id", tenantID).WithError(ferr).Error("recalculation failed")
	}
	entry.WithFields(logrus.Fields{
		"tenants":   report.Tenants,
		"succeeded": report.Succeeded,
		"failed":    len(report.Failed),
	}).Info("recalculation complete")

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d tenants failed", len(report.Failed), report.Tenants)
	}
	return nil
}
