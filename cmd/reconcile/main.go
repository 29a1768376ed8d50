// Command reconcile repairs tables left in billing after their orders were
// settled and reports orders whose stored total disagrees with their items.
// It exits 1 when any mismatch is found, so it can run from cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cafe-pos/api/internal/app"
	"github.com/cafe-pos/api/internal/config"
	"github.com/cafe-pos/api/internal/logging"
	"github.com/cafe-pos/api/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	skipAudit := flag.Bool("skip-audit", false, "Only reconcile table status, do not audit order totals")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall time limit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	mismatches, err := run(ctx, cfg, log, *skipAudit)
	if err != nil {
		log.WithError(err).Error("reconcile failed")
		os.Exit(1)
	}
	if mismatches > 0 {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger, skipAudit bool) (int, error) {
	store, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		return 0, err
	}
	defer closeStore()

	pub, closePub, err := app.Publishers(ctx, cfg, log)
	if err != nil {
		return 0, err
	}
	defer closePub()

	svc := service.NewLifecycle(store, pub, app.Policy(cfg), service.WithLogger(log))

	changed, err := svc.ReconcileAll(ctx)
	for _, res := range changed {
		log.WithFields(logrus.Fields{
			"table_id": res.TableID,
			"from":     res.From,
			"to":       res.To,
		}).Info("table reconciled")
	}
	if err != nil {
		return 0, fmt.Errorf("reconcile tables: %w", err)
	}
	log.WithField("changed", len(changed)).Info("table reconciliation done")

	if skipAudit {
		return 0, nil
	}
	mismatches, err := svc.AuditTotals(ctx)
	if err != nil {
		return 0, fmt.Errorf("audit totals: %w", err)
	}
	for _, m := range mismatches {
		log.WithFields(logrus.Fields{
			"order_id":   m.OrderID,
			"table_id":   m.TableID,
			"stored":     m.Stored.StringFixed(2),
			"recomputed": m.Recomputed.StringFixed(2),
		}).Warn("order total mismatch")
	}
	log.WithField("mismatches", len(mismatches)).Info("total audit done")
	return len(mismatches), nil
}
