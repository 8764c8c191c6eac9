package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-course-payments/app/metrics"
	"github.com/vibast-solutions/ms-go-course-payments/app/service"
	"github.com/vibast-solutions/ms-go-course-payments/config"
)

var (
	workerMode bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Poll the gateway for stale pending payments",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"reconcile",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ReconcileInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunReconcileBatch(ctx)
			},
		)
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run expiration-related commands",
}

var expirePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Fail pending payments past their expiry after a final gateway check",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"expire_pending",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePendingInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunExpirePendingBatch(ctx)
			},
		)
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run manual-review commands",
}

var reviewReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report payments held for review after an unknown gateway result",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"review_report",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ReviewReportInterval },
			func(s *service.PaymentService, ctx context.Context) error {
				return s.RunReviewReportBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(reviewCmd)
	expireCmd.AddCommand(expirePendingCmd)
	reviewCmd.AddCommand(reviewReportCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(s *service.PaymentService, ctx context.Context) error,
) {
	deps, cleanup := mustCreateDependencies()
	defer cleanup()

	metrics.MustRegister()

	if workerMode {
		runWorker(name, intervalResolver(deps.cfg), deps.paymentService, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(deps.paymentService, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	paymentService *service.PaymentService,
	fn func(s *service.PaymentService, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(paymentService, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(paymentService, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
