package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/patientiq/dashboard-api/internal/app"
	"github.com/patientiq/dashboard-api/internal/config"
	"github.com/patientiq/dashboard-api/internal/email"
	"github.com/patientiq/dashboard-api/internal/handler/health"
	jobs "github.com/patientiq/dashboard-api/internal/worker"
	"github.com/patientiq/dashboard-api/pkg/logger"
	"github.com/patientiq/dashboard-api/pkg/messaging"
	"github.com/patientiq/dashboard-api/pkg/worker"
)

const backfillBatch = 100

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "patientiq-worker",
	Short:        "Wearable alert scanner, outbox relay and alert mailer",
	SilenceUsage: true,
	RunE:         run,
}

func main() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or ./config/config.yaml)")
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Console)
	wlog := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Console:    cfg.Log.Console,
	}).With("worker")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var wg sync.WaitGroup
	goRun := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}

	broker := a.Broker()
	if broker != nil {
		processor := worker.NewOutboxProcessor(a.Repos.Outbox, broker, worker.OutboxProcessorConfig{
			BatchSize:     cfg.Worker.OutboxBatchSize,
			PollInterval:  cfg.Worker.OutboxPoll,
			RetryAttempts: cfg.Worker.RetryAttempts,
			RetryDelay:    cfg.Worker.RetryDelay,
		}, wlog.With("outbox"), a.Metrics)
		goRun(processor.Start)

		if cfg.SMTP.Enabled() {
			notifier := email.NewAlertNotifier(cfg.SMTP)
			if err := broker.Subscribe(ctx, messaging.AlertChannel, notifier.HandleEvent); err != nil {
				return fmt.Errorf("failed to subscribe alert mailer: %w", err)
			}
			wlog.Info("alert mailer subscribed", "channel", messaging.AlertChannel)
		}
	} else {
		wlog.Warn("redis unavailable, outbox relay and alert mailer are off")
	}

	scheduler := jobs.NewScheduler(wlog)
	scan := jobs.NewAlertScanJob(a.Services.Wearables, cfg.Worker.ScanTimeout, wlog)
	if err := jobs.Schedule(scheduler, cfg.Worker.AlertSchedule, scan); err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	if cfg.Worker.BackfillInterval > 0 {
		backfill := worker.NewPeriodic("vector_backfill", cfg.Worker.BackfillInterval, func(ctx context.Context) error {
			papers, notes, err := a.BackfillVectors(ctx, backfillBatch)
			if papers+notes > 0 {
				wlog.Info("vectors indexed", "papers", papers, "notes", notes)
			}
			return err
		}, wlog)
		goRun(backfill.Start)
	}

	srv := healthServer(cfg.Worker.HealthPort, a)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("worker health server failed")
			stop()
		}
	}()

	wlog.Info("worker started", "alert_schedule", cfg.Worker.AlertSchedule, "health_port", cfg.Worker.HealthPort)
	<-ctx.Done()
	wlog.Info("shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("health server forced to shutdown")
	}
	wg.Wait()
	return nil
}

func healthServer(port int, a *app.App) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	health.NewHandler(a.Pingers()).RegisterRoutes(engine)
	engine.GET("/metrics", a.HTTPMetrics.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
