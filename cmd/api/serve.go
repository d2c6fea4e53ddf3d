package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/patientiq/dashboard-api/internal/app"
	"github.com/patientiq/dashboard-api/internal/handler/alerts"
	"github.com/patientiq/dashboard-api/internal/handler/appointment"
	"github.com/patientiq/dashboard-api/internal/handler/docnotes"
	"github.com/patientiq/dashboard-api/internal/handler/health"
	"github.com/patientiq/dashboard-api/internal/handler/message"
	"github.com/patientiq/dashboard-api/internal/handler/patient"
	"github.com/patientiq/dashboard-api/internal/handler/questionnaire"
	"github.com/patientiq/dashboard-api/internal/handler/research"
	"github.com/patientiq/dashboard-api/internal/handler/summary"
	"github.com/patientiq/dashboard-api/internal/handler/wearable"
	"github.com/patientiq/dashboard-api/internal/repository/postgres"
	"github.com/patientiq/dashboard-api/internal/router"
	"github.com/patientiq/dashboard-api/pkg/security"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrateOnStart {
		if err := postgres.Migrate(ctx, a.DB); err != nil {
			return err
		}
	}

	svc := a.Services
	origins := cfg.Server.AllowedOrigins()

	r := router.NewRouter(router.Handlers{
		Health:  health.NewHandler(a.Pingers()),
		Metrics: a.HTTPMetrics,
		PatientScoped: []router.Handler{
			patient.NewHandler(svc.Patients),
			summary.NewHandler(svc.Summaries),
			docnotes.NewHandler(svc.DoctorNotes),
			research.NewHandler(svc.Research),
			wearable.NewHandler(svc.Wearables),
			questionnaire.NewHandler(svc.Questionnaires),
		},
		API: []router.Handler{
			message.NewHandler(svc.Messages),
			appointment.NewHandler(svc.Appointments),
			alerts.NewHandler(a.Broker(), origins),
		},
	}, router.RouterConfig{
		RateLimit:      rate.Limit(cfg.Server.RateLimit),
		RateBurst:      cfg.Server.RateBurst,
		AllowedOrigins: origins,
		APIKey:         security.NewKeyVerifier(cfg.Server.APIKey),
		Timeout:        time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Debug:          cfg.Server.Debug,
	})
	r.Setup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("llm_provider", cfg.LLM.Provider).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	grace := cfg.Server.ShutdownGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}
