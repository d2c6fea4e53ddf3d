package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/logger"
)

// Scanner runs the wearable alert rules over every patient.
type Scanner interface {
	Scan(ctx context.Context) ([]*model.WearableAlert, error)
}

// AlertScanJob is a cron.Job wrapping one alert scan.
type AlertScanJob struct {
	scanner Scanner
	timeout time.Duration
	logger  *logger.Logger
}

func NewAlertScanJob(scanner Scanner, timeout time.Duration, logger *logger.Logger) *AlertScanJob {
	return &AlertScanJob{
		scanner: scanner,
		timeout: timeout,
		logger:  logger.With("alert_scan"),
	}
}

func (j *AlertScanJob) Run() {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	if _, err := j.RunOnce(ctx); err != nil {
		j.logger.Error(err, "alert scan failed")
	}
}

// RunOnce scans once and returns how many alerts were stored.
func (j *AlertScanJob) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	alerts, err := j.scanner.Scan(ctx)
	if err != nil {
		return len(alerts), fmt.Errorf("failed to scan wearables: %w", err)
	}

	byPriority := map[string]interface{}{}
	for _, a := range alerts {
		n, _ := byPriority[string(a.Priority)].(int)
		byPriority[string(a.Priority)] = n + 1
	}
	j.logger.WithFields(byPriority).Info("alert scan finished",
		"alerts", len(alerts),
		"duration_ms", time.Since(start).Milliseconds())
	return len(alerts), nil
}

// NewScheduler builds a cron that recovers panics and never overlaps runs
// of the same job.
func NewScheduler(logger *logger.Logger) *cron.Cron {
	cl := logger.With("cron")
	return cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
}

// Schedule registers job under a cron expression such as "@every 1h" or "0 * * * *".
func Schedule(c *cron.Cron, expr string, job cron.Job) error {
	if _, err := c.AddJob(expr, job); err != nil {
		return fmt.Errorf("failed to schedule %q: %w", expr, err)
	}
	return nil
}
