package worker

import (
	"context"
	"time"

	"github.com/patientiq/dashboard-api/pkg/logger"
)

// Periodic runs a job on a fixed interval until its context ends.
type Periodic struct {
	name     string
	interval time.Duration
	job      func(ctx context.Context) error
	logger   *logger.Logger
}

func NewPeriodic(name string, interval time.Duration, job func(ctx context.Context) error, logger *logger.Logger) *Periodic {
	return &Periodic{
		name:     name,
		interval: interval,
		job:      job,
		logger:   logger,
	}
}

func (w *Periodic) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.job(ctx); err != nil {
				w.logger.Error(err, "periodic job failed", "job", w.name)
			}
		}
	}
}
