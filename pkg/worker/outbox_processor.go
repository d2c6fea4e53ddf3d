package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/logger"
	"github.com/patientiq/dashboard-api/pkg/messaging"
	"github.com/patientiq/dashboard-api/pkg/metrics"
	"github.com/patientiq/dashboard-api/pkg/repository"
)

// OutboxProcessorConfig tunes the relay. Zero values fall back to the
// defaults below.
type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

const (
	defaultBatchSize     = 50
	defaultPollInterval  = 2 * time.Second
	defaultRetryAttempts = 3
	defaultRetryDelay    = 500 * time.Millisecond
)

func (c OutboxProcessorConfig) withDefaults() OutboxProcessorConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	return c
}

// OutboxProcessor relays alert events written alongside wearable alerts
// to the broker, so dashboards and the mailer see each alert once it is
// committed.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	broker  messaging.MessageBroker
	cfg     OutboxProcessorConfig
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.MessageBroker,
	cfg OutboxProcessorConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:    repo,
		broker:  broker,
		cfg:     cfg.withDefaults(),
		log:     log,
		metrics: m,
	}
}

// Start drains the outbox once, then on every poll tick until ctx is done.
func (p *OutboxProcessor) Start(ctx context.Context) {
	p.log.Info("outbox relay started", "batch", p.cfg.BatchSize, "poll", p.cfg.PollInterval.String())
	p.drainOnce(ctx)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.log.Info("outbox relay stopped")
			return
		case <-ticker.C:
			p.drainOnce(ctx)
		}
	}
}

func (p *OutboxProcessor) drainOnce(ctx context.Context) {
	if _, err := p.ProcessBatch(ctx); err != nil {
		p.log.Error(err, "outbox batch failed")
	}
}

// ProcessBatch publishes up to BatchSize pending events and reports how
// many reached the broker. A failed event is marked failed and the rest
// of the batch still goes out.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	pending, err := p.repo.GetPendingEventsWithLock(ctx, p.cfg.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("outbox_pending", "error").Inc()
		return 0, fmt.Errorf("failed to load pending alert events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("outbox_pending", "success").Inc()

	published := 0
	for _, ev := range pending {
		if err := p.relay(ctx, ev); err != nil {
			p.log.Error(err, "alert event not relayed", "event_id", ev.ID.String(), "event_type", ev.EventType)
			continue
		}
		published++
	}
	return published, nil
}

func (p *OutboxProcessor) relay(ctx context.Context, ev *model.OutboxEvent) error {
	channel := ev.Channel
	if channel == "" {
		channel = messaging.AlertChannel
	}

	tries := 0
	err := retry(ctx, p.cfg.RetryAttempts, p.cfg.RetryDelay, func() error {
		if tries > 0 {
			p.metrics.OutboxRetries.WithLabelValues(ev.EventType).Inc()
		}
		tries++
		return p.broker.Publish(ctx, channel, ev.Payload)
	})

	status, reason := model.OutboxStatusProcessed, (*string)(nil)
	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		msg := err.Error()
		status, reason = model.OutboxStatusFailed, &msg
	} else {
		p.metrics.OutboxEventsProcessed.Inc()
	}

	if uerr := p.repo.UpdateStatus(ctx, ev.ID, status, reason); uerr != nil {
		p.log.Error(uerr, "failed to mark outbox event", "event_id", ev.ID.String(), "status", string(status))
		if err == nil {
			err = uerr
		}
	}
	return err
}

// retry runs fn up to attempts times, sleeping delay between tries.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
