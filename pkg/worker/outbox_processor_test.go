package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/logger"
	"github.com/patientiq/dashboard-api/pkg/messaging"
	"github.com/patientiq/dashboard-api/pkg/metrics"
)

type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]*model.OutboxEvent)
	return events, args.Error(1)
}

func (m *mockOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	return m.Called(ctx, topic, payload).Error(0)
}

func (m *mockBroker) Subscribe(ctx context.Context, topic string, handler func([]byte) error) error {
	return m.Called(ctx, topic, handler).Error(0)
}

func (m *mockBroker) Close() error { return nil }

func newTestProcessor(repo *mockOutboxRepo, broker *mockBroker) *OutboxProcessor {
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(&logger.Config{Output: io.Discard}), metrics.NewMetrics("test", "outbox", prometheus.NewRegistry()))
}

func TestProcessBatch_PublishesToEventChannel(t *testing.T) {
	repo := new(mockOutboxRepo)
	broker := new(mockBroker)
	payload := json.RawMessage(`{"patient_id":"P1"}`)
	event := &model.OutboxEvent{ID: uuid.New(), EventType: model.EventWearableAlert, Channel: "alerts", Payload: payload}

	repo.On("GetPendingEventsWithLock", mock.Anything, 10).Return([]*model.OutboxEvent{event}, nil)
	broker.On("Publish", mock.Anything, "alerts", []byte(payload)).Return(nil)
	repo.On("UpdateStatus", mock.Anything, event.ID, model.OutboxStatusProcessed, (*string)(nil)).Return(nil)

	n, err := newTestProcessor(repo, broker).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	repo.AssertExpectations(t)
	broker.AssertExpectations(t)
}

func TestProcessBatch_EmptyChannelUsesAlertChannel(t *testing.T) {
	repo := new(mockOutboxRepo)
	broker := new(mockBroker)
	event := &model.OutboxEvent{ID: uuid.New(), EventType: model.EventWearableAlert, Payload: json.RawMessage(`{}`)}

	repo.On("GetPendingEventsWithLock", mock.Anything, 10).Return([]*model.OutboxEvent{event}, nil)
	broker.On("Publish", mock.Anything, messaging.AlertChannel, mock.Anything).Return(nil)
	repo.On("UpdateStatus", mock.Anything, event.ID, model.OutboxStatusProcessed, (*string)(nil)).Return(nil)

	_, err := newTestProcessor(repo, broker).ProcessBatch(context.Background())
	require.NoError(t, err)
	broker.AssertExpectations(t)
}

func TestNewOutboxProcessor_Defaults(t *testing.T) {
	p := NewOutboxProcessor(nil, nil, OutboxProcessorConfig{}, logger.NewLogger(&logger.Config{Output: io.Discard}), nil)
	assert.Equal(t, defaultBatchSize, p.cfg.BatchSize)
	assert.Equal(t, defaultPollInterval, p.cfg.PollInterval)
	assert.Equal(t, defaultRetryAttempts, p.cfg.RetryAttempts)
	assert.Equal(t, defaultRetryDelay, p.cfg.RetryDelay)
}

func TestProcessBatch_MarksFailedAfterRetries(t *testing.T) {
	repo := new(mockOutboxRepo)
	broker := new(mockBroker)
	event := &model.OutboxEvent{ID: uuid.New(), EventType: model.EventWearableAlert, Channel: "alerts", Payload: json.RawMessage(`{}`)}

	repo.On("GetPendingEventsWithLock", mock.Anything, 10).Return([]*model.OutboxEvent{event}, nil)
	broker.On("Publish", mock.Anything, "alerts", mock.Anything).Return(errors.New("redis down"))
	repo.On("UpdateStatus", mock.Anything, event.ID, model.OutboxStatusFailed, mock.MatchedBy(func(s *string) bool {
		return s != nil && *s == "redis down"
	})).Return(nil)

	n, err := newTestProcessor(repo, broker).ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	broker.AssertNumberOfCalls(t, "Publish", 2)
	repo.AssertExpectations(t)
}

func TestProcessBatch_RepositoryError(t *testing.T) {
	repo := new(mockOutboxRepo)
	repo.On("GetPendingEventsWithLock", mock.Anything, 10).Return(nil, errors.New("db gone"))

	_, err := newTestProcessor(repo, new(mockBroker)).ProcessBatch(context.Background())
	assert.ErrorContains(t, err, "db gone")
}

func TestRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
