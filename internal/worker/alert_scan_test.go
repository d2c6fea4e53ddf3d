package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/logger"
)

type fakeScanner struct {
	calls  int
	alerts []*model.WearableAlert
	err    error
	ctx    context.Context
}

func (f *fakeScanner) Scan(ctx context.Context) ([]*model.WearableAlert, error) {
	f.calls++
	f.ctx = ctx
	return f.alerts, f.err
}

func quietLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func TestAlertScanJob_RunOnce(t *testing.T) {
	scanner := &fakeScanner{alerts: []*model.WearableAlert{
		{Priority: model.PriorityCritical},
		{Priority: model.PriorityLow},
		{Priority: model.PriorityLow},
	}}
	job := NewAlertScanJob(scanner, time.Minute, quietLogger())

	n, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, scanner.calls)
}

func TestAlertScanJob_RunAppliesTimeout(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("db down")}
	job := NewAlertScanJob(scanner, time.Minute, quietLogger())

	job.Run()
	require.Equal(t, 1, scanner.calls)
	_, ok := scanner.ctx.Deadline()
	assert.True(t, ok)
}

func TestSchedule(t *testing.T) {
	c := NewScheduler(quietLogger())
	job := NewAlertScanJob(&fakeScanner{}, 0, quietLogger())

	require.NoError(t, Schedule(c, "@every 1h", job))
	assert.Len(t, c.Entries(), 1)

	err := Schedule(c, "every hour", job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to schedule "every hour"`)
}
