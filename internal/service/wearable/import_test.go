package wearable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

func TestImport(t *testing.T) {
	ts := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("stores readings for known patients", func(t *testing.T) {
		f := newAgentFixture()
		ctx := context.Background()
		readings := []*model.WearableReading{
			{PatientID: "7", Timestamp: ts, HeartRate: 72, BloodOxygenLevel: 96},
			{PatientID: " 7 ", Timestamp: ts.Add(24 * time.Hour), HeartRate: 75, BloodOxygenLevel: 95},
		}
		f.patients.On("Get", ctx, "7").Return(copdPatient, nil).Once()
		f.wearables.On("Insert", ctx, readings).Return(nil)

		n, err := f.svc.Import(ctx, readings)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, "7", readings[1].PatientID)
		f.patients.AssertExpectations(t)
	})

	t.Run("rejects out of range oxygen", func(t *testing.T) {
		f := newAgentFixture()
		_, err := f.svc.Import(context.Background(), []*model.WearableReading{
			{PatientID: "7", Timestamp: ts, BloodOxygenLevel: 140},
		})
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, "reading 0: blood_oxygen_level out of range", appErr.Message)
		f.wearables.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown patient", func(t *testing.T) {
		f := newAgentFixture()
		ctx := context.Background()
		f.patients.On("Get", ctx, "99").Return(nil, repository.ErrNotFound)

		_, err := f.svc.Import(ctx, []*model.WearableReading{{PatientID: "99", Timestamp: ts}})
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
		assert.Contains(t, appErr.Message, "unknown patient 99")
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		f := newAgentFixture()
		n, err := f.svc.Import(context.Background(), nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
