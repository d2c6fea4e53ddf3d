package appointment

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/mocks"
	"github.com/patientiq/dashboard-api/internal/model"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

func TestByDoctor(t *testing.T) {
	ctx := context.Background()

	t.Run("range needs both bounds", func(t *testing.T) {
		repo := new(mocks.AppointmentRepository)
		repo.On("ByDoctor", ctx, "d1", "", "").Return([]*model.Appointment{{ID: "a1"}}, nil)

		list, err := NewService(repo).ByDoctor(ctx, "d1", "2024-06-01", "")
		require.NoError(t, err)
		assert.Equal(t, "d1", list.DoctorID)
		assert.Equal(t, 1, list.Count)
		repo.AssertExpectations(t)
	})

	t.Run("filters by range", func(t *testing.T) {
		repo := new(mocks.AppointmentRepository)
		repo.On("ByDoctor", ctx, "d1", "2024-06-01", "2024-06-30").Return(nil, nil)

		list, err := NewService(repo).ByDoctor(ctx, "d1", "2024-06-01", "2024-06-30")
		require.NoError(t, err)
		assert.NotNil(t, list.Appointments)
		assert.Equal(t, 0, list.Count)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		repo := new(mocks.AppointmentRepository)
		_, err := NewService(repo).ByDoctor(ctx, "d1", "06/01/2024", "2024-06-30")
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus())
	})
}

func TestByPatient(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.AppointmentRepository)
	repo.On("ByPatient", ctx, "1").Return([]*model.Appointment{{ID: "a2"}, {ID: "a1"}}, nil)
	repo.On("ByPatient", ctx, "2").Return(nil, errors.New("timeout"))
	svc := NewService(repo)

	list, err := svc.ByPatient(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", list.PatientID)
	assert.Equal(t, 2, list.Count)

	_, err = svc.ByPatient(ctx, "2")
	assert.Error(t, err)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.AppointmentRepository)
	repo.On("UpdateStatus", ctx, "a1", model.AppointmentStatusNoShow).Return(true, nil)
	repo.On("UpdateStatus", ctx, "zz", model.AppointmentStatusCompleted).Return(false, nil)
	svc := NewService(repo)

	got, err := svc.UpdateStatus(ctx, "a1", model.AppointmentStatusNoShow)
	require.NoError(t, err)
	assert.Equal(t, &model.AppointmentStatusUpdated{
		Message:       "Appointment status updated",
		AppointmentID: "a1",
		Status:        model.AppointmentStatusNoShow,
	}, got)

	_, err = svc.UpdateStatus(ctx, "a1", "rescheduled")
	require.Error(t, err)
	assert.Equal(t, "Invalid status. Must be one of: scheduled, completed, cancelled, no-show", err.Error())

	_, err = svc.UpdateStatus(ctx, "zz", model.AppointmentStatusCompleted)
	assert.True(t, apperrors.IsNotFound(err))
}
