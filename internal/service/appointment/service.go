package appointment

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/repository"
	"github.com/patientiq/dashboard-api/internal/textutil"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

type Service struct {
	repo repository.AppointmentRepository
}

func NewService(repo repository.AppointmentRepository) *Service {
	return &Service{repo: repo}
}

// ByDoctor lists a doctor's appointments ordered by date and time. The range
// applies only when both bounds are given.
func (s *Service) ByDoctor(ctx context.Context, doctorID, startDate, endDate string) (*model.AppointmentList, error) {
	start, end := strings.TrimSpace(startDate), strings.TrimSpace(endDate)
	if start == "" || end == "" {
		start, end = "", ""
	} else {
		for _, d := range []string{start, end} {
			if textutil.NormalizeDate(d) != d {
				return nil, apperrors.NewBadRequest("Dates must be formatted as YYYY-MM-DD", nil)
			}
		}
	}

	appts, err := s.repo.ByDoctor(ctx, doctorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	if appts == nil {
		appts = []*model.Appointment{}
	}
	return &model.AppointmentList{DoctorID: doctorID, Appointments: appts, Count: len(appts)}, nil
}

// ByPatient lists a patient's appointments, most recent first.
func (s *Service) ByPatient(ctx context.Context, patientID string) (*model.AppointmentList, error) {
	appts, err := s.repo.ByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	if appts == nil {
		appts = []*model.Appointment{}
	}
	return &model.AppointmentList{PatientID: patientID, Appointments: appts, Count: len(appts)}, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) (*model.AppointmentStatusUpdated, error) {
	if !status.Valid() {
		names := make([]string, len(model.AppointmentStatuses))
		for i, st := range model.AppointmentStatuses {
			names[i] = string(st)
		}
		return nil, apperrors.NewBadRequest("Invalid status. Must be one of: "+strings.Join(names, ", "), nil)
	}

	ok, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, apperrors.NewInternal("Failed to update appointment status", err)
	}
	if !ok {
		return nil, apperrors.NewNotFound("Appointment not found", nil)
	}

	log.Info().Str("appointment_id", id).Str("status", string(status)).Msg("appointment status updated")
	return &model.AppointmentStatusUpdated{
		Message:       "Appointment status updated",
		AppointmentID: id,
		Status:        status,
	}, nil
}
