package wearable

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/service/patient"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

// Import validates a batch of device readings and stores them. Every
// reading must belong to a known patient.
func (s *Service) Import(ctx context.Context, readings []*model.WearableReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	known := make(map[string]bool)
	for i, r := range readings {
		if err := checkReading(r); err != nil {
			return 0, apperrors.NewBadRequest(fmt.Sprintf("reading %d: %s", i, err), nil)
		}
		r.PatientID = strings.TrimSpace(r.PatientID)
		if known[r.PatientID] {
			continue
		}
		if _, err := patient.Load(ctx, s.patients, r.PatientID); err != nil {
			if apperrors.IsNotFound(err) {
				return 0, apperrors.NewBadRequest(fmt.Sprintf("reading %d: unknown patient %s", i, r.PatientID), err)
			}
			return 0, err
		}
		known[r.PatientID] = true
	}

	if err := s.wearables.Insert(ctx, readings); err != nil {
		return 0, fmt.Errorf("failed to insert wearable readings: %w", err)
	}
	log.Info().Int("readings", len(readings)).Int("patients", len(known)).Msg("wearable readings imported")
	return len(readings), nil
}

func checkReading(r *model.WearableReading) error {
	switch {
	case r == nil:
		return fmt.Errorf("empty reading")
	case strings.TrimSpace(r.PatientID) == "":
		return fmt.Errorf("patient_id is required")
	case r.Timestamp.IsZero():
		return fmt.Errorf("timestamp is required")
	case r.HeartRate < 0 || r.StepCount < 0 || r.ExerciseDuration < 0:
		return fmt.Errorf("negative measurement")
	case r.BloodOxygenLevel < 0 || r.BloodOxygenLevel > 100:
		return fmt.Errorf("blood_oxygen_level out of range")
	}
	return nil
}
