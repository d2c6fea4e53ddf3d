package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/patientiq/dashboard-api/internal/model"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

const fileName = "pre_visit_questionnaire.json"

var ErrInvalidFormat = errors.New("questionnaire is not a JSON object")

// Source loads a patient's pre-visit questionnaire.
type Source interface {
	Load(ctx context.Context, patientID string) (model.Questionnaire, error)
}

// FileStore reads questionnaires from {dir}/patient_{id}/pre_visit_questionnaire.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(patientID string) string {
	return filepath.Join(s.dir, "patient_"+filepath.Base(patientID), fileName)
}

// Load returns the questionnaire document. A file holding a list yields its
// first element.
func (s *FileStore) Load(ctx context.Context, patientID string) (model.Questionnaire, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path(patientID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFound("Pre-visit questionnaire not found", err)
		}
		return nil, fmt.Errorf("failed to read questionnaire: %w", err)
	}

	q, err := decode(raw)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFound("Pre-visit questionnaire not found", nil)
		}
		return nil, apperrors.NewInternal("Invalid questionnaire format", err)
	}
	return q, nil
}

// Status reports whether a questionnaire exists and carries a completion date.
// Unreadable files count as existing but not completed.
func (s *FileStore) Status(patientID string) model.QuestionnaireStatus {
	status := model.QuestionnaireStatus{PatientID: patientID}
	raw, err := os.ReadFile(s.path(patientID))
	if err != nil {
		return status
	}
	status.Exists = true

	q, err := decode(raw)
	if err != nil {
		return status
	}
	if date := q.Text("date_completed"); date != "" {
		status.DateCompleted = &date
		status.Completed = true
	}
	return status
}

// decode accepts an object or a non-empty list whose first element is an
// object. An empty list is reported as fs.ErrNotExist.
func decode(raw []byte) (model.Questionnaire, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	if list, ok := v.([]interface{}); ok {
		if len(list) == 0 {
			return nil, fs.ErrNotExist
		}
		v = list[0]
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, ErrInvalidFormat
	}
	return model.Questionnaire(obj), nil
}
