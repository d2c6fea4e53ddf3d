package patient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/middleware"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/service/patient"
)

type mockService struct{ mock.Mock }

func (m *mockService) List(ctx context.Context) ([]*model.PatientView, error) {
	args := m.Called(ctx)
	v, _ := args.Get(0).([]*model.PatientView)
	return v, args.Error(1)
}

func (m *mockService) Get(ctx context.Context, id string) (*model.PatientView, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*model.PatientView)
	return v, args.Error(1)
}

func (m *mockService) Upsert(ctx context.Context, req *model.UpsertPatientRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockService) Wearables(ctx context.Context, id string, days int) (model.WearableSeries, error) {
	args := m.Called(ctx, id, days)
	v, _ := args.Get(0).(model.WearableSeries)
	return v, args.Error(1)
}

func (m *mockService) PatientNotes(ctx context.Context, id string) (*model.NoteList, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*model.NoteList)
	return v, args.Error(1)
}

func (m *mockService) Summary(ctx context.Context, id string) (*model.PatientSummary, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*model.PatientSummary)
	return v, args.Error(1)
}

func setupRouter(svc *mockService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.UseJSONFieldNames()
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"))
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["detail"]
}

func TestGetPatient_NotFound(t *testing.T) {
	svc := new(mockService)
	svc.On("Get", mock.Anything, "42").Return(nil, patient.NotFound("42", nil))

	w := do(setupRouter(svc), http.MethodGet, "/api/patients/42", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Patient 42 not found", detail(t, w))
}

func TestListPatients(t *testing.T) {
	t.Run("nil list renders as empty array", func(t *testing.T) {
		svc := new(mockService)
		svc.On("List", mock.Anything).Return(nil, nil)

		w := do(setupRouter(svc), http.MethodGet, "/api/patients", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("storage errors are hidden", func(t *testing.T) {
		svc := new(mockService)
		svc.On("List", mock.Anything).Return(nil, errors.New("pq: connection reset"))

		w := do(setupRouter(svc), http.MethodGet, "/api/patients", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", detail(t, w))
	})
}

func TestUpsertPatient(t *testing.T) {
	svc := new(mockService)
	svc.On("Upsert", mock.Anything, mock.MatchedBy(func(req *model.UpsertPatientRequest) bool {
		return req.ID == "7" && req.Name == "Ray Ortiz" && req.Age == 68
	})).Return("7", nil)

	w := do(setupRouter(svc), http.MethodPost, "/api/patients", `{"id":"7","name":"Ray Ortiz","age":68}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Patient saved successfully","patient_id":"7"}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestUpsertPatient_MissingFields(t *testing.T) {
	svc := new(mockService)

	w := do(setupRouter(svc), http.MethodPost, "/api/patients", `{"age":30}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields: id, name", detail(t, w))
	svc.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestUpsertPatient_EmptyBody(t *testing.T) {
	w := do(setupRouter(new(mockService)), http.MethodPost, "/api/patients", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetWearables_Days(t *testing.T) {
	tests := []struct {
		name  string
		query string
		days  int
	}{
		{"default", "", patient.DefaultWearableDays},
		{"explicit", "?days=7", 7},
		{"malformed falls back", "?days=week", patient.DefaultWearableDays},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			svc.On("Wearables", mock.Anything, "7", tt.days).Return(model.WearableSeries{}, nil)

			w := do(setupRouter(svc), http.MethodGet, "/api/patients/7/wearables"+tt.query, "")

			assert.Equal(t, http.StatusOK, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestGetPatient_ResponseKeys(t *testing.T) {
	svc := new(mockService)
	svc.On("Get", mock.Anything, "7").Return(&model.PatientView{
		ID:              "7",
		Name:            "Ray Ortiz",
		Age:             68,
		Gender:          "Male",
		Condition:       "COPD",
		Avatar:          "RO",
		LastVisit:       "2024-01-02",
		NextAppointment: "2024-02-01",
		WearableData: model.WearableSeries{
			Timestamps: []string{"2024-01-02T08:00:00Z"},
			HeartRate:  []int{88},
			StepCount:  []int{4200},
		},
		ResearchContent: []string{},
	}, nil)

	w := do(setupRouter(svc), http.MethodGet, "/api/patients/7", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	for _, key := range []string{
		"id", "name", "age", "gender", "condition", "avatar", "last_visit", "next_appointment",
		"wearable_data", "sentiment", "sentiment_rating", "private_notes", "research_topic", "research_content",
	} {
		assert.Contains(t, body, key)
	}
	assert.NotContains(t, body, "nextAppointment")
	assert.Equal(t, "7", body["id"])
	assert.Equal(t, "COPD", body["condition"])
	assert.Equal(t, "2024-02-01", body["next_appointment"])

	wearables, ok := body["wearable_data"].(map[string]any)
	require.True(t, ok, "wearable_data should be an object")
	assert.Contains(t, wearables, "timestamps")
	assert.Equal(t, []any{float64(88)}, wearables["heart_rate"])
	assert.Equal(t, []any{float64(4200)}, wearables["step_count"])
}
