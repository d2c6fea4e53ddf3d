package appointment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/patientiq/dashboard-api/internal/model"
	apperrors "github.com/patientiq/dashboard-api/pkg/errors"
)

type mockService struct{ mock.Mock }

func (m *mockService) ByDoctor(ctx context.Context, doctorID, startDate, endDate string) (*model.AppointmentList, error) {
	args := m.Called(ctx, doctorID, startDate, endDate)
	v, _ := args.Get(0).(*model.AppointmentList)
	return v, args.Error(1)
}

func (m *mockService) ByPatient(ctx context.Context, patientID string) (*model.AppointmentList, error) {
	args := m.Called(ctx, patientID)
	v, _ := args.Get(0).(*model.AppointmentList)
	return v, args.Error(1)
}

func (m *mockService) UpdateStatus(ctx context.Context, id string, status model.AppointmentStatus) (*model.AppointmentStatusUpdated, error) {
	args := m.Called(ctx, id, status)
	v, _ := args.Get(0).(*model.AppointmentStatusUpdated)
	return v, args.Error(1)
}

func setupRouter(svc *mockService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"))
	return r
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"from query", "/api/appointments/apt_1/status?status=completed", ""},
		{"from body", "/api/appointments/apt_1/status", `{"status":" completed "}`},
		{"query wins over body", "/api/appointments/apt_1/status?status=completed", `{"status":"cancelled"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			svc.On("UpdateStatus", mock.Anything, "apt_1", model.AppointmentStatus("completed")).
				Return(&model.AppointmentStatusUpdated{Message: "Appointment status updated", AppointmentID: "apt_1", Status: "completed"}, nil)

			w := serve(setupRouter(svc), http.MethodPost, tt.path, tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"status":"completed"`)
			svc.AssertExpectations(t)
		})
	}
}

func TestUpdateStatus_Rejected(t *testing.T) {
	svc := new(mockService)
	svc.On("UpdateStatus", mock.Anything, "apt_1", model.AppointmentStatus("")).
		Return(nil, apperrors.NewBadRequest("Invalid status", nil))

	w := serve(setupRouter(svc), http.MethodPost, "/api/appointments/apt_1/status", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Invalid status"}`, w.Body.String())
}

func TestListForDoctor_PassesRange(t *testing.T) {
	svc := new(mockService)
	svc.On("ByDoctor", mock.Anything, "3", "2025-03-01", "2025-03-31").
		Return(&model.AppointmentList{DoctorID: "3", Appointments: []*model.Appointment{}}, nil)

	w := serve(setupRouter(svc), http.MethodGet, "/api/appointments/doctor/3?start_date=2025-03-01&end_date=2025-03-31", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"doctor_id":"3","appointments":[],"count":0}`, w.Body.String())
}
