package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/patientiq/dashboard-api/internal/middleware"
)

type saveNote struct {
	PatientID  string `json:"patient_id" binding:"required"`
	VisitNotes string `json:"visit_notes" binding:"required"`
	MaxNotes   int    `json:"max_notes" binding:"omitempty,min=1"`
}

func bindRouter(allowEmpty bool, maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.UseJSONFieldNames()
	r := gin.New()
	if maxBytes > 0 {
		r.Use(middleware.SizeLimit(maxBytes))
	}
	r.POST("/bind", func(c *gin.Context) {
		var req saveNote
		if !BindJSON(c, &req, allowEmpty) {
			return
		}
		c.JSON(http.StatusOK, req)
	})
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBindJSON(t *testing.T) {
	tests := []struct {
		name       string
		allowEmpty bool
		body       string
		status     int
		detail     string
	}{
		{"valid", false, `{"patient_id":"7","visit_notes":"stable"}`, http.StatusOK, ""},
		{"missing fields in declaration order", false, `{}`, http.StatusBadRequest, "Missing required fields: patient_id, visit_notes"},
		{"malformed json", false, `{"patient_id":`, http.StatusBadRequest, "Invalid request body: unexpected EOF"},
		{"rule other than required", false, `{"patient_id":"7","visit_notes":"x","max_notes":-1}`, http.StatusBadRequest, "Invalid request body: saveNote.max_notes must satisfy min=1"},
		{"empty body rejected", false, ``, http.StatusBadRequest, "Invalid request body: EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(bindRouter(tt.allowEmpty, 0), tt.body)
			assert.Equal(t, tt.status, w.Code)
			if tt.detail != "" {
				assert.JSONEq(t, `{"detail":"`+tt.detail+`"}`, w.Body.String())
			}
		})
	}
}

func TestBindJSON_TooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(`{"patient_id":"7","visit_notes":"a long note body"}`))
	req.Header.Set("Content-Type", "application/json")
	// unknown length, so the cap is hit while decoding
	req.ContentLength = -1
	w := httptest.NewRecorder()
	bindRouter(false, 16).ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"detail":"Request body too large"}`, w.Body.String())
}

func TestIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := map[string]int{
		"/q?days=7":     7,
		"/q?days=%2012": 12,
		"/q?days=":      30,
		"/q?days=abc":   30,
		"/q":            30,
	}
	for target, want := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, target, nil)
		assert.Equal(t, want, IntQuery(c, "days", 30), target)
	}
}
