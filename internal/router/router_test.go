package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/handler/health"
	"github.com/patientiq/dashboard-api/internal/handler/prometheus"
	"github.com/patientiq/dashboard-api/internal/middleware"
	"github.com/patientiq/dashboard-api/pkg/security"
)

type routes func(r *gin.RouterGroup)

func (f routes) RegisterRoutes(r *gin.RouterGroup) { f(r) }

const apiKey = "s3cret"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	patients := routes(func(r *gin.RouterGroup) {
		r.GET("/patients/:id", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"patient_id": c.Param("id")})
		})
	})
	messages := routes(func(r *gin.RouterGroup) {
		r.POST("/messages/route", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"routed": true})
		})
	})

	r := NewRouter(Handlers{
		Health:        health.NewHandler(nil),
		Metrics:       prometheus.New("routertest"),
		PatientScoped: []Handler{patients},
		API:           []Handler{messages},
	}, RouterConfig{
		AllowedOrigins: []string{"http://localhost:5173"},
		APIKey:         security.NewKeyVerifier(apiKey),
		MaxBodyBytes:   1 << 10,
	})
	r.Setup()
	return r.Engine()
}

func request(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthIsExempt(t *testing.T) {
	r := newTestRouter(t)

	w := request(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"service":"Healthcare API"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
}

func TestRouter_APIKeyRequired(t *testing.T) {
	r := newTestRouter(t)

	w := request(r, http.MethodGet, "/api/patients/7", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"detail":"Unauthorized"}`, w.Body.String())

	w = request(r, http.MethodGet, "/api/patients/7", map[string]string{middleware.HeaderAPIKey: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(r, http.MethodGet, "/api/patients/7", map[string]string{middleware.HeaderAPIKey: apiKey})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"patient_id":"7"}`, w.Body.String())
}

func TestRouter_GroupsShareAPIPrefix(t *testing.T) {
	r := newTestRouter(t)

	w := request(r, http.MethodPost, "/api/messages/route", map[string]string{middleware.HeaderAPIKey: apiKey})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRouter_MetricsExposeRequests(t *testing.T) {
	r := newTestRouter(t)
	request(r, http.MethodGet, "/api/patients/7", map[string]string{middleware.HeaderAPIKey: apiKey})

	w := request(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `routertest_http_requests_total{method="GET",path="/api/patients/:id",status="200"} 1`)
}

func TestRouter_PreflightSkipsKey(t *testing.T) {
	r := newTestRouter(t)

	w := request(r, http.MethodOptions, "/api/patients/7", map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": http.MethodGet,
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
