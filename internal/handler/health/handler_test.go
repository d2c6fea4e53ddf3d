package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func setupRouter(deps map[string]Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(deps).RegisterRoutes(r)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveness(t *testing.T) {
	w := get(setupRouter(nil), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"service":"Healthcare API"}`, w.Body.String())
}

func TestReadiness(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	t.Run("all up", func(t *testing.T) {
		w := get(setupRouter(map[string]Pinger{"database": up, "redis": up}), "/health/ready")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"service":"Healthcare API"}`, w.Body.String())
	})

	t.Run("reports failed dependency", func(t *testing.T) {
		w := get(setupRouter(map[string]Pinger{"database": up, "redis": down}), "/health/ready")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"ok":false,"service":"Healthcare API","down":{"redis":"connection refused"}}`, w.Body.String())
	})

	t.Run("pings carry a deadline", func(t *testing.T) {
		var hasDeadline bool
		check := pingFunc(func(ctx context.Context) error {
			_, hasDeadline = ctx.Deadline()
			return nil
		})
		get(setupRouter(map[string]Pinger{"database": check}), "/health/ready")
		assert.True(t, hasDeadline)
	})
}
