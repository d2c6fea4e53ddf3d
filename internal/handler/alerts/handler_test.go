package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/messaging"
)

type fakeBroker struct {
	topics     chan string
	subscribed chan func([]byte) error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		topics:     make(chan string, 1),
		subscribed: make(chan func([]byte) error, 1),
	}
}

func (f *fakeBroker) Subscribe(_ context.Context, topic string, handler func([]byte) error) error {
	f.topics <- topic
	f.subscribed <- handler
	return nil
}

func newServer(t *testing.T, broker Subscriber, origins []string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(broker, origins).RegisterRoutes(r.Group("/api"))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func event(t *testing.T, patientID, msg string) []byte {
	t.Helper()
	b, err := json.Marshal(model.AlertEvent{
		Type:      model.EventWearableAlert,
		AlertID:   "a-" + patientID,
		PatientID: patientID,
		Priority:  model.PriorityCritical,
		Metric:    "heart_rate",
		Message:   msg,
	})
	require.NoError(t, err)
	return b
}

func TestStream_FiltersByPatient(t *testing.T) {
	broker := newFakeBroker()
	srv := newServer(t, broker, []string{"http://localhost:5173"})

	header := http.Header{"Origin": []string{"http://localhost:5173"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/alerts/stream?patient_id=7"), header)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, messaging.AlertChannel, <-broker.topics)
	var publish func([]byte) error
	select {
	case publish = <-broker.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream never subscribed")
	}

	require.NoError(t, publish(event(t, "8", "other patient")))
	require.NoError(t, publish([]byte("not json")))
	require.NoError(t, publish(event(t, "7", "HR 150 at rest")))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got model.AlertEvent
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "7", got.PatientID)
	assert.Equal(t, "HR 150 at rest", got.Message)
}

func TestStream_RejectsUnknownOrigin(t *testing.T) {
	srv := newServer(t, newFakeBroker(), []string{"http://localhost:5173"})

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/api/alerts/stream"), header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStream_Unconfigured(t *testing.T) {
	srv := newServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/api/alerts/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
