package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/pkg/httputil"
	"github.com/patientiq/dashboard-api/pkg/messaging"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	sendBuffer   = 32
	maxReadBytes = 4096
)

// Subscriber is the part of messaging.MessageBroker the stream needs.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler func([]byte) error) error
}

type Handler struct {
	broker   Subscriber
	upgrader websocket.Upgrader
}

// NewHandler relays the alert channel to websocket clients. Origins are
// checked against the same list CORS uses.
func NewHandler(broker Subscriber, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}

	return &Handler{
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAll {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/alerts/stream", h.Stream)
}

// Stream upgrades the connection and forwards every alert event, optionally
// only those for ?patient_id=.
func (h *Handler) Stream(c *gin.Context) {
	if h.broker == nil {
		httputil.RespondWithDetail(c, http.StatusServiceUnavailable, "Alert stream is not configured")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	patientID := c.Query("patient_id")
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	send := make(chan []byte, sendBuffer)
	err = h.broker.Subscribe(ctx, messaging.AlertChannel, func(payload []byte) error {
		if patientID != "" && !forPatient(payload, patientID) {
			return nil
		}
		select {
		case send <- payload:
		default:
			log.Warn().Str("patient_id", patientID).Msg("alert stream client is slow, dropping event")
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("alert stream subscribe failed")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(writeWait))
		return
	}

	log.Info().Str("patient_id", patientID).Str("client_ip", c.ClientIP()).Msg("alert stream opened")
	defer log.Info().Str("patient_id", patientID).Msg("alert stream closed")

	// reader: only control frames are expected; a read error means the client left
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxReadBytes)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("alert stream read error")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case payload := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func forPatient(payload []byte, patientID string) bool {
	var event model.AlertEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return false
	}
	return event.PatientID == patientID
}
