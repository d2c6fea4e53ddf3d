package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HeaderAccessReason lets the dashboard state why a record was opened.
const HeaderAccessReason = "X-Access-Reason"

// AuditAccess writes an access log entry for every request touching a
// patient record. The entity id comes from the :id route param.
func AuditAccess(entityType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		action := "read"
		switch c.Request.Method {
		case http.MethodPost:
			action = "create"
		case http.MethodPut, http.MethodPatch:
			action = "update"
		case http.MethodDelete:
			action = "delete"
		}

		event := log.Info().
			Str("audit", "phi_access").
			Str("entity_type", entityType).
			Str("action", action).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Str("request_id", c.GetString(ContextRequestID)).
			Str("client_ip", c.ClientIP())
		if id := c.Param("id"); id != "" {
			event = event.Str("entity_id", id)
		}
		if reason := c.GetHeader(HeaderAccessReason); reason != "" {
			event = event.Str("reason", reason)
		}
		event.Msg("record accessed")
	}
}
