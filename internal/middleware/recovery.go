package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Recovery turns a panic into a 500 carrying the request id.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				rid := c.GetString(ContextRequestID)
				log.Error().
					Interface("error", err).
					Str("stack", string(debug.Stack())).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("client_ip", c.ClientIP()).
					Str("request_id", rid).
					Msg("request panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{
					Detail:    "Internal server error",
					RequestID: rid,
				})
			}
		}()
		c.Next()
	}
}

// errorBody is the {"detail": ...} envelope with the request id attached.
type errorBody struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}
