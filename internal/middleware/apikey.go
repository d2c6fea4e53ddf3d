package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/pkg/security"
)

const HeaderAPIKey = "x-api-key"

type APIKeyConfig struct {
	Verifier security.KeyVerifier
	// ExemptPaths skip the check entirely.
	ExemptPaths []string
	// MemoTTL bounds how long an accepted key skips the verifier.
	MemoTTL time.Duration
}

// APIKey rejects requests without a valid x-api-key header when a key is
// configured.
func APIKey(config APIKeyConfig) gin.HandlerFunc {
	if config.Verifier == nil || !config.Verifier.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	if config.MemoTTL <= 0 {
		config.MemoTTL = 5 * time.Minute
	}

	exempt := make(map[string]struct{}, len(config.ExemptPaths))
	for _, p := range config.ExemptPaths {
		exempt[p] = struct{}{}
	}
	accepted := cache.New(config.MemoTTL, 2*config.MemoTTL)

	return func(c *gin.Context) {
		if _, ok := exempt[c.Request.URL.Path]; ok || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader(HeaderAPIKey))
		if key == "" {
			// browsers cannot set headers on websocket upgrades
			key = c.Query("api_key")
		}

		digest := fingerprint(key)
		if _, ok := accepted.Get(digest); ok {
			c.Next()
			return
		}

		if err := config.Verifier.Verify(key); err != nil {
			log.Warn().
				Str("request_id", c.GetString(ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Str("client_ip", c.ClientIP()).
				Msg("api key rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Unauthorized"})
			return
		}

		accepted.SetDefault(digest, struct{}{})
		c.Next()
	}
}

func fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
