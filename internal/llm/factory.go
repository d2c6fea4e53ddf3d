package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/config"
	"github.com/patientiq/dashboard-api/pkg/circuitbreaker"
	"github.com/patientiq/dashboard-api/pkg/metrics"
)

// unavailable stands in for a backend that is not configured, so agents
// take their fallback path instead of failing at startup.
type unavailable struct{}

func (unavailable) Complete(context.Context, Request) (string, error) { return "", ErrNotConfigured }
func (unavailable) Embed(context.Context, string) ([]float32, error) { return nil, ErrNotConfigured }

// NewFromConfig builds the completion client and the embedder with their
// breaker, metrics and cache layers.
func NewFromConfig(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (Client, Embedder) {
	var (
		base     Client
		provider = cfg.LLM.Provider
		err      error
	)
	switch provider {
	case "gemini":
		base, err = NewGeminiClient(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.Model)
	default:
		provider = "openai"
		base, err = NewOpenAIClient(cfg.LLM.BaseURL(), cfg.LLM.Token, cfg.LLM.Model)
	}
	if err != nil {
		log.Warn().Err(err).Str("provider", provider).Msg("llm client unavailable, agents will use fallbacks")
		base = unavailable{}
	}

	var client Client = NewGuardedClient(base, provider, circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "llm-" + provider,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
	}), m).WithTimeout(cfg.LLM.Timeout)
	if cfg.LLM.CacheTTL > 0 {
		client = NewCachedClient(client, cfg.LLM.CacheTTL)
	}

	var baseEmbedder Embedder
	baseEmbedder, err = NewOpenAIEmbedder(cfg.Embedding.BaseURL(), cfg.Embedding.Token, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	if err != nil {
		log.Warn().Err(err).Msg("embedding client unavailable, searches will use keyword fallback")
		baseEmbedder = unavailable{}
	}
	var embedder Embedder = NewGuardedEmbedder(baseEmbedder, "embedding", circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "embedding",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
	}), m)
	embedder = NewCachedEmbedder(embedder, time.Hour)

	return client, embedder
}
