package llm

import (
	"context"
	"time"

	"github.com/patientiq/dashboard-api/pkg/circuitbreaker"
	"github.com/patientiq/dashboard-api/pkg/metrics"
)

// GuardedClient runs completions through a circuit breaker and records
// call metrics.
type GuardedClient struct {
	next     Client
	provider string
	breaker  *circuitbreaker.CircuitBreaker
	metrics  *metrics.Metrics
	timeout  time.Duration
}

func NewGuardedClient(next Client, provider string, breaker *circuitbreaker.CircuitBreaker, m *metrics.Metrics) *GuardedClient {
	return &GuardedClient{next: next, provider: provider, breaker: breaker, metrics: m}
}

// WithTimeout bounds every completion to d.
func (g *GuardedClient) WithTimeout(d time.Duration) *GuardedClient {
	g.timeout = d
	return g
}

func (g *GuardedClient) Complete(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	var out string
	start := time.Now()
	err := g.breaker.Execute(func() error {
		var err error
		out, err = g.next.Complete(ctx, req)
		return err
	})
	observe(g.metrics, g.provider, "complete", start, err)
	return out, err
}

// GuardedEmbedder is the Embedder counterpart of GuardedClient.
type GuardedEmbedder struct {
	next     Embedder
	provider string
	breaker  *circuitbreaker.CircuitBreaker
	metrics  *metrics.Metrics
}

func NewGuardedEmbedder(next Embedder, provider string, breaker *circuitbreaker.CircuitBreaker, m *metrics.Metrics) *GuardedEmbedder {
	return &GuardedEmbedder{next: next, provider: provider, breaker: breaker, metrics: m}
}

func (g *GuardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	start := time.Now()
	err := g.breaker.Execute(func() error {
		var err error
		out, err = g.next.Embed(ctx, text)
		return err
	})
	observe(g.metrics, g.provider, "embed", start, err)
	return out, err
}

func observe(m *metrics.Metrics, provider, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.LLMRequests.WithLabelValues(provider, op, status).Inc()
	m.LLMLatency.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
}
