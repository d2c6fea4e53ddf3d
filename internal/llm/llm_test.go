package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/pkg/circuitbreaker"
	"github.com/patientiq/dashboard-api/pkg/metrics"
)

type countingClient struct {
	calls int
	reply string
	err   error
}

func (c *countingClient) Complete(ctx context.Context, req Request) (string, error) {
	c.calls++
	return c.reply, c.err
}

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if text == "" {
		return []float32{}, nil
	}
	return []float32{1, 2, 3}, nil
}

func TestExtractJSON(t *testing.T) {
	var out struct {
		Priority string `json:"priority"`
	}

	require.NoError(t, ExtractJSON("Sure! {\"priority\": \"high\"} hope that helps", &out))
	assert.Equal(t, "high", out.Priority)

	out.Priority = ""
	require.NoError(t, ExtractJSON("```json\n{\"priority\": \"low\"}\n```", &out))
	assert.Equal(t, "low", out.Priority)

	assert.ErrorIs(t, ExtractJSON("no object here", &out), ErrNoJSON)
	assert.ErrorIs(t, ExtractJSON("{broken", &out), ErrNoJSON)
}

func TestCachedClient_OnlyDeterministicRequests(t *testing.T) {
	next := &countingClient{reply: "summary"}
	c := NewCachedClient(next, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		out, err := c.Complete(ctx, Request{Prompt: "p", Temperature: 0})
		require.NoError(t, err)
		assert.Equal(t, "summary", out)
	}
	assert.Equal(t, 1, next.calls)

	_, _ = c.Complete(ctx, Request{Prompt: "p", Temperature: 0.2})
	_, _ = c.Complete(ctx, Request{Prompt: "p", Temperature: 0.2})
	assert.Equal(t, 3, next.calls)
}

func TestCachedClient_DoesNotCacheErrors(t *testing.T) {
	next := &countingClient{err: errors.New("boom")}
	c := NewCachedClient(next, time.Minute)

	_, err := c.Complete(context.Background(), Request{Prompt: "p"})
	assert.Error(t, err)
	_, err = c.Complete(context.Background(), Request{Prompt: "p"})
	assert.Error(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedEmbedder(t *testing.T) {
	next := &countingEmbedder{}
	e := NewCachedEmbedder(next, time.Minute)

	v, err := e.Embed(context.Background(), "copd")
	require.NoError(t, err)
	assert.Len(t, v, 3)
	_, _ = e.Embed(context.Background(), "copd")
	assert.Equal(t, 1, next.calls)

	v, err = e.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestGuardedClient_OpensAfterFailures(t *testing.T) {
	next := &countingClient{err: errors.New("upstream 500")}
	m := metrics.NewMetrics("test", "llm", prometheus.NewRegistry())
	g := NewGuardedClient(next, "openai", circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:                "test",
		Timeout:             time.Minute,
		ConsecutiveFailures: 2,
	}), m)

	for i := 0; i < 2; i++ {
		_, err := g.Complete(context.Background(), Request{Prompt: "p"})
		assert.EqualError(t, err, "upstream 500")
	}
	_, err := g.Complete(context.Background(), Request{Prompt: "p"})
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.LLMRequests.WithLabelValues("openai", "complete", "error")))
}

func TestUnconfiguredBackends(t *testing.T) {
	_, err := NewOpenAIClient("", "token", "model")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = NewOpenAIEmbedder("http://x/v1", "", "model", 0)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func embeddingServer(t *testing.T, vec []float32) (*httptest.Server, *int) {
	t.Helper()
	requested := new(int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var body struct {
			Dimensions int `json:"dimensions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*requested = body.Dimensions

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  "embed",
			"data":   []map[string]interface{}{{"object": "embedding", "index": 0, "embedding": vec}},
		}))
	}))
	t.Cleanup(srv.Close)
	return srv, requested
}

func TestOpenAIEmbedder_Dimensions(t *testing.T) {
	t.Run("requested and checked", func(t *testing.T) {
		srv, requested := embeddingServer(t, []float32{0.1, 0.2, 0.3})
		e, err := NewOpenAIEmbedder(srv.URL+"/v1", "token", "embed", 3)
		require.NoError(t, err)

		vec, err := e.Embed(context.Background(), "copd exacerbation")
		require.NoError(t, err)
		assert.Len(t, vec, 3)
		assert.Equal(t, 3, *requested)
	})

	t.Run("mismatch is rejected", func(t *testing.T) {
		srv, _ := embeddingServer(t, []float32{0.1, 0.2})
		e, err := NewOpenAIEmbedder(srv.URL+"/v1", "token", "embed", 2048)
		require.NoError(t, err)

		_, err = e.Embed(context.Background(), "copd exacerbation")
		assert.ErrorIs(t, err, ErrDimensions)
	})

	t.Run("unset leaves the endpoint default", func(t *testing.T) {
		srv, requested := embeddingServer(t, []float32{0.1, 0.2})
		e, err := NewOpenAIEmbedder(srv.URL+"/v1", "token", "embed", 0)
		require.NoError(t, err)

		vec, err := e.Embed(context.Background(), "asthma")
		require.NoError(t, err)
		assert.Len(t, vec, 2)
		assert.Zero(t, *requested)
	})
}
