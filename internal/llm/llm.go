// Package llm wraps the chat-completion and embedding backends the agents
// call. Every backend is reached through the Client and Embedder interfaces
// so services can be tested with fakes.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrNotConfigured = errors.New("llm backend is not configured")
	ErrEmptyResponse = errors.New("llm returned no content")
	ErrNoJSON        = errors.New("no json object in llm reply")
	ErrDimensions    = errors.New("embedding has unexpected dimensions")
)

// Request is a single-turn completion.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Embedder interface {
	// Embed returns an empty vector for blank text without calling the backend.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ExtractJSON decodes the first JSON object found in a model reply into v.
// Markdown code fences around the object are tolerated.
func ExtractJSON(reply string, v interface{}) error {
	s := strings.TrimSpace(reply)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		s = strings.TrimSpace(rest)
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return ErrNoJSON
	}
	dec := json.NewDecoder(strings.NewReader(s[start:]))
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrNoJSON, err)
	}
	return nil
}
