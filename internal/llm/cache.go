package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedClient memoizes deterministic completions. Requests with a
// non-zero temperature always reach the backend.
type CachedClient struct {
	next  Client
	cache *cache.Cache
}

func NewCachedClient(next Client, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedClient) Complete(ctx context.Context, req Request) (string, error) {
	if req.Temperature != 0 {
		return c.next.Complete(ctx, req)
	}
	key := cacheKey(req.System, req.Prompt, fmt.Sprint(req.MaxTokens))
	if v, ok := c.cache.Get(key); ok {
		return v.(string), nil
	}
	out, err := c.next.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	c.cache.SetDefault(key, out)
	return out, nil
}

// CachedEmbedder memoizes embeddings by input text.
type CachedEmbedder struct {
	next  Embedder
	cache *cache.Cache
}

func NewCachedEmbedder(next Embedder, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if v, ok := c.cache.Get(key); ok {
		return v.([]float32), nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		c.cache.SetDefault(key, vec)
	}
	return vec, nil
}

func cacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
