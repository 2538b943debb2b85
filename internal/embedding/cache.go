package embedding

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/embeddings"
)

// Cached memoizes query embeddings of one embedder. Document embeddings are
// passed through.
type Cached struct {
	impl  embeddings.Embedder
	cache *lru.Cache[string, []float32]
}

func NewCached(impl embeddings.Embedder, size int) (*Cached, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}
	return &Cached{impl: impl, cache: cache}, nil
}

func (c *Cached) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.impl.EmbedDocuments(ctx, texts)
}

func (c *Cached) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return clone(v), nil
	}
	v, err := c.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, clone(v))
	return v, nil
}

func (c *Cached) Len() int {
	return c.cache.Len()
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
