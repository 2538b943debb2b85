package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/tmc/langchaingo/embeddings"
)

// ErrFake is returned by fakes switched into failure mode.
var ErrFake = errors.New("fake failure")

// EmbedderClient is a deterministic embeddings.EmbedderClient: each text maps
// to its letter histogram plus a constant component so no vector is zero.
type EmbedderClient struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

// Embedder wraps c in langchaingo's batching embedder.
func (c *EmbedderClient) Embedder(t testing.TB) embeddings.Embedder {
	t.Helper()
	emb, err := embeddings.NewEmbedder(c)
	if err != nil {
		t.Fatalf("new embedder: %v", err)
	}
	return emb
}

// SetFail toggles failure mode.
func (c *EmbedderClient) SetFail(fail bool) {
	c.mu.Lock()
	c.fail = fail
	c.mu.Unlock()
}

// Calls reports how many CreateEmbedding requests were made.
func (c *EmbedderClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *EmbedderClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.fail {
		return nil, ErrFake
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = Vector(text)
	}
	return out, nil
}

// Vector is the embedding EmbedderClient produces for text.
func Vector(text string) []float32 {
	v := make([]float32, 27)
	v[26] = 1
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

// Generator is a scripted answer generator that records its prompts.
type Generator struct {
	mu      sync.Mutex
	Answer  string
	Err     error
	Prompts []string
}

func (g *Generator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	return g.Answer, nil
}

// LastPrompt returns the most recent prompt or "".
func (g *Generator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Prompts) == 0 {
		return ""
	}
	return g.Prompts[len(g.Prompts)-1]
}
