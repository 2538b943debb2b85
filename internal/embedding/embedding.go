package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docqa/internal/config"
	"docqa/internal/models"
)

// New creates the embedder for the configured provider. The same instance must
// serve both indexing and query embedding for an index.
func New(ctx context.Context, cfg *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Stringer("config", cfg).Msg("Creating embedder")

	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init %s embedding client: %w", cfg.Provider, err)
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	if cfg.CacheSize > 0 {
		return NewCached(embedder, cfg.CacheSize)
	}
	return embedder, nil
}

func newClient(ctx context.Context, cfg *config.LLMConfig) (embeddings.EmbedderClient, error) {
	switch cfg.Provider {
	case "", "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case "googleai":
		return googleai.New(ctx,
			googleai.WithAPIKey(cfg.Key),
			googleai.WithDefaultEmbeddingModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("provider %q is not supported", cfg.Provider)
	}
}

// EmbedChunks embeds every chunk in one batch. Any failure, a missing vector
// or a dimension mismatch fails the whole batch.
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([]models.EmbeddedChunk, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to embed", models.ErrEmbedding)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", models.ErrEmbedding, len(vectors), len(chunks))
	}

	dim := len(vectors[0])
	out := make([]models.EmbeddedChunk, len(chunks))
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, want %d", models.ErrEmbedding, i, len(v), dim)
		}
		out[i] = models.EmbeddedChunk{Chunk: chunks[i], Embedding: v}
	}
	return out, nil
}

// EmbedQuery embeds a question, classifying failures as embedding errors.
func EmbedQuery(ctx context.Context, embedder embeddings.Embedder, text string) ([]float32, error) {
	v, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrEmbedding, err)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", models.ErrEmbedding)
	}
	return v, nil
}
