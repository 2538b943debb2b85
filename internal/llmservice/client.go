package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"docqa/internal/config"
	"docqa/internal/models"
)

// Generator answers a fully assembled prompt with one blocking call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New builds the generator for the configured inference provider.
func New(ctx context.Context, cfg *config.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case "", "gemini":
		return NewGemini(ctx, cfg)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		return NewLangChain(llm, cfg.Model), nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("init ollama client: %w", err)
		}
		return NewLangChain(llm, cfg.Model), nil
	default:
		return nil, fmt.Errorf("inference provider %q is not supported", cfg.Provider)
	}
}

// answer normalizes a model reply; an empty reply is a generation failure.
func answer(text, model string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s returned an empty answer", models.ErrGeneration, model)
	}
	return text, nil
}
