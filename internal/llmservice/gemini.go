package llmservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"docqa/internal/config"
	"docqa/internal/models"
)

const defaultGeminiModel = "gemini-1.5-flash-latest"

// contentGenerator is the part of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates answers with the Google Gen AI SDK.
type Gemini struct {
	models contentGenerator
	model  string
}

func NewGemini(ctx context.Context, cfg *config.LLMConfig) (*Gemini, error) {
	if cfg.Key == "" {
		return nil, errors.New("gemini: API key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.Key,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{models: client.Models, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	log.Debug().Str("model", g.model).Int("prompt_chars", len(prompt)).Msg("Generating answer")
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("%w: gemini %s: %w", models.ErrGeneration, g.model, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: gemini %s: no response", models.ErrGeneration, g.model)
	}
	return answer(resp.Text(), g.model)
}
