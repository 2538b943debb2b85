package llmservice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"docqa/internal/models"
)

// LangChain generates answers through any langchaingo chat model
// (OpenAI-compatible endpoints, Ollama).
type LangChain struct {
	llm   llms.Model
	model string
}

func NewLangChain(llm llms.Model, model string) *LangChain {
	return &LangChain{llm: llm, model: model}
}

func (l *LangChain) Generate(ctx context.Context, prompt string) (string, error) {
	log.Debug().Str("model", l.model).Int("prompt_chars", len(prompt)).Msg("Generating answer")
	msgContent := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}
	res, err := l.llm.GenerateContent(ctx, msgContent)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", models.ErrGeneration, l.model, err)
	}
	if res == nil || len(res.Choices) == 0 || res.Choices[0] == nil {
		return "", fmt.Errorf("%w: %s returned no choices", models.ErrGeneration, l.model)
	}
	return answer(res.Choices[0].Content, l.model)
}
