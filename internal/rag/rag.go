package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"docqa/internal/chromemdb"
	"docqa/internal/config"
	"docqa/internal/models"
)

const defaultTopK = 4

type Retriever struct {
	TopK int
}

func NewRetriever(cfg config.RAGConfig) Retriever {
	k := cfg.TopK
	if k <= 0 {
		k = defaultTopK
	}
	return Retriever{TopK: k}
}

// Retrieve returns the TopK chunks of idx closest to question.
func (r Retriever) Retrieve(ctx context.Context, idx *chromemdb.Index, question string) ([]models.RetrievedChunk, error) {
	if idx == nil {
		return nil, models.ErrNoIndexAvailable
	}
	k := r.TopK
	if k <= 0 {
		k = defaultTopK
	}
	chunks, err := idx.Query(ctx, question, k)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("k", k).Int("retrieved", len(chunks)).Msg("Retrieved context")
	return chunks, nil
}

// Policy bounds how much history is rendered into a prompt. Zero values mean
// no limit.
type Policy struct {
	MaxTurns  int
	MaxTokens int
}

func NewPolicy(cfg config.RAGConfig) Policy {
	return Policy{MaxTurns: cfg.MaxHistoryTurns, MaxTokens: cfg.MaxHistoryTokens}
}

// AssemblePrompt renders history, retrieved context and the new question:
//
//	Q: <q1>
//	A: <a1>
//	Context:
//	<chunk>
//
//	<chunk>
//
//	Q: <question>
//	A:
func AssemblePrompt(history []models.Turn, retrieved []models.RetrievedChunk, question string, p Policy) string {
	var b strings.Builder
	for _, t := range p.window(history) {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", t.Question, t.Answer)
	}

	b.WriteString(models.ContextHeader)
	b.WriteString("\n")
	for i, c := range retrieved {
		if i > 0 {
			b.WriteString(models.ContextSeparator)
		}
		b.WriteString(c.Text)
	}
	fmt.Fprintf(&b, "\n\nQ: %s\nA:", question)
	return b.String()
}

// window keeps the most recent turns allowed by the policy, in order.
func (p Policy) window(history []models.Turn) []models.Turn {
	kept := history
	if p.MaxTurns > 0 && len(kept) > p.MaxTurns {
		kept = kept[len(kept)-p.MaxTurns:]
	}
	if p.MaxTokens <= 0 {
		return kept
	}
	budget := p.MaxTokens
	first := len(kept)
	for i := len(kept) - 1; i >= 0; i-- {
		cost := EstimateTokens(kept[i].Question) + EstimateTokens(kept[i].Answer)
		if cost > budget {
			break
		}
		budget -= cost
		first = i
	}
	return kept[first:]
}

// EstimateTokens approximates a token count as one token per four runes.
func EstimateTokens(text string) int {
	count := len([]rune(text))
	if count == 0 {
		return 0
	}
	tokens := count / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}
