package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"docqa/internal/chromemdb"
	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/embedding"
	"docqa/internal/llmservice"
	"docqa/internal/metrics"
	"docqa/internal/models"
	"docqa/internal/parser"
	"docqa/internal/rag"
)

// Pipeline holds the collaborators shared by every session.
type Pipeline struct {
	Loader     *parser.Loader
	Splitter   chunker.Splitter
	Embedder   embeddings.Embedder
	EmbedModel string
	Retriever  rag.Retriever
	Policy     rag.Policy
	Generator  llmservice.Generator
	Metrics    *metrics.Recorder
}

// NewPipeline wires the collaborators described by cfg.
func NewPipeline(ctx context.Context, cfg *config.Config, rec *metrics.Recorder) (*Pipeline, error) {
	splitter, err := chunker.New(cfg.RAG)
	if err != nil {
		return nil, fmt.Errorf("create chunker: %w", err)
	}
	embedder, err := embedding.New(ctx, &cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}
	generator, err := llmservice.New(ctx, &cfg.InferenceLLM)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Loader:     parser.NewLoader(),
		Splitter:   splitter,
		Embedder:   embedder,
		EmbedModel: cfg.EmbedLLM.Model,
		Retriever:  rag.NewRetriever(cfg.RAG),
		Policy:     rag.NewPolicy(cfg.RAG),
		Generator:  generator,
		Metrics:    rec,
	}, nil
}

func (p *Pipeline) validate() error {
	switch {
	case p == nil:
		return errors.New("pipeline is required")
	case p.Loader == nil:
		return errors.New("pipeline: loader is required")
	case p.Splitter == nil:
		return errors.New("pipeline: splitter is required")
	case p.Embedder == nil:
		return errors.New("pipeline: embedder is required")
	case p.Generator == nil:
		return errors.New("pipeline: generator is required")
	}
	return nil
}

// UploadResult summarizes a successfully indexed document.
type UploadResult struct {
	Document string `json:"document"`
	Chunks   int    `json:"chunks"`
	Pages    int    `json:"pages"`
}

// ingest runs Loader, Chunker and Indexer. It never touches session state.
func (p *Pipeline) ingest(ctx context.Context, doc models.Document) (*chromemdb.Index, UploadResult, error) {
	start := time.Now()
	segments, err := p.Loader.Load(ctx, doc)
	p.Metrics.Stage(metrics.StageExtract, start)
	if err != nil {
		return nil, UploadResult{}, err
	}

	start = time.Now()
	chunks, err := chunker.Chunks(doc.Name, segments, p.Splitter)
	p.Metrics.Stage(metrics.StageChunk, start)
	if err != nil {
		return nil, UploadResult{}, fmt.Errorf("%w: %w", models.ErrIndexBuild, err)
	}

	start = time.Now()
	idx, err := chromemdb.Build(ctx, p.Embedder, p.EmbedModel, chunks)
	p.Metrics.Stage(metrics.StageIndex, start)
	if err != nil {
		return nil, UploadResult{}, err
	}
	return idx, UploadResult{Document: doc.Name, Chunks: idx.Len(), Pages: len(segments)}, nil
}

// answer runs Retriever, Prompt Assembler and Answer Generator.
func (p *Pipeline) answer(ctx context.Context, idx *chromemdb.Index, history []models.Turn, question string) (string, error) {
	start := time.Now()
	retrieved, err := p.Retriever.Retrieve(ctx, idx, question)
	p.Metrics.Stage(metrics.StageRetrieve, start)
	if err != nil {
		return "", err
	}

	prompt := rag.AssemblePrompt(history, retrieved, question, p.Policy)
	log.Debug().Int("retrieved", len(retrieved)).Int("history", len(history)).Int("prompt_chars", len(prompt)).Msg("Assembled prompt")

	start = time.Now()
	answer, err := p.Generator.Generate(ctx, prompt)
	p.Metrics.Stage(metrics.StageGenerate, start)
	if err != nil {
		if !errors.Is(err, models.ErrGeneration) {
			err = fmt.Errorf("%w: %w", models.ErrGeneration, err)
		}
		return "", err
	}
	return answer, nil
}
