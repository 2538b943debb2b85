package session

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/models"
	"docqa/internal/parser"
	"docqa/internal/rag"
	"docqa/internal/testutil"
)

type fixture struct {
	client    *testutil.EmbedderClient
	generator *testutil.Generator
	pipeline  *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	splitter, err := chunker.NewWindow(1000, 100)
	require.NoError(t, err)
	f := &fixture{
		client:    &testutil.EmbedderClient{},
		generator: &testutil.Generator{Answer: "It is a test document."},
	}
	f.pipeline = &Pipeline{
		Loader:     parser.NewLoader(),
		Splitter:   splitter,
		Embedder:   f.client.Embedder(t),
		EmbedModel: "fake-27",
		Retriever:  rag.NewRetriever(config.RAGConfig{}),
		Policy:     rag.Policy{},
		Generator:  f.generator,
	}
	return f
}

func (f *fixture) session(t *testing.T) *Session {
	t.Helper()
	s, err := New("test-session", f.pipeline)
	require.NoError(t, err)
	return s
}

func threePagePDF(t *testing.T) models.Document {
	return models.Document{
		Name:     "report.pdf",
		MIMEType: models.MIMEPDF,
		Data: testutil.PDF(t,
			testutil.Lines("alpha", 10, 80),
			testutil.Lines("bravo", 10, 80),
			testutil.Lines("charlie", 10, 80),
		),
	}
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t)
	assert.Equal(t, StateEmpty, s.State())

	res, err := s.Upload(ctx, threePagePDF(t))
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", res.Document)
	assert.Equal(t, 3, res.Chunks)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, StateReady, s.State())

	turn, err := s.Ask(ctx, "What is this about?")
	require.NoError(t, err)
	assert.Equal(t, "What is this about?", turn.Question)
	assert.NotEmpty(t, turn.Answer)
	assert.False(t, turn.AskedAt.IsZero())

	prompt := f.generator.LastPrompt()
	assert.Contains(t, prompt, "Context:")
	assert.Contains(t, prompt, "What is this about?")
	assert.True(t, strings.HasSuffix(prompt, "Q: What is this about?\nA:"))
	assert.Contains(t, prompt, "alpha")

	assert.Len(t, s.History(), 1)
	assert.Equal(t, StateReady, s.State())
}

func TestAskBeforeUpload(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)

	_, err := s.Ask(context.Background(), "anything?")
	assert.ErrorIs(t, err, models.ErrNoIndexAvailable)
	assert.Empty(t, s.History())
	assert.Empty(t, f.generator.Prompts)
}

func TestAskEmptyQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t)
	_, err := s.Upload(ctx, threePagePDF(t))
	require.NoError(t, err)

	for _, q := range []string{"", "   \n\t"} {
		_, err := s.Ask(ctx, q)
		assert.ErrorIs(t, err, models.ErrEmptyQuestion)
	}
	assert.Empty(t, s.History())
}

func TestFailedGenerationKeepsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t)
	_, err := s.Upload(ctx, threePagePDF(t))
	require.NoError(t, err)

	_, err = s.Ask(ctx, "first?")
	require.NoError(t, err)
	require.Len(t, s.History(), 1)

	f.generator.Err = testutil.ErrFake
	_, err = s.Ask(ctx, "second?")
	assert.ErrorIs(t, err, models.ErrGeneration)
	assert.ErrorIs(t, err, testutil.ErrFake)
	assert.Len(t, s.History(), 1)
	assert.Equal(t, StateReady, s.State())

	f.generator.Err = nil
	_, err = s.Ask(ctx, "third?")
	require.NoError(t, err)
	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "third?", history[1].Question)
	assert.Contains(t, f.generator.LastPrompt(), "Q: first?\nA: It is a test document.\n")
	assert.NotContains(t, f.generator.LastPrompt(), "second?")
}

func TestFailedUploadKeepsIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t)

	_, err := s.Upload(ctx, models.Document{
		Name: "first.docx", MIMEType: models.MIMEDOCX,
		Data: testutil.DOCX(t, "The quarterly report covers revenue."),
	})
	require.NoError(t, err)

	f.client.SetFail(true)
	_, err = s.Upload(ctx, models.Document{
		Name: "second.docx", MIMEType: models.MIMEDOCX,
		Data: testutil.DOCX(t, "Entirely different content."),
	})
	assert.ErrorIs(t, err, models.ErrEmbedding)
	f.client.SetFail(false)

	_, err = s.Upload(ctx, models.Document{Name: "notes.txt", MIMEType: "text/plain", Data: []byte("plain")})
	assert.ErrorIs(t, err, models.ErrUnsupportedFormat)

	_, err = s.Upload(ctx, models.Document{Name: "broken.pdf", MIMEType: models.MIMEPDF, Data: []byte("not a pdf")})
	assert.ErrorIs(t, err, models.ErrExtraction)

	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, "first.docx", s.Info().Document.Document)

	_, err = s.Ask(ctx, "What does the report cover?")
	require.NoError(t, err)
	assert.Contains(t, f.generator.LastPrompt(), "The quarterly report covers revenue.")
}

func TestUploadReplacesIndex(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t)

	_, err := s.Upload(ctx, models.Document{Name: "a.pptx", MIMEType: models.MIMEPPTX, Data: testutil.PPTX(t, "Old slide content")})
	require.NoError(t, err)
	_, err = s.Ask(ctx, "old?")
	require.NoError(t, err)

	_, err = s.Upload(ctx, models.Document{Name: "b.pptx", MIMEType: models.MIMEPPTX, Data: testutil.PPTX(t, "New slide content")})
	require.NoError(t, err)
	_, err = s.Ask(ctx, "new?")
	require.NoError(t, err)

	prompt := f.generator.LastPrompt()
	assert.Contains(t, prompt, "New slide content")
	assert.NotContains(t, prompt, "Old slide content")
	assert.Len(t, s.History(), 2, "history survives a new upload")
}

func TestHistoryIsACopy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t)
	_, err := s.Upload(ctx, threePagePDF(t))
	require.NoError(t, err)
	_, err = s.Ask(ctx, "q?")
	require.NoError(t, err)

	h := s.History()
	h[0].Answer = "tampered"
	assert.Equal(t, "It is a test document.", s.History()[0].Answer)
}

func TestInfo(t *testing.T) {
	f := newFixture(t)
	s := f.session(t)

	info := s.Info()
	assert.Equal(t, "test-session", info.ID)
	assert.Equal(t, StateEmpty, info.State)
	assert.Nil(t, info.Document)

	_, err := s.Upload(context.Background(), threePagePDF(t))
	require.NoError(t, err)
	info = s.Info()
	assert.Equal(t, StateReady, info.State)
	require.NotNil(t, info.Document)
	assert.Equal(t, 3, info.Document.Chunks)

	text, err := info.State.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ready", string(text))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New("x", nil)
	assert.Error(t, err)

	f := newFixture(t)
	p := *f.pipeline
	p.Generator = nil
	_, err = New("x", &p)
	assert.Error(t, err)
}

func TestNewPipeline(t *testing.T) {
	cfg := config.Default()
	cfg.InferenceLLM = config.LLMConfig{Provider: "ollama", Model: "llama3"}
	cfg.RAG.ChunkStrategy = config.ChunkStrategyRecursive

	p, err := NewPipeline(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", p.EmbedModel)
	assert.Equal(t, 4, p.Retriever.TopK)
	assert.Equal(t, 10, p.Policy.MaxTurns)
	assert.IsType(t, chunker.Recursive{}, p.Splitter)
	assert.NoError(t, p.validate())

	cfg.RAG.ChunkOverlap = cfg.RAG.ChunkSize
	_, err = NewPipeline(context.Background(), cfg, nil)
	assert.Error(t, err)
}
