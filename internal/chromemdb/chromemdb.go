package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"docqa/internal/embedding"
	"docqa/internal/models"
)

const (
	collectionName = "document"

	metaOrdinal  = "ordinal"
	metaPage     = "page"
	metaDocument = "document"
)

// Index is an immutable in-memory similarity index over the chunks of one
// document, bound to the embedder that produced its vectors.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	model      string
	document   string
	dimension  int
	chunks     []models.Chunk
	builtAt    time.Time
}

// Build embeds chunks and loads them into a fresh chromem database. Nothing is
// shared with any earlier Index, so a failed build leaves the caller's current
// index untouched.
func Build(ctx context.Context, embedder embeddings.Embedder, model string, chunks []models.Chunk) (*Index, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	start := time.Now()
	embedded, err := embedding.EmbedChunks(ctx, embedder, chunks)
	if err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	// Vectors are supplied up front; the function only serves chromem's own
	// text queries, which go through the same embedder.
	embedFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
	c, err := db.CreateCollection(collectionName, map[string]string{"model": model}, embedFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: create collection: %w", models.ErrIndexBuild, err)
	}

	docs := make([]chromem.Document, len(embedded))
	for i, ec := range embedded {
		docs[i] = chromem.Document{
			ID:      ec.ID,
			Content: ec.Text,
			Metadata: map[string]string{
				metaOrdinal:  strconv.Itoa(ec.Ordinal),
				metaPage:     strconv.Itoa(ec.Page),
				metaDocument: ec.DocumentName,
			},
			Embedding: ec.Embedding,
		}
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, fmt.Errorf("%w: add documents: %w", models.ErrIndexBuild, err)
	}

	idx := &Index{
		db:         db,
		collection: c,
		embedder:   embedder,
		model:      model,
		dimension:  len(embedded[0].Embedding),
		chunks:     append([]models.Chunk(nil), chunks...),
		builtAt:    time.Now(),
	}
	if len(chunks) > 0 {
		idx.document = chunks[0].DocumentName
	}
	log.Debug().
		Str("document", idx.document).
		Int("chunks", c.Count()).
		Int("dimension", idx.dimension).
		Dur("duration", time.Since(start)).
		Msg("Built similarity index")
	return idx, nil
}

// Query returns up to k chunks ordered by descending cosine similarity to the
// question, i.e. by ascending vector distance.
func (idx *Index) Query(ctx context.Context, question string, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than zero, got %d", k)
	}
	vector, err := embedding.EmbedQuery(ctx, idx.embedder, question)
	if err != nil {
		return nil, err
	}
	if len(vector) != idx.dimension {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d",
			models.ErrEmbedding, len(vector), idx.dimension)
	}

	n := min(k, idx.collection.Count())
	results, err := idx.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       n,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.RetrievedChunk, 0, len(results))
	for _, r := range results {
		chunk, ok := idx.chunk(r)
		if !ok {
			continue
		}
		out = append(out, models.RetrievedChunk{Chunk: chunk, Similarity: r.Similarity})
	}
	return out, nil
}

func (idx *Index) chunk(r chromem.Result) (models.Chunk, bool) {
	ordinal, err := strconv.Atoi(r.Metadata[metaOrdinal])
	if err != nil || ordinal < 0 || ordinal >= len(idx.chunks) {
		log.Warn().Str("id", r.ID).Msg("Similarity result without a known chunk")
		return models.Chunk{}, false
	}
	return idx.chunks[ordinal], true
}

// Len is the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.chunks) }

func (idx *Index) Model() string { return idx.model }

func (idx *Index) Dimension() int { return idx.dimension }

func (idx *Index) DocumentName() string { return idx.document }

func (idx *Index) BuiltAt() time.Time { return idx.builtAt }
