package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"docqa/internal/config"
	"docqa/internal/models"
)

const (
	defaultChunkSize    = 1000 // characters
	defaultChunkOverlap = 100  // characters
)

// Splitter breaks text into ordered, non-empty pieces.
type Splitter interface {
	Split(text string) ([]string, error)
}

// Window splits text into fixed windows of at most Size runes. Consecutive
// windows share exactly Overlap runes and the last one ends at the end of the
// text, so dropping the first Overlap runes of every window after the first and
// concatenating gives back the input.
type Window struct {
	Size    int
	Overlap int
}

// NewWindow validates size and overlap.
func NewWindow(size, overlap int) (Window, error) {
	if size <= 0 {
		return Window{}, errors.New("chunk size must be greater than zero")
	}
	if overlap < 0 {
		return Window{}, errors.New("chunk overlap cannot be negative")
	}
	if overlap >= size {
		return Window{}, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return Window{Size: size, Overlap: overlap}, nil
}

func (w Window) Split(text string) ([]string, error) {
	if w.Size <= 0 || w.Overlap < 0 || w.Overlap >= w.Size {
		return nil, fmt.Errorf("invalid window %d/%d", w.Size, w.Overlap)
	}
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}

	var chunks []string
	step := w.Size - w.Overlap
	for start := 0; ; start += step {
		end := min(start+w.Size, n)
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			break
		}
	}
	return chunks, nil
}

// Recursive is a separator-aware splitter (paragraphs, lines, words). Its
// chunks are trimmed, so unlike Window it does not reconstruct the input.
type Recursive struct {
	Size    int
	Overlap int
}

func (r Recursive) Split(text string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(r.Size),
		textsplitter.WithChunkOverlap(r.Overlap),
	)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, err
	}
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// New builds the splitter selected by the RAG configuration.
func New(cfg config.RAGConfig) (Splitter, error) {
	size, overlap := cfg.ChunkSize, cfg.ChunkOverlap
	if size == 0 {
		size, overlap = defaultChunkSize, defaultChunkOverlap
	}
	w, err := NewWindow(size, overlap)
	if err != nil {
		return nil, err
	}
	switch cfg.ChunkStrategy {
	case "", config.ChunkStrategyWindow:
		return w, nil
	case config.ChunkStrategyRecursive:
		return Recursive{Size: w.Size, Overlap: w.Overlap}, nil
	default:
		return nil, fmt.Errorf("unknown chunk strategy %q", cfg.ChunkStrategy)
	}
}

// Chunks joins the segments of one document and splits the result. Each
// chunk records its position and the page it starts on.
func Chunks(docName string, segments []models.Segment, s Splitter) ([]models.Chunk, error) {
	var (
		text   strings.Builder
		starts []int // rune offset of each segment
		runes  int
	)
	for i, seg := range segments {
		if i > 0 {
			text.WriteString(models.SegmentSeparator)
			runes += utf8.RuneCountInString(models.SegmentSeparator)
		}
		starts = append(starts, runes)
		text.WriteString(seg.Text)
		runes += utf8.RuneCountInString(seg.Text)
	}

	full := text.String()
	pieces, err := s.Split(full)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", docName, err)
	}

	offsets := startOffsets(full, pieces, s)
	chunks := make([]models.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		if piece == "" {
			continue
		}
		ordinal := len(chunks)
		chunks = append(chunks, models.Chunk{
			ID:           fmt.Sprintf("%s#%d", docName, ordinal),
			DocumentName: docName,
			Ordinal:      ordinal,
			Page:         pageAt(segments, starts, offsets[i]),
			Text:         piece,
		})
	}
	return chunks, nil
}

// startOffsets returns the rune offset at which each piece begins in full.
func startOffsets(full string, pieces []string, s Splitter) []int {
	offsets := make([]int, len(pieces))
	if w, ok := s.(Window); ok {
		for i := range pieces {
			offsets[i] = i * (w.Size - w.Overlap)
		}
		return offsets
	}
	pos := 0
	for i, p := range pieces {
		from := pos
		if i > 0 && from < len(full) {
			from++
		}
		if idx := strings.Index(full[from:], p); idx >= 0 {
			pos = from + idx
		}
		offsets[i] = utf8.RuneCountInString(full[:pos])
	}
	return offsets
}

func pageAt(segments []models.Segment, starts []int, offset int) int {
	page := 0
	for i, start := range starts {
		if start > offset {
			break
		}
		page = segments[i].Page
	}
	return page
}
