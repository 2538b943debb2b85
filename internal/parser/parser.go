package parser

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"

	"docqa/internal/models"
)

// Extractor turns the bytes of one document format into ordered segments.
type Extractor func(ctx context.Context, data []byte) ([]models.Segment, error)

// Loader dispatches documents to an Extractor by declared MIME type.
type Loader struct {
	extractors map[string]Extractor
}

// NewLoader returns a Loader for PDF, DOCX and PPTX.
func NewLoader() *Loader {
	l := &Loader{extractors: make(map[string]Extractor)}
	l.Register(models.MIMEPDF, parsePDF)
	l.Register(models.MIMEDOCX, parseDOCX)
	l.Register(models.MIMEPPTX, parsePPTX)
	return l
}

// Register binds an extractor to a MIME type, replacing any previous one.
func (l *Loader) Register(mimeType string, fn Extractor) {
	l.extractors[NormalizeMIME(mimeType)] = fn
}

// Supported lists the registered MIME types.
func (l *Loader) Supported() []string {
	out := make([]string, 0, len(l.extractors))
	for k := range l.extractors {
		out = append(out, k)
	}
	return out
}

// Load extracts the text of doc. Blank segments are dropped; a document
// without any text is an extraction failure.
func (l *Loader) Load(ctx context.Context, doc models.Document) ([]models.Segment, error) {
	mimeType := NormalizeMIME(doc.MIMEType)
	extract, ok := l.extractors[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, doc.MIMEType)
	}

	segments, err := extract(ctx, doc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrExtraction, doc.Name, err)
	}

	kept := segments[:0]
	for _, s := range segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %s: no extractable text", models.ErrExtraction, doc.Name)
	}

	log.Debug().
		Str("document", doc.Name).
		Str("mime", mimeType).
		Int("segments", len(kept)).
		Msg("Extracted document text")
	return kept, nil
}

// DetectMIME sniffs the content type of data for callers without a declared type.
func DetectMIME(data []byte) string {
	return NormalizeMIME(mimetype.Detect(data).String())
}

// NormalizeMIME lowercases a media type and drops its parameters.
func NormalizeMIME(v string) string {
	v = strings.TrimSpace(v)
	if mt, _, err := mime.ParseMediaType(v); err == nil {
		return mt
	}
	return strings.ToLower(v)
}
