package parser

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"docqa/internal/models"
)

func parsePDF(ctx context.Context, data []byte) (segments []models.Segment, err error) {
	// the pdf reader panics on some malformed streams
	defer func() {
		if r := recover(); r != nil {
			segments, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		segments = append(segments, models.Segment{Text: pageText, Page: i})
	}
	return segments, nil
}
