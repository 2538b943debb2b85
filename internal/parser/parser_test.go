package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/models"
	"docqa/internal/testutil"
)

func TestLoaderPDF(t *testing.T) {
	data := testutil.PDF(t, "alpha page text", "bravo page text", "charlie page text")
	segments, err := NewLoader().Load(context.Background(), models.Document{
		Name: "notes.pdf", MIMEType: models.MIMEPDF, Data: data,
	})
	require.NoError(t, err)
	require.Len(t, segments, 3)
	for i, word := range []string{"alpha", "bravo", "charlie"} {
		assert.Equal(t, i+1, segments[i].Page)
		assert.Contains(t, segments[i].Text, word)
	}
}

func TestLoaderDOCX(t *testing.T) {
	data := testutil.DOCX(t, "First paragraph.", "", "Second & last paragraph.")
	segments, err := NewLoader().Load(context.Background(), models.Document{
		Name: "notes.docx", MIMEType: models.MIMEDOCX, Data: data,
	})
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, 1, segments[0].Page)
	assert.Equal(t, "First paragraph.\n\nSecond & last paragraph.", segments[0].Text)
}

func TestLoaderPPTX(t *testing.T) {
	data := testutil.PPTX(t, "Intro slide\nwith a soft break", "   ", "Closing slide")
	segments, err := NewLoader().Load(context.Background(), models.Document{
		Name: "deck.pptx", MIMEType: models.MIMEPPTX, Data: data,
	})
	require.NoError(t, err)
	require.Len(t, segments, 2, "blank slide is dropped")
	assert.Equal(t, models.Segment{Text: "Intro slide\nwith a soft break", Page: 1}, segments[0])
	assert.Equal(t, models.Segment{Text: "Closing slide", Page: 3}, segments[1])
}

func TestLoaderPPTXDisplayOrder(t *testing.T) {
	load := func(data []byte) []models.Segment {
		t.Helper()
		segments, err := NewLoader().Load(context.Background(), models.Document{
			Name: "deck.pptx", MIMEType: models.MIMEPPTX, Data: data,
		})
		require.NoError(t, err)
		return segments
	}

	// slide3.xml was moved to the front in the editor
	segments := load(testutil.PPTXInOrder(t, []int{3, 1, 2}, "First written", "Second written", "Moved to front"))
	require.Len(t, segments, 3)
	assert.Equal(t, models.Segment{Text: "Moved to front", Page: 1}, segments[0])
	assert.Equal(t, models.Segment{Text: "First written", Page: 2}, segments[1])
	assert.Equal(t, models.Segment{Text: "Second written", Page: 3}, segments[2])

	// a relationship pointing at a missing part falls back to file numbering
	segments = load(testutil.PPTXInOrder(t, []int{2, 9}, "One", "Two"))
	require.Len(t, segments, 2)
	assert.Equal(t, "One", segments[0].Text)
	assert.Equal(t, 2, segments[1].Page)
}

func TestLoaderMIMEParameters(t *testing.T) {
	data := testutil.PPTX(t, "Only slide")
	segments, err := NewLoader().Load(context.Background(), models.Document{
		Name: "deck.pptx", MIMEType: "Application/VND.openxmlformats-officedocument.presentationml.presentation; charset=binary", Data: data,
	})
	require.NoError(t, err)
	assert.Len(t, segments, 1)
}

func TestLoaderUnsupportedFormat(t *testing.T) {
	l := NewLoader()
	assert.Len(t, l.Supported(), 3)
	for _, mt := range []string{"text/plain", "image/png", "", "application/vnd.ms-excel"} {
		_, err := l.Load(context.Background(), models.Document{Name: "x", MIMEType: mt, Data: []byte("hello")})
		require.Error(t, err, mt)
		assert.True(t, errors.Is(err, models.ErrUnsupportedFormat), mt)
	}
}

func TestLoaderExtractionErrors(t *testing.T) {
	t.Run("corrupt file", func(t *testing.T) {
		_, err := NewLoader().Load(context.Background(), models.Document{
			Name: "broken.pdf", MIMEType: models.MIMEPDF, Data: []byte("not a pdf"),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrExtraction)
	})

	t.Run("no text", func(t *testing.T) {
		l := NewLoader()
		l.Register(models.MIMEPDF, func(context.Context, []byte) ([]models.Segment, error) {
			return []models.Segment{{Text: "  \n", Page: 1}}, nil
		})
		_, err := l.Load(context.Background(), models.Document{Name: "blank.pdf", MIMEType: models.MIMEPDF})
		assert.ErrorIs(t, err, models.ErrExtraction)
	})

	t.Run("extractor cause is kept", func(t *testing.T) {
		l := NewLoader()
		l.Register(models.MIMEDOCX, func(context.Context, []byte) ([]models.Segment, error) {
			return nil, testutil.ErrFake
		})
		_, err := l.Load(context.Background(), models.Document{Name: "a.docx", MIMEType: models.MIMEDOCX})
		assert.ErrorIs(t, err, models.ErrExtraction)
		assert.ErrorIs(t, err, testutil.ErrFake)
	})
}

func TestNormalizeMIME(t *testing.T) {
	assert.Equal(t, "application/octet-stream", NormalizeMIME(" Application/Octet-Stream; charset=binary"))
	assert.Equal(t, models.MIMEPDF, NormalizeMIME("application/pdf"))
	assert.Equal(t, "", NormalizeMIME(""))
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, models.MIMEPDF, DetectMIME(testutil.PDF(t, "hello")))
	assert.Equal(t, "text/plain", DetectMIME([]byte("just some text")))
}

func TestExtractTextFromXML(t *testing.T) {
	text, err := extractTextFromXML(`<w:document xmlns:w="w"><w:body>` +
		`<w:p><w:pPr><w:tabs><w:tab w:val="left"/></w:tabs></w:pPr><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>c</w:t><w:br/><w:t>d</w:t></w:r></w:p>` +
		`</w:body></w:document>`)
	require.NoError(t, err)
	assert.Equal(t, "a\tb\nc\nd", text)

	text, err = extractTextFromXML(`<a:p><a:r><a:t>First line</a:t></a:r><a:br/><a:r><a:t>Second line</a:t></a:r></a:p>`)
	require.NoError(t, err)
	assert.Equal(t, "First line\nSecond line", text)

	_, err = extractTextFromXML("<w:p><w:t>unclosed")
	assert.Error(t, err)
}
