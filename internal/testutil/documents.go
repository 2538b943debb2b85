// Package testutil builds document fixtures and deterministic fakes shared by
// the package tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"sort"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// PDF renders one page per entry; each line of a page is written as its own cell.
func PDF(t testing.TB, pages ...string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	for _, page := range pages {
		doc.AddPage()
		doc.SetFont("Helvetica", "", 9)
		for _, line := range strings.Split(page, "\n") {
			doc.Cell(0, 5, line)
			doc.Ln(5)
		}
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	return buf.Bytes()
}

// DOCX builds a minimal word package with one <w:p> per paragraph.
func DOCX(t testing.TB, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, html.EscapeString(p))
	}
	return zipFiles(t, map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`,
	})
}

// PPTX builds a presentation package with one slide per entry. Slides are
// written to the archive in reverse order to exercise slide sorting, and a
// newline inside an entry becomes a soft line break (<a:br/>).
func PPTX(t testing.TB, slides ...string) []byte {
	t.Helper()
	return zipFiles(t, pptxFiles(slides))
}

// PPTXInOrder is PPTX plus a presentation part listing the slides in display
// order; order holds the slideN.xml numbers, first displayed first.
func PPTXInOrder(t testing.TB, order []int, slides ...string) []byte {
	t.Helper()
	files := pptxFiles(slides)
	var ids, rels strings.Builder
	for i, n := range order {
		fmt.Fprintf(&ids, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+2)
		fmt.Fprintf(&rels, `<Relationship Id="rId%d" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/slide%d.xml"/>`, i+2, n)
	}
	files["ppt/presentation.xml"] = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<p:sldIdLst>` + ids.String() + `</p:sldIdLst></p:presentation>`
	files["ppt/_rels/presentation.xml.rels"] = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster" Target="slideMasters/slideMaster1.xml"/>` +
		rels.String() + `</Relationships>`
	return zipFiles(t, files)
}

func pptxFiles(slides []string) map[string]string {
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
	}
	for i, s := range slides {
		var runs []string
		for _, line := range strings.Split(s, "\n") {
			runs = append(runs, `<a:r><a:t>`+html.EscapeString(line)+`</a:t></a:r>`)
		}
		files[fmt.Sprintf("ppt/slides/slide%d.xml", i+1)] = `<?xml version="1.0" encoding="UTF-8"?>` +
			`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
			`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:sp><p:txBody>` +
			`<a:p>` + strings.Join(runs, `<a:br/>`) + `</a:p>` +
			`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	return files
}

func zipFiles(t testing.TB, files map[string]string) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip %s: %v", name, err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatalf("zip %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// Lines returns n lines of filler text of width characters, each starting
// with prefix.
func Lines(prefix string, n, width int) string {
	lines := make([]string, n)
	for i := range lines {
		line := fmt.Sprintf("%s line %02d ", prefix, i)
		for len(line) < width {
			line += "lorem ipsum "
		}
		lines[i] = line[:width]
	}
	return strings.Join(lines, "\n")
}
