package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"docqa/internal/models"
)

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func parseDOCX(_ context.Context, data []byte) ([]models.Segment, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer r.Close()

	text, err := extractTextFromXML(r.Editable().GetContent())
	if err != nil {
		return nil, fmt.Errorf("read docx body: %w", err)
	}
	// DOCX has no page numbers
	return []models.Segment{{Text: text, Page: 1}}, nil
}

func parsePPTX(ctx context.Context, data []byte) ([]models.Segment, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}

	slides, err := orderSlides(zr)
	if err != nil {
		return nil, err
	}

	segments := make([]models.Segment, 0, len(slides))
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		body, err := readZipFile(s.file)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.num, err)
		}
		text, err := extractTextFromXML(string(body))
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.num, err)
		}
		segments = append(segments, models.Segment{Text: text, Page: s.num})
	}
	return segments, nil
}

type slide struct {
	num  int // display position, or the slideN.xml number without a presentation part
	file *zip.File
}

// orderSlides returns the slides in display order: the sldIdLst of
// ppt/presentation.xml resolved through its relationships. Packages without
// a usable list fall back to the slideN.xml numbering.
func orderSlides(zr *zip.Reader) ([]slide, error) {
	files := make(map[string]*zip.File, len(zr.File))
	var byNumber []slide
	for _, f := range zr.File {
		files[f.Name] = f
		m := slideName.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		byNumber = append(byNumber, slide{num: n, file: f})
	}
	if len(byNumber) == 0 {
		return nil, errors.New("pptx has no slides")
	}

	if names := presentationOrder(files); len(names) > 0 {
		ordered := make([]slide, 0, len(names))
		for i, name := range names {
			f, ok := files[name]
			if !ok {
				ordered = nil
				break
			}
			ordered = append(ordered, slide{num: i + 1, file: f})
		}
		if len(ordered) > 0 {
			return ordered, nil
		}
	}

	sort.Slice(byNumber, func(i, j int) bool { return byNumber[i].num < byNumber[j].num })
	return byNumber, nil
}

type presentationPart struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsPart struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// presentationOrder lists the slide part names in display order, or nil.
func presentationOrder(files map[string]*zip.File) []string {
	pres, ok := files["ppt/presentation.xml"]
	if !ok {
		return nil
	}
	rels, ok := files["ppt/_rels/presentation.xml.rels"]
	if !ok {
		return nil
	}

	var p presentationPart
	if err := unmarshalZipFile(pres, &p); err != nil {
		return nil
	}
	var r relationshipsPart
	if err := unmarshalZipFile(rels, &r); err != nil {
		return nil
	}
	targets := make(map[string]string, len(r.Relationships))
	for _, rel := range r.Relationships {
		target := rel.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join("ppt", target)
		}
		targets[rel.ID] = target
	}

	names := make([]string, 0, len(p.SlideIDs))
	for _, id := range p.SlideIDs {
		name, ok := targets[id.RelID]
		if !ok {
			return nil
		}
		names = append(names, name)
	}
	return names
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func unmarshalZipFile(f *zip.File, v any) error {
	body, err := readZipFile(f)
	if err != nil {
		return err
	}
	return xml.Unmarshal(body, v)
}

// extractTextFromXML collects the text runs (<w:t>, <a:t>) of an OOXML part,
// one paragraph per line.
func extractTextFromXML(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))
	var (
		text   strings.Builder
		inText bool
		inRun  bool
		inPara bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "r":
				inRun = true
			case "p":
				inPara = true
			case "tab":
				if inRun {
					text.WriteByte('\t')
				}
			case "br":
				// w:br sits inside a run, a:br between runs of a paragraph
				if inRun || inPara {
					text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				inRun = false
			case "p":
				if inPara {
					text.WriteByte('\n')
				}
				inPara = false
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		}
	}
	return strings.TrimRight(text.String(), "\n"), nil
}
