package server

import (
	"bytes"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"docqa/internal/models"
	"docqa/internal/session"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// View is the render model of one session.
type View struct {
	Session    session.Info `json:"session"`
	Transcript []TurnView   `json:"transcript"`
}

type TurnView struct {
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	AnswerHTML string    `json:"answer_html"`
	AskedAt    time.Time `json:"asked_at"`
}

func newView(s *session.Session) View {
	history := s.History()
	v := View{Session: s.Info(), Transcript: make([]TurnView, len(history))}
	for i, t := range history {
		v.Transcript[i] = newTurnView(t)
	}
	return v
}

func newTurnView(t models.Turn) TurnView {
	return TurnView{
		Question:   t.Question,
		Answer:     t.Answer,
		AnswerHTML: renderMarkdown(t.Answer),
		AskedAt:    t.AskedAt,
	}
}

// renderMarkdown converts an answer to HTML. Raw HTML in the answer is not
// passed through.
func renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		log.Warn().Err(err).Msg("Error rendering markdown")
		return ""
	}
	return buf.String()
}
