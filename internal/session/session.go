package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"docqa/internal/chromemdb"
	"docqa/internal/models"
)

type State int

const (
	// StateEmpty means no document has been indexed yet.
	StateEmpty State = iota
	// StateReady means an index is present. A session never returns to Empty.
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "empty"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "empty":
		*s = StateEmpty
	case "ready":
		*s = StateReady
	default:
		return fmt.Errorf("unknown session state %q", text)
	}
	return nil
}

// Session owns at most one index and an append-only history. Upload and
// Ask are serialized, so one action runs at a time per session.
type Session struct {
	id       string
	pipeline *Pipeline
	now      func() time.Time

	mu         sync.Mutex
	closed     bool
	index      *chromemdb.Index
	upload     UploadResult
	history    []models.Turn
	createdAt  time.Time
	lastActive time.Time
}

// Info is a snapshot of a session for display.
type Info struct {
	ID         string        `json:"id"`
	State      State         `json:"state"`
	Document   *UploadResult `json:"document,omitempty"`
	Turns      int           `json:"turns"`
	CreatedAt  time.Time     `json:"created_at"`
	LastActive time.Time     `json:"last_active"`
}

// New creates an empty session driven by p.
func New(id string, p *Pipeline) (*Session, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return newSession(id, p, time.Now), nil
}

func newSession(id string, p *Pipeline, now func() time.Time) *Session {
	t := now()
	return &Session{id: id, pipeline: p, now: now, createdAt: t, lastActive: t}
}

func (s *Session) ID() string { return s.id }

// Upload extracts, chunks and indexes doc. The new index replaces the current
// one only when every step succeeds; on failure the previous index stays.
func (s *Session) Upload(ctx context.Context, doc models.Document) (UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return UploadResult{}, s.errClosed()
	}
	s.lastActive = s.now()

	start := time.Now()
	idx, res, err := s.pipeline.ingest(ctx, doc)
	s.pipeline.Metrics.Upload(err)
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Str("document", doc.Name).Msg("Upload failed")
		return UploadResult{}, err
	}

	s.index = idx
	s.upload = res
	log.Info().
		Str("session_id", s.id).
		Str("document", res.Document).
		Int("chunks", res.Chunks).
		Int("pages", res.Pages).
		Dur("duration", time.Since(start)).
		Msg("Document indexed")
	return res, nil
}

// Ask answers question against the current index and records the Turn. A
// failed question leaves the history unchanged.
func (s *Session) Ask(ctx context.Context, question string) (models.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return models.Turn{}, s.errClosed()
	}
	s.lastActive = s.now()

	turn, err := s.ask(ctx, question)
	s.pipeline.Metrics.Question(err)
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.id).Msg("Question failed")
		return models.Turn{}, err
	}
	s.history = append(s.history, turn)
	log.Info().Str("session_id", s.id).Int("turns", len(s.history)).Msg("Question answered")
	return turn, nil
}

func (s *Session) ask(ctx context.Context, question string) (models.Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.Turn{}, models.ErrEmptyQuestion
	}
	if s.index == nil {
		return models.Turn{}, models.ErrNoIndexAvailable
	}
	answer, err := s.pipeline.answer(ctx, s.index, s.history, question)
	if err != nil {
		return models.Turn{}, err
	}
	return models.Turn{Question: question, Answer: answer, AskedAt: s.now()}, nil
}

// History returns a copy of the answered turns in order.
func (s *Session) History() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Turn(nil), s.history...)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() State {
	if s.index == nil {
		return StateEmpty
	}
	return StateReady
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		ID:         s.id,
		State:      s.state(),
		Turns:      len(s.history),
		CreatedAt:  s.createdAt,
		LastActive: s.lastActive,
	}
	if s.index != nil {
		doc := s.upload
		info.Document = &doc
	}
	return info
}

// idleSince reports when the session was last used. It does not wait for an
// in-flight action.
func (s *Session) idleSince() (time.Time, bool) {
	if !s.mu.TryLock() {
		return time.Time{}, false
	}
	defer s.mu.Unlock()
	return s.lastActive, true
}

// close discards the index and history. Any later Upload or Ask fails with
// ErrSessionNotFound.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.index = nil
	s.history = nil
}

func (s *Session) errClosed() error {
	return fmt.Errorf("%w: %s", models.ErrSessionNotFound, s.id)
}
