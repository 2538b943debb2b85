package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"docqa/internal/helper"
	"docqa/internal/models"
)

// Manager keeps isolated sessions keyed by a random id.
type Manager struct {
	pipeline    *Pipeline
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns a manager whose sessions share p. A zero idleTimeout
// disables sweeping.
func NewManager(p *Pipeline, idleTimeout time.Duration) (*Manager, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &Manager{
		pipeline:    p,
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}, nil
}

func (m *Manager) Create() (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	s := newSession(id, m.pipeline, m.now)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.pipeline.Metrics.SessionStarted()
	log.Info().Str("session_id", id).Msg("Session started")
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	return s, nil
}

// End destroys the session and everything it holds.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	s.close()
	m.pipeline.Metrics.SessionEnded()
	log.Info().Str("session_id", id).Msg("Session ended")
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep ends every session idle for longer than the idle timeout at now and
// returns how many were ended. Sessions busy with an action are skipped.
func (m *Manager) Sweep(now time.Time) int {
	if m.idleTimeout <= 0 {
		return 0
	}
	m.mu.RLock()
	var expired []string
	for id, s := range m.sessions {
		last, ok := s.idleSince()
		if ok && now.Sub(last) > m.idleTimeout {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	ended := 0
	for _, id := range expired {
		if err := m.End(id); err == nil {
			ended++
		}
	}
	if ended > 0 {
		log.Info().Int("ended", ended).Msg("Swept idle sessions")
	}
	return ended
}

// Run sweeps idle sessions periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	if m.idleTimeout <= 0 {
		return
	}
	interval := max(m.idleTimeout/4, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			m.Sweep(t)
		}
	}
}
