// Package session manages renderer session lifecycle. A session owns the
// pages a renderer has mounted: any number of tables and at most one form.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/logging"
	"github.com/matthewbaird/entityui/internal/metrics"
	"github.com/matthewbaird/entityui/internal/page"
)

// Session holds per-connection page state.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu           sync.Mutex
	lastActiveAt time.Time
	tables       map[string]*page.TablePage
	form         *page.FormPage
}

// New creates an empty session.
func New() *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		lastActiveAt: now,
		tables:       make(map[string]*page.TablePage),
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// LastActiveAt returns the time of the last Touch.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return timeout > 0 && time.Since(s.LastActiveAt()) > timeout
}

// Table returns the mounted table of entityName.
func (s *Session) Table(entityName string) (*page.TablePage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[entityName]
	return t, ok
}

// Tables returns every mounted table.
func (s *Session) Tables() []*page.TablePage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*page.TablePage, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, t)
	}
	return out
}

// MountTable registers t as the table of entityName, replacing any previous
// one.
func (s *Session) MountTable(entityName string, t *page.TablePage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[entityName] = t
}

// Form returns the open form, if any.
func (s *Session) Form() (*page.FormPage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form, s.form != nil
}

// OpenForm makes f the open form. A previously open form is closed.
func (s *Session) OpenForm(f *page.FormPage) {
	s.mu.Lock()
	prev := s.form
	s.form = f
	s.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}

// CloseForm closes the open form.
func (s *Session) CloseForm() {
	s.OpenForm(nil)
}

// Close releases every page of the session.
func (s *Session) Close() {
	s.CloseForm()
	s.mu.Lock()
	s.tables = make(map[string]*page.TablePage)
	s.mu.Unlock()
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
	metrics     *metrics.Metrics
	log         logrus.FieldLogger
}

// NewManager creates a session manager with the given timeouts. A zero
// timeout disables that check.
func NewManager(maxAge, idleTimeout time.Duration, m *metrics.Metrics, log logrus.FieldLogger) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		metrics:     m,
		log:         logging.OrDiscard(log).WithField("component", "session"),
	}
}

// Create creates a new session and returns it.
func (m *Manager) Create() *Session {
	s := New()
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.metrics.SessionOpened()
	m.log.WithField("session", s.ID).Debug("session created")
	return s
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return s
}

// Remove deletes a session and closes its pages.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
		m.metrics.SessionClosed()
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
		m.metrics.SessionClosed()
	}
	if len(stale) > 0 {
		m.log.WithField("removed", len(stale)).Info("expired sessions removed")
	}
	return len(stale)
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}
