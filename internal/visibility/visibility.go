// Package visibility owns the per-table column show/hide state and its
// best-effort persistence.
package visibility

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/logging"
	"github.com/matthewbaird/entityui/internal/prefstore"
)

// Config controls the initial hidden set and persistence.
type Config struct {
	// StorageKey is where overrides are persisted. Empty disables persistence.
	StorageKey string `json:"storage_key,omitempty"`
	// DefaultHidden lists field names or glob patterns hidden by default.
	DefaultHidden []string `json:"default_hidden,omitempty"`
	// UserConfigurable enables Toggle and Set.
	UserConfigurable bool `json:"user_configurable"`
}

// Store holds the hidden map for one table instance. It is the only writer
// of its storage key.
type Store struct {
	mu      sync.Mutex
	cfg     Config
	storage prefstore.Store
	hidden  map[string]bool
	log     logrus.FieldLogger
}

// Open builds the hidden map from defaults, then overlays any persisted
// overrides. Read failures of any kind fall back to the defaults.
func Open(ctx context.Context, cfg Config, storage prefstore.Store, columns []string, log logrus.FieldLogger) *Store {
	s := &Store{
		cfg:     cfg,
		storage: storage,
		hidden:  defaults(cfg.DefaultHidden, columns),
		log:     logging.OrDiscard(log).WithField("component", "visibility"),
	}
	if cfg.StorageKey == "" || storage == nil {
		return s
	}

	raw, err := storage.Get(ctx, cfg.StorageKey)
	if err != nil {
		s.log.WithError(err).WithField("key", cfg.StorageKey).Debug("no persisted column visibility, using defaults")
		return s
	}
	var persisted map[string]bool
	if err := json.Unmarshal(raw, &persisted); err != nil {
		s.log.WithError(err).WithField("key", cfg.StorageKey).Debug("discarding unreadable column visibility")
		return s
	}
	for field, h := range persisted {
		s.hidden[field] = h
	}
	return s
}

func defaults(patterns []string, columns []string) map[string]bool {
	hidden := make(map[string]bool)
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			hidden[p] = true
			continue
		}
		matched := false
		for _, c := range columns {
			if g.Match(c) {
				hidden[c] = true
				matched = true
			}
		}
		if !matched && !strings.ContainsAny(p, "*?[{") {
			hidden[p] = true
		}
	}
	return hidden
}

// UserConfigurable reports whether toggling is allowed.
func (s *Store) UserConfigurable() bool {
	return s.cfg.UserConfigurable
}

// Hidden returns a copy of the hidden map.
func (s *Store) Hidden() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.hidden))
	for k, v := range s.hidden {
		out[k] = v
	}
	return out
}

// IsHidden reports whether field is hidden.
func (s *Store) IsHidden(field string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hidden[field]
}

// Visible filters columns down to the ones currently shown, keeping order.
func (s *Store) Visible(columns []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if !s.hidden[c] {
			out = append(out, c)
		}
	}
	return out
}

// Toggle flips the hidden flag of field and writes through.
func (s *Store) Toggle(ctx context.Context, field string) {
	if !s.cfg.UserConfigurable {
		return
	}
	s.mu.Lock()
	s.hidden[field] = !s.hidden[field]
	snapshot := s.copyLocked()
	s.mu.Unlock()
	s.write(ctx, snapshot)
}

// Set sets the hidden flag of field and writes through.
func (s *Store) Set(ctx context.Context, field string, hidden bool) {
	if !s.cfg.UserConfigurable {
		return
	}
	s.mu.Lock()
	s.hidden[field] = hidden
	snapshot := s.copyLocked()
	s.mu.Unlock()
	s.write(ctx, snapshot)
}

// Persist replaces the whole hidden map and writes through.
func (s *Store) Persist(ctx context.Context, hidden map[string]bool) {
	s.mu.Lock()
	s.hidden = make(map[string]bool, len(hidden))
	for k, v := range hidden {
		s.hidden[k] = v
	}
	snapshot := s.copyLocked()
	s.mu.Unlock()
	s.write(ctx, snapshot)
}

func (s *Store) copyLocked() map[string]bool {
	out := make(map[string]bool, len(s.hidden))
	for k, v := range s.hidden {
		out[k] = v
	}
	return out
}

// write persists best-effort; failures are logged and otherwise ignored.
func (s *Store) write(ctx context.Context, hidden map[string]bool) {
	if s.cfg.StorageKey == "" || s.storage == nil {
		return
	}
	raw, err := json.Marshal(hidden)
	if err != nil {
		s.log.WithError(err).Warn("encoding column visibility")
		return
	}
	if err := s.storage.Set(ctx, s.cfg.StorageKey, raw); err != nil {
		s.log.WithError(err).WithField("key", s.cfg.StorageKey).Warn("persisting column visibility")
	}
}

// HiddenFields returns the hidden field names in sorted order.
func (s *Store) HiddenFields() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k, v := range s.hidden {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
