// Package source provides the data-source contract consumed by entity pages
// and its in-memory and SQLite implementations.
package source

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"sync"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/table"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("source: record not found")
	// ErrConflict is returned by Create when the given id is taken.
	ErrConflict = errors.New("source: record id already exists")
)

// Result is a list response. See table.Result.
type Result = table.Result

// Source is the backend of one entity.
type Source interface {
	// GetAll lists records for the query parameters built by
	// table.State.QueryParams. An unpaged result is a complete dataset that
	// the caller paginates itself.
	GetAll(ctx context.Context, params url.Values) (Result, error)
	GetByID(ctx context.Context, id entity.RowID) (entity.Record, error)
	Create(ctx context.Context, data map[string]any) (entity.Record, error)
	Update(ctx context.Context, id entity.RowID, data map[string]any) (entity.Record, error)
	// InvalidateQueries tells cached readers that data changed.
	InvalidateQueries(ctx context.Context) error
}

// Listeners is embedded by sources to fan out invalidations.
type Listeners struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

// OnInvalidate registers fn to run on every InvalidateQueries.
func (l *Listeners) OnInvalidate(fn func(ctx context.Context)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fns = append(l.fns, fn)
}

func (l *Listeners) fire(ctx context.Context) {
	l.mu.Lock()
	fns := append(([]func(context.Context))(nil), l.fns...)
	l.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}

// Catalog maps entity names to their sources.
type Catalog struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{sources: make(map[string]Source)}
}

// Add registers src for an entity.
func (c *Catalog) Add(entityName string, src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[entityName] = src
}

// Get returns the source for an entity.
func (c *Catalog) Get(entityName string) (Source, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sources[entityName]
	return s, ok
}

// Names lists the entities with a source.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.sources))
	for n := range c.sources {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
