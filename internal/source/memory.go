package source

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/table"
)

// MemorySource implements Source using an in-memory slice.
// Intended for demos and testing.
type MemorySource struct {
	Listeners

	mu     sync.RWMutex
	rows   []entity.Record
	nextID int64
	paged  bool
}

// MemoryOption configures a MemorySource.
type MemoryOption func(*MemorySource)

// WithServerPaging makes GetAll filter, sort and page like a server would
// and return a paged result. By default the full dataset is returned.
func WithServerPaging() MemoryOption {
	return func(s *MemorySource) { s.paged = true }
}

// NewMemorySource creates a MemorySource seeded with copies of rows.
func NewMemorySource(rows []entity.Record, opts ...MemoryOption) *MemorySource {
	s := &MemorySource{}
	for _, o := range opts {
		o(s)
	}
	for _, r := range rows {
		s.insertLocked(r.Clone())
	}
	return s
}

func (s *MemorySource) insertLocked(r entity.Record) entity.Record {
	if r.ID() == "" {
		s.nextID++
		r[entity.IDField] = s.nextID
	} else if n, err := strconv.ParseInt(string(r.ID()), 10, 64); err == nil && n > s.nextID {
		s.nextID = n
	}
	s.rows = append(s.rows, r)
	return r
}

func (s *MemorySource) GetAll(_ context.Context, params url.Values) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]entity.Record, len(s.rows))
	for i, r := range s.rows {
		rows[i] = r.Clone()
	}
	if !s.paged {
		return Result{Content: rows, TotalElements: len(rows)}, nil
	}
	page, total := table.Apply(rows, table.ParseQuery(params))
	return Result{Content: page, TotalElements: total, Paged: true}, nil
}

func (s *MemorySource) GetByID(_ context.Context, id entity.RowID) (entity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.rows[i].Clone(), nil
	}
	return nil, ErrNotFound
}

func (s *MemorySource) Create(_ context.Context, data map[string]any) (entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := entity.Record(data).Clone()
	if id := r.ID(); id != "" && s.indexLocked(id) >= 0 {
		return nil, ErrConflict
	}
	return s.insertLocked(r).Clone(), nil
}

// Update merges data into the record; the id is never changed.
func (s *MemorySource) Update(_ context.Context, id entity.RowID, data map[string]any) (entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	for k, v := range data {
		if k == entity.IDField {
			continue
		}
		s.rows[i][k] = v
	}
	return s.rows[i].Clone(), nil
}

func (s *MemorySource) InvalidateQueries(ctx context.Context) error {
	s.fire(ctx)
	return nil
}

// Len reports the number of records.
func (s *MemorySource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemorySource) indexLocked(id entity.RowID) int {
	for i, r := range s.rows {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
