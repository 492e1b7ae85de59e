package source

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/table"
)

const recordsTable = "records"

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteSource stores the records of one entity as JSON documents in a
// shared SQLite table. GetAll is always server-paginated.
type SQLiteSource struct {
	Listeners

	db     *stdsql.DB
	entity string
	// serializes id allocation in Create
	mu sync.Mutex
}

// NewSQLiteSource creates a source for entityName. Call CreateTable once
// per database before use.
func NewSQLiteSource(db *stdsql.DB, entityName string) *SQLiteSource {
	return &SQLiteSource{db: db, entity: entityName}
}

// CreateTable creates the records table if it does not exist.
func (s *SQLiteSource) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			entity     TEXT NOT NULL,
			id         INTEGER NOT NULL,
			data       TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (entity, id)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating records table: %w", err)
	}
	return nil
}

func jsonPath(field string) string {
	return "$." + field
}

// where builds the entity and filter predicates of q. Filters on names that
// are not plain identifiers are ignored.
func (s *SQLiteSource) where(q table.Query) *sql.Predicate {
	preds := []*sql.Predicate{sql.EQ("entity", s.entity)}
	for f, v := range q.Contains {
		if !fieldName.MatchString(f) {
			continue
		}
		preds = append(preds, sql.ExprP("LOWER(CAST(json_extract(data, ?) AS TEXT)) LIKE ?",
			jsonPath(f), "%"+strings.ToLower(v)+"%"))
	}
	for f, v := range q.Equals {
		if !fieldName.MatchString(f) {
			continue
		}
		preds = append(preds, sql.ExprP("LOWER(CAST(json_extract(data, ?) AS TEXT)) = ?",
			jsonPath(f), strings.ToLower(v)))
	}
	return sql.And(preds...)
}

func (s *SQLiteSource) GetAll(ctx context.Context, params url.Values) (Result, error) {
	q := table.ParseQuery(params)

	countQuery, countArgs := sql.Dialect(dialect.SQLite).
		Select(sql.Count("*")).
		From(sql.Table(recordsTable)).
		Where(s.where(q)).
		Query()
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return Result{}, fmt.Errorf("counting %s records: %w", s.entity, err)
	}

	start, end, ok := q.Bounds(total)
	if !ok {
		return Result{Content: []entity.Record{}, TotalElements: total, Paged: true}, nil
	}

	sel := sql.Dialect(dialect.SQLite).
		Select("id", "data").
		From(sql.Table(recordsTable)).
		Where(s.where(q))
	if q.Sort != nil && fieldName.MatchString(q.Sort.Field) {
		dir := "ASC"
		if q.Sort.Direction == table.Desc {
			dir = "DESC"
		}
		if q.Sort.Field == entity.IDField {
			sel.OrderExpr(sql.Expr("id " + dir))
		} else {
			sel.OrderExpr(sql.ExprP("json_extract(data, ?) COLLATE NOCASE "+dir, jsonPath(q.Sort.Field)))
		}
	}
	sel.OrderBy("id").Limit(end - start).Offset(start)

	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, fmt.Errorf("querying %s records: %w", s.entity, err)
	}
	defer rows.Close()

	var content []entity.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return Result{}, fmt.Errorf("scanning %s record: %w", s.entity, err)
		}
		content = append(content, r)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("querying %s records: %w", s.entity, err)
	}
	return Result{Content: content, TotalElements: total, Paged: true}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (entity.Record, error) {
	var (
		id   int64
		data string
	)
	if err := sc.Scan(&id, &data); err != nil {
		return nil, err
	}
	r := entity.Record{}
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("decoding record %d: %w", id, err)
	}
	r[entity.IDField] = id
	return r, nil
}

func parseID(id entity.RowID) (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", ErrNotFound, id)
	}
	return n, nil
}

func (s *SQLiteSource) GetByID(ctx context.Context, id entity.RowID) (entity.Record, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, s.db, n)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *stdsql.Row
}

func (s *SQLiteSource) get(ctx context.Context, db queryRower, id int64) (entity.Record, error) {
	query, args := sql.Dialect(dialect.SQLite).
		Select("id", "data").
		From(sql.Table(recordsTable)).
		Where(sql.And(sql.EQ("entity", s.entity), sql.EQ("id", id))).
		Query()
	r, err := scanRecord(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s %d: %w", s.entity, id, err)
	}
	return r, nil
}

func encode(r entity.Record) (string, error) {
	doc := r.Clone()
	delete(doc, entity.IDField)
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}
	return string(b), nil
}

// Create inserts data. A numeric id in data is kept; otherwise the next
// free id is allocated.
func (s *SQLiteSource) Create(ctx context.Context, data map[string]any) (entity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := entity.Record(data).Clone()
	var id int64
	if raw := r.ID(); raw != "" {
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("creating %s: invalid id %q", s.entity, raw)
		}
		if _, err := s.get(ctx, s.db, n); err == nil {
			return nil, ErrConflict
		}
		id = n
	} else {
		query, args := sql.Dialect(dialect.SQLite).
			Select("COALESCE(MAX(id), 0) + 1").
			From(sql.Table(recordsTable)).
			Where(sql.EQ("entity", s.entity)).
			Query()
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return nil, fmt.Errorf("allocating %s id: %w", s.entity, err)
		}
	}

	doc, err := encode(r)
	if err != nil {
		return nil, err
	}
	query, args := sql.Dialect(dialect.SQLite).
		Insert(recordsTable).
		Columns("entity", "id", "data", "updated_at").
		Values(s.entity, id, doc, time.Now().UTC()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("creating %s: %w", s.entity, err)
	}
	r[entity.IDField] = id
	return r, nil
}

// Update merges data into the stored document; the id is never changed.
func (s *SQLiteSource) Update(ctx context.Context, id entity.RowID, data map[string]any) (entity.Record, error) {
	n, err := parseID(id)
	if err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("updating %s %d: %w", s.entity, n, err)
	}
	defer tx.Rollback()

	r, err := s.get(ctx, tx, n)
	if err != nil {
		return nil, err
	}
	for k, v := range data {
		if k != entity.IDField {
			r[k] = v
		}
	}
	doc, err := encode(r)
	if err != nil {
		return nil, err
	}
	query, args := sql.Dialect(dialect.SQLite).
		Update(recordsTable).
		Set("data", doc).
		Set("updated_at", time.Now().UTC()).
		Where(sql.And(sql.EQ("entity", s.entity), sql.EQ("id", n))).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("updating %s %d: %w", s.entity, n, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("updating %s %d: %w", s.entity, n, err)
	}
	return r, nil
}

func (s *SQLiteSource) InvalidateQueries(ctx context.Context) error {
	s.fire(ctx)
	return nil
}

// Seed creates rows when the entity has no records yet.
func (s *SQLiteSource) Seed(ctx context.Context, rows []entity.Record) error {
	res, err := s.GetAll(ctx, url.Values{"size": {"1"}})
	if err != nil {
		return err
	}
	if res.TotalElements > 0 {
		return nil
	}
	for _, r := range rows {
		if _, err := s.Create(ctx, r); err != nil {
			return fmt.Errorf("seeding %s: %w", s.entity, err)
		}
	}
	return nil
}
