package prefstore

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
)

const preferencesTable = "preferences"

// SQLiteStore implements Store on a SQLite table.
type SQLiteStore struct {
	db *stdsql.DB
}

// NewSQLiteStore creates a SQLiteStore. Call CreateTable once before use.
func NewSQLiteStore(db *stdsql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the preferences table if it does not exist.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS preferences (
			pref_key   TEXT PRIMARY KEY,
			pref_value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating preferences table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	query, args := sql.Dialect(dialect.SQLite).
		Select("pref_value").
		From(sql.Table(preferencesTable)).
		Where(sql.EQ("pref_key", key)).
		Query()

	var value string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading preference %q: %w", key, err)
	}
	return []byte(value), nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	query, args := sql.Dialect(dialect.SQLite).
		Insert(preferencesTable).
		Columns("pref_key", "pref_value", "updated_at").
		Values(key, string(value), time.Now().UTC()).
		OnConflict(sql.ConflictColumns("pref_key"), sql.ResolveWithNewValues()).
		Query()

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("writing preference %q: %w", key, err)
	}
	return nil
}
