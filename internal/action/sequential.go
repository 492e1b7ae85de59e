package action

import (
	"context"
	"fmt"

	"github.com/matthewbaird/entityui/internal/entity"
	"github.com/matthewbaird/entityui/internal/metrics"
)

// RowError reports the row a sequential bulk action stopped at. Rows before
// Index were mutated and are not rolled back.
type RowError struct {
	Index int
	ID    entity.RowID
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %s (#%d): %v", e.ID, e.Index+1, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Sequential applies fn to rows one at a time, in order, and stops at the
// first failure. Remaining rows are not attempted.
func Sequential(ctx context.Context, rows []entity.Record, fn func(ctx context.Context, row entity.Record) error) error {
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return &RowError{Index: i, ID: row.ID(), Err: err}
		}
		if err := fn(ctx, row); err != nil {
			return &RowError{Index: i, ID: row.ID(), Err: err}
		}
	}
	return nil
}

// Updater is the mutation used by status-change actions.
type Updater interface {
	Update(ctx context.Context, id entity.RowID, data map[string]any) (entity.Record, error)
}

// StatusChange configures a bulk action that sets one field on every
// selected row.
type StatusChange struct {
	ID      string
	Label   string
	Variant string
	// Field defaults to "status".
	Field   string
	Status  string
	Confirm *Confirm
	Updater Updater
	Entity  string
	Metrics *metrics.Metrics
}

// BulkAction builds the action. Rows are updated sequentially.
func (s StatusChange) BulkAction() BulkAction {
	field := s.Field
	if field == "" {
		field = "status"
	}
	return BulkAction{
		ID:      s.ID,
		Label:   s.Label,
		Variant: s.Variant,
		Confirm: s.Confirm,
		Run: func(ctx context.Context, rows []entity.Record) error {
			return Sequential(ctx, rows, func(ctx context.Context, row entity.Record) error {
				_, err := s.Updater.Update(ctx, row.ID(), map[string]any{field: s.Status})
				s.Metrics.RowMutated(s.Entity, err)
				return err
			})
		},
	}
}
