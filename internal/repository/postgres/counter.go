package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

// CounterSequence allocates values from a row-per-name counter table with a single
// upsert, so concurrent callers never receive the same value.
type CounterSequence struct {
	store   *Store
	table   string
	builder squirrel.StatementBuilderType
}

// NewCounterSequence builds a sequence stored in <schema>.counters of store.
func NewCounterSequence(store *Store) *CounterSequence {
	return &CounterSequence{
		store:   store,
		table:   store.schema + ".counters",
		builder: store.builder,
	}
}

// Ensure creates the counter table.
func (s *CounterSequence) Ensure(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	name  text PRIMARY KEY,
	value bigint NOT NULL
)`, s.table)
	if _, err := s.store.executor(ctx).Exec(ctx, stmt); err != nil {
		return fmt.Errorf("ensure %s: %w", s.table, err)
	}
	return nil
}

// Next increments the named counter, creating it at 1.
func (s *CounterSequence) Next(ctx context.Context, name string) (int64, error) {
	stmt, args, err := s.builder.Insert(s.table).
		Columns("name", "value").
		Values(name, 1).
		Suffix("ON CONFLICT (name) DO UPDATE SET value = " + s.table + ".value + 1 RETURNING value").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build counter sql: %w", err)
	}

	var value int64
	if err := s.store.executor(ctx).QueryRow(ctx, stmt, args...).Scan(&value); err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, err)
	}
	return value, nil
}

var _ port.Sequence = (*CounterSequence)(nil)
