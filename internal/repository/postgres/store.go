package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

const (
	// DefaultSchema holds every collection table.
	DefaultSchema = "commerce"

	uniqueViolation = "23505"
)

var (
	identPattern  = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	topLevelField = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is satisfied by *pgxpool.Pool and by pgxmock pools.
type DB interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type txKey struct{}

// Store keeps each collection as a table of JSONB documents.
type Store struct {
	db      DB
	schema  string
	builder squirrel.StatementBuilderType
}

// NewStore constructs a document store over db. An empty schema selects DefaultSchema.
func NewStore(db DB, schema string) *Store {
	if schema == "" {
		schema = DefaultSchema
	}
	return &Store{
		db:      db,
		schema:  schema,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Collection returns a handle on the named table.
func (s *Store) Collection(name string) port.Collection {
	return &collection{store: s, name: name, table: s.schema + "." + name}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// EnsureCollection creates the collection table and one unique expression index per unique field.
func (s *Store) EnsureCollection(ctx context.Context, spec port.CollectionSpec) error {
	if !identPattern.MatchString(spec.Name) || !identPattern.MatchString(s.schema) {
		return fmt.Errorf("invalid collection name %q", spec.Name)
	}
	table := s.schema + "." + spec.Name
	stmts := []string{
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", s.schema),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id         text PRIMARY KEY,
	data       jsonb NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
)`, table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_data_gin ON %s USING gin (data jsonb_path_ops)", spec.Name, table),
	}
	for _, field := range spec.UniqueFields {
		if err := domain.ValidateField(field); err != nil {
			return err
		}
		stmts = append(stmts, fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s_%s_key ON %s ((data #>> %s))",
			spec.Name, identSuffix(field), table, pathLiteral(field)))
	}

	exec := s.executor(ctx)
	for _, stmt := range stmts {
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure %s: %w", table, err)
		}
	}
	return nil
}

// WithinTx runs fn in a transaction. Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *Store) executor(ctx context.Context) pgExecutor {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.db
}

func identSuffix(field string) string {
	out := []byte(field)
	for i, b := range out {
		if b == '.' {
			out[i] = '_'
		}
	}
	return string(out)
}

type collection struct {
	store *Store
	name  string
	table string
}

func (c *collection) where(b squirrel.SelectBuilder, filter domain.Filter) (squirrel.SelectBuilder, error) {
	pred, err := translate(filter)
	if err != nil {
		return b, err
	}
	if pred != nil {
		b = b.Where(pred)
	}
	return b, nil
}

func (c *collection) Find(ctx context.Context, filter domain.Filter, opts port.FindOptions) ([]json.RawMessage, error) {
	b, err := c.where(c.store.builder.Select(projection(opts.Projection)).From(c.table), filter)
	if err != nil {
		return nil, err
	}
	b = b.OrderBy(orderBy(opts.Sort)...)
	if opts.Skip > 0 {
		b = b.Offset(uint64(opts.Skip))
	}
	if opts.Limit > 0 {
		b = b.Limit(uint64(opts.Limit))
	}

	stmt, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find %s sql: %w", c.name, err)
	}

	rows, err := c.store.executor(ctx).Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		docs = append(docs, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c.name, err)
	}
	return docs, nil
}

func (c *collection) FindOne(ctx context.Context, filter domain.Filter) (json.RawMessage, error) {
	docs, err := c.Find(ctx, filter, port.FindOptions{Limit: 1})
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (c *collection) FindByID(ctx context.Context, id string) (json.RawMessage, error) {
	stmt, args, err := c.store.builder.Select("data").
		From(c.table).
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s by id sql: %w", c.name, err)
	}

	var raw []byte
	if err := c.store.executor(ctx).QueryRow(ctx, stmt, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s by id: %w", c.name, err)
	}
	return raw, nil
}

type stamps struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *collection) InsertOne(ctx context.Context, id string, doc json.RawMessage) error {
	var ts stamps
	if err := json.Unmarshal(doc, &ts); err != nil {
		return fmt.Errorf("decode %s timestamps: %w", c.name, err)
	}
	if ts.CreatedAt.IsZero() {
		ts.CreatedAt = time.Now().UTC()
	}
	if ts.UpdatedAt.IsZero() {
		ts.UpdatedAt = ts.CreatedAt
	}

	stmt, args, err := c.store.builder.Insert(c.table).
		Columns("id", "data", "created_at", "updated_at").
		Values(id, squirrel.Expr("?::jsonb", string(doc)), ts.CreatedAt, ts.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert %s sql: %w", c.name, err)
	}

	if _, err := c.store.executor(ctx).Exec(ctx, stmt, args...); err != nil {
		return mapWriteError(c.name, err)
	}
	return nil
}

// UpdateOne locks the first matching row, merges Set into it, appends Push
// elements and returns the new document.
func (c *collection) UpdateOne(ctx context.Context, filter domain.Filter, update port.Update) (json.RawMessage, error) {
	set := update.Set
	if set == nil {
		set = map[string]any{}
	}
	setJSON, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("encode %s update: %w", c.name, err)
	}

	expr := "data || ?::jsonb"
	args := []any{string(setJSON)}

	pushFields := make([]string, 0, len(update.Push))
	for field := range update.Push {
		pushFields = append(pushFields, field)
	}
	sort.Strings(pushFields)
	for _, field := range pushFields {
		if !topLevelField.MatchString(field) {
			return nil, fmt.Errorf("invalid push field %q", field)
		}
		elem, err := json.Marshal(update.Push[field])
		if err != nil {
			return nil, fmt.Errorf("encode %s push: %w", field, err)
		}
		expr = fmt.Sprintf("jsonb_set(%s, '{%s}', COALESCE(data->'%s', '[]'::jsonb) || jsonb_build_array(?::jsonb))", expr, field, field)
		args = append(args, string(elem))
	}

	sub := squirrel.Select("id").From(c.table)
	sub, err = c.where(sub, filter)
	if err != nil {
		return nil, err
	}
	subSQL, subArgs, err := sub.Limit(1).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s match sql: %w", c.name, err)
	}

	b := c.store.builder.Update(c.table).Set("data", squirrel.Expr(expr, args...))
	if at, ok := set["updatedAt"].(time.Time); ok {
		b = b.Set("updated_at", at)
	}
	stmt, stmtArgs, err := b.
		Where("id = ("+subSQL+")", subArgs...).
		Suffix("RETURNING data").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update %s sql: %w", c.name, err)
	}

	var raw []byte
	if err := c.store.executor(ctx).QueryRow(ctx, stmt, stmtArgs...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapWriteError(c.name, err)
	}
	return raw, nil
}

func (c *collection) DeleteByID(ctx context.Context, id string) (bool, error) {
	stmt, args, err := c.store.builder.Delete(c.table).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete %s sql: %w", c.name, err)
	}

	tag, err := c.store.executor(ctx).Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", c.name, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (c *collection) CountDocuments(ctx context.Context, filter domain.Filter) (int64, error) {
	b, err := c.where(c.store.builder.Select("COUNT(*)").From(c.table), filter)
	if err != nil {
		return 0, err
	}
	stmt, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count %s sql: %w", c.name, err)
	}

	var n int64
	if err := c.store.executor(ctx).QueryRow(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

func mapWriteError(name string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
	}
	return fmt.Errorf("write %s: %w", name, err)
}

var (
	_ port.DocumentStore = (*Store)(nil)
	_ port.TxRunner      = (*Store)(nil)
)
