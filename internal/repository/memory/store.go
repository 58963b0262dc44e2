// Package memory provides an in-process document store for tests and local runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sort"
	"sync"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

type table struct {
	order  []string
	docs   map[string]json.RawMessage
	unique []string
}

func newTable() *table {
	return &table{docs: make(map[string]json.RawMessage)}
}

func (t *table) clone() *table {
	return &table{
		order:  slices.Clone(t.order),
		docs:   maps.Clone(t.docs),
		unique: slices.Clone(t.unique),
	}
}

// Store keeps collections in memory. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	// txMu serialises WithinTx callers so snapshots do not interleave.
	txMu sync.Mutex
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string]*table)}
}

// Collection returns a handle on the named collection, creating it on first write.
func (s *Store) Collection(name string) port.Collection {
	return &collection{store: s, name: name}
}

// EnsureCollection registers the collection's unique fields.
func (s *Store) EnsureCollection(_ context.Context, spec port.CollectionSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.table(spec.Name)
	for _, f := range spec.UniqueFields {
		if !slices.Contains(t.unique, f) {
			t.unique = append(t.unique, f)
		}
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

type txKey struct{}

// WithinTx runs fn and restores every collection to its prior state if fn fails.
// Writers outside fn are not isolated from it. Nested calls join the outer one.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}
	ctx = context.WithValue(ctx, txKey{}, s)

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := make(map[string]*table, len(s.tables))
	for name, t := range s.tables {
		snapshot[name] = t.clone()
	}
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.tables = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// table must be called with mu held for writing.
func (s *Store) table(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = newTable()
		s.tables[name] = t
	}
	return t
}

type collection struct {
	store *Store
	name  string
}

func (c *collection) snapshot() ([]map[string]any, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	t, ok := c.store.tables[c.name]
	if !ok {
		return nil, nil
	}
	out := make([]map[string]any, 0, len(t.order))
	for _, id := range t.order {
		doc := map[string]any{}
		if err := json.Unmarshal(t.docs[id], &doc); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *collection) filtered(filter domain.Filter) ([]map[string]any, error) {
	docs, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	out := docs[:0]
	for _, doc := range docs {
		ok, err := match(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (c *collection) Find(ctx context.Context, filter domain.Filter, opts port.FindOptions) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := c.filtered(filter)
	if err != nil {
		return nil, err
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(docs, func(i, j int) bool {
			for _, s := range opts.Sort {
				a, _ := lookup(docs[i], s.Field)
				b, _ := lookup(docs[j], s.Field)
				cmp, ok := compareValues(a, b)
				if !ok || cmp == 0 {
					continue
				}
				if s.Direction == domain.SortDesc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if opts.Skip > 0 {
		if opts.Skip >= len(docs) {
			docs = nil
		} else {
			docs = docs[opts.Skip:]
		}
	}
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}

	out := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		raw, err := json.Marshal(project(doc, opts.Projection))
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.name, err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func project(doc map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return doc
	}
	out := map[string]any{"id": doc["id"]}
	for _, f := range fields {
		top := domain.FieldPath(f)[0]
		if v, ok := doc[top]; ok {
			out[top] = v
		}
	}
	return out
}

func (c *collection) FindOne(ctx context.Context, filter domain.Filter) (json.RawMessage, error) {
	docs, err := c.Find(ctx, filter, port.FindOptions{Limit: 1})
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (c *collection) FindByID(ctx context.Context, id string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	t, ok := c.store.tables[c.name]
	if !ok {
		return nil, nil
	}
	raw, ok := t.docs[id]
	if !ok {
		return nil, nil
	}
	return slices.Clone(raw), nil
}

func (c *collection) InsertOne(ctx context.Context, id string, doc json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	decoded := map[string]any{}
	if err := json.Unmarshal(doc, &decoded); err != nil {
		return fmt.Errorf("decode %s: %w", c.name, err)
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	t := c.store.table(c.name)
	if _, exists := t.docs[id]; exists {
		return fmt.Errorf("%w: id %s", repository.ErrDuplicate, id)
	}
	if err := t.checkUnique(id, decoded); err != nil {
		return err
	}
	t.docs[id] = slices.Clone(doc)
	t.order = append(t.order, id)
	return nil
}

// checkUnique must be called with the store lock held.
func (t *table) checkUnique(selfID string, doc map[string]any) error {
	for _, field := range t.unique {
		want, ok := lookup(doc, field)
		if !ok || want == nil {
			continue
		}
		for _, id := range t.order {
			if id == selfID {
				continue
			}
			other := map[string]any{}
			if err := json.Unmarshal(t.docs[id], &other); err != nil {
				return err
			}
			if got, ok := lookup(other, field); ok && reflect.DeepEqual(got, want) {
				return fmt.Errorf("%w: %s", repository.ErrDuplicate, field)
			}
		}
	}
	return nil
}

func (c *collection) UpdateOne(ctx context.Context, filter domain.Filter, update port.Update) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	t, ok := c.store.tables[c.name]
	if !ok {
		return nil, nil
	}

	for _, id := range t.order {
		doc := map[string]any{}
		if err := json.Unmarshal(t.docs[id], &doc); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", c.name, id, err)
		}
		matched, err := match(doc, filter)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}

		for k, v := range update.Set {
			nv, err := normalize(v)
			if err != nil {
				return nil, fmt.Errorf("normalize %s: %w", k, err)
			}
			doc[k] = nv
		}
		for k, v := range update.Push {
			nv, err := normalize(v)
			if err != nil {
				return nil, fmt.Errorf("normalize %s: %w", k, err)
			}
			arr, _ := doc[k].([]any)
			doc[k] = append(arr, nv)
		}

		if err := t.checkUnique(id, doc); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.name, err)
		}
		t.docs[id] = raw
		return slices.Clone(raw), nil
	}
	return nil, nil
}

func (c *collection) DeleteByID(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	t, ok := c.store.tables[c.name]
	if !ok {
		return false, nil
	}
	if _, ok := t.docs[id]; !ok {
		return false, nil
	}
	delete(t.docs, id)
	t.order = slices.DeleteFunc(t.order, func(v string) bool { return v == id })
	return true, nil
}

func (c *collection) CountDocuments(ctx context.Context, filter domain.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	docs, err := c.filtered(filter)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

var (
	_ port.DocumentStore = (*Store)(nil)
	_ port.TxRunner      = (*Store)(nil)
)
