package port

import (
	"context"
	"encoding/json"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
)

// FindOptions narrows and orders a Find call.
type FindOptions struct {
	Projection []string
	Sort       []domain.SortField
	Skip       int
	Limit      int
}

// Update describes a partial document write. Set merges top-level fields and
// Push appends one element to each named array field.
type Update struct {
	Set  map[string]any
	Push map[string]any
}

// IsEmpty reports whether the update would change nothing.
func (u Update) IsEmpty() bool {
	return len(u.Set) == 0 && len(u.Push) == 0
}

// Collection is one named set of JSON documents keyed by id.
type Collection interface {
	Find(ctx context.Context, filter domain.Filter, opts FindOptions) ([]json.RawMessage, error)
	FindOne(ctx context.Context, filter domain.Filter) (json.RawMessage, error)
	FindByID(ctx context.Context, id string) (json.RawMessage, error)
	InsertOne(ctx context.Context, id string, doc json.RawMessage) error
	// UpdateOne applies update to the first document matching filter and returns
	// the updated document, or nil when nothing matched.
	UpdateOne(ctx context.Context, filter domain.Filter, update Update) (json.RawMessage, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
	CountDocuments(ctx context.Context, filter domain.Filter) (int64, error)
}

// CollectionSpec declares the storage layout of a collection.
type CollectionSpec struct {
	Name         string
	UniqueFields []string
}

// DocumentStore hands out collections over a shared backend.
type DocumentStore interface {
	Collection(name string) Collection
	EnsureCollection(ctx context.Context, spec CollectionSpec) error
	Ping(ctx context.Context) error
}

// TxRunner runs fn atomically. Collections used with the ctx passed to fn join the transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
