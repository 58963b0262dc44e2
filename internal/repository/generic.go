package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

const tracerName = "github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"

// Repository implements port.StatusRepository for any JSON-serialisable entity
// over a document collection.
type Repository[T any] struct {
	desc   Descriptor[T]
	coll   port.Collection
	seq    port.Sequence
	now    func() time.Time
	newID  func() string
	tracer trace.Tracer
}

// New builds a repository for desc over store. seq allocates sequential codes
// and may be nil when the descriptor has no code field.
func New[T any](store port.DocumentStore, seq port.Sequence, desc Descriptor[T]) *Repository[T] {
	return &Repository[T]{
		desc:   desc,
		coll:   store.Collection(desc.Collection),
		seq:    seq,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		tracer: otel.Tracer(tracerName),
	}
}

// WithClock overrides the timestamp source.
func (r *Repository[T]) WithClock(now func() time.Time) *Repository[T] {
	if now != nil {
		r.now = now
	}
	return r
}

// Descriptor returns the entity configuration.
func (r *Repository[T]) Descriptor() Descriptor[T] {
	return r.desc
}

// Create assigns id, timestamps and the sequential code, then inserts the entity.
func (r *Repository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, domain.ValidationError("%s: entity is required", r.desc.Collection)
	}
	if err := r.validate(entity); err != nil {
		return nil, err
	}

	doc, err := toMap(entity)
	if err != nil {
		return nil, err
	}

	id := r.newID()
	now := r.now()
	doc[fieldID] = id
	doc[fieldCreatedAt] = now
	doc[fieldUpdatedAt] = now

	if r.desc.CodeField != "" {
		if code, _ := doc[r.desc.CodeField].(string); code == "" {
			if r.seq == nil {
				return nil, fmt.Errorf("allocate %s: no sequence configured", r.desc.CodeField)
			}
			code, err := GetUnitID(ctx, r.seq, r.desc.Collection, r.desc.CodePrefix, r.desc.CodeWidth)
			if err != nil {
				return nil, fmt.Errorf("allocate %s: %w", r.desc.CodeField, err)
			}
			doc[r.desc.CodeField] = code
		}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.desc.Collection, err)
	}

	if err := r.coll.InsertOne(ctx, id, raw); err != nil {
		return nil, fmt.Errorf("insert %s: %w", r.desc.Collection, err)
	}

	return decode[T](raw)
}

// FindByID returns the entity or nil when absent.
func (r *Repository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	raw, err := r.coll.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find %s by id: %w", r.desc.Collection, err)
	}
	if raw == nil {
		return nil, nil
	}
	return decode[T](raw)
}

// FindOne returns the first entity matching filter or nil.
func (r *Repository[T]) FindOne(ctx context.Context, filter domain.Filter) (*T, error) {
	if err := domain.ValidateFilter(filter); err != nil {
		return nil, err
	}
	raw, err := r.coll.FindOne(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find one %s: %w", r.desc.Collection, err)
	}
	if raw == nil {
		return nil, nil
	}
	return decode[T](raw)
}

// Update merges patch into the stored entity, re-validates and persists it.
// It returns nil when id does not exist.
func (r *Repository[T]) Update(ctx context.Context, id string, patch domain.Patch) (*T, error) {
	if len(patch) == 0 {
		return nil, ErrEmptyUpdate
	}
	for field := range patch {
		if r.desc.IsProtected(field) {
			return nil, fmt.Errorf("%w: %s", ErrProtectedField, field)
		}
		if err := domain.ValidateField(field); err != nil {
			return nil, err
		}
	}

	raw, err := r.coll.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find %s by id: %w", r.desc.Collection, err)
	}
	if raw == nil {
		return nil, nil
	}

	current := map[string]any{}
	if err := json.Unmarshal(raw, &current); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	for k, v := range patch {
		current[k] = v
	}

	merged, err := fromMap[T](current)
	if err != nil {
		return nil, domain.WrapError(domain.KindValidationFailed, err, "invalid %s update", r.desc.Collection)
	}
	if err := r.validate(merged); err != nil {
		return nil, err
	}

	canonical, err := toMap(merged)
	if err != nil {
		return nil, err
	}
	set := make(map[string]any, len(patch)+1)
	for k := range patch {
		set[k] = canonical[k]
	}
	set[fieldUpdatedAt] = r.now()

	updated, err := r.coll.UpdateOne(ctx, domain.Eq{Field: fieldID, Value: id}, port.Update{Set: set})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", r.desc.Collection, err)
	}
	if updated == nil {
		return nil, nil
	}
	return decode[T](updated)
}

// Delete removes the entity and reports whether it existed.
func (r *Repository[T]) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := r.coll.DeleteByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", r.desc.Collection, err)
	}
	return deleted, nil
}

// Count returns the number of entities matching filter. A nil filter counts everything.
func (r *Repository[T]) Count(ctx context.Context, filter domain.Filter) (int64, error) {
	if err := domain.ValidateFilter(filter); err != nil {
		return 0, err
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.desc.Collection, err)
	}
	return n, nil
}

// Query returns one page of entities. The page read and both counts run concurrently
// and are not snapshot-isolated from each other.
func (r *Repository[T]) Query(ctx context.Context, q domain.QueryFilters) (*domain.QueryResult[T], error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ctx, span := r.tracer.Start(ctx, "repository.Query",
		trace.WithAttributes(
			attribute.String("collection", r.desc.Collection),
			attribute.Int("page", q.Page),
			attribute.Int("limit", q.Limit),
		),
	)
	defer span.End()

	var (
		docs        []json.RawMessage
		totalCount  int64
		filterCount int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = r.coll.Find(gctx, q.Filter, port.FindOptions{
			Projection: q.Projection,
			Sort:       q.Sort,
			Skip:       q.Offset(),
			Limit:      q.Limit,
		})
		if err != nil {
			return fmt.Errorf("find %s: %w", r.desc.Collection, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		totalCount, err = r.coll.CountDocuments(gctx, nil)
		if err != nil {
			return fmt.Errorf("count %s: %w", r.desc.Collection, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		filterCount, err = r.coll.CountDocuments(gctx, q.Filter)
		if err != nil {
			return fmt.Errorf("count filtered %s: %w", r.desc.Collection, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, err
	}

	meta, err := domain.ComputeQueryMetadata(totalCount, filterCount, q.Page, q.Limit)
	if err != nil {
		return nil, err
	}

	if len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	data := make([]T, 0, len(docs))
	for _, raw := range docs {
		entity, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		data = append(data, *entity)
	}

	span.SetAttributes(attribute.Int64("filter_count", filterCount), attribute.Int("returned", len(data)))

	return &domain.QueryResult[T]{Data: data, QueryMetadata: meta}, nil
}

// TransitionStatus moves the entity from one status to another as a compare-and-set,
// appending change to its history. It returns nil when id does not exist and
// ErrStatusMismatch when the current status is not from.
func (r *Repository[T]) TransitionStatus(ctx context.Context, id string, from, to domain.Status, change domain.StatusChange) (*T, error) {
	if r.desc.Transitions == nil {
		return nil, ErrNotStatusBearing
	}
	if !r.desc.Transitions.Allows(from, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	now := r.now()
	change.Status = to
	if change.ChangedAt.IsZero() {
		change.ChangedAt = now
	}

	filter := domain.And{
		domain.Eq{Field: fieldID, Value: id},
		domain.Eq{Field: fieldStatus, Value: string(from)},
	}
	update := port.Update{
		Set:  map[string]any{fieldStatus: to, fieldUpdatedAt: now},
		Push: map[string]any{fieldStatusHistory: change},
	}

	raw, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("transition %s: %w", r.desc.Collection, err)
	}
	if raw != nil {
		return decode[T](raw)
	}

	existing, err := r.coll.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find %s by id: %w", r.desc.Collection, err)
	}
	if existing == nil {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: expected %s", ErrStatusMismatch, from)
}

func (r *Repository[T]) validate(entity *T) error {
	if r.desc.Validate == nil {
		return nil
	}
	if err := r.desc.Validate(entity); err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return err
		}
		return domain.WrapError(domain.KindValidationFailed, err, "invalid %s", r.desc.Collection)
	}
	return nil
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return out, nil
}

func fromMap[T any](m map[string]any) (*T, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decode[T any](raw json.RawMessage) (*T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &out, nil
}

var _ port.StatusRepository[domain.Order] = (*Repository[domain.Order])(nil)
