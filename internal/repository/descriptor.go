package repository

import (
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

const (
	fieldID            = "id"
	fieldCreatedAt     = "createdAt"
	fieldUpdatedAt     = "updatedAt"
	fieldStatus        = "status"
	fieldStatusHistory = "statusHistory"
)

// Descriptor configures the generic repository for one entity type.
type Descriptor[T any] struct {
	// Collection names the backing document collection.
	Collection string
	// CodeField, CodePrefix and CodeWidth describe the human-facing sequential code.
	// CodeField is empty for entities without one.
	CodeField  string
	CodePrefix string
	CodeWidth  int
	// UniqueFields are enforced by the store's unique indexes.
	UniqueFields []string
	// SearchFields are matched by free-text list searches.
	SearchFields []string
	// FilterFields may be used as equality filters from list query strings.
	FilterFields []string
	// ProtectedFields are rejected by Update in addition to the managed fields.
	ProtectedFields []string
	// OwnerField holds the owning user id for *_own permissions.
	OwnerField string
	// Transitions enables TransitionStatus. Nil for entities without a status.
	Transitions domain.Transitions
	// Validate checks an entity before every write.
	Validate func(*T) error
}

// Spec returns the storage layout of the descriptor's collection.
func (d Descriptor[T]) Spec() port.CollectionSpec {
	unique := slices.Clone(d.UniqueFields)
	if d.CodeField != "" && !slices.Contains(unique, d.CodeField) {
		unique = append(unique, d.CodeField)
	}
	return port.CollectionSpec{Name: d.Collection, UniqueFields: unique}
}

// IsProtected reports whether field may not be written through Update.
func (d Descriptor[T]) IsProtected(field string) bool {
	switch field {
	case fieldID, fieldCreatedAt, fieldUpdatedAt:
		return true
	case fieldStatus, fieldStatusHistory:
		if d.Transitions != nil {
			return true
		}
	}
	if d.CodeField != "" && field == d.CodeField {
		return true
	}
	return slices.Contains(d.ProtectedFields, field)
}

// AllowsFilter reports whether field may be used as a list filter.
func (d Descriptor[T]) AllowsFilter(field string) bool {
	return slices.Contains(d.FilterFields, field)
}

// FilterValue converts a query string literal into the JSON scalar stored for
// field, so that string fields compare as strings whatever they look like.
func (d Descriptor[T]) FilterValue(field, raw string) (any, error) {
	kind, ok := jsonFieldKind(reflect.TypeFor[T](), field)
	if !ok {
		return raw, nil
	}
	switch kind {
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, domain.ValidationError("filter %s must be true or false", field)
		}
		return b, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, domain.ValidationError("filter %s must be an integer", field)
		}
		return n, nil
	}
	return raw, nil
}

// jsonFieldKind finds the kind of the struct field serialised as name,
// descending into embedded structs.
func jsonFieldKind(t reflect.Type, name string) (reflect.Kind, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return reflect.Invalid, false
	}
	for i := range t.NumField() {
		f := t.Field(i)
		tag, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if f.Anonymous && tag == "" {
			if kind, ok := jsonFieldKind(f.Type, name); ok {
				return kind, true
			}
			continue
		}
		if tag != name {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		return ft.Kind(), true
	}
	return reflect.Invalid, false
}
