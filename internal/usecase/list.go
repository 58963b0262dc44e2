package usecase

import (
	"errors"
	"strings"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/repository"
)

// ListInput is the transport-neutral form of a list query string.
type ListInput struct {
	Page      int               `json:"page" validate:"gte=0"`
	Limit     int               `json:"limit" validate:"gte=0"`
	Search    string            `json:"search" validate:"max=200"`
	SortBy    string            `json:"sortBy"`
	SortOrder string            `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Filters   map[string]string `json:"filters"`

	// Problems lists query parameters the transport could not parse.
	Problems []string `json:"-"`
}

// Problem reports the recorded parse failures as one error.
func (in ListInput) Problem() error {
	if len(in.Problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(in.Problems, "; "))
}

// buildQuery turns a list request into repository filters. Free-text search becomes
// an Or of case-insensitive matches over the descriptor's search fields; only
// whitelisted filter fields are honoured. scope is added as a mandatory predicate.
func buildQuery[T any](desc repository.Descriptor[T], in ListInput, scope domain.Filter) (domain.QueryFilters, error) {
	q := domain.QueryFilters{Page: in.Page, Limit: in.Limit}.Normalize()
	if q.Limit > domain.MaxLimit {
		q.Limit = domain.MaxLimit
	}

	filters := []domain.Filter{scope, domain.SearchAny(in.Search, desc.SearchFields...)}
	for field, raw := range in.Filters {
		if !desc.AllowsFilter(field) {
			return domain.QueryFilters{}, domain.ValidationError("filtering by %q is not supported", field)
		}
		value, err := desc.FilterValue(field, raw)
		if err != nil {
			return domain.QueryFilters{}, err
		}
		filters = append(filters, domain.Eq{Field: field, Value: value})
	}
	q.Filter = domain.AllOf(filters...)

	if sortBy := strings.TrimSpace(in.SortBy); sortBy != "" {
		if err := domain.ValidateField(sortBy); err != nil {
			return domain.QueryFilters{}, err
		}
		dir := domain.SortAsc
		if strings.EqualFold(in.SortOrder, "desc") {
			dir = domain.SortDesc
		}
		q.Sort = []domain.SortField{{Field: sortBy, Direction: dir}}
	} else {
		q.Sort = []domain.SortField{{Field: "createdAt", Direction: domain.SortDesc}}
	}

	return q, nil
}

// ownerScope restricts reads to records owned by the caller when the caller
// only holds the _own variant of action.
func ownerScope(auth domain.AuthContext, resource domain.Resource, full, own domain.Action, ownerField string) domain.Filter {
	if !auth.OwnScope(resource, full, own) {
		return nil
	}
	return domain.Eq{Field: ownerField, Value: auth.UserID()}
}

// notFound is returned for missing records and for records outside the caller's scope.
func notFound(resource domain.Resource, id string) error {
	return domain.NotFoundError("%s %s not found", resource, id)
}
