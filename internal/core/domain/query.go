package domain

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// SortDirection orders query results.
type SortDirection int

const (
	SortAsc  SortDirection = 1
	SortDesc SortDirection = -1
)

// SortField orders by one document field.
type SortField struct {
	Field     string
	Direction SortDirection
}

// QueryFilters is the generic pagination request accepted by every repository.
type QueryFilters struct {
	Page       int
	Limit      int
	Filter     Filter
	Projection []string
	Sort       []SortField
}

// Normalize applies defaults for unset page and limit.
func (q QueryFilters) Normalize() QueryFilters {
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	return q
}

// Offset returns the number of filtered documents skipped before this page.
func (q QueryFilters) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Validate checks the pagination invariants page >= 1 and limit >= 1.
func (q QueryFilters) Validate() error {
	if q.Page < 1 {
		return ValidationError("page must be at least 1")
	}
	if q.Limit < 1 {
		return ValidationError("limit must be at least 1")
	}
	if err := ValidateFilter(q.Filter); err != nil {
		return err
	}
	for _, f := range q.Projection {
		if err := ValidateField(f); err != nil {
			return err
		}
	}
	for _, s := range q.Sort {
		if err := ValidateField(s.Field); err != nil {
			return err
		}
	}
	return nil
}

// QueryMetadata describes one page of a filtered result set.
type QueryMetadata struct {
	Page            int   `json:"page"`
	Limit           int   `json:"limit"`
	TotalCount      int64 `json:"totalCount"`
	FilterCount     int64 `json:"filterCount"`
	TotalPages      int64 `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
	FirstItemIndex  int64 `json:"firstItemIndex"`
	LastItemIndex   int64 `json:"lastItemIndex"`
	NextPage        *int  `json:"nextPage,omitempty"`
	PreviousPage    *int  `json:"previousPage,omitempty"`
}

// QueryResult is a page of entities plus its metadata.
type QueryResult[T any] struct {
	Data []T `json:"data"`
	QueryMetadata
}

// ComputeQueryMetadata derives pagination metadata. It has no side effects.
func ComputeQueryMetadata(totalCount, filterCount int64, page, limit int) (QueryMetadata, error) {
	if limit <= 0 {
		return QueryMetadata{}, ValidationError("limit must be at least 1")
	}
	if page < 1 {
		return QueryMetadata{}, ValidationError("page must be at least 1")
	}
	if totalCount < 0 || filterCount < 0 {
		return QueryMetadata{}, ValidationError("counts must not be negative")
	}

	l := int64(limit)
	p := int64(page)
	totalPages := (filterCount + l - 1) / l

	meta := QueryMetadata{
		Page:            page,
		Limit:           limit,
		TotalCount:      totalCount,
		FilterCount:     filterCount,
		TotalPages:      totalPages,
		HasNextPage:     p < totalPages,
		HasPreviousPage: page > 1,
	}

	first := (p-1)*l + 1
	if filterCount > 0 && first <= filterCount {
		meta.FirstItemIndex = first
		meta.LastItemIndex = min(p*l, filterCount)
	}

	if meta.HasNextPage {
		next := page + 1
		meta.NextPage = &next
	}
	if meta.HasPreviousPage {
		prev := page - 1
		meta.PreviousPage = &prev
	}

	return meta, nil
}
