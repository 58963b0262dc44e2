package domain

import (
	"errors"
	"testing"
)

func TestComputeQueryMetadata_Properties(t *testing.T) {
	for filterCount := int64(0); filterCount <= 37; filterCount++ {
		for limit := 1; limit <= 12; limit++ {
			for page := 1; page <= 6; page++ {
				meta, err := ComputeQueryMetadata(filterCount+5, filterCount, page, limit)
				if err != nil {
					t.Fatalf("ComputeQueryMetadata(%d,%d,%d): %v", filterCount, page, limit, err)
				}
				wantPages := (filterCount + int64(limit) - 1) / int64(limit)
				if meta.TotalPages != wantPages {
					t.Fatalf("totalPages = %d, want %d (filter=%d limit=%d)", meta.TotalPages, wantPages, filterCount, limit)
				}
				if meta.HasNextPage != (int64(page) < wantPages) {
					t.Fatalf("hasNextPage = %v for page %d of %d", meta.HasNextPage, page, wantPages)
				}
				if meta.HasPreviousPage != (page > 1) {
					t.Fatalf("hasPreviousPage = %v for page %d", meta.HasPreviousPage, page)
				}
				if (meta.NextPage != nil) != meta.HasNextPage {
					t.Fatalf("nextPage presence does not follow hasNextPage")
				}
				if (meta.PreviousPage != nil) != meta.HasPreviousPage {
					t.Fatalf("previousPage presence does not follow hasPreviousPage")
				}
				if meta.LastItemIndex > filterCount {
					t.Fatalf("lastItemIndex %d beyond filterCount %d", meta.LastItemIndex, filterCount)
				}
			}
		}
	}
}

func TestComputeQueryMetadata_SecondOfThreePages(t *testing.T) {
	meta, err := ComputeQueryMetadata(40, 25, 2, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.TotalPages != 3 || !meta.HasNextPage || !meta.HasPreviousPage {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.FirstItemIndex != 11 || meta.LastItemIndex != 20 {
		t.Fatalf("item range = %d..%d, want 11..20", meta.FirstItemIndex, meta.LastItemIndex)
	}
	if *meta.NextPage != 3 || *meta.PreviousPage != 1 {
		t.Fatalf("next/previous = %d/%d", *meta.NextPage, *meta.PreviousPage)
	}
	if meta.TotalCount != 40 || meta.FilterCount != 25 {
		t.Fatalf("counts not carried through: %+v", meta)
	}
}

func TestComputeQueryMetadata_LastPartialPage(t *testing.T) {
	meta, err := ComputeQueryMetadata(25, 25, 3, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.FirstItemIndex != 21 || meta.LastItemIndex != 25 {
		t.Fatalf("item range = %d..%d, want 21..25", meta.FirstItemIndex, meta.LastItemIndex)
	}
	if meta.HasNextPage || meta.NextPage != nil {
		t.Fatalf("expected no next page")
	}
}

func TestComputeQueryMetadata_EmptyResult(t *testing.T) {
	meta, err := ComputeQueryMetadata(0, 0, 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.TotalPages != 0 || meta.HasNextPage || meta.HasPreviousPage {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.FirstItemIndex != 0 || meta.LastItemIndex != 0 {
		t.Fatalf("expected empty item range, got %d..%d", meta.FirstItemIndex, meta.LastItemIndex)
	}
}

func TestComputeQueryMetadata_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		limit int
	}{
		{name: "zero limit", page: 1, limit: 0},
		{name: "negative limit", page: 1, limit: -3},
		{name: "zero page", page: 0, limit: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeQueryMetadata(10, 10, tt.page, tt.limit)
			if err == nil {
				t.Fatalf("expected error")
			}
			kind, ok := KindOf(err)
			if !ok || kind != KindValidationFailed {
				t.Fatalf("expected validation failure, got %v", err)
			}
		})
	}
}

func TestQueryFilters_NormalizeAndOffset(t *testing.T) {
	q := QueryFilters{}.Normalize()
	if q.Page != 1 || q.Limit != 10 {
		t.Fatalf("defaults = %d/%d, want 1/10", q.Page, q.Limit)
	}
	if q.Offset() != 0 {
		t.Fatalf("offset = %d, want 0", q.Offset())
	}
	q.Page = 4
	q.Limit = 25
	if q.Offset() != 75 {
		t.Fatalf("offset = %d, want 75", q.Offset())
	}
}

func TestQueryFilters_ValidateRejectsUnsafeFields(t *testing.T) {
	q := QueryFilters{Page: 1, Limit: 10, Filter: Eq{Field: "email'; drop", Value: "x"}}
	err := q.Validate()
	var de *Error
	if !errors.As(err, &de) || de.Kind != KindValidationFailed {
		t.Fatalf("expected validation error, got %v", err)
	}

	q = QueryFilters{Page: 1, Limit: 10, Sort: []SortField{{Field: "address.city", Direction: SortDesc}}}
	if err := q.Validate(); err != nil {
		t.Fatalf("dotted sort field rejected: %v", err)
	}
}

func TestSearchAny(t *testing.T) {
	if SearchAny("   ", "name") != nil {
		t.Fatalf("blank search should produce no filter")
	}
	f, ok := SearchAny("a.b", "name", "email").(Or)
	if !ok || len(f) != 2 {
		t.Fatalf("expected Or of two regexes, got %#v", f)
	}
	re := f[0].(Regex)
	if re.Pattern != `a\.b` || !re.CaseInsensitive {
		t.Fatalf("unexpected regex %+v", re)
	}
}

func TestAllOf(t *testing.T) {
	if AllOf(nil, nil) != nil {
		t.Fatalf("expected nil")
	}
	eq := Eq{Field: "userId", Value: "u1"}
	if got := AllOf(nil, eq); got != eq {
		t.Fatalf("single member should unwrap, got %#v", got)
	}
	if and, ok := AllOf(eq, eq).(And); !ok || len(and) != 2 {
		t.Fatalf("expected And of two")
	}
}
