package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

const defaultCodeWidth = 4

// FormatUnitID renders prefix followed by n zero-padded to width digits.
// Values wider than width are kept intact.
func FormatUnitID(prefix string, n int64, width int) string {
	if width <= 0 {
		width = defaultCodeWidth
	}
	digits := strconv.FormatInt(n, 10)
	if pad := width - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	return prefix + digits
}

// GetUnitID draws the next value of the named sequence and formats it as a code.
func GetUnitID(ctx context.Context, seq port.Sequence, name, prefix string, width int) (string, error) {
	n, err := seq.Next(ctx, name)
	if err != nil {
		return "", fmt.Errorf("next %s sequence value: %w", name, err)
	}
	return FormatUnitID(prefix, n, width), nil
}

// CountSequence derives the next value from the current document count of the
// collection named by the sequence. Two concurrent callers can read the same
// count and receive the same value; use an atomic counter where codes must be unique.
type CountSequence struct {
	store port.DocumentStore
}

// NewCountSequence builds a count-derived sequence over store.
func NewCountSequence(store port.DocumentStore) *CountSequence {
	return &CountSequence{store: store}
}

// Next returns count(collection) + 1.
func (s *CountSequence) Next(ctx context.Context, name string) (int64, error) {
	n, err := s.store.Collection(name).CountDocuments(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n + 1, nil
}

var _ port.Sequence = (*CountSequence)(nil)
