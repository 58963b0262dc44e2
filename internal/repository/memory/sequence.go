package memory

import (
	"context"
	"sync"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
)

// Sequence is an atomic in-process counter per name.
type Sequence struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewSequence returns a sequence whose counters start at zero.
func NewSequence() *Sequence {
	return &Sequence{values: make(map[string]int64)}
}

// Next increments and returns the named counter.
func (s *Sequence) Next(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name]++
	return s.values[name], nil
}

var _ port.Sequence = (*Sequence)(nil)
