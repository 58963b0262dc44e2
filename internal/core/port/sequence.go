package port

import "context"

// Sequence hands out the next value of a named counter.
type Sequence interface {
	Next(ctx context.Context, name string) (int64, error)
}
