package port

import (
	"context"
	"time"
)

// RateLimitStore keeps the attempt timestamps of each limited key. Every
// window is the span [now-window, now].
type RateLimitStore interface {
	// TrimWindow drops attempts of key that fall before the window.
	TrimWindow(ctx context.Context, key string, window time.Duration, now time.Time) error
	// CountAttempts counts attempts of key inside the window.
	CountAttempts(ctx context.Context, key string, window time.Duration, now time.Time) (int, error)
	// RecordAttempt stores one attempt of key at the given time.
	RecordAttempt(ctx context.Context, key string, at time.Time) error
	// OldestAttempt returns the earliest attempt inside the window, if any.
	OldestAttempt(ctx context.Context, key string, window time.Duration, now time.Time) (time.Time, bool, error)
}
