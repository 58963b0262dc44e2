package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/domain"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/core/port"
	appLogger "github.com/zufichris/multivendor-ecommerce-app-sub000/internal/infra/logger"
	"github.com/zufichris/multivendor-ecommerce-app-sub000/internal/transport/http/response"
)

// IdentifierFunc extracts the identifier used to scope rate limits, such as the client IP.
type IdentifierFunc func(*gin.Context) (string, bool)

// Charge selects which requests consume a rule's budget.
type Charge int

const (
	// ChargeEvery counts every admitted request.
	ChargeEvery Charge = iota
	// ChargeFailures counts only requests answered with a status of 400 or above.
	ChargeFailures
)

// RateLimitRule configures a sliding-window limit for a particular identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
	Charge     Charge
}

// RateLimiter enforces sliding-window limits backed by a port.RateLimitStore.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

// verdict is the outcome of one rule for one request.
type verdict struct {
	rule       RateLimitRule
	identifier string
	key        string
	allowed    bool
	remaining  int
	reset      time.Time
	retryAfter time.Duration
}

func (v verdict) retrySeconds() int {
	return max(int(math.Ceil(v.retryAfter.Seconds())), 0)
}

// tighter reports whether v should drive the response headers instead of other.
func (v verdict) tighter(other verdict) bool {
	if v.remaining != other.remaining {
		return v.remaining < other.remaining
	}
	return v.reset.Before(other.reset)
}

// RateLimitedBody is the failure envelope returned with status 429.
type RateLimitedBody struct {
	response.ErrorBody
	Rule       string `json:"rule"`
	RetryAfter int    `json:"retryAfter"`
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
// A nil store disables limiting.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock overrides the time source.
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// ClientIPIdentifier scopes a rule to the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// RateLimit returns a Gin middleware enforcing rules in order. The first
// exhausted rule rejects the request; store failures let the request through.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if len(active) == 0 || rl.store == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		now := rl.now()

		var (
			headline *verdict
			deferred []verdict
		)
		for _, rule := range active {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			v, err := rl.admit(ctx, rule, rule.Name+":"+identifier, now)
			if err != nil {
				rl.warn(ctx, "rate limit check failed", rule.Name, identifier, err)
				continue
			}
			v.identifier = identifier
			if !v.allowed {
				writeLimitHeaders(c, v)
				rejectRateLimited(c, v)
				return
			}

			if rule.Charge == ChargeFailures {
				deferred = append(deferred, v)
			}
			if headline == nil || v.tighter(*headline) {
				headline = &v
			}
		}

		if headline != nil {
			writeLimitHeaders(c, *headline)
		}

		c.Next()

		if len(deferred) == 0 || c.Writer.Status() < http.StatusBadRequest {
			return
		}
		for _, v := range deferred {
			if err := rl.store.RecordAttempt(ctx, v.key, now); err != nil {
				rl.warn(ctx, "rate limit charge failed", v.rule.Name, v.identifier, err)
			}
		}
	}
}

// admit reads the window for key and, for rules charged on every request,
// records this attempt when it fits.
func (rl *RateLimiter) admit(ctx context.Context, rule RateLimitRule, key string, now time.Time) (verdict, error) {
	if err := rl.store.TrimWindow(ctx, key, rule.Window, now); err != nil {
		return verdict{}, fmt.Errorf("trim window: %w", err)
	}
	count, err := rl.store.CountAttempts(ctx, key, rule.Window, now)
	if err != nil {
		return verdict{}, fmt.Errorf("count attempts: %w", err)
	}
	oldest, found, err := rl.store.OldestAttempt(ctx, key, rule.Window, now)
	if err != nil {
		return verdict{}, fmt.Errorf("oldest attempt: %w", err)
	}

	v := verdict{rule: rule, key: key, reset: now.Add(rule.Window)}
	if found {
		v.reset = oldest.Add(rule.Window)
	}
	v.retryAfter = max(v.reset.Sub(now), 0)

	if count >= rule.Limit {
		return v, nil
	}

	if rule.Charge == ChargeEvery {
		if err := rl.store.RecordAttempt(ctx, key, now); err != nil {
			return verdict{}, fmt.Errorf("record attempt: %w", err)
		}
		count++
	}

	v.allowed = true
	v.remaining = max(rule.Limit-count, 0)
	return v, nil
}

func (rl *RateLimiter) warn(ctx context.Context, msg, rule, identifier string, err error) {
	appLogger.Enrich(ctx, rl.logger).Warn(msg,
		zap.String("rule", rule),
		zap.String("identifier", appLogger.MaskIP(identifier)),
		zap.Error(err),
	)
}

func writeLimitHeaders(c *gin.Context, v verdict) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(v.rule.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(v.reset.Unix(), 10))
	if !v.allowed {
		h.Set("Retry-After", strconv.Itoa(v.retrySeconds()))
	}
}

func rejectRateLimited(c *gin.Context, v verdict) {
	seconds := v.retrySeconds()
	failure := domain.Failure{
		Kind:    domain.KindRateLimited,
		Message: fmt.Sprintf("too many requests, try again in %d seconds", seconds),
	}
	c.AbortWithStatusJSON(http.StatusTooManyRequests, RateLimitedBody{
		ErrorBody:  response.NewErrorBody(c, failure),
		Rule:       v.rule.Name,
		RetryAfter: seconds,
	})
}
