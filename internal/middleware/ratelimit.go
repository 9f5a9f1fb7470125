package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/socialhub/internal/apperror"
	"github.com/sakif/socialhub/internal/auth"
	"github.com/sakif/socialhub/internal/observability"
)

// FailPolicy decides what happens when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503 Service Unavailable.
	FailClosed
)

// ParseFailPolicy maps the RATE_LIMIT_POLICY setting ("open" or "closed").
func ParseFailPolicy(s string) (FailPolicy, error) {
	switch s {
	case "", "open":
		return FailOpen, nil
	case "closed":
		return FailClosed, nil
	}
	return FailOpen, fmt.Errorf("unknown rate limit policy %q", s)
}

// CheckRateLimit counts one hit against key in a fixed window and reports
// whether it is still within limit.
//
// INCR creates the key at 1; only that first hit sets the EXPIRE, so the
// window starts at the first request and the key disappears when it ends.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, key string, limit int, window time.Duration) (bool, error) {
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// Limiter is a named fixed-window budget per caller. RateLimit applies it to
// HTTP routes; GraphQL resolvers call Allow directly so that an operation
// reachable on both surfaces draws from one budget.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	policy FailPolicy
	name   string
	logger *slog.Logger
}

// NewLimiter returns a limiter allowing limit hits per window for each
// caller. A nil client or a non-positive limit disables it.
func NewLimiter(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name string, logger *slog.Logger) *Limiter {
	return &Limiter{rdb: rdb, limit: limit, window: window, policy: policy, name: name, logger: logger}
}

func (l *Limiter) enabled() bool {
	return l != nil && l.rdb != nil && l.limit > 0
}

// Allow counts one hit for the caller in ctx. It returns an
// apperror.RateLimited when the budget is spent, and an apperror.Unavailable
// when Redis fails under FailClosed.
//
// The caller is the authenticated user if there is one, otherwise the client
// address stored by ClientAddr.
func (l *Limiter) Allow(ctx context.Context) error {
	if !l.enabled() {
		return nil
	}
	key := fmt.Sprintf("rl:%s:%s", l.name, callerKey(ctx))

	allowed, err := CheckRateLimit(ctx, l.rdb, key, l.limit, l.window)
	if err != nil {
		observability.RedisErrors.WithLabelValues("rate_limit").Inc()
		if l.policy == FailClosed {
			l.logger.Warn("rate limiter unavailable, rejecting request",
				slog.String("resource", l.name),
				slog.String("error", err.Error()),
			)
			return apperror.Unavailable("rate limiter unavailable")
		}
		l.logger.Warn("rate limiter unavailable, allowing request",
			slog.String("resource", l.name),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if !allowed {
		observability.RateLimitRejections.WithLabelValues(l.name).Inc()
		return apperror.RateLimited("rate limit exceeded")
	}
	return nil
}

// RateLimit applies l to every request of the routes it wraps. Rejections
// are 429 with Retry-After; a fail-closed Redis outage is 503.
func RateLimit(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !l.enabled() {
			return next
		}

		return ClientAddr(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := l.Allow(r.Context())
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			status := http.StatusServiceUnavailable
			if errors.Is(err, apperror.ErrRateLimited) {
				status = http.StatusTooManyRequests
				w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			}
			l.writeError(w, status, err)
		}))
	}
}

type clientAddrKey struct{}

// ClientAddr records the client host (r.RemoteAddr, which chi's RealIP
// rewrites) in the request context, where Limiter.Allow finds it.
func ClientAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientAddrKey{}, host)))
	})
}

func callerKey(ctx context.Context) string {
	if id, ok := auth.IdentityFromContext(ctx); ok {
		return "user:" + id.UserID
	}
	host, _ := ctx.Value(clientAddrKey{}).(string)
	return "ip:" + host
}

func (l *Limiter) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": apperror.Code(err), "message": apperror.PublicMessage(err)}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		l.logger.Error("failed to encode rate limit response", slog.String("error", err.Error()))
	}
}
