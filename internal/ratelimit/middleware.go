package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ayiooo/shortlink/internal/httpx"
)

// MiddlewareConfig holds configuration for the HTTP middleware.
type MiddlewareConfig struct {
	Limiter     Limiter
	Logger      *slog.Logger
	TrustedHops int // proxies whose X-Forwarded-For entries are trusted; 0 keys by peer address
	Now         func() time.Time
}

// Middleware enforces the limiter per client IP. Every response carries
// X-RateLimit-* headers; rejected requests get 429 with Retry-After.
// When the limiter itself fails the request is let through.
func Middleware(cfg MiddlewareConfig) httpx.Middleware {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := httpx.ClientIP(r, cfg.TrustedHops)

			res, err := cfg.Limiter.Allow(ctx, ip)
			if err != nil {
				logger.WarnContext(ctx, "rate limiter unavailable, allowing request",
					"request_id", httpx.GetRequestID(ctx),
					"client_ip", ip,
					"error", err.Error(),
				)
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

			if !res.Allowed {
				retry := res.RetryAfter(now())
				h.Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
				logger.InfoContext(ctx, "rate limit exceeded",
					"request_id", httpx.GetRequestID(ctx),
					"client_ip", ip,
					"limit", res.Limit,
				)
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited",
					"Too many requests. Please try again later.",
					map[string]int{"retry_after_seconds": int(retry.Seconds())})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
