package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mailauth/mailauth/internal/cache"
	"github.com/mailauth/mailauth/internal/metrics"
	"github.com/mailauth/mailauth/internal/model"
)

// Limiter checks token buckets. Implemented by cache.Cache.
type Limiter interface {
	CheckIPRateLimit(ctx context.Context, ip string, ratePerMinute, burst int) (*cache.RateLimitResult, error)
	CheckEmailRateLimit(ctx context.Context, address string, ratePerHour, burst int) (*cache.RateLimitResult, error)
}

// RateLimitConfig holds configuration for the OTP rate limiter.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter Limiter
	Metrics metrics.Recorder

	// Per client IP
	IPPerMinute int
	IPBurst     int
	// Per recipient address
	EmailPerHour int
	EmailBurst   int
}

// RateLimitOTP returns middleware that limits OTP requests per client IP
// and per recipient address. A nil Limiter disables it. Limiter errors
// fail open.
func RateLimitOTP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	return func(next http.Handler) http.Handler {
		if cfg.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)

			result, err := cfg.Limiter.CheckIPRateLimit(r.Context(), ip, cfg.IPPerMinute, cfg.IPBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed", slog.String("error", err.Error()))
			} else if !result.Allowed {
				cfg.reject(w, r, "ip", result)
				return
			}

			address, err := peekEmail(r)
			if err != nil {
				cfg.Logger.Debug("could not read email for rate limit", slog.String("error", err.Error()))
			}
			if address != "" {
				result, err := cfg.Limiter.CheckEmailRateLimit(r.Context(), address, cfg.EmailPerHour, cfg.EmailBurst)
				if err != nil {
					cfg.Logger.Error("email rate limit check failed", slog.String("error", err.Error()))
				} else if !result.Allowed {
					cfg.reject(w, r, "email", result)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (cfg RateLimitConfig) reject(w http.ResponseWriter, r *http.Request, scope string, result *cache.RateLimitResult) {
	cfg.Metrics.IncRateLimited(scope)
	cfg.Logger.Warn("rate limit exceeded",
		slog.String("scope", scope),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int64("retry_after_seconds", int64(result.RetryAfter.Seconds())),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	writeRateLimitError(w, result.RetryAfter)
}

// peekEmail reads the "email" field from a JSON body and restores the body
// for the next handler.
func peekEmail(r *http.Request) (string, error) {
	if r.Body == nil {
		return "", nil
	}
	body, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	return model.NormalizeEmail(payload.Email), nil
}

// writeRateLimitError writes a 429 Too Many Requests response.
func writeRateLimitError(w http.ResponseWriter, retryAfter time.Duration) {
	seconds := int(retryAfter.Seconds())
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", seconds))
}

// getClientIP returns the host part of RemoteAddr. chi's RealIP middleware
// runs first and rewrites RemoteAddr from proxy headers.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
