package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/showconnect/esign/pkg/composables"
	"github.com/showconnect/esign/pkg/configuration"
)

// RequestContext seeds the request context with the database pool, a request
// logger and the client identity used by audit fields and rate limiting.
func RequestContext(pool *pgxpool.Pool, log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = composables.WithPool(ctx, pool)
			ctx = composables.WithLogger(ctx, log.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			}))
			ctx = composables.WithClientIP(ctx, composables.ClientIP(r))
			ctx = composables.WithUserAgent(ctx, r.UserAgent())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Logging() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			composables.UseLogger(r.Context()).
				WithField("duration", time.Since(start).String()).
				Info("request completed")
		})
	}
}

// APIKeyAuth guards the admin API. The key resolves the tenant; signer-facing
// routes are authenticated by the capability token alone and skip this.
func APIKeyAuth(apiKey, tenantID string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != apiKey {
				writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
				return
			}
			ctx := composables.WithTenantID(r.Context(), tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRateLimiter builds the per-client-address limiter with the store chosen
// by configuration: in-process memory for a single instance, redis when
// counters have to be shared across instances.
func NewRateLimiter(opts configuration.RateLimitOptions, rate limiter.Rate) (*limiter.Limiter, error) {
	if opts.Storage == "redis" {
		client := redis.NewClient(&redis.Options{Addr: opts.RedisURL})
		store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix: "esign:ratelimit",
		})
		if err != nil {
			return nil, err
		}
		return limiter.New(store, rate), nil
	}
	return limiter.New(memory.NewStore(), rate), nil
}

// RateLimit enforces the client-address budget on the wrapped routes. The
// key is the resolved client IP, not the socket address, so proxied traffic
// is attributed to the originating client.
func RateLimit(instance *limiter.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if instance == nil {
				next.ServeHTTP(w, r)
				return
			}
			lctx, err := instance.Get(r.Context(), composables.ClientIP(r))
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "rate limiter unavailable")
				return
			}
			if lctx.Reached {
				writeJSONError(w, http.StatusTooManyRequests, "too many requests, please try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
