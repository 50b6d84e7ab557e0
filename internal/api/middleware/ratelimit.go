package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ai-stack-deploy/engine/internal/api/types"
	"github.com/ai-stack-deploy/engine/internal/ratelimit"
	"github.com/ai-stack-deploy/engine/pkg/logger"
)

// RateLimit enforces a per-user sliding-window budget for one request class.
// Keys are "<class>:<user_id>", so the same user has independent budgets for
// e.g. deploys and deletions. Must run after Auth; anonymous requests fall
// back to the remote address.
func RateLimit(store ratelimit.Store, class string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := r.RemoteAddr
			if id := GetIdentity(r.Context()); id != nil {
				subject = id.UserID
			}

			allowed, err := store.Allow(r.Context(), class+":"+subject, limit, window)
			if err != nil {
				// A broken limiter store must not take the API down.
				logger.L().Error("rate limit store failed, allowing request",
					zap.String("class", class),
					zap.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(types.APIResponse{
					Success: false,
					Error:   &types.APIError{Code: "rate_limited", Message: "Rate limit exceeded. Please try again later."},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
