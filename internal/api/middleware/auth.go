package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ai-stack-deploy/engine/internal/api/types"
	"github.com/ai-stack-deploy/engine/internal/auth"
)

type identityKeyType string

const identityKey identityKeyType = "identity"

// Auth validates the Bearer token on every request and places the caller
// identity in the request context. Failures get a 401 with a challenge
// header; the response body explains which way the token was bad.
func Auth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}
			token := strings.TrimSpace(ah[len("Bearer "):])

			id, err := verifier.Verify(token)
			if err != nil {
				unauthorized(w, types.FromAppError(err, false).Message)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(types.APIResponse{
		Success: false,
		Error:   &types.APIError{Code: "unauthorized", Message: msg},
	})
}

// WithIdentity returns a context carrying the given caller, as the Auth
// middleware would have set it.
func WithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the verified caller, or nil outside the auth middleware.
func GetIdentity(ctx context.Context) *auth.Identity {
	if v := ctx.Value(identityKey); v != nil {
		if id, ok := v.(*auth.Identity); ok {
			return id
		}
	}
	return nil
}
