package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/kopidulu/cafe-pos/internal/domain/audit"
	"github.com/kopidulu/cafe-pos/internal/domain/auth"
)

type actorKey struct{}

// ActorFromContext returns the audit actor stored by the API key middleware.
// Unauthenticated contexts resolve to the system actor.
func ActorFromContext(ctx context.Context) audit.Actor {
	if a, ok := ctx.Value(actorKey{}).(audit.Actor); ok {
		return a
	}
	return audit.System
}

// APIKeyAuth authenticates requests via HMAC-SHA256 hashed API keys from the
// api_key header. The validated key's name becomes the request's audit actor.
func APIKeyAuth(apikeys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("api_key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), actorKey{}, audit.Actor(info.Name))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
