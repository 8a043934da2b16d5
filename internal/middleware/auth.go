package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/enum"
)

type contextKey string

const actorKey contextKey = "actor"

// Identifier resolves a bearer token to the calling user.
// Satisfied by *auth.IdentityProvider.
type Identifier interface {
	Resolve(ctx context.Context, token string) (*auth.Actor, error)
}

func Authenticate(idp Identifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
				return
			}

			token, ok := BearerToken(header)
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
				return
			}

			actor, err := idp.Resolve(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrInactiveUser):
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "user is inactive"})
				case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrUnknownUser):
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				default:
					log.Printf("ERROR: resolve identity: %v", err)
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				}
				return
			}

			ctx := WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if actor == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}

			if enum.HasRole(actor.Role, roles) {
				next.ServeHTTP(w, r)
				return
			}

			writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		})
	}
}

func WithActor(ctx context.Context, actor *auth.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) *auth.Actor {
	actor, _ := ctx.Value(actorKey).(*auth.Actor)
	return actor
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
