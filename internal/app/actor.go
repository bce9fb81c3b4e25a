package app

import (
	"context"
	"net/http"
	"strconv"

	"github.com/pressdesk/pressdesk/internal/platform/httpx"
)

// Role is the single primary role carried by an authenticated staff user.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleCounter    Role = "counter_staff"
	RoleDesigner   Role = "designer"
	RoleOperator   Role = "operator"
	RoleAccountant Role = "accountant"
)

// Actor identifies the staff user behind a request. Authentication itself is
// handled upstream; the gateway forwards the resolved identity in headers.
type Actor struct {
	ID   int64
	Role Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor on the context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor, or nil on unauthenticated requests.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*Actor)
	return actor
}

// ActorMiddleware extracts the forwarded identity headers. Requests without
// them proceed with no actor; route groups decide whether that is acceptable.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idHeader := r.Header.Get("X-Actor-ID")
		if idHeader == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := strconv.ParseInt(idHeader, 10, 64)
		if err != nil || id <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed actor header")
			return
		}
		actor := &Actor{ID: id, Role: Role(r.Header.Get("X-Actor-Role"))}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

// RequireRole rejects requests whose actor is missing or not in the allowed set.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if actor == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "actor identity required")
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "role not permitted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
