package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/partnershiphub/hub/pkg/tenancy"
)

// RoleLookup resolves a user's role in a project. Implementations return
// ErrNotMember (possibly wrapped) when the user has no membership.
type RoleLookup interface {
	RoleOf(ctx context.Context, projectID, userID string) (Role, error)
}

type roleCtxKey struct{}

// WithRole returns a new context carrying the caller's project role.
func WithRole(ctx context.Context, role Role) context.Context {
	return context.WithValue(ctx, roleCtxKey{}, role)
}

// RoleFromContext returns the caller's project role, if resolved.
func RoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(roleCtxKey{}).(Role)
	return role, ok
}

// RequireMember returns middleware that resolves the caller's role in the
// project from the request context and stores it for later permission
// checks. Non-members receive 403. The role is looked up on every request
// and never cached.
func RequireMember(lookup RoleLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok || id.UserID == "" {
				writeAuthzError(w, http.StatusUnauthorized, "unauthenticated", "not authenticated")
				return
			}
			projectID := tenancy.ProjectFromContext(r.Context())

			role, err := lookup.RoleOf(r.Context(), projectID, id.UserID)
			if err != nil {
				if errors.Is(err, ErrNotMember) {
					writeAuthzError(w, http.StatusForbidden, "forbidden", ErrNotMember.Error())
					return
				}
				writeAuthzError(w, http.StatusInternalServerError, "internal_error", "authorization check failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithRole(r.Context(), role)))
		})
	}
}

// RequirePermission returns middleware that enforces a role permission. It
// must run after RequireMember.
func RequirePermission(perm Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok || !role.Can(perm) {
				writeAuthzError(w, http.StatusForbidden, "forbidden",
					fmt.Sprintf("insufficient permissions: %s", perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthzError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
