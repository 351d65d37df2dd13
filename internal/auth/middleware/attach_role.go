package auth

import (
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-qbank/internal/rbac"
)

// AttachRoleFromStore replaces the token role with the stored one, so a demoted or
// removed user loses access before the token expires. allowClaimFallback keeps the
// token role when the user is unknown (dev/offline).
func AttachRoleFromStore(users UserStore, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx)

			u, err := users.Get(ctx, sub)
			switch {
			case err == nil && u.Role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, u.Role)))
			case errors.Is(err, ErrUnknownUser):
				if allowClaimFallback && claimRole != "" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
