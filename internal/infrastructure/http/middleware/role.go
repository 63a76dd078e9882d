package middleware

import (
	"net/http"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
)

// RequireRoles gates a route group on role membership. Admin is not implied;
// grant it explicitly where admins may pass. An authenticated request with
// the wrong role gets 403, which is distinct from the 401 the Authenticator
// returns for missing or bad credentials.
func RequireRoles(roles ...domain.Role) func(next http.Handler) http.Handler {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := AuthFromContext(r.Context())
			if claims == nil {
				unauthorized(w)
				return
			}
			if !allowed[claims.Role] {
				writeMiddlewareErr(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
