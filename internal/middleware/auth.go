package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"tunevault/internal/auth"
	"tunevault/internal/logging"
)

// PrincipalResolver turns a bearer token into a principal.
type PrincipalResolver interface {
	Principal(token string) (auth.Principal, error)
}

// Authenticate resolves the caller from the Authorization header. Requests
// without one continue as anonymous; a malformed or invalid token is
// rejected with 401.
func Authenticate(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), auth.Anonymous())))
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			p, err := resolver.Principal(strings.TrimSpace(token))
			if err != nil {
				logging.FromContext(r.Context()).Warn().Err(err).Msg("rejected bearer token")
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := auth.WithPrincipal(r.Context(), p)
			ctx = logging.WithUserID(ctx, p.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
