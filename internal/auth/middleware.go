package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/joao-fontenele/shopflow/internal/domain"
)

const (
	UsernameHeader = "X-Username"
	UserIDHeader   = "X-User-Id"
)

// RequireToken rejects requests without an Authorization header. The token
// itself is validated upstream; here only its presence matters. The caller
// identity forwarded by the auth service is attached to the request context.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}

		id := domain.Identity{
			Username: strings.TrimSpace(r.Header.Get(UsernameHeader)),
			UserID:   strings.TrimSpace(r.Header.Get(UserIDHeader)),
		}
		next.ServeHTTP(w, r.WithContext(domain.WithIdentity(r.Context(), id)))
	})
}
