package mcpserver

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireToken guards an HTTP handler with a static bearer token.
// Requests without a matching Authorization header get a 401 with a
// WWW-Authenticate challenge.
func RequireToken(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}
