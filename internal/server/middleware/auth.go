package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth returns middleware guarding moderator endpoints with a shared key.
// The key is read from the Authorization header (Bearer scheme) or from
// X-API-Key. An empty configured key disables the check, which suits a
// single-room workshop where the moderator's laptop is the only client.
func Auth(moderatorKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if moderatorKey == "" {
			return next
		}
		want := []byte(moderatorKey)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := presentedKey(r)
			if got == "" {
				deny(w, "moderator key required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				deny(w, "moderator key rejected")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, rest, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(rest)
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func deny(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
