package middleware

import (
	"net/http"

	"github.com/zhouzirui/haley/backend/internal/config"
)

// Authenticated reports whether the request carries the access-code cookie.
func Authenticated(r *http.Request, cfg config.AuthConfig) bool {
	cookie, err := r.Cookie(cfg.CookieName)
	if err != nil {
		return false
	}
	return cookie.Value == cfg.AccessCode
}

// RedirectToLogin sends unauthenticated page requests to /login.
func RedirectToLogin(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Authenticated(r, cfg) {
				http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects unauthenticated API and websocket requests with 401.
func RequireAuth(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !Authenticated(r, cfg) {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
