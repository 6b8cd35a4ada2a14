package middleware

import (
	"net/http"
	"strings"
	"time"
)

const (
	// CartTokenHeader carries the opaque anonymous cart token on requests
	// and echoes the active token on responses.
	CartTokenHeader = "X-Cart-Token"

	// CartTokenCookie persists the cart token for browser clients.
	CartTokenCookie = "cart_token"
)

// CartToken extracts the cart token from the request and stashes it in the
// context. Header wins over query parameter, query parameter wins over cookie.
func CartToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(CartTokenHeader))
		if token == "" {
			token = strings.TrimSpace(r.URL.Query().Get(CartTokenCookie))
		}
		if token == "" {
			if cookie, err := r.Cookie(CartTokenCookie); err == nil {
				token = strings.TrimSpace(cookie.Value)
			}
		}

		if token != "" {
			r = r.WithContext(WithCartToken(r.Context(), token))
		}

		next.ServeHTTP(w, r)
	})
}

// EchoCartToken writes the active token back via header and cookie so clients
// always hold the most recent rotation.
func EchoCartToken(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	if token == "" {
		return
	}
	w.Header().Set(CartTokenHeader, token)
	http.SetCookie(w, &http.Cookie{
		Name:     CartTokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
