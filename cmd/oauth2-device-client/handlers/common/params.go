package common

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wrale/oauth2-device-client/internal/validation"
)

// SessionKeyParam is the route parameter holding the session key
const SessionKeyParam = "key"

// SessionKey returns the session key from the matched route
func SessionKey(r *http.Request) string {
	return chi.URLParam(r, SessionKeyParam)
}

// RequireSessionKey answers 404 for keys that could never have been minted
func RequireSessionKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := validation.ValidateSessionKey(SessionKey(r)); err != nil {
			WriteError(w, http.StatusNotFound, ErrorCodeUnknownSession, "No session exists for this key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
