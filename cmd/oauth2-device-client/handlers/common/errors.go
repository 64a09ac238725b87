package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wrale/oauth2-device-client/internal/deviceflow"
	"github.com/wrale/oauth2-device-client/internal/oauth"
	"github.com/wrale/oauth2-device-client/internal/session"
)

// Error codes returned in error responses
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeUnknownSession     = "unknown_session"
	ErrorCodeNotAuthorized      = "not_authorized"
	ErrorCodeTokenRefreshFailed = "token_refresh_failed"
	ErrorCodeProviderError      = "provider_error"
	ErrorCodeUnavailable        = "temporarily_unavailable"
	ErrorCodeServerError        = "server_error"
)

// ErrorResponse follows the RFC 6749 section 5.2 error shape
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// SetJSONHeaders sets headers for JSON responses carrying session data
func SetJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
}

// WriteJSON sends v with the given status
func WriteJSON(w http.ResponseWriter, status int, v any) {
	SetJSONHeaders(w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError sends a standardized error response
func WriteError(w http.ResponseWriter, status int, code string, description string) {
	WriteJSON(w, status, ErrorResponse{
		Error:            code,
		ErrorDescription: strings.TrimSpace(description),
	})
}

// WriteFlowError maps device flow errors to HTTP status codes
func WriteFlowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		WriteError(w, http.StatusNotFound, ErrorCodeUnknownSession, "No session exists for this key")
	case errors.Is(err, deviceflow.ErrNotAuthorized):
		WriteError(w, http.StatusConflict, ErrorCodeNotAuthorized, "The device has not been authorized yet")
	case errors.Is(err, deviceflow.ErrFlowClosed):
		WriteError(w, http.StatusServiceUnavailable, ErrorCodeUnavailable, "Shutting down")
	case errors.Is(err, deviceflow.ErrTokenRefreshFailed):
		WriteError(w, http.StatusBadGateway, ErrorCodeTokenRefreshFailed, err.Error())
	case isProviderError(err):
		WriteError(w, http.StatusBadGateway, ErrorCodeProviderError, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, ErrorCodeServerError, "Internal error")
	}
}

func isProviderError(err error) bool {
	var perr *oauth.Error
	if errors.As(err, &perr) {
		return true
	}
	for _, target := range []error{
		oauth.ErrProviderUnavailable,
		oauth.ErrMalformedResponse,
		oauth.ErrRequestFailed,
		oauth.ErrUnauthorized,
		oauth.ErrInvalidGrant,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
