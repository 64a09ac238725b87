package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors returned by providers
var (
	ErrProviderUnavailable  = errors.New("oauth provider unavailable")
	ErrAuthorizationPending = errors.New("authorization pending")
	ErrSlowDown             = errors.New("polling too frequently")
	ErrAccessDenied         = errors.New("authorization denied")
	ErrExpiredToken         = errors.New("device code expired")
	ErrInvalidGrant         = errors.New("invalid grant")
	ErrUnauthorized         = errors.New("access token rejected")
	ErrMalformedResponse    = errors.New("malformed provider response")
	ErrRequestFailed        = errors.New("provider request failed")
)

// Error codes used by the device authorization grant, RFC 8628 section 3.5
const (
	CodeAuthorizationPending = "authorization_pending"
	CodeSlowDown             = "slow_down"
	CodeAccessDenied         = "access_denied"
	CodeExpiredToken         = "expired_token"
	CodeInvalidGrant         = "invalid_grant"
)

// Error describes a non-2xx provider response. It unwraps to one of the
// sentinel errors above so callers can use errors.Is.
type Error struct {
	StatusCode  int
	Code        string
	Description string
	Interval    int // slow_down interval in seconds when the provider supplied one

	err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (status %d", e.err, e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, ", %s", e.Code)
	}
	b.WriteString(")")
	if e.Description != "" && e.Description != e.Code {
		fmt.Fprintf(&b, ": %s", e.Description)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.err
}

// newError builds an Error, classifying it by error code first and status second
func newError(status int, code, description string) *Error {
	code = strings.ToLower(strings.TrimSpace(code))
	return &Error{
		StatusCode:  status,
		Code:        code,
		Description: strings.TrimSpace(description),
		err:         classify(status, code),
	}
}

func classify(status int, code string) error {
	switch code {
	case CodeAuthorizationPending:
		return ErrAuthorizationPending
	case CodeSlowDown:
		return ErrSlowDown
	case CodeAccessDenied:
		return ErrAccessDenied
	case CodeExpiredToken:
		return ErrExpiredToken
	case CodeInvalidGrant:
		return ErrInvalidGrant
	}

	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusPreconditionRequired:
		// Webex answers a pending device code with 428 and no RFC error field
		return ErrAuthorizationPending
	case status >= http.StatusInternalServerError:
		return ErrProviderUnavailable
	default:
		return ErrRequestFailed
	}
}
