package deviceflow

import "errors"

// Common errors that may occur during the device authorization flow
var (
	// ErrNotAuthorized indicates the session has no tokens yet
	ErrNotAuthorized = errors.New("session not authorized")

	// ErrTokenRefreshFailed indicates the refresh token exchange failed
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// ErrFlowClosed indicates the flow was shut down
	ErrFlowClosed = errors.New("device flow closed")
)

// Failure reasons recorded on sessions that will never be authorized
const (
	ReasonAccessDenied      = "access_denied"
	ReasonExpiredToken      = "expired_token"
	ReasonCancelled         = "cancelled"
	ReasonMalformedResponse = "malformed_response"
	ReasonRequestFailed     = "request_failed"
	ReasonInternalError     = "internal_error"
)
