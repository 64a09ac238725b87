package deviceflow

import (
	"time"

	"github.com/wrale/oauth2-device-client/internal/session"
)

// Authorization is what the user needs to approve the device, RFC 8628 section 3.3
type Authorization struct {
	VerificationURI         string    `json:"verification_uri"`
	VerificationURIComplete string    `json:"verification_uri_complete,omitempty"`
	UserCode                string    `json:"user_code"`
	SessionKey              string    `json:"session_key"`
	ExpiresAt               time.Time `json:"expires_at"`
}

// StatusReport describes where a session is in its lifecycle
type StatusReport struct {
	Status     session.Status `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	TokenReady bool           `json:"token_ready"`
}
