package session

import "time"

// Status is the lifecycle state of a device authorization session
type Status string

const (
	// StatusPending means the poller is still waiting for the user to approve access
	StatusPending Status = "pending"

	// StatusAuthorized means tokens were issued; it never reverts
	StatusAuthorized Status = "authorized"

	// StatusFailed means no token will ever be issued for this session
	StatusFailed Status = "failed"
)

// Seed carries the provider-issued values a session is created with
type Seed struct {
	DeviceCode   string
	PollInterval time.Duration
	ExpiresAt    time.Time
}

// Session is a snapshot of one device authorization attempt.
// Values returned by the Registry are copies; mutating them has no effect.
type Session struct {
	Key string

	// Provider-issued, immutable after creation
	DeviceCode   string
	PollInterval time.Duration
	ExpiresAt    time.Time
	CreatedAt    time.Time

	AccessToken  string
	RefreshToken string
	TokenReady   bool

	Status        Status
	FailureReason string
}
