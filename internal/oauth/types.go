// Package oauth provides the identity provider client for the device authorization grant
package oauth

import (
	"context"
	"encoding/json"
	"time"
)

// DeviceCodeGrantType is the grant type used when polling the device token endpoint
const DeviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// Token represents an OAuth2 access token with refresh capabilities
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// DeviceAuthorization holds the provider response to a device authorization request
type DeviceAuthorization struct {
	DeviceCode              string
	UserCode                string
	VerificationURI         string
	VerificationURIComplete string
	ExpiresAt               time.Time
	Interval                int // Poll interval in seconds, zero when the provider sent none
}

// Profile is the "who am I" payload returned by the profile endpoint.
// Raw keeps the provider document so callers can pass it through untouched.
type Profile struct {
	ID          string   `json:"id"`
	Emails      []string `json:"emails,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	NickName    string   `json:"nickName,omitempty"`
	FirstName   string   `json:"firstName,omitempty"`
	LastName    string   `json:"lastName,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
	OrgID       string   `json:"orgId,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// MarshalJSON emits the provider document when available
func (p Profile) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain Profile
	return json.Marshal(plain(p))
}

// Provider defines the calls the device flow makes against the identity provider
type Provider interface {
	// DeviceAuthorize requests a device code and verification URI
	DeviceAuthorize(ctx context.Context) (*DeviceAuthorization, error)

	// PollToken makes a single device token request for the given device code
	PollToken(ctx context.Context, deviceCode string) (*Token, error)

	// RefreshToken exchanges a refresh token for a new token pair
	RefreshToken(ctx context.Context, refreshToken string) (*Token, error)

	// Profile fetches the profile of the user owning the access token
	Profile(ctx context.Context, accessToken string) (*Profile, error)
}

// Config holds the provider endpoints and requested scopes
type Config struct {
	DeviceAuthorizeURL string
	DeviceTokenURL     string
	RefreshURL         string
	ProfileURL         string
	Scopes             []string
}
