// Package credentials holds the OAuth client credentials used against the provider
package credentials

import (
	"encoding/base64"
	"errors"
	"strings"
)

var (
	// ErrMissingClientID indicates the client identifier was not configured
	ErrMissingClientID = errors.New("client ID is required")

	// ErrMissingClientSecret indicates the client secret was not configured
	ErrMissingClientSecret = errors.New("client secret is required")
)

// Store holds the client identifier and secret together with the precomputed
// basic-auth credential. It is read-only after construction.
type Store struct {
	clientID     string
	clientSecret string
	basicAuth    string
}

// New creates a credential store, failing when either value is absent
func New(clientID, clientSecret string) (*Store, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)

	if clientID == "" {
		return nil, ErrMissingClientID
	}
	if clientSecret == "" {
		return nil, ErrMissingClientSecret
	}

	return &Store{
		clientID:     clientID,
		clientSecret: clientSecret,
		basicAuth:    base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret)),
	}, nil
}

// ClientID returns the OAuth client identifier
func (s *Store) ClientID() string {
	return s.clientID
}

// ClientSecret returns the OAuth client secret
func (s *Store) ClientSecret() string {
	return s.clientSecret
}

// BasicAuthHeaderValue returns base64("clientId:clientSecret") for use after "Basic "
func (s *Store) BasicAuthHeaderValue() string {
	return s.basicAuth
}
