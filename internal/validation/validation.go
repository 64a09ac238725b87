// Package validation checks values that cross the client's trust boundaries:
// session keys arriving on URLs and URIs returned by the identity provider
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// SessionKeyLength is the hex length of a session key
const SessionKeyLength = 32

var sessionKeyRegex = regexp.MustCompile(fmt.Sprintf("^[0-9a-f]{%d}$", SessionKeyLength))

// ValidationError represents a rejected value
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// ValidateSessionKey checks that key has the shape of a minted session key
func ValidateSessionKey(key string) error {
	if len(key) != SessionKeyLength {
		return &ValidationError{
			Field:   "session key",
			Value:   truncate(key),
			Message: fmt.Sprintf("length must be exactly %d characters", SessionKeyLength),
		}
	}
	if !sessionKeyRegex.MatchString(key) {
		return &ValidationError{
			Field:   "session key",
			Value:   truncate(key),
			Message: "must be lowercase hex",
		}
	}
	return nil
}

// ValidateVerificationURI checks that uri is an absolute http(s) URL a user can open
func ValidateVerificationURI(uri string) error {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return &ValidationError{Field: "verification URI", Value: uri, Message: err.Error()}
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return &ValidationError{Field: "verification URI", Value: uri, Message: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "verification URI", Value: uri, Message: "host is required"}
	}
	return nil
}

// truncate keeps oversized input out of error messages
func truncate(s string) string {
	const max = 64
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
