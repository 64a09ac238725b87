package validation

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateSessionKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
		errMsg  string
	}{
		{name: "valid key", key: "0123456789abcdef0123456789abcdef"},
		{name: "empty", key: "", wantErr: true, errMsg: "length must be exactly 32"},
		{name: "too short", key: "0123456789abcdef", wantErr: true, errMsg: "length must be exactly 32"},
		{name: "uppercase hex", key: "0123456789ABCDEF0123456789ABCDEF", wantErr: true, errMsg: "lowercase hex"},
		{name: "path traversal", key: "../../../../etc/passwd0123456789", wantErr: true, errMsg: "lowercase hex"},
		{name: "oversized", key: strings.Repeat("a", 4096), wantErr: true, errMsg: "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSessionKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.errMsg)
			}
			if len(verr.Value) > 67 {
				t.Errorf("error value not truncated: %d bytes", len(verr.Value))
			}
		})
	}
}

func TestValidateVerificationURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr bool
	}{
		{name: "https", uri: "https://login-k.webex.com/verify"},
		{name: "http", uri: "http://localhost:8080/device"},
		{name: "with query", uri: "https://idp.example.com/verify?userCode=ABCD-EFGH"},
		{name: "empty", uri: "", wantErr: true},
		{name: "relative", uri: "/verify", wantErr: true},
		{name: "javascript scheme", uri: "javascript:alert(1)", wantErr: true},
		{name: "missing host", uri: "https:///verify", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVerificationURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVerificationURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
		})
	}
}
