package deviceflow

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the device flow implementation
type Option func(*Flow)

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithCodeWriter sets where the QR code for verification_uri_complete is written
func WithCodeWriter(w CodeWriter) Option {
	return func(f *Flow) {
		f.codes = w
	}
}

// WithMaxPollDuration bounds polling when the provider does not state a
// device code lifetime (expires_in)
func WithMaxPollDuration(d time.Duration) Option {
	return func(f *Flow) {
		if d > 0 {
			f.maxPollDuration = d
		}
	}
}
