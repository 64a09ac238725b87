package deviceflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/wrale/oauth2-device-client/internal/oauth"
	"github.com/wrale/oauth2-device-client/internal/session"
)

// mockProvider implements oauth.Provider for testing
type mockProvider struct {
	DeviceAuthorizeFunc func(ctx context.Context) (*oauth.DeviceAuthorization, error)
	PollTokenFunc       func(ctx context.Context, deviceCode string) (*oauth.Token, error)
	RefreshTokenFunc    func(ctx context.Context, refreshToken string) (*oauth.Token, error)
	ProfileFunc         func(ctx context.Context, accessToken string) (*oauth.Profile, error)

	mu        sync.Mutex
	polls     map[string][]time.Time
	refreshes []string
	profiles  []string
}

func (m *mockProvider) DeviceAuthorize(ctx context.Context) (*oauth.DeviceAuthorization, error) {
	if m.DeviceAuthorizeFunc != nil {
		return m.DeviceAuthorizeFunc(ctx)
	}
	return deviceAuthorization("device-code", 1, time.Minute), nil
}

func (m *mockProvider) PollToken(ctx context.Context, deviceCode string) (*oauth.Token, error) {
	m.mu.Lock()
	if m.polls == nil {
		m.polls = make(map[string][]time.Time)
	}
	m.polls[deviceCode] = append(m.polls[deviceCode], time.Now())
	m.mu.Unlock()

	if m.PollTokenFunc != nil {
		return m.PollTokenFunc(ctx, deviceCode)
	}
	return nil, oauth.ErrAuthorizationPending
}

func (m *mockProvider) RefreshToken(ctx context.Context, refreshToken string) (*oauth.Token, error) {
	m.mu.Lock()
	m.refreshes = append(m.refreshes, refreshToken)
	m.mu.Unlock()

	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return &oauth.Token{AccessToken: "refreshed-access", RefreshToken: refreshToken}, nil
}

func (m *mockProvider) Profile(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	m.mu.Lock()
	m.profiles = append(m.profiles, accessToken)
	m.mu.Unlock()

	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, accessToken)
	}
	return &oauth.Profile{ID: "person-1", DisplayName: "Test User"}, nil
}

func (m *mockProvider) pollTimes(deviceCode string) []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.polls[deviceCode]...)
}

func (m *mockProvider) refreshCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.refreshes...)
}

func (m *mockProvider) profileCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.profiles...)
}

// mockCodeWriter records QR code writes
type mockCodeWriter struct {
	mu     sync.Mutex
	codes  map[string]string
	errOut error
}

func (w *mockCodeWriter) WriteCode(key, content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.errOut != nil {
		return w.errOut
	}
	if w.codes == nil {
		w.codes = make(map[string]string)
	}
	w.codes[key] = content
	return nil
}

func deviceAuthorization(deviceCode string, interval int, lifetime time.Duration) *oauth.DeviceAuthorization {
	return &oauth.DeviceAuthorization{
		DeviceCode:              deviceCode,
		UserCode:                "ABCD-EFGH",
		VerificationURI:         "https://idp.example.com/verify",
		VerificationURIComplete: "https://idp.example.com/verify?userCode=ABCD-EFGH",
		ExpiresAt:               time.Now().Add(lifetime),
		Interval:                interval,
	}
}

// newTestFlow returns a flow whose provider intervals are milliseconds
func newTestFlow(t *testing.T, provider oauth.Provider, opts ...Option) (*Flow, *session.Registry) {
	t.Helper()
	registry := session.NewRegistry()
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	f := NewFlow(provider, registry, opts...)
	f.intervalUnit = time.Millisecond
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := f.Close(ctx); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	})
	return f, registry
}

// waitDone blocks until the session's poller stops
func waitDone(t *testing.T, f *Flow, key string) *StatusReport {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	report, err := f.Wait(ctx, key)
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	return report
}

// authorize starts a session and waits for the provider to grant tokens
func authorize(t *testing.T, f *Flow) string {
	t.Helper()
	auth, err := f.StartAuthorization(context.Background())
	if err != nil {
		t.Fatalf("StartAuthorization() error: %v", err)
	}
	if report := waitDone(t, f, auth.SessionKey); report.Status != session.StatusAuthorized {
		t.Fatalf("session status = %q, want %q", report.Status, session.StatusAuthorized)
	}
	return auth.SessionKey
}
