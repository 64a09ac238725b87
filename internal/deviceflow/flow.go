// Package deviceflow drives the client side of the OAuth 2.0 Device
// Authorization Grant (RFC 8628): it starts authorizations, polls the token
// endpoint in the background, refreshes tokens and calls the profile API.
package deviceflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wrale/oauth2-device-client/internal/metrics"
	"github.com/wrale/oauth2-device-client/internal/oauth"
	"github.com/wrale/oauth2-device-client/internal/session"
)

const (
	// DefaultPollInterval applies when the provider omits interval, RFC 8628 section 3.2
	DefaultPollInterval = 5

	// SlowDownIncrement is added to the interval on every slow_down, RFC 8628 section 3.5
	SlowDownIncrement = 5

	// DefaultMaxPollDuration bounds polling when the provider omits expires_in
	DefaultMaxPollDuration = 15 * time.Minute
)

// Service defines the operations exposed to the HTTP and CLI surfaces
type Service interface {
	// StartAuthorization requests a device code and starts polling for it
	StartAuthorization(ctx context.Context) (*Authorization, error)

	// IsAuthorized reports whether tokens were issued for the session
	IsAuthorized(key string) (bool, error)

	// Status returns the lifecycle state of the session
	Status(key string) (*StatusReport, error)

	// FetchProfile calls the profile endpoint with the session's access token
	FetchProfile(ctx context.Context, key string) (*oauth.Profile, error)

	// Cancel stops polling for a pending session
	Cancel(key string) error

	// CheckHealth verifies the flow is accepting work
	CheckHealth(ctx context.Context) error
}

// CodeWriter persists a scannable rendering of a verification URI
type CodeWriter interface {
	WriteCode(key, content string) error
}

type poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Flow implements Service on top of a Provider and a session Registry
type Flow struct {
	provider        oauth.Provider
	sessions        *session.Registry
	codes           CodeWriter
	logger          *zap.Logger
	maxPollDuration time.Duration

	// Provider intervals are in seconds
	intervalUnit time.Duration

	refreshes singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	pollers map[string]*poller
	closed  bool
}

// NewFlow creates a device flow that stores sessions in registry
func NewFlow(provider oauth.Provider, registry *session.Registry, opts ...Option) *Flow {
	ctx, cancel := context.WithCancel(context.Background())
	f := &Flow{
		provider:        provider,
		sessions:        registry,
		logger:          zap.NewNop(),
		maxPollDuration: DefaultMaxPollDuration,
		intervalUnit:    time.Second,
		ctx:             ctx,
		cancel:          cancel,
		pollers:         make(map[string]*poller),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StartAuthorization requests a device code from the provider, registers a
// pending session and launches its poller. The poller outlives ctx.
func (f *Flow) StartAuthorization(ctx context.Context) (*Authorization, error) {
	if f.isClosed() {
		return nil, ErrFlowClosed
	}

	da, err := f.provider.DeviceAuthorize(ctx)
	if err != nil {
		metrics.AuthorizationRequestFailures.Inc()
		f.logger.Warn("device authorization request failed", zap.Error(err))
		return nil, fmt.Errorf("requesting device authorization: %w", err)
	}

	interval := da.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	expiresAt := da.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(f.maxPollDuration)
	}

	key, s, err := f.sessions.Create(session.Seed{
		DeviceCode:   da.DeviceCode,
		PollInterval: time.Duration(interval) * f.intervalUnit,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	logger := f.logger.With(zap.String("session", key))

	if f.codes != nil {
		uri := da.VerificationURIComplete
		if uri == "" {
			uri = da.VerificationURI
		}
		if err := f.codes.WriteCode(key, uri); err != nil {
			logger.Warn("writing QR code failed", zap.Error(err))
		}
	}

	f.launch(s, logger)
	metrics.AuthorizationsStarted.Inc()
	logger.Info("device authorization started",
		zap.String("user_code", da.UserCode),
		zap.Duration("interval", s.PollInterval),
		zap.Time("expires_at", expiresAt))

	return &Authorization{
		VerificationURI:         da.VerificationURI,
		VerificationURIComplete: da.VerificationURIComplete,
		UserCode:                da.UserCode,
		SessionKey:              key,
		ExpiresAt:               expiresAt,
	}, nil
}

func (f *Flow) launch(s session.Session, logger *zap.Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		_ = f.sessions.MarkFailed(s.Key, ReasonCancelled)
		return
	}

	ctx, cancel := context.WithDeadline(f.ctx, s.ExpiresAt)
	p := &poller{cancel: cancel, done: make(chan struct{})}
	f.pollers[s.Key] = p
	f.wg.Add(1)
	metrics.ActivePollers.Inc()

	go f.run(ctx, s, p, logger)
}

// run supervises a single poller so a panic fails only its own session
func (f *Flow) run(ctx context.Context, s session.Session, p *poller, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("poller panicked", zap.Any("panic", r), zap.Stack("stack"))
			f.finish(s.Key, ReasonInternalError, logger)
		}
		metrics.ActivePollers.Dec()
		p.cancel()

		f.mu.Lock()
		delete(f.pollers, s.Key)
		f.mu.Unlock()

		close(p.done)
		f.wg.Done()
	}()

	f.poll(ctx, s, logger)
}

// IsAuthorized reports whether tokens were issued for the session
func (f *Flow) IsAuthorized(key string) (bool, error) {
	return f.sessions.IsReady(key)
}

// Status returns the lifecycle state of the session
func (f *Flow) Status(key string) (*StatusReport, error) {
	s, err := f.sessions.Get(key)
	if err != nil {
		return nil, err
	}
	return &StatusReport{
		Status:     s.Status,
		Reason:     s.FailureReason,
		TokenReady: s.TokenReady,
	}, nil
}

// Wait blocks until the session's poller stops or ctx is done
func (f *Flow) Wait(ctx context.Context, key string) (*StatusReport, error) {
	f.mu.Lock()
	p, ok := f.pollers[key]
	f.mu.Unlock()

	if ok {
		select {
		case <-p.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.Status(key)
}

// Cancel stops polling for the session. Sessions that already finished are left as they are.
func (f *Flow) Cancel(key string) error {
	if _, err := f.sessions.Get(key); err != nil {
		return err
	}

	f.mu.Lock()
	p, ok := f.pollers[key]
	f.mu.Unlock()

	if ok {
		p.cancel()
	}
	return nil
}

// Close cancels every poller and waits for them to stop
func (f *Flow) Close(ctx context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.cancel()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for pollers: %w", ctx.Err())
	}
}

// CheckHealth verifies the flow is accepting work
func (f *Flow) CheckHealth(ctx context.Context) error {
	if f.isClosed() {
		return ErrFlowClosed
	}
	return ctx.Err()
}

func (f *Flow) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// finish marks a pending session failed and records the outcome
func (f *Flow) finish(key, reason string, logger *zap.Logger) {
	if err := f.sessions.MarkFailed(key, reason); err != nil && !errors.Is(err, session.ErrUnknownSession) {
		logger.Error("marking session failed", zap.Error(err))
	}
	metrics.AuthorizationOutcomes.WithLabelValues(reason).Inc()
	logger.Info("device authorization failed", zap.String("reason", reason))
}
