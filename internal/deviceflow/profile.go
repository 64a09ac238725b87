package deviceflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/wrale/oauth2-device-client/internal/metrics"
	"github.com/wrale/oauth2-device-client/internal/oauth"
)

// FetchProfile calls the profile endpoint on behalf of an authorized session.
// A rejected access token is refreshed once and the call retried once.
func (f *Flow) FetchProfile(ctx context.Context, key string) (*oauth.Profile, error) {
	s, err := f.sessions.Get(key)
	if err != nil {
		return nil, err
	}
	if !s.TokenReady {
		return nil, ErrNotAuthorized
	}

	profile, err := f.provider.Profile(ctx, s.AccessToken)
	if err == nil {
		metrics.ProfileCalls.WithLabelValues("success").Inc()
		return profile, nil
	}
	if !errors.Is(err, oauth.ErrUnauthorized) {
		metrics.ProfileCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetching profile: %w", err)
	}

	f.logger.Debug("access token rejected, refreshing", zap.String("session", key))
	if err := f.refreshIfStale(ctx, key, s.AccessToken); err != nil {
		metrics.ProfileCalls.WithLabelValues("refresh_failed").Inc()
		return nil, err
	}

	s, err = f.sessions.Get(key)
	if err != nil {
		return nil, err
	}

	profile, err = f.provider.Profile(ctx, s.AccessToken)
	if err != nil {
		metrics.ProfileCalls.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetching profile after refresh: %w", err)
	}
	metrics.ProfileCalls.WithLabelValues("refreshed").Inc()
	return profile, nil
}
