package deviceflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wrale/oauth2-device-client/internal/metrics"
)

// refreshTimeout bounds a refresh that no longer follows its caller's context
const refreshTimeout = 30 * time.Second

// Refresh exchanges the session's refresh token for a new token pair.
// Concurrent refreshes of the same session share one provider call.
func (f *Flow) Refresh(ctx context.Context, key string) error {
	return f.refreshIfStale(ctx, key, "")
}

// refreshIfStale refreshes unless the stored access token no longer matches
// stale, meaning another caller already replaced it. An empty stale always refreshes.
func (f *Flow) refreshIfStale(ctx context.Context, key, stale string) error {
	_, err, _ := f.refreshes.Do(key, func() (interface{}, error) {
		s, err := f.sessions.Get(key)
		if err != nil {
			return nil, err
		}
		if !s.TokenReady {
			return nil, ErrNotAuthorized
		}
		if stale != "" && s.AccessToken != stale {
			return nil, nil
		}

		// Joined callers share this call, so one caller going away must not cancel it
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		tok, err := f.provider.RefreshToken(rctx, s.RefreshToken)
		if err != nil {
			metrics.TokenRefreshes.WithLabelValues("error").Inc()
			f.logger.Warn("token refresh failed", zap.String("session", key), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrTokenRefreshFailed, err)
		}

		if err := f.sessions.SetTokens(key, tok.AccessToken, tok.RefreshToken); err != nil {
			metrics.TokenRefreshes.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: storing tokens: %w", ErrTokenRefreshFailed, err)
		}

		metrics.TokenRefreshes.WithLabelValues("success").Inc()
		f.logger.Debug("tokens refreshed", zap.String("session", key))
		return nil, nil
	})
	return err
}
