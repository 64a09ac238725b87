package deviceflow

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wrale/oauth2-device-client/internal/metrics"
	"github.com/wrale/oauth2-device-client/internal/oauth"
	"github.com/wrale/oauth2-device-client/internal/session"
)

// poll requests a token every interval until the provider issues one,
// rejects the device code, or ctx ends. Each wait starts after the previous
// response so two requests are never closer than the current interval.
func (f *Flow) poll(ctx context.Context, s session.Session, logger *zap.Logger) {
	interval := s.PollInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			f.finish(s.Key, stopReason(ctx), logger)
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			f.finish(s.Key, stopReason(ctx), logger)
			return
		}

		tok, err := f.provider.PollToken(ctx, s.DeviceCode)
		if err == nil {
			if err := f.sessions.SetTokens(s.Key, tok.AccessToken, tok.RefreshToken); err != nil {
				metrics.PollAttempts.WithLabelValues("malformed").Inc()
				logger.Warn("storing tokens failed", zap.Error(err))
				reason := ReasonInternalError
				if errors.Is(err, session.ErrEmptyToken) {
					reason = ReasonMalformedResponse
				}
				f.finish(s.Key, reason, logger)
				return
			}
			metrics.PollAttempts.WithLabelValues("authorized").Inc()
			metrics.AuthorizationOutcomes.WithLabelValues("authorized").Inc()
			logger.Info("device authorized")
			return
		}

		switch {
		case errors.Is(err, oauth.ErrAuthorizationPending):
			metrics.PollAttempts.WithLabelValues("pending").Inc()

		case errors.Is(err, oauth.ErrSlowDown):
			metrics.PollAttempts.WithLabelValues("slow_down").Inc()
			interval = f.slowDown(interval, err)
			logger.Debug("provider asked to slow down", zap.Duration("interval", interval))

		case errors.Is(err, oauth.ErrExpiredToken):
			metrics.PollAttempts.WithLabelValues("expired").Inc()
			f.finish(s.Key, ReasonExpiredToken, logger)
			return

		case errors.Is(err, oauth.ErrAccessDenied):
			metrics.PollAttempts.WithLabelValues("denied").Inc()
			f.finish(s.Key, ReasonAccessDenied, logger)
			return

		case ctx.Err() != nil:
			f.finish(s.Key, stopReason(ctx), logger)
			return

		case errors.Is(err, oauth.ErrProviderUnavailable):
			metrics.PollAttempts.WithLabelValues("unavailable").Inc()
			logger.Warn("token endpoint unavailable, retrying", zap.Error(err))

		case errors.Is(err, oauth.ErrMalformedResponse):
			metrics.PollAttempts.WithLabelValues("malformed").Inc()
			logger.Error("malformed token response", zap.Error(err))
			f.finish(s.Key, ReasonMalformedResponse, logger)
			return

		default:
			metrics.PollAttempts.WithLabelValues("rejected").Inc()
			logger.Error("token request rejected", zap.Error(err))
			f.finish(s.Key, rejectReason(err), logger)
			return
		}

		timer.Reset(interval)
	}
}

// slowDown widens the interval, preferring a larger provider-sent value
func (f *Flow) slowDown(current time.Duration, err error) time.Duration {
	next := current + SlowDownIncrement*f.intervalUnit

	var perr *oauth.Error
	if errors.As(err, &perr) && perr.Interval > 0 {
		if sent := time.Duration(perr.Interval) * f.intervalUnit; sent > next {
			next = sent
		}
	}
	return next
}

func stopReason(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ReasonExpiredToken
	}
	return ReasonCancelled
}

func rejectReason(err error) string {
	var perr *oauth.Error
	if errors.As(err, &perr) && perr.Code != "" {
		return perr.Code
	}
	return ReasonRequestFailed
}
