package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/common"
	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/health"
	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/qr"
	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/sessions"
	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/signin"
	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/whoami"
	"github.com/wrale/oauth2-device-client/internal/deviceflow"
	"github.com/wrale/oauth2-device-client/internal/metrics"
	"github.com/wrale/oauth2-device-client/internal/ratelimit"
)

const requestTimeout = 30 * time.Second

type server struct {
	router  *chi.Mux
	flow    deviceflow.Service
	codes   qr.Locator
	limiter *ratelimit.IPRateLimiter
	logger  *zap.Logger
}

func newServer(cfg Config, flow deviceflow.Service, codes qr.Locator, logger *zap.Logger) *server {
	srv := &server{
		router:  chi.NewRouter(),
		flow:    flow,
		codes:   codes,
		limiter: ratelimit.New(cfg.rateLimitConfig()),
		logger:  logger,
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.RealIP)
	srv.router.Use(requestLogger(logger))
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(middleware.Timeout(requestTimeout))

	srv.routes()

	return srv
}

func (s *server) routes() {
	s.router.Method(http.MethodGet, "/health", health.New(s.flow).WithVersion(Version))
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware)

		r.Method(http.MethodPost, "/sign-in", signin.New(s.flow, s.logger))

		r.Route("/sessions/{"+common.SessionKeyParam+"}", func(r chi.Router) {
			r.Use(common.RequireSessionKey)
			r.Method(http.MethodGet, "/ready", sessions.NewReady(s.flow))
			r.Method(http.MethodGet, "/status", sessions.NewStatus(s.flow))
			r.Method(http.MethodGet, "/whoami", whoami.New(s.flow, s.logger))
			r.Method(http.MethodGet, "/qr.png", qr.New(s.flow, s.codes))
			r.Method(http.MethodDelete, "/", sessions.NewCancel(s.flow))
		})
	})
}

func (s *server) close() {
	s.limiter.Stop()
}

// requestLogger writes one structured line per request
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote", r.RemoteAddr),
					zap.String("request_id", middleware.GetReqID(r.Context())))
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
