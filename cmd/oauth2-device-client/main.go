// Package main implements the OAuth 2.0 Device Authorization Grant client
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wrale/oauth2-device-client/internal/credentials"
	"github.com/wrale/oauth2-device-client/internal/deviceflow"
	"github.com/wrale/oauth2-device-client/internal/oauth"
	"github.com/wrale/oauth2-device-client/internal/qrcode"
	"github.com/wrale/oauth2-device-client/internal/session"
)

// Version is set by the build process
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "oauth2-device-client",
		Short:        "OAuth 2.0 device authorization grant client",
		Version:      Version,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newLoginCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the sign-in HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := setupLogger(cfg.LogDebug)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return serve(cfg, logger)
		},
	}
}

func serve(cfg Config, logger *zap.Logger) error {
	provider, err := newProvider(cfg)
	if err != nil {
		return err
	}

	codes, err := qrcode.NewWriter(cfg.QRDir, qrcode.DefaultSize)
	if err != nil {
		return fmt.Errorf("preparing QR code directory: %w", err)
	}

	flow := deviceflow.NewFlow(provider, session.NewRegistry(),
		deviceflow.WithLogger(logger),
		deviceflow.WithCodeWriter(codes),
		deviceflow.WithMaxPollDuration(cfg.MaxPollDuration),
	)

	srv := newServer(cfg, flow, codes, logger)
	defer srv.close()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Port), zap.String("version", Version))
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		_ = flow.Close(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("starting server: %w", err)

	case sig := <-shutdown:
		logger.Info("starting shutdown", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutting down server", zap.Error(err))
			if err := httpServer.Close(); err != nil {
				logger.Error("closing server", zap.Error(err))
			}
		}

		if err := flow.Close(ctx); err != nil {
			logger.Error("stopping pollers", zap.Error(err))
		}
	}
	return nil
}

func newProvider(cfg Config) (*oauth.Client, error) {
	creds, err := credentials.New(cfg.ClientID, cfg.ClientSecret)
	if err != nil {
		return nil, fmt.Errorf("loading client credentials: %w", err)
	}

	provider, err := oauth.NewClient(creds, cfg.providerConfig(),
		oauth.WithHTTPClient(&http.Client{Timeout: cfg.HTTPClientTimeout}))
	if err != nil {
		return nil, fmt.Errorf("creating provider client: %w", err)
	}
	return provider, nil
}

func setupLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("setting up logger: %w", err)
	}
	return logger, nil
}
