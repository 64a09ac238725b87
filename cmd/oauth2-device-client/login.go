package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wrale/oauth2-device-client/internal/deviceflow"
	"github.com/wrale/oauth2-device-client/internal/qrcode"
	"github.com/wrale/oauth2-device-client/internal/session"
)

func newLoginCommand() *cobra.Command {
	var noQR bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize this device in the terminal and print the user's profile",
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

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			provider, err := newProvider(cfg)
			if err != nil {
				return err
			}
			flow := deviceflow.NewFlow(provider, session.NewRegistry(),
				deviceflow.WithLogger(logger),
				deviceflow.WithMaxPollDuration(cfg.MaxPollDuration),
			)
			defer func() { _ = flow.Close(context.Background()) }()

			return login(ctx, flow, cmd.OutOrStdout(), !noQR)
		},
	}
	cmd.Flags().BoolVar(&noQR, "no-qr", false, "Do not draw the verification QR code")
	return cmd
}

// login runs one device authorization to completion and prints the profile
func login(ctx context.Context, flow *deviceflow.Flow, out io.Writer, showQR bool) error {
	auth, err := flow.StartAuthorization(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Visit %s and enter code %s\n", auth.VerificationURI, auth.UserCode)
	if showQR && auth.VerificationURIComplete != "" {
		if code, err := qrcode.Terminal(auth.VerificationURIComplete); err == nil {
			fmt.Fprintf(out, "\nOr scan:\n%s\n", code)
		}
	}
	fmt.Fprintf(out, "Waiting for authorization (expires %s)...\n", auth.ExpiresAt.Format("15:04:05"))

	report, err := flow.Wait(ctx, auth.SessionKey)
	if err != nil {
		_ = flow.Cancel(auth.SessionKey)
		return fmt.Errorf("waiting for authorization: %w", err)
	}
	if report.Status != session.StatusAuthorized {
		return fmt.Errorf("authorization %s: %s", report.Status, report.Reason)
	}

	profile, err := flow.FetchProfile(ctx, auth.SessionKey)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(profile); err != nil {
		return fmt.Errorf("printing profile: %w", err)
	}
	return nil
}
