// Command devjwt is a local RS256 token issuer. It publishes a JWKS document
// and mints tokens for any subject so the API can run with real verification.
// It is not an OIDC provider.
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

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warikan-app/warikan-api/internal/platform/auth/jwkstest"
	"github.com/warikan-app/warikan-api/internal/platform/logger"
)

// Environment variables override the matching flag defaults.
var envFlags = map[string]string{
	"addr":     "DEVJWT_ADDR",
	"issuer":   "ISSUER",
	"audience": "AUDIENCE",
	"kid":      "KID",
	"ttl":      "TTL",
}

func main() {
	var opts issuerOptions
	var addr string

	cmd := &cobra.Command{
		Use:           "devjwt",
		Short:         "Dev-only JWT issuer and JWKS endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			for name, env := range envFlags {
				v, ok := os.LookupEnv(env)
				if !ok || cmd.Flags().Changed(name) {
					continue
				}
				if err := cmd.Flags().Set(name, v); err != nil {
					return fmt.Errorf("%s: %w", env, err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, addr, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":5556", "listen address")
	f.StringVar(&opts.Issuer, "issuer", "http://devjwt:5556", "iss claim")
	f.StringVar(&opts.Audience, "audience", "warikan-api", "aud claim")
	f.StringVar(&opts.Kid, "kid", "dev-"+uuid.NewString()[:8], "key id published in the JWKS")
	f.DurationVar(&opts.TTL, "ttl", 30*time.Minute, "default token lifetime")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, addr string, opts issuerOptions) error {
	logger.Init(logger.Config{Env: "dev", Level: "info", ServiceName: "devjwt"})
	log := logger.Named("devjwt")
	defer func() { _ = logger.Sync() }()

	kp, err := jwkstest.GenerateRSAKeypair(opts.Kid)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	iss, err := newIssuer(kp, opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           iss.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("devjwt listening",
		zap.String("addr", addr), zap.String("iss", opts.Issuer),
		zap.String("aud", opts.Audience), zap.String("kid", opts.Kid), zap.Duration("ttl", opts.TTL))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
