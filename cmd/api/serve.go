package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/warikan-app/warikan-api/internal/adapters/httpapi"
	"github.com/warikan-app/warikan-api/internal/app/warikan"
	"github.com/warikan-app/warikan-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/warikan-app/warikan-api/internal/platform/clock"
	"github.com/warikan-app/warikan-api/internal/platform/config"
	"github.com/warikan-app/warikan-api/internal/platform/logger"
	"github.com/warikan-app/warikan-api/internal/platform/metrics"
)

func runServe(parent context.Context, configPath string) error {
	cfg, err := loadConfig(configPath, true)
	if err != nil {
		return err
	}
	log := logger.Named("api")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Auth configuration:
	// - Production: JWT_* env vars, bearer tokens verified against JWKS
	// - Local dev: AUTH_MODE=dev trusts X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	switch cfg.Auth.Mode {
	case config.AuthModeDev:
		log.Warn("dev auth enabled; X-Debug-Subject is trusted", zap.String("dev_subject", cfg.Auth.DevSubject))
		authMW = httpapi.NewDevAuthMiddleware(cfg.Auth.DevSubject)
	default:
		authMW = httpapi.NewAuthMiddleware(jwtverifier.New(cfg.JWT))
	}

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewHTTP(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	clk := platformclock.NewSystemClock()
	svc := warikan.NewService(st.Repo, clk)
	api := httpapi.NewServer(svc, st.Idem, clk)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: authMW,
		RateLimit:      httpapi.RateLimitOptions{RPS: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst},
		Metrics:        m,
		Logger:         logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening",
			zap.String("addr", srv.Addr),
			zap.String("auth_mode", cfg.Auth.Mode),
			zap.String("storage", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
