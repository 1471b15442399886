package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/forumguard/clientip"
	"github.com/MrEthical07/forumguard/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const idleSweepEvery = time.Minute

func newServeCmd() *cobra.Command {
	var (
		addr         string
		otelInterval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the token sweeper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, addr, otelInterval)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	cmd.Flags().DurationVar(&otelInterval, "otel-interval", 0, "log OpenTelemetry metric collections at this interval (0 disables)")
	return cmd
}

func runServe(ctx context.Context, addrOverride string, otelInterval time.Duration) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if addrOverride != "" {
		cfg.Server.Addr = addrOverride
	}

	resolver, err := clientip.New(cfg.Network.TrustedProxies)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	engine, conns, err := buildEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conns.Close()
	defer engine.Close()

	report := engine.SecurityReport()
	log.Info("security posture",
		slog.String("signing", report.SigningAlgorithm),
		slog.Duration("access_ttl", report.AccessTTL),
		slog.Duration("refresh_ttl", report.RefreshTTL),
		slog.Bool("csrf", report.CSRFActive),
		slog.Bool("rate_limit", report.RateLimitingActive),
		slog.Int("trusted_proxies", report.TrustedProxies),
	)
	for _, w := range report.Warnings {
		log.Warn("security warning", slog.String("detail", w))
	}

	handler, gate := newHandler(engine, resolver, log)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if otelInterval > 0 {
		reporter, err := newOTelReporter(engine, gate)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() { _ = reporter.Close(context.Background()) }()
		g.Go(func() error {
			reporter.run(gctx, otelInterval, log)
			return nil
		})
	}

	g.Go(func() error {
		log.Info("http server listening",
			slog.String("addr", srv.Addr),
			slog.String("token_store", cfg.Store.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return engine.RunSweeper(gctx)
	})

	if gate != nil {
		g.Go(func() error {
			sweepIdleLoop(gctx, gate, log)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// sweepIdleLoop drops rate limit entries whose windows have fully elapsed.
func sweepIdleLoop(ctx context.Context, gate *middleware.RateLimitGate, log *slog.Logger) {
	ticker := time.NewTicker(idleSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := gate.SweepIdle(); n > 0 {
				log.Debug("rate limiter idle sweep",
					slog.Int("removed", n),
					slog.Int("tracked", gate.Tracked()),
				)
			}
		}
	}
}
