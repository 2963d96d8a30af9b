// Command gatekeeper runs the authentication service: PostgreSQL through gorm,
// optional Redis for shared caches, SMTP or logged mail, and local or S3 file
// downloads.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MrEthical07/gatekeeper/internal/config"
	"github.com/MrEthical07/gatekeeper/internal/obs"
)

func main() {
	configPath := flag.String("config", os.Getenv("GATEKEEPER_CONFIG"), "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "gatekeeper: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := obs.NewLogger(cfg.AsLogConfig())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting gatekeeper", zap.String("env", cfg.App.Env), zap.String("version", cfg.App.Version))

	deps, err := buildDeps(rootCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	engine, err := buildEngine(rootCtx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("security posture",
		zap.String("signing", report.SigningAlgorithm),
		zap.String("password_algorithm", report.Password.Algorithm),
		zap.Bool("rate_limit", report.RateLimitingActive),
		zap.Bool("shared_caches", report.SharedCaches),
		zap.Bool("external_login", report.ExternalLoginActive),
	)
	for _, w := range report.Warnings {
		logger.Warn("security posture warning", zap.String("warning", w))
	}

	srv, err := buildHTTPServer(cfg, engine, deps, logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		engine.RunSweeper(ctx, cfg.Observability.SweepInterval)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	err = g.Wait()
	logger.Info("bye")
	return err
}
