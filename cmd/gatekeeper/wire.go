package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/federation"
	"github.com/MrEthical07/gatekeeper/filestore"
	"github.com/MrEthical07/gatekeeper/internal/config"
	"github.com/MrEthical07/gatekeeper/internal/httpapi"
	"github.com/MrEthical07/gatekeeper/mail"
	"github.com/MrEthical07/gatekeeper/metrics/export/prometheus"
	"github.com/MrEthical07/gatekeeper/store/gormstore"
)

type deps struct {
	db       *gorm.DB
	redis    *redis.Client
	files    filestore.Source
	mailer   gatekeeper.Mailer
	verifier gatekeeper.ExternalVerifier
	closers  []func() error
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

func (d *deps) health(ctx context.Context) error {
	if d.db != nil {
		sqlDB, err := d.db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if d.redis != nil {
		if err := d.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func buildDeps(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*deps, error) {
	d := &deps{}

	db, err := gormstore.Open(ctx, cfg.DB.DSN, cfg.DB.AsStoreOptions(), logger)
	if err != nil {
		return nil, err
	}
	d.db = db
	d.closers = append(d.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if cfg.DB.AutoMigrate {
		if err := gormstore.Migrate(ctx, db, logger); err != nil {
			d.Close()
			return nil, err
		}
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			d.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		d.redis = client
		d.closers = append(d.closers, client.Close)
		logger.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	switch cfg.Files.Backend {
	case "s3":
		src, err := filestore.NewS3(ctx, cfg.Files.AsS3Config())
		if err != nil {
			d.Close()
			return nil, err
		}
		d.files = src
	default:
		src, err := filestore.NewLocal(cfg.Files.LocalDir)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.files = src
		d.closers = append(d.closers, src.Close)
	}

	if cfg.Mail.Enabled() {
		d.mailer = mail.NewSMTP(cfg.Mail.AsSMTPConfig()).WithLogger(logger)
	} else {
		logger.Warn("smtp not configured; mail is logged instead of delivered")
		d.mailer = mail.NewLog(logger)
	}

	if cfg.Federation.Enabled() {
		v, err := federation.NewVerifier(cfg.Federation.AsVerifierConfig())
		if err != nil {
			d.Close()
			return nil, err
		}
		d.verifier = v
	}

	return d, nil
}

func buildEngine(_ context.Context, cfg *config.Config, d *deps, logger *zap.Logger) (*gatekeeper.Engine, error) {
	engineCfg, err := cfg.ToEngineConfig()
	if err != nil {
		return nil, err
	}

	b := gatekeeper.New().
		WithConfig(engineCfg).
		WithStore(gormstore.New(d.db)).
		WithLogger(logger).
		WithMailer(d.mailer).
		WithFileSource(d.files).
		WithAuditSink(gatekeeper.NewZapSink(logger.Named("audit")))
	if d.redis != nil {
		b = b.WithRedis(d.redis)
	}
	if d.verifier != nil {
		b = b.WithExternalVerifier(d.verifier)
	}

	engine, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	return engine, nil
}

func buildHTTPServer(cfg *config.Config, engine *gatekeeper.Engine, d *deps, logger *zap.Logger) (*http.Server, error) {
	var metrics http.Handler
	if cfg.Observability.Metrics {
		h, err := prometheus.Handler(engine)
		if err != nil {
			return nil, fmt.Errorf("metrics handler: %w", err)
		}
		metrics = h
	}

	handler := httpapi.NewHandler(engine, logger, httpapi.Options{
		TrustProxy:   cfg.Server.TrustProxy,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		AdminRole:    cfg.Auth.AdminRole,
		Metrics:      metrics,
		Health:       d.health,
	})

	return &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      httpapi.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, nil
}
