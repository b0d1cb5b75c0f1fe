package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"particle-skill/config"
	"particle-skill/internal/application"
	"particle-skill/internal/infra/alexa"
	"particle-skill/internal/infra/particle"
	"particle-skill/internal/infra/pushover"
	"particle-skill/internal/infra/sessionstore"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := createSessionStore(cfg.Session, logger)
	if err != nil {
		logger.Error("creating session store", "error", err, "store", cfg.Session.Store)
		os.Exit(1)
	}
	defer closeStore()

	var notifier application.Notifier
	if cfg.Pushover.Enabled {
		notifier = pushover.NewClient(cfg.Pushover.Token, cfg.Pushover.UserKey)
	} else {
		notifier = &application.NoopNotifier{}
	}

	cloud := particle.NewClientWithURL(cfg.Particle.BaseURL, cfg.ParticleTimeout())
	skill := application.NewSkill(application.NewDeviceService(cloud), store, notifier, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	registry.MustRegister(application.MetricsCollectors()...)
	registry.MustRegister(particle.MetricsCollectors()...)
	registry.MustRegister(alexa.MetricsCollectors()...)

	server := alexa.NewServer(alexa.Config{
		Addr:          cfg.Server.Addr,
		AuthToken:     cfg.Server.AuthToken,
		ApplicationID: cfg.Skill.ApplicationID,
		RateLimit:     cfg.Server.RateLimit,
		RateWindow:    cfg.RateWindow(),

		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
	}, skill, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), logger)

	logger.Info("starting particle skill",
		"addr", cfg.Server.Addr,
		"session_store", cfg.Session.Store,
		"pushover", cfg.Pushover.Enabled,
	)

	if err := server.Start(ctx); err != nil {
		logger.Error("starting server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("stopping server", "error", err)
	}
}

func createSessionStore(cfg config.SessionConfig, logger *slog.Logger) (application.SessionStore, func(), error) {
	switch cfg.Store {
	case "memory":
		return sessionstore.NewMemory(), func() {}, nil
	case "sqlite":
		store, err := sessionstore.NewSQLite(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { closeQuietly(store, logger) }, nil
	case "s3":
		store, err := sessionstore.NewS3(sessionstore.S3Config{
			Endpoint:      cfg.S3.Endpoint,
			Bucket:        cfg.S3.Bucket,
			Prefix:        cfg.S3.Prefix,
			Region:        cfg.S3.Region,
			AccessKeyFile: cfg.S3.AccessKeyFile,
			SecretKeyFile: cfg.S3.SecretKeyFile,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "none":
		return &application.NoopSessionStore{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

func closeQuietly(c io.Closer, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Warn("closing session store", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
