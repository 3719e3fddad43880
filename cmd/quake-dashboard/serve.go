package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/quake-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/quake-dashboard/internal/adapter/usgs"
	"github.com/couchcryptid/quake-dashboard/internal/config"
	"github.com/couchcryptid/quake-dashboard/internal/dashboard"
	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
	"github.com/couchcryptid/quake-dashboard/internal/refresh"
)

func configPath() string {
	if configFile != "" {
		return configFile
	}
	return os.Getenv("CONFIG_FILE")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newSession(cfg *config.Config, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *dashboard.Session {
	feed := usgs.NewClient(cfg.FeedURL, cfg.FeedTimeout, cfg.FeedRateLimit, metrics, logger)
	return dashboard.NewSession(dashboard.Options{
		Feed:           feed,
		Clock:          clock,
		Region:         cfg.Region,
		Location:       cfg.Location,
		MinMagnitude:   cfg.FeedMinMagnitude,
		EventLimit:     cfg.FeedEventLimit,
		DaysBack:       cfg.DashboardDaysBack,
		NotifyDuration: cfg.NotifyDuration,
		Metrics:        metrics,
		Logger:         logger,
	})
}

func serve(parent context.Context) error {
	var (
		cfg     *config.Config
		watcher *config.Watcher
		err     error
	)
	if path := configPath(); path != "" {
		watcher, err = config.NewWatcher(path, slog.Default())
		if err != nil {
			slog.Error("failed to load config", "error", err)
			return err
		}
		cfg = watcher.Config()
	} else {
		cfg, err = loadConfig()
		if err != nil {
			slog.Error("failed to load config", "error", err)
			return err
		}
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	session := newSession(cfg, clock, metrics, logger)
	hub := httpadapter.NewHub(metrics, logger)
	session.Notifier().Subscribe("websocket", hub)

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		session.Notifier().Subscribe("kafka", writer)
		logger.Info("kafka notifications enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka notifications disabled")
	}

	orch := refresh.New(session, cfg.Refresh(), clock, metrics, logger)
	orch.OnStatus(hub.BroadcastStatus)

	if watcher != nil {
		watcher.OnRefreshChange(func(rc domain.RefreshConfig) {
			logger.Info("refresh settings changed in config file", "interval_seconds", rc.Interval, "enabled", rc.Enabled)
			orch.Apply(rc)
		})
		stopWatch, err := watcher.Watch()
		if err != nil {
			logger.Warn("config hot reload unavailable", "error", err)
		} else {
			defer stopWatch()
			logger.Info("watching config file", "path", cfg.ConfigFile)
		}
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, session, orch, hub, logger)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Initial cycle, then the auto-refresh timers.
	if err := orch.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	orch.Wait()
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}
