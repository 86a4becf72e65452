package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	config "github.com/avatarctic/offline-sync/configs"
	"github.com/avatarctic/offline-sync/internal/application/services"
	"github.com/avatarctic/offline-sync/internal/core/domain/action"
	"github.com/avatarctic/offline-sync/internal/core/ports"
	"github.com/avatarctic/offline-sync/internal/infrastructure/actionhandlers"
	"github.com/avatarctic/offline-sync/internal/infrastructure/connectivity"
	"github.com/avatarctic/offline-sync/internal/infrastructure/email"
	"github.com/avatarctic/offline-sync/internal/infrastructure/httpserver"
	"github.com/avatarctic/offline-sync/internal/infrastructure/metrics"
	"github.com/avatarctic/offline-sync/internal/infrastructure/persistence"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := newLogger(&cfg.Log)
	logger.Info("Starting offline-sync engine...")

	backend, err := persistence.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open persistence backend:", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.WithError(err).Error("Failed to close persistence backend")
		}
	}()

	var engineMetrics ports.EngineMetrics = ports.NoopMetrics{}
	if cfg.Metrics.Enabled {
		engineMetrics = metrics.NewEngineMetrics(prometheus.DefaultRegisterer)
	}

	var probe ports.ConnectivityProbe
	if cfg.Network.Probe == config.ProbeHTTP {
		probe = connectivity.NewHTTPProbe(&connectivity.HTTPProbeConfig{
			URL:            cfg.Network.URL,
			ExpectedStatus: cfg.Network.ExpectedStatus,
			Timeout:        cfg.Network.Timeout,
		})
	}

	engine := services.NewOfflineService(backend.Store, probe, engineConfig(cfg), logger, engineMetrics)
	registerHandlers(engine, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		logger.Fatal("Failed to start offline engine:", err)
	}

	var authService ports.AuthService
	if cfg.AdminEnabled() {
		authService = services.NewAuthService(&cfg.JWT, &cfg.Admin, logger)
	}

	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
	}
	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		Engine:         engine,
		AuthService:    authService,
		HealthCheckers: []ports.HealthChecker{backend.Checker},
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, cfg.Server.ShutdownTimeout)
	})
	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("HTTP server stopped with error")
	}
	logger.Info("Shutting down...")

	flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := engine.Close(flushCtx); err != nil {
		logger.WithError(err).Error("Failed to flush cache on shutdown")
	}

	logger.Info("Server exited")
}

func newLogger(cfg *config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

func engineConfig(cfg *config.Config) *services.OfflineServiceConfig {
	return &services.OfflineServiceConfig{
		Cache: services.BoundedCacheConfig{
			MaxBytes:      cfg.Cache.MaxBytes,
			TargetRatio:   cfg.Cache.TargetRatio,
			DefaultTTL:    cfg.Cache.DefaultTTL,
			SweepInterval: cfg.Cache.SweepInterval,
		},
		Queue: services.ActionQueueConfig{
			DefaultMaxRetries: cfg.Queue.MaxRetries,
			RetryBaseDelay:    cfg.Sync.RetryBaseDelay,
			RetryMaxDelay:     cfg.Sync.RetryMaxDelay,
		},
		Sync: services.SyncProcessorConfig{
			Interval:        cfg.Sync.Interval,
			DispatchTimeout: cfg.Sync.DispatchTimeout,
		},
		Network: services.NetworkMonitorConfig{
			PollInterval: cfg.Network.PollInterval,
			ProbeTimeout: cfg.Network.Timeout,
		},
		SyncOnEnqueue: cfg.Sync.SyncOnEnqueue,
	}
}

// registerHandlers binds the configured webhooks and, when SendGrid is configured, send_email.
func registerHandlers(engine *services.OfflineService, cfg *config.Config, logger *logrus.Logger) {
	for actionType, url := range cfg.Webhook.Actions {
		h := actionhandlers.NewWebhookHandler(url, cfg.Webhook.Timeout, logger)
		if err := engine.RegisterHandler(action.Type(actionType), h); err != nil {
			logger.WithError(err).WithField("action_type", actionType).Fatal("Failed to register webhook handler")
		}
		logger.WithFields(logrus.Fields{"action_type": actionType, "url": url}).Info("Webhook handler registered")
	}

	if cfg.Email.SendGridAPIKey == "" {
		return
	}
	sender := email.NewEmailService(&email.EmailConfig{
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromEmail:      cfg.Email.FromEmail,
		FromName:       cfg.Email.FromName,
	}, logger)
	if err := engine.RegisterHandler(action.TypeSendEmail, actionhandlers.NewEmailHandler(sender)); err != nil {
		logger.WithError(err).Fatal("Failed to register email handler")
	}
}
