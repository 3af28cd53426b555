package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/partnershiphub/hub/pkg/audit"
	"github.com/partnershiphub/hub/pkg/authz"
	"github.com/partnershiphub/hub/pkg/config"
	"github.com/partnershiphub/hub/pkg/db"
	"github.com/partnershiphub/hub/pkg/logging"
	"github.com/partnershiphub/hub/pkg/metrics"
	"github.com/partnershiphub/hub/pkg/notify"
	"github.com/partnershiphub/hub/pkg/workflow"
)

// app holds the long-lived dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *gorm.DB
	registry *prometheus.Registry
	svc      *workflow.Service
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	gormDB, err := db.Open(db.Config{
		Type:   cfg.Database.Type,
		DSN:    cfg.Database.DSN,
		Logger: logging.NewGormLogger(logger, logging.GormLevel(cfg.Log.Level)),
	})
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var sender notify.Sender
	switch cfg.Notify.Mode {
	case "function":
		sender = notify.NewFunctionSender(cfg.Notify.FunctionURL, cfg.Notify.ServiceKey, cfg.Notify.Timeout)
	default:
		sender = notify.LogSender{Logger: logger.Named("notify")}
	}
	notifier := notify.NewNotifier(sender, cfg.AppURL, logger.Named("notify"), m)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       gormDB,
		registry: registry,
		svc:      workflow.NewService(gormDB, notifier, m, logger.Named("workflow")),
	}, nil
}

// migrate creates or updates the schema while holding the schema lock.
func (a *app) migrate(ctx context.Context) error {
	locker, err := db.NewSchemaLocker(a.db, db.LockOptions{})
	if err != nil {
		return err
	}
	return locker.WithLock(ctx, func() error {
		start := time.Now()
		if err := workflow.AutoMigrate(a.db.WithContext(ctx)); err != nil {
			return err
		}
		a.logger.Info("schema migrated", zap.Duration("took", time.Since(start)))
		return nil
	})
}

// seedChains applies the chain seed file, if one is configured.
func (a *app) seedChains(ctx context.Context) error {
	if a.cfg.Chains.SeedPath == "" {
		return nil
	}
	seeds, err := workflow.LoadChainSeeds(a.cfg.Chains.SeedPath)
	if err != nil {
		return err
	}
	if err := a.svc.Chains().Seed(ctx, seeds); err != nil {
		return fmt.Errorf("seed approval chains: %w", err)
	}
	a.logger.Info("approval chains seeded", zap.Int("chains", len(seeds)), zap.String("path", a.cfg.Chains.SeedPath))
	return nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// handler builds the HTTP surface: probes, metrics and the versioned API.
func (a *app) handler() (http.Handler, error) {
	identity, err := authz.NewIdentityMiddleware(authz.AuthMode(a.cfg.Auth.Mode), authz.JWTConfig{
		Secret:        a.cfg.Auth.JWTSecret,
		PublicKeyPath: a.cfg.Auth.JWTPublicKey,
		Issuer:        a.cfg.Auth.JWTIssuer,
		Audience:      a.cfg.Auth.JWTAudience,
		Logger:        a.logger.Named("auth"),
	})
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(audit.AccessLog(a.logger))
	if len(a.cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", authz.UserIDHeader, authz.UserEmailHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", a.readyHandler)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	r.Mount("/api/v1", workflow.NewRouter(a.svc, identity, audit.Track))
	return r, nil
}

func (a *app) readyHandler(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		a.logger.Warn("readiness check failed", zap.Error(err))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
