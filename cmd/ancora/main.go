package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ancora-cas/ancora-cas/internal/app"
	"github.com/ancora-cas/ancora-cas/internal/auth"
	"github.com/ancora-cas/ancora-cas/internal/dashboard"
	"github.com/ancora-cas/ancora-cas/internal/fiscalcode"
	"github.com/ancora-cas/ancora-cas/internal/guests"
	"github.com/ancora-cas/ancora-cas/internal/observability"
	"github.com/ancora-cas/ancora-cas/internal/platform/cache"
	"github.com/ancora-cas/ancora-cas/internal/platform/db"
	"github.com/ancora-cas/ancora-cas/internal/settings"
	"github.com/ancora-cas/ancora-cas/internal/shared"
	"github.com/ancora-cas/ancora-cas/internal/view"
	"github.com/ancora-cas/ancora-cas/jobs"
	"github.com/ancora-cas/ancora-cas/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "ancora_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	places, err := fiscalcode.LoadPlaceTable()
	if err != nil {
		logger.Error("load place table", slog.Any("error", err))
		os.Exit(1)
	}
	calculator := fiscalcode.NewCalculator(places)

	settingsRepo := settings.NewRepository(dbpool)
	settingsService := settings.NewService(settingsRepo)
	settingsHandler := settings.NewHandler(logger, settingsService, templates, csrfManager)

	authService := auth.NewService(settingsService)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	guestsRepo := guests.NewRepository(dbpool)
	guestsService := guests.NewService(guestsRepo, calculator, auditLogger, logger)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, logger)

	guestsHandler := guests.NewHandler(logger, guestsService, templates, csrfManager, reportClient)
	guestsAPIHandler := guests.NewAPIHandler(guestsService, metrics)

	dashboardService := dashboard.NewService(guestsRepo, cfg.PermitExpiryWindow)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, templates, csrfManager)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		DashboardHandler: dashboardHandler,
		GuestsHandler:    guestsHandler,
		GuestsAPIHandler: guestsAPIHandler,
		SettingsHandler:  settingsHandler,
		JobsHandler:      jobsHandler,
		ReportHandler:    reportHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
