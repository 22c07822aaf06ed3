package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensely/internal/auth"
	"expensely/internal/cli"
	apphttp "expensely/internal/http"
	applog "expensely/internal/log"
	"expensely/internal/services"
	"expensely/internal/session"
	"expensely/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(applog.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	cli.LogStartup(logger, cfg)

	res := cli.InitBackend(context.Background(), logger, cfg)

	sessions := session.NewManager(res.Sessions, res.Store, cfg.SessionTTL)
	janitor, err := worker.NewSessionJanitor(sessions, cfg.SessionPurgeSchedule)
	if err != nil {
		logger.Error("Invalid session purge schedule", "error", err, "schedule", cfg.SessionPurgeSchedule)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:     res.Store,
		Auth:      auth.NewService(res.Store, sessions, cfg.BcryptCost),
		Sessions:  sessions,
		Expenses:  services.NewExpenseService(res.Store, res.Publisher),
		Dashboard: services.NewDashboardService(res.Store, time.Now),
		Export:    services.NewExportService(res.Store, time.Now),
		Activity:  services.NewActivityService(res.Store),
	}, apphttp.Options{
		CookieSecure:       cfg.SessionCookieSecure,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:             logger,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		janitor.Stop(ctx)
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	// Purge sessions that expired while the server was down.
	janitor.RunOnce(ctx)
	janitor.Start()

	logger.Info("Starting expensely server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
