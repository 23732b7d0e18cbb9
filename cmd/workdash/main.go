package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"workdash/internal/cli"
	apphttp "workdash/internal/http"
	applog "workdash/internal/log"
	"workdash/internal/services"
)

func main() {
	cli.LoadEnvFile()

	bootstrap := applog.New(applog.DefaultConfig())
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	res := cli.InitBackend(context.Background(), logger, cfg)

	imports := services.NewImportService(res.Sessions, res.Publisher, cfg.Policy())
	dashboard := services.NewDashboardService(cfg.RollingWindow, cfg.MaxSessions*4, cfg.SessionTTL)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Imports:            imports,
		Dashboard:          dashboard,
		Sessions:           res.Sessions,
		Sample:             res.Sample,
		Sheets:             res.Sheets,
		Logger:             logger,
		Cleaners:           res.Cleaners,
		CleanupInterval:    cfg.CleanupInterval,
		SessionTTL:         cfg.SessionTTL,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) error {
		return errors.Join(srv.Shutdown(ctx), res.Cleanup())
	})

	logger.Info("Starting workdash server",
		"port", cfg.Port,
		"session_backend", cfg.SessionBackend,
		"parse_policy", cfg.Policy().String(),
		"rolling_window", cfg.RollingWindow)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
