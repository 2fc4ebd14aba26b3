package main

import (
	"StuffTracker/internal/bootstrap"
	"StuffTracker/internal/config"
	"StuffTracker/internal/handlers"
	stlog "StuffTracker/internal/logger"
	"StuffTracker/internal/middleware"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg := config.NewConfig()

	if cfg.Version {
		fmt.Printf("StuffTracker server\nVersion: %s\nBuild date: %s\n", version, buildDate)
		return
	}

	// консоль как у zap.NewDevelopment, плюс файл с ротацией при LOG_FILE
	logger, err := stlog.New(stlog.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: true})
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	// запись и импорт/экспорт закрыты только JWT, публичный секрет их не защищает
	if err := cfg.ValidateServer(); err != nil {
		sugar.Fatalw("refusing to start", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, cleanup, err := bootstrap.NewApp(cfg, sugar)
	if err != nil {
		sugar.Fatalw("failed to initialize storage", "error", err)
	}
	defer func() {
		if err := cleanup(); err != nil {
			sugar.Errorw("failed to close database", "error", err)
		}
	}()

	// открываем БД заранее, чтобы ошибки схемы были видны при старте
	if _, err := app.Schema.Open(ctx); err != nil {
		sugar.Errorw("failed to open database", "path", app.Schema.Path(), "error", err)
		return
	}

	h := handlers.NewHandler(app.Items, app.Schema, app.Transfer, sugar, cfg)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"DBPath", cfg.DBPath(),
		"SchemaVersion", cfg.SchemaVersion,
		"UpgradePolicy", cfg.UpgradePolicy,
		"BackupDir", cfg.BackupDir,
	)

	srv := &http.Server{Addr: cfg.BaseURL, Handler: h.Router}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	sugar.Infow("Starting server", "addr", cfg.BaseURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Errorw("Server failed", "error", err)
	}
}
