package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tripmind-backend/internal/config"
	"tripmind-backend/internal/di"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}

	container, err := di.NewContainer(cfg)
	if err != nil {
		log.Fatalf("initialize container: %v", err)
	}
	logger := container.Logger

	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
	} else {
		watcher.OnReload(func(next *config.Config) {
			container.SetLogLevel(next.LogLevel)
		})
		defer watcher.Stop()
	}

	if cfg.SignalLog.Enabled && cfg.SignalLog.ReplayOnStartup {
		if err := container.ReplaySignalLog(context.Background()); err != nil {
			logger.Fatal("replay signal log", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: container.Router,
	}

	go func() {
		logger.Info("api server starting",
			zap.String("address", cfg.Server.Address),
			zap.String("environment", string(cfg.Environment)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := container.Shutdown(ctx); err != nil {
		logger.Error("container shutdown", zap.Error(err))
	}
}
