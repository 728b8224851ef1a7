package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"adwatch-rewards-go/internal/common"
	"adwatch-rewards-go/internal/config"
	"adwatch-rewards-go/internal/httpapi"
	"adwatch-rewards-go/internal/notify"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Starting ad-watch reward server", zap.String("addr", cfg.Server.Addr))

	rewardStore, err := common.InitializeStore(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize reward store", zap.Error(err))
	}
	defer rewardStore.Close()

	notifier := notify.New(rewardStore, cfg.Notify)
	go notifier.Run(ctx)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      httpapi.NewServer(rewardStore).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		zap.L().Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Graceful shutdown failed", zap.Error(err))
	}
	zap.L().Info("Server stopped")
}
