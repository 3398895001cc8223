package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/bridgenotify/internal/app"
	"github.com/ent0n29/bridgenotify/internal/config"
	"github.com/ent0n29/bridgenotify/internal/logging"
	"github.com/ent0n29/bridgenotify/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	built, err := app.Build(cfg, logger)
	if err != nil {
		logger.Fatal("build failed", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           built.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	built.Sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}
	// Shutdown does not touch hijacked media streams, so end their calls here
	// and refuse new ones; the bridge hears about each within the remaining
	// budget.
	if n := built.Sessions.Close(session.EndReasonDrain); n > 0 {
		logger.Info("ended active sessions", zap.Int("count", n))
	}
	if err := built.Drain(shutdownCtx); err != nil {
		logger.Warn("bridge notifications still in flight at exit", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
