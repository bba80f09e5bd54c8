package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokenscope/internal/app"
	"tokenscope/internal/infra"

	_ "net/http/pprof" // For pprof profiling
)

// backupKeep is the number of favorites backups retained on disk.
const backupKeep = 5

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	infra.PrintBanner(bootstrap.Config)

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Live price feed and cache warmup
	bootstrap.StartFeed(ctx)
	go bootstrap.Warm(ctx)

	// 5. Periodic favorites backup
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := bootstrap.BackupFavorites(backupKeep); err != nil {
					slog.Warn("Favorites backup failed", slog.Any("error", err))
				}
			}
		}
	}()

	slog.InfoContext(ctx, "✨ Tokenscope fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "👋 Shutting down gracefully...")

	// Final backup so a crash-free exit always leaves a fresh one
	if err := bootstrap.BackupFavorites(backupKeep); err != nil {
		slog.Warn("Final favorites backup failed", slog.Any("error", err))
	}
}
