package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcolletta/direx/internal/logger"
	"github.com/mcolletta/direx/internal/watcher"
	"github.com/mcolletta/direx/pkg/config"
	"github.com/mcolletta/direx/pkg/engine"
	"github.com/mcolletta/direx/pkg/fsio"
	"github.com/mcolletta/direx/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	root := flag.String("root", "", "Directory to serve (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR; overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flags win over config file and environment.
	if *root != "" {
		cfg.Server.Root = *root
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	fmt.Println("direx - file explorer engine")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Serving root: %s", cfg.Server.Root)

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics collection enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	journalStore, err := config.CreateJournalStore(ctx, &cfg.Journal.Store)
	if err != nil {
		log.Fatalf("Failed to create journal store: %v", err)
	}
	defer journalStore.Close()

	backupStore, err := config.CreateBackupStore(ctx, &cfg.Journal.Backup)
	if err != nil {
		log.Fatalf("Failed to create backup store: %v", err)
	}

	eng, err := engine.New(cfg, engine.Options{
		FS:             fsio.NewOS(),
		JournalStore:   journalStore,
		BackupStore:    backupStore,
		CacheMetrics:   metrics.NewCacheMetrics("listings"),
		QueryMetrics:   metrics.NewQueryMetrics(),
		JournalMetrics: metrics.NewJournalMetrics(),
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	var w *watcher.Watcher
	if cfg.Watcher.Enabled {
		w, err = watcher.New(eng.Root(), eng.Invalidate)
		if err != nil {
			log.Fatalf("Failed to create filesystem watcher: %v", err)
		}
		w.Start()
	} else {
		logger.Info("Filesystem watcher disabled")
	}

	// Warm the root listing so the first page request is instant.
	if page, err := eng.GetPage(ctx, eng.Root(), 0, cfg.Pager.PageSize); err == nil {
		logger.Info("Root listing ready: %d entries", page.TotalCount)
	} else {
		logger.Warn("Failed to warm root listing: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Engine is running. Press Ctrl+C to stop.")
	<-sigChan

	logger.Info("Shutdown signal received, initiating graceful shutdown...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if w != nil {
		if err := w.Stop(shutdownCtx); err != nil {
			logger.Error("Watcher shutdown error: %v", err)
		}
	}

	if err := eng.Close(shutdownCtx); err != nil {
		logger.Error("Engine shutdown error: %v", err)
		os.Exit(1)
	}

	logger.Info("Engine stopped gracefully")
}
