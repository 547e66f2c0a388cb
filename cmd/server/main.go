package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/me/goflux/internal/config"
	"github.com/me/goflux/internal/executor"
	"github.com/me/goflux/internal/history"
	"github.com/me/goflux/internal/logging"
	"github.com/me/goflux/internal/scheduler"
	"github.com/me/goflux/internal/server"
)

func main() {
	defaults := config.DefaultServerConfig()

	configFile := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", defaults.Addr, "Listen address")
	logLevel := flag.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", defaults.LogFormat, "Log format (text, json)")
	dbPath := flag.String("db", defaults.DBPath, "History database path (default ~/.goflux/goflux.db)")
	workDir := flag.String("work-dir", defaults.WorkDir, "Working directory for local command jobs")
	eventBuffer := flag.Int("event-buffer", defaults.EventBuffer, "Scheduler event channel capacity")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")
	flag.Parse()

	cfg := defaults
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Explicitly set flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "db":
			cfg.DBPath = *dbPath
		case "work-dir":
			cfg.WorkDir = *workDir
		case "event-buffer":
			cfg.EventBuffer = *eventBuffer
		}
	})
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	resolvedDB, err := resolveDBPath(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve database path: %v\n", err)
		os.Exit(1)
	}

	// Open the history store and run migrations.
	st, err := history.NewSQLiteStore(resolvedDB, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", resolvedDB)

	// Executor backends.
	reg := executor.NewRegistry(logger)
	reg.Register(executor.NewLocalExecutor(cfg.WorkDir, logger))
	reg.Register(executor.NewScriptExecutor(cfg.ScriptLibs, logger))
	reg.Register(executor.NewSleepExecutor(logger))

	// Scheduling loop.
	mgr := scheduler.New(scheduler.Config{
		Run:         reg.Run,
		Recorder:    st,
		EventBuffer: cfg.EventBuffer,
	}, logger)

	srv := server.New(cfg, st, mgr, logger)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := mgr.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("scheduler stopped", "error", err)
		}
	}()

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// resolveDBPath returns the configured history database path, falling
// back to ~/.goflux/goflux.db (creating the directory) when unset.
func resolveDBPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".goflux")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", dir, err)
	}
	return filepath.Join(dir, "goflux.db"), nil
}
