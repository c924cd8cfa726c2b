package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rendis/nodeforge/internal/logging"
	"github.com/rendis/nodeforge/internal/scheduler"
	forgemcp "github.com/rendis/nodeforge/pkg/mcp"
)

const refreshJobID = "asset-refresh"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tools over stdio",
	Long: `Starts the MCP server on stdin/stdout. When admin_addr is set, /metrics and
/healthz are served over HTTP. The asset index is refreshed on refresh_cron.
Send SIGHUP to reload settings.json.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig()

	level := new(slog.LevelVar)
	level.Set(logging.ParseLevel(cfg.LogLevel))
	logger := logging.New(level)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.NewScheduler(a.store, logger)
	if err := sched.RegisterTask(scheduler.TaskAssetRefresh, func(ctx context.Context) error {
		return a.index.Refresh(ctx, a.store)
	}); err != nil {
		return err
	}
	if cfg.RefreshCron != "" {
		if err := sched.EnsureJob(ctx, refreshJobID, scheduler.TaskAssetRefresh, cfg.RefreshCron); err != nil {
			return err
		}
		if err := sched.RecoverMissed(ctx); err != nil {
			logger.Warn("missed job recovery failed", slog.String("error", err.Error()))
		}
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	var admin *http.Server
	if cfg.AdminAddr != "" {
		admin = &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           newAdminRouter(a),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("admin listener started", slog.String("addr", cfg.AdminAddr))
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin listener failed", slog.String("error", err.Error()))
			}
		}()
	}

	writePIDFile(logger)
	defer os.Remove(pidPath())

	go watchReload(ctx, cfg, level, sched, logger, func(ctx context.Context) error {
		return a.index.Refresh(ctx, a.store)
	})

	srv := forgemcp.NewForgeServer(forgemcp.ForgeServerDeps{
		Search:     a.search,
		Synth:      a.synth,
		Predicates: a.predicates,
		Logger:     logger,
	})
	logger.Info("mcp server listening on stdio")
	serveErr := srv.Serve(ctx)

	if admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := admin.Shutdown(shutdownCtx); err != nil {
			logger.Warn("admin shutdown incomplete", slog.String("error", err.Error()))
			_ = admin.Close()
		}
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return serveErr
	}
	logger.Info("nodeforge stopped")
	return nil
}

// watchReload reloads settings.json and refreshes the asset index on every
// SIGHUP until ctx is done.
func watchReload(ctx context.Context, cfg Config, level *slog.LevelVar, sched *scheduler.Scheduler, logger *slog.Logger, refresh scheduler.TaskFunc) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg = applyReload(ctx, cfg, loadConfig(), level, sched, logger)
			if err := refresh(ctx); err != nil {
				logger.Error("asset refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// applyReload applies the settings that can change at runtime and returns
// the configuration now in effect. Fields that need a restart keep their
// old values.
func applyReload(ctx context.Context, old, next Config, level *slog.LevelVar, sched *scheduler.Scheduler, logger *slog.Logger) Config {
	d := diffConfigs(old, next)
	effective := old

	if d.LogLevelChanged {
		level.Set(logging.ParseLevel(next.LogLevel))
		effective.LogLevel = next.LogLevel
		logger.Info("log level changed", slog.String("level", next.LogLevel))
	}
	if d.RefreshCronChanged && next.RefreshCron != "" {
		if err := sched.EnsureJob(ctx, refreshJobID, scheduler.TaskAssetRefresh, next.RefreshCron); err != nil {
			logger.Error("refresh_cron not applied", slog.String("error", err.Error()))
		} else {
			effective.RefreshCron = next.RefreshCron
		}
	}
	if len(d.RestartNeeded) > 0 {
		logger.Warn("settings changed that need a restart", slog.Any("fields", d.RestartNeeded))
	}
	return effective
}

func pidPath() string {
	return filepath.Join(nodeforgeDir(), "nodeforge.pid")
}

func writePIDFile(logger *slog.Logger) {
	if err := os.MkdirAll(nodeforgeDir(), 0o700); err != nil {
		logger.Debug("pid file skipped", slog.String("error", err.Error()))
		return
	}
	if err := os.WriteFile(pidPath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		logger.Debug("pid file skipped", slog.String("error", err.Error()))
	}
}

// signalRunningServer sends SIGHUP to a running server found via the pid
// file. It reports whether a server was signaled.
func signalRunningServer(out func(format string, args ...any)) bool {
	data, err := os.ReadFile(pidPath())
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false
	}
	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return false
	}
	out("Signaled running server (PID %d) to reload configuration\n", pid)
	return true
}
