package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write ~/.nodeforge/settings.json",
	Long: `Writes a settings file from the defaults and the given flags. A running server
is signaled to reload it.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	d := defaultConfig()
	f := initCmd.Flags()
	f.String("db-path", d.DBPath, "libsql database URI")
	f.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	f.String("admin-addr", "", "admin HTTP address for /metrics and /healthz (empty disables it)")
	f.StringSlice("manifest", nil, "extra type manifest (repeatable)")
	f.StringSlice("asset", nil, "asset or document manifest imported at startup (repeatable)")
	f.StringSlice("macro-root", nil, "asset root searched for macro containers (repeatable)")
	f.String("refresh-cron", d.RefreshCron, "cron expression for the asset index refresh")
	f.Int("max-results", d.MaxResults, "default discovery result cap")
	f.String("expr-engine", d.ExprEngine, "predicate engine: expr or cel")
}

func runInit(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	cfg := Config{}
	cfg.DBPath, _ = flags.GetString("db-path")
	cfg.LogLevel, _ = flags.GetString("log-level")
	cfg.AdminAddr, _ = flags.GetString("admin-addr")
	cfg.ManifestPaths, _ = flags.GetStringSlice("manifest")
	cfg.AssetPaths, _ = flags.GetStringSlice("asset")
	cfg.MacroRoots, _ = flags.GetStringSlice("macro-root")
	cfg.RefreshCron, _ = flags.GetString("refresh-cron")
	cfg.MaxResults, _ = flags.GetInt("max-results")
	cfg.ExprEngine, _ = flags.GetString("expr-engine")

	path, err := writeSettings(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config written to %s\n", path)

	signalRunningServer(func(format string, args ...any) {
		fmt.Fprintf(out, format, args...)
	})
	return nil
}

func writeSettings(cfg Config) (string, error) {
	if err := os.MkdirAll(nodeforgeDir(), 0o700); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", nodeforgeDir(), err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", err
	}
	path := settingsPath()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("cannot write %s: %w", path, err)
	}
	return path, nil
}
