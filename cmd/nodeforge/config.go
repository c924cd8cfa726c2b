package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Config holds all nodeforge configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath        string   `json:"db_path"`
	LogLevel      string   `json:"log_level"`
	AdminAddr     string   `json:"admin_addr"`
	ManifestPaths []string `json:"manifest_paths,omitempty"`
	AssetPaths    []string `json:"asset_paths,omitempty"`
	MacroRoots    []string `json:"macro_roots,omitempty"`
	RefreshCron   string   `json:"refresh_cron"`
	MaxResults    int      `json:"max_results"`
	ExprEngine    string   `json:"expr_engine"`
}

func defaultConfig() Config {
	return Config{
		DBPath:      "file:" + filepath.Join(nodeforgeDir(), "nodeforge.db"),
		LogLevel:    "info",
		RefreshCron: "*/15 * * * *",
		MaxResults:  50,
		ExprEngine:  "expr",
	}
}

func nodeforgeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nodeforge"
	}
	return filepath.Join(home, ".nodeforge")
}

func settingsPath() string {
	return filepath.Join(nodeforgeDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("NODEFORGE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("NODEFORGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("NODEFORGE_ADMIN_ADDR"); ok {
		cfg.AdminAddr = v
	}
	if v := os.Getenv("NODEFORGE_MANIFEST_PATHS"); v != "" {
		cfg.ManifestPaths = splitList(v)
	}
	if v := os.Getenv("NODEFORGE_ASSET_PATHS"); v != "" {
		cfg.AssetPaths = splitList(v)
	}
	if v := os.Getenv("NODEFORGE_MACRO_ROOTS"); v != "" {
		cfg.MacroRoots = splitList(v)
	}
	if v := os.Getenv("NODEFORGE_REFRESH_CRON"); v != "" {
		cfg.RefreshCron = v
	}
	if v := os.Getenv("NODEFORGE_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxResults = n
		}
	}
	if v := os.Getenv("NODEFORGE_EXPR_ENGINE"); v != "" {
		cfg.ExprEngine = v
	}

	// A bare path is accepted for convenience.
	if cfg.DBPath != "" && !strings.Contains(cfg.DBPath, ":") {
		cfg.DBPath = "file:" + cfg.DBPath
	}

	return cfg
}

// splitList splits a comma-separated env value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// configDiff describes what changed between two configurations.
type configDiff struct {
	LogLevelChanged    bool
	RefreshCronChanged bool
	RestartNeeded      []string // fields that require a server restart
}

func diffConfigs(old, new Config) configDiff {
	var d configDiff
	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
	}
	if old.RefreshCron != new.RefreshCron {
		d.RefreshCronChanged = true
	}
	if old.DBPath != new.DBPath {
		d.RestartNeeded = append(d.RestartNeeded, "db_path")
	}
	if old.AdminAddr != new.AdminAddr {
		d.RestartNeeded = append(d.RestartNeeded, "admin_addr")
	}
	if !slices.Equal(old.ManifestPaths, new.ManifestPaths) {
		d.RestartNeeded = append(d.RestartNeeded, "manifest_paths")
	}
	if !slices.Equal(old.AssetPaths, new.AssetPaths) {
		d.RestartNeeded = append(d.RestartNeeded, "asset_paths")
	}
	if !slices.Equal(old.MacroRoots, new.MacroRoots) {
		d.RestartNeeded = append(d.RestartNeeded, "macro_roots")
	}
	if old.MaxResults != new.MaxResults {
		d.RestartNeeded = append(d.RestartNeeded, "max_results")
	}
	if old.ExprEngine != new.ExprEngine {
		d.RestartNeeded = append(d.RestartNeeded, "expr_engine")
	}
	return d
}
