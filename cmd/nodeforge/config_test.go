package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{
		"NODEFORGE_DB_PATH", "NODEFORGE_LOG_LEVEL", "NODEFORGE_MANIFEST_PATHS",
		"NODEFORGE_ASSET_PATHS", "NODEFORGE_MACRO_ROOTS", "NODEFORGE_REFRESH_CRON",
		"NODEFORGE_MAX_RESULTS", "NODEFORGE_EXPR_ENGINE",
	} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := withHome(t)
	t.Setenv("NODEFORGE_ADMIN_ADDR", "")
	os.Unsetenv("NODEFORGE_ADMIN_ADDR")

	cfg := loadConfig()
	assert.Equal(t, "file:"+filepath.Join(home, ".nodeforge", "nodeforge.db"), cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.AdminAddr)
	assert.Equal(t, 50, cfg.MaxResults)
	assert.Equal(t, "expr", cfg.ExprEngine)
	assert.Equal(t, "*/15 * * * *", cfg.RefreshCron)
}

func TestLoadConfig_Layers(t *testing.T) {
	home := withHome(t)
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".nodeforge"), 0o700))
	settings, err := json.Marshal(map[string]any{
		"log_level":   "debug",
		"max_results": 10,
		"admin_addr":  ":9100",
		"macro_roots": []string{"/Game/Macros"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".nodeforge", "settings.json"), settings, 0o644))

	t.Setenv("NODEFORGE_MAX_RESULTS", "25")
	t.Setenv("NODEFORGE_EXPR_ENGINE", "cel")
	t.Setenv("NODEFORGE_DB_PATH", "/tmp/forge.db")
	t.Setenv("NODEFORGE_ASSET_PATHS", "a.yaml, ,b.yaml")
	t.Setenv("NODEFORGE_ADMIN_ADDR", "")

	cfg := loadConfig()
	assert.Equal(t, "debug", cfg.LogLevel, "from settings.json")
	assert.Equal(t, []string{"/Game/Macros"}, cfg.MacroRoots)
	assert.Equal(t, 25, cfg.MaxResults, "env wins over settings.json")
	assert.Equal(t, "cel", cfg.ExprEngine)
	assert.Equal(t, "file:/tmp/forge.db", cfg.DBPath)
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, cfg.AssetPaths)
	assert.Empty(t, cfg.AdminAddr, "an empty env value disables the admin listener")
}

func TestLoadConfig_BadEnvNumberIgnored(t *testing.T) {
	withHome(t)
	t.Setenv("NODEFORGE_MAX_RESULTS", "many")
	assert.Equal(t, 50, loadConfig().MaxResults)
}

func TestDiffConfigs(t *testing.T) {
	old := defaultConfig()

	d := diffConfigs(old, old)
	assert.False(t, d.LogLevelChanged)
	assert.False(t, d.RefreshCronChanged)
	assert.Empty(t, d.RestartNeeded)

	next := old
	next.LogLevel = "debug"
	next.RefreshCron = "0 * * * *"
	next.AdminAddr = ":9100"
	next.ManifestPaths = []string{"types.yaml"}
	next.ExprEngine = "cel"

	d = diffConfigs(old, next)
	assert.True(t, d.LogLevelChanged)
	assert.True(t, d.RefreshCronChanged)
	assert.Equal(t, []string{"admin_addr", "manifest_paths", "expr_engine"}, d.RestartNeeded)
}

func TestWriteSettings_RoundTrip(t *testing.T) {
	withHome(t)
	cfg := defaultConfig()
	cfg.LogLevel = "warn"
	cfg.AdminAddr = "127.0.0.1:9100"

	path, err := writeSettings(cfg)
	require.NoError(t, err)
	assert.Equal(t, settingsPath(), path)

	t.Setenv("NODEFORGE_ADMIN_ADDR", "127.0.0.1:9100")
	loaded := loadConfig()
	assert.Equal(t, "warn", loaded.LogLevel)
	assert.Equal(t, cfg.DBPath, loaded.DBPath)
}
