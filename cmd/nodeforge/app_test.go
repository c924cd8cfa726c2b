package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nodeforge/internal/expressions"
	"github.com/rendis/nodeforge/internal/logging"
	"github.com/rendis/nodeforge/internal/scheduler"
	"github.com/rendis/nodeforge/internal/search"
	"github.com/rendis/nodeforge/internal/store"
	"github.com/rendis/nodeforge/internal/validation"
	"github.com/rendis/nodeforge/pkg/schema"
)

const doorManifest = `
name: BP_Door
parent_class: Actor
variables:
  - {name: IsOpen, type: bool}
  - {name: Speed, type: real, const: true}
functions: [Open]
`

const retryManifest = `
containers:
  - path: /Game/Macros/RetryMacros
    graphs:
      - name: Retry
        pins:
          - {name: Exec, type: exec, direction: input}
          - {name: Attempts, type: int, direction: input, default: "3"}
          - {name: Then, type: exec, direction: output}
`

func newValidator(t *testing.T) *validation.ManifestValidator {
	t.Helper()
	v, err := validation.NewManifestValidator()
	require.NoError(t, err)
	return v
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestApp(t *testing.T, cfg Config) (*app, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	a, err := buildApp(context.Background(), cfg, logging.NewNop(), st, newValidator(t), expressions.NewExprEngine())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, st
}

func TestImportManifest_Document(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	res, err := importManifest(ctx, st, newValidator(t), []byte(doorManifest))
	require.NoError(t, err)
	assert.Equal(t, validation.ManifestDocument, res.Kind)
	assert.Equal(t, []string{"BP_Door"}, res.Names)
	assert.Equal(t, "imported document manifest: BP_Door", describeImport(res))

	rec, err := st.GetDocument(ctx, "BP_Door")
	require.NoError(t, err)
	assert.Equal(t, "Actor", rec.ParentClass)
}

func TestImportManifest_Assets(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	res, err := importManifest(ctx, st, newValidator(t), []byte(retryManifest))
	require.NoError(t, err)
	assert.Equal(t, validation.ManifestAssets, res.Kind)
	assert.Equal(t, []string{"/Game/Macros/RetryMacros"}, res.Names)

	_, err = st.GetAsset(ctx, "/Game/Macros/RetryMacros")
	require.NoError(t, err)
}

func TestImportManifest_Invalid(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	v := newValidator(t)

	_, err := importManifest(ctx, st, v, []byte("name: BP_Bad\nvariables:\n  - {name: Health}\n"))
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))

	_, err = importManifest(ctx, st, v, []byte("containers:\n  - {path: relative, graphs: []}\n"))
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))

	_, err = importManifest(ctx, st, v, []byte("- just\n- a list\n"))
	assert.Error(t, err)

	docs, err := st.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestBuildApp_ImportsAssetPaths(t *testing.T) {
	cfg := defaultConfig()
	cfg.AssetPaths = []string{
		writeFile(t, "door.yaml", doorManifest),
		writeFile(t, "retry.yaml", retryManifest),
	}
	a, _ := newTestApp(t, cfg)

	_, blueprints := a.index.Counts()
	assert.Equal(t, 1, blueprints)
	_, ok := a.index.Load("/Game/Macros/RetryMacros")
	assert.True(t, ok)

	res := a.search.Search(context.Background(), search.Query{Search: "IsOpen"}, "BP_Door")
	require.True(t, res.Success)
	var titles []string
	for _, d := range res.Actions {
		titles = append(titles, d.Title)
	}
	assert.Contains(t, titles, "Get IsOpen")
	assert.Contains(t, titles, "Set IsOpen")
}

func TestBuildApp_CreatesNodes(t *testing.T) {
	cfg := defaultConfig()
	cfg.AssetPaths = []string{writeFile(t, "door.yaml", doorManifest)}
	a, st := newTestApp(t, cfg)

	res := a.synth.Create(context.Background(), schema.NodeRequest{
		Document: "BP_Door",
		Graph:    "Open",
		Symbol:   "Set IsOpen",
		Params:   map[string]any{"IsOpen": true},
	})
	require.True(t, res.Success, res.Error)

	rec, err := st.GetDocument(context.Background(), "BP_Door")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Revision)
}

func TestBuildApp_MissingAssetPath(t *testing.T) {
	cfg := defaultConfig()
	cfg.AssetPaths = []string{filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := buildApp(context.Background(), cfg, logging.NewNop(), store.NewMemoryStore(), newValidator(t), expressions.NewExprEngine())
	assert.Error(t, err)
}

func TestAdminRouter(t *testing.T) {
	a, _ := newTestApp(t, defaultConfig())
	a.search.ActionsForPin(context.Background(), "real", "", search.Query{MaxResults: 3})
	router := newAdminRouter(a)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Positive(t, health.Types)
	assert.Positive(t, health.Containers)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nodeforge_discovery_requests_total")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestApplyReload(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	sched := scheduler.NewScheduler(st, logging.NewNop())
	level := new(slog.LevelVar)

	old := defaultConfig()
	require.NoError(t, sched.EnsureJob(ctx, refreshJobID, scheduler.TaskAssetRefresh, old.RefreshCron))

	next := old
	next.LogLevel = "debug"
	next.RefreshCron = "0 * * * *"
	next.DBPath = "file:/elsewhere.db"

	effective := applyReload(ctx, old, next, level, sched, logging.NewNop())
	assert.Equal(t, slog.LevelDebug, level.Level())
	assert.Equal(t, "debug", effective.LogLevel)
	assert.Equal(t, "0 * * * *", effective.RefreshCron)
	assert.Equal(t, old.DBPath, effective.DBPath, "restart-only fields keep their value")

	job, err := st.GetScheduledJob(ctx, refreshJobID)
	require.NoError(t, err)
	assert.Equal(t, "0 * * * *", job.CronExpression)

	bad := effective
	bad.RefreshCron = "whenever"
	assert.Equal(t, "0 * * * *", applyReload(ctx, effective, bad, level, sched, logging.NewNop()).RefreshCron)
}

func TestActionsMarkdown(t *testing.T) {
	md := actionsMarkdown("Actions for real pins", schema.DiscoveryResult{
		Success: true,
		Message: "Found 2 actions",
		Actions: []schema.ActionDescriptor{
			{Title: "Add (Float)", Category: "Math|Float", NodeType: schema.KindCallFunction, ClassName: "KismetMathLibrary"},
			{Title: "Branch", Category: "Flow Control", NodeType: schema.KindBranch},
		},
	})
	assert.Contains(t, md, "# Actions for real pins")
	assert.Contains(t, md, "Found 2 actions")
	assert.Contains(t, md, `| Add (Float) | Math\|Float | call_function | KismetMathLibrary |`)
	assert.Contains(t, md, "| Branch | Flow Control | branch |  |")

	md = actionsMarkdown("Search: x", schema.DiscoveryResult{Error: "predicate failed"})
	assert.Contains(t, md, "**Error:** predicate failed")
	assert.NotContains(t, md, "| Title |")
}
