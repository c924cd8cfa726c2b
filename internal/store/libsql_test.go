package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nodeforge/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

// eachStore runs fn against both Store implementations.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("libsql", func(t *testing.T) { fn(t, newTestStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

// --- Document Tests ---

func TestPutAndGetDocument(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		doc := &DocumentRecord{
			Name:        "BP_Door",
			Path:        "/Game/Blueprints/BP_Door",
			ParentClass: "Actor",
			Body:        json.RawMessage(`{"name":"BP_Door"}`),
		}
		require.NoError(t, s.PutDocument(ctx, doc))
		assert.Equal(t, int64(1), doc.Revision)

		got, err := s.GetDocument(ctx, "bp_door")
		require.NoError(t, err)
		assert.Equal(t, "BP_Door", got.Name)
		assert.Equal(t, "/Game/Blueprints/BP_Door", got.Path)
		assert.Equal(t, "Actor", got.ParentClass)
		assert.JSONEq(t, `{"name":"BP_Door"}`, string(got.Body))

		doc.Body = json.RawMessage(`{"name":"BP_Door","modified":true}`)
		require.NoError(t, s.PutDocument(ctx, doc))
		assert.Equal(t, int64(2), doc.Revision)

		got, err = s.GetDocument(ctx, "BP_Door")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Revision)
		assert.JSONEq(t, `{"name":"BP_Door","modified":true}`, string(got.Body))
	})
}

func TestGetDocument_NotFound(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		_, err := s.GetDocument(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, schema.IsNotFound(err))
	})
}

func TestListAndDeleteDocuments(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, name := range []string{"BP_B", "BP_A"} {
			require.NoError(t, s.PutDocument(ctx, &DocumentRecord{Name: name, Body: json.RawMessage(`{}`)}))
		}
		docs, err := s.ListDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "BP_A", docs[0].Name)

		require.NoError(t, s.DeleteDocument(ctx, "BP_A"))
		err = s.DeleteDocument(ctx, "BP_A")
		assert.True(t, schema.IsNotFound(err))

		docs, err = s.ListDocuments(ctx)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})
}

func TestPutDocument_EmptyName(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		err := s.PutDocument(context.Background(), &DocumentRecord{Body: json.RawMessage(`{}`)})
		assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
	})
}

// --- Asset Tests ---

func TestAssets(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		records := []*AssetRecord{
			{Path: "/Engine/EditorBlueprintResources/StandardMacros.StandardMacros", Name: "StandardMacros", Class: "BlueprintMacroLibrary", Body: json.RawMessage(`{}`)},
			{Path: "/Game/Macros/MyMacros.MyMacros", Name: "MyMacros", Class: "BlueprintMacroLibrary", Body: json.RawMessage(`{}`)},
			{Path: "/Game/Data/Table_1.Table_1", Name: "Table_1", Class: "DataTable", Body: json.RawMessage(`{}`)},
		}
		for _, r := range records {
			require.NoError(t, s.UpsertAsset(ctx, r))
		}

		got, err := s.GetAsset(ctx, "/Game/Macros/MyMacros.MyMacros")
		require.NoError(t, err)
		assert.Equal(t, "MyMacros", got.Name)

		all, err := s.ListAssets(ctx, AssetFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		game, err := s.ListAssets(ctx, AssetFilter{PathPrefixes: []string{"/Game/"}, Class: "BlueprintMacroLibrary"})
		require.NoError(t, err)
		require.Len(t, game, 1)
		assert.Equal(t, "MyMacros", game[0].Name)

		underscore, err := s.ListAssets(ctx, AssetFilter{PathPrefixes: []string{"/Game/Data/Table_"}})
		require.NoError(t, err)
		assert.Len(t, underscore, 1)

		limited, err := s.ListAssets(ctx, AssetFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		require.NoError(t, s.DeleteAsset(ctx, "/Game/Data/Table_1.Table_1"))
		_, err = s.GetAsset(ctx, "/Game/Data/Table_1.Table_1")
		assert.True(t, schema.IsNotFound(err))
	})
}

// --- Scheduled Job Tests ---

func TestScheduledJobs(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		job := &ScheduledJob{
			ID:             uuid.New().String(),
			Task:           "assets.refresh",
			CronExpression: "*/5 * * * *",
			Enabled:        true,
		}
		require.NoError(t, s.CreateScheduledJob(ctx, job))
		err := s.CreateScheduledJob(ctx, job)
		assert.Equal(t, schema.ErrCodeConflict, schema.CodeOf(err))

		now := time.Now().UTC().Truncate(time.Second)
		next := now.Add(5 * time.Minute)
		require.NoError(t, s.UpdateScheduledJob(ctx, job.ID, ScheduledJobUpdate{
			LastRunAt:     &now,
			NextRunAt:     &next,
			LastRunStatus: "success",
		}))

		got, err := s.GetScheduledJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, "assets.refresh", got.Task)
		assert.Equal(t, "success", got.LastRunStatus)
		require.NotNil(t, got.NextRunAt)
		assert.True(t, got.NextRunAt.Equal(next))

		disabled := false
		require.NoError(t, s.UpdateScheduledJob(ctx, job.ID, ScheduledJobUpdate{Enabled: &disabled}))
		enabled := true
		jobs, err := s.ListScheduledJobs(ctx, ScheduledJobFilter{Enabled: &enabled})
		require.NoError(t, err)
		assert.Empty(t, jobs)

		jobs, err = s.ListScheduledJobs(ctx, ScheduledJobFilter{Task: "assets.refresh"})
		require.NoError(t, err)
		assert.Len(t, jobs, 1)

		err = s.UpdateScheduledJob(ctx, "missing", ScheduledJobUpdate{LastRunStatus: "x"})
		assert.True(t, schema.IsNotFound(err))

		require.NoError(t, s.DeleteScheduledJob(ctx, job.ID))
		_, err = s.GetScheduledJob(ctx, job.ID)
		assert.True(t, schema.IsNotFound(err))
	})
}

// --- Migration Tests ---

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	var version int
	require.NoError(t, s.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version))
	assert.Equal(t, len(migrations), version)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (x INT);\n\n-- only a comment\n;CREATE INDEX i ON a(x);")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Equal(t, "CREATE INDEX i ON a(x)", stmts[1])
}
