package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nodeforge/internal/assets"
	"github.com/rendis/nodeforge/internal/catalog"
	"github.com/rendis/nodeforge/internal/document"
	"github.com/rendis/nodeforge/internal/editor"
	"github.com/rendis/nodeforge/internal/logging"
	"github.com/rendis/nodeforge/internal/macros"
	"github.com/rendis/nodeforge/internal/metrics"
	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/internal/search"
	"github.com/rendis/nodeforge/internal/store"
	"github.com/rendis/nodeforge/internal/symbols"
	"github.com/rendis/nodeforge/internal/synth"
	"github.com/rendis/nodeforge/pkg/schema"
)

func newTestServer(t *testing.T) (*ForgeServer, *store.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	types, err := reflection.NewBuiltinRegistry(nil)
	require.NoError(t, err)
	cat, err := catalog.Build(types, macros.Default().Names())
	require.NoError(t, err)

	idx := assets.NewIndex(logging.NewNop())
	seed, err := assets.SeedContainers()
	require.NoError(t, err)
	for _, c := range seed {
		idx.Add(c)
	}

	st := store.NewMemoryStore()
	doc := document.New("BP_Hero", "Character")
	doc.Variables = []document.Variable{{Name: "Health", Type: schema.PinReal}}
	body, err := doc.Encode()
	require.NoError(t, err)
	require.NoError(t, st.PutDocument(ctx, &store.DocumentRecord{Name: doc.Name, ParentClass: doc.ParentClass, Body: body}))

	m := metrics.NewUnregistered()
	ed := editor.New(st, logging.NewNop(), m)
	t.Cleanup(ed.Shutdown)

	resolver := symbols.New(symbols.Config{
		Types:      types,
		Catalog:    cat,
		Macros:     macros.NewFinder(idx, nil, logging.NewNop()),
		Blueprints: idx,
		Metrics:    m,
		Logger:     logging.NewNop(),
	})

	s := NewForgeServer(ForgeServerDeps{
		Search: search.NewService(search.Config{
			Catalog:   cat,
			Types:     types,
			Documents: st,
			Metrics:   m,
			Logger:    logging.NewNop(),
		}),
		Synth:  synth.New(synth.Config{Resolver: resolver, Editor: ed, Types: types, Metrics: m, Logger: logging.NewNop()}),
		Logger: logging.NewNop(),
	})
	return s, st
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func callTool(t *testing.T, s *ForgeServer, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.mcpServer.GetTool(toolName)
	require.NotNil(t, tool)
	result, err := tool.Handler(context.Background(), buildRequest(toolName, args))
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func decodeResult[T any](t *testing.T, result *mcp.CallToolResult) T {
	t.Helper()
	require.False(t, result.IsError, mcp.GetTextFromContent(result.Content[0]))
	var out T
	require.NoError(t, json.Unmarshal([]byte(mcp.GetTextFromContent(result.Content[0])), &out))
	return out
}

// --- discovery ---

func TestHandleActionsForPin(t *testing.T) {
	s, _ := newTestServer(t)

	res := decodeResult[schema.DiscoveryResult](t, callTool(t, s, ToolActionsForPin, map[string]any{
		"pin_type":      "float",
		"search_filter": "add",
		"max_results":   "5",
	}))
	assert.True(t, res.Success)
	assert.Equal(t, "float", res.PinType)
	assert.LessOrEqual(t, res.ActionCount, 5)
	assert.Len(t, res.Actions, res.ActionCount)
}

func TestHandleActionsForPin_MissingPinType(t *testing.T) {
	s, _ := newTestServer(t)
	result := callTool(t, s, ToolActionsForPin, map[string]any{})
	assert.True(t, result.IsError)
	assert.Contains(t, mcp.GetTextFromContent(result.Content[0]), "pin_type is required")
}

func TestHandleActionsForPin_InvalidMaxResults(t *testing.T) {
	s, _ := newTestServer(t)
	result := callTool(t, s, ToolActionsForPin, map[string]any{"pin_type": "real", "max_results": "lots"})
	assert.True(t, result.IsError)
}

func TestHandleActionsForPin_WherePredicate(t *testing.T) {
	s, _ := newTestServer(t)

	res := decodeResult[schema.DiscoveryResult](t, callTool(t, s, ToolActionsForPin, map[string]any{
		"pin_type":    "real",
		"where":       "is_pure",
		"max_results": 20,
	}))
	require.True(t, res.Success)
	for _, a := range res.Actions {
		assert.True(t, a.IsPure, a.Title)
	}

	res = decodeResult[schema.DiscoveryResult](t, callTool(t, s, ToolActionsForPin, map[string]any{
		"pin_type": "real",
		"where":    "title",
	}))
	assert.False(t, res.Success, "non-boolean predicate")
	assert.NotEmpty(t, res.Error)
}

func TestHandleActionsForPin_JQProjection(t *testing.T) {
	s, _ := newTestServer(t)

	scalar := decodeResult[map[string]any](t, callTool(t, s, ToolActionsForPin, map[string]any{
		"pin_type":    "real",
		"max_results": 3,
		"jq":          ".action_count",
	}))
	assert.Contains(t, scalar, "result")

	obj := decodeResult[map[string]any](t, callTool(t, s, ToolActionsForPin, map[string]any{
		"pin_type": "real",
		"jq":       "{ok: .success, titles: [.actions[].title]}",
	}))
	assert.Equal(t, true, obj["ok"])
	assert.Contains(t, obj, "titles")

	result := callTool(t, s, ToolActionsForPin, map[string]any{"pin_type": "real", "jq": ".["})
	assert.True(t, result.IsError)
}

func TestHandleActionsForClass(t *testing.T) {
	s, _ := newTestServer(t)

	res := decodeResult[schema.DiscoveryResult](t, callTool(t, s, ToolActionsForClass, map[string]any{"class_name": "Character"}))
	assert.True(t, res.Success)
	assert.Equal(t, "Character", res.ClassName)

	res = decodeResult[schema.DiscoveryResult](t, callTool(t, s, ToolActionsForClass, map[string]any{"class_name": "NoSuchClass"}))
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "not found")

	result := callTool(t, s, ToolActionsForClass, map[string]any{})
	assert.True(t, result.IsError)
}

func TestHandleActionsForHierarchy(t *testing.T) {
	s, _ := newTestServer(t)

	res := decodeResult[schema.HierarchyResult](t, callTool(t, s, ToolActionsForHierarchy, map[string]any{"class_name": "Character"}))
	require.True(t, res.Success)
	assert.Greater(t, len(res.ClassHierarchy), 1)
	total := 0
	for _, n := range res.CategoryCounts {
		total += n
	}
	assert.LessOrEqual(t, total, res.ActionCount)
}

func TestHandleSearchActions(t *testing.T) {
	s, _ := newTestServer(t)

	res := decodeResult[schema.DiscoveryResult](t, callTool(t, s, ToolSearchActions, map[string]any{
		"search_query":   "Health",
		"blueprint_name": "BP_Hero",
	}))
	require.True(t, res.Success)
	var titles []string
	for _, a := range res.Actions {
		titles = append(titles, a.Title)
	}
	assert.Contains(t, titles, "Get Health")

	res = decodeResult[schema.DiscoveryResult](t, callTool(t, s, ToolSearchActions, map[string]any{"search_query": "  "}))
	assert.False(t, res.Success)
}

func TestHandleNodePinInfo(t *testing.T) {
	s, _ := newTestServer(t)

	res := decodeResult[schema.PinInfoResult](t, callTool(t, s, ToolNodePinInfo, map[string]any{
		"node_name": "Create Widget",
		"pin_name":  "Class",
	}))
	require.True(t, res.Success)
	require.NotNil(t, res.PinInfo)
	assert.Equal(t, "class", res.PinInfo.PinType)

	result := callTool(t, s, ToolNodePinInfo, map[string]any{"node_name": "Create Widget"})
	assert.True(t, result.IsError)
}

// --- create ---

func TestHandleCreateNode_Branch(t *testing.T) {
	s, st := newTestServer(t)

	res := decodeResult[schema.NodeResult](t, callTool(t, s, ToolCreateNode, map[string]any{
		"blueprint_name": "BP_Hero",
		"function_name":  "Branch",
		"node_position":  []any{100.0, 200.0},
	}))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, schema.KindBranch, res.NodeType)
	require.NotNil(t, res.Position)
	assert.Equal(t, schema.Position{X: 100, Y: 200}, *res.Position)
	assert.NotEmpty(t, res.NodeID)

	rec, err := st.GetDocument(context.Background(), "BP_Hero")
	require.NoError(t, err)
	doc, err := document.Decode(rec.Body)
	require.NoError(t, err)
	require.NotEmpty(t, doc.Graphs)
	assert.Len(t, doc.Graphs[0].Nodes, 1)
}

func TestHandleCreateNode_ParamsAsJSONString(t *testing.T) {
	s, _ := newTestServer(t)

	res := decodeResult[schema.NodeResult](t, callTool(t, s, ToolCreateNode, map[string]any{
		"blueprint_name": "BP_Hero",
		"function_name":  "K2_SetActorLocation",
		"class_name":     "Actor",
		"node_position":  "10,20",
		"json_params":    `{"kwargs": {"NewLocation": [0, 0, 1000]}}`,
	}))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Actor", res.ClassName)
	for _, p := range res.Pins {
		if p.Name == "NewLocation" {
			assert.Equal(t, "(X=0.0,Y=0.0,Z=1000.0)", p.DefaultValue)
		}
	}
}

func TestHandleCreateNode_DomainFailure(t *testing.T) {
	s, _ := newTestServer(t)

	res := decodeResult[schema.NodeResult](t, callTool(t, s, ToolCreateNode, map[string]any{
		"blueprint_name": "BP_Ghost",
		"function_name":  "Branch",
	}))
	assert.False(t, res.Success)
	assert.Equal(t, schema.ErrCodeNotFound, res.ErrorCode)

	res = decodeResult[schema.NodeResult](t, callTool(t, s, ToolCreateNode, map[string]any{
		"blueprint_name": "BP_Hero",
		"function_name":  "Get All Actors Of Class",
		"json_params":    map[string]any{"ActorClass": "Dragon"},
	}))
	assert.False(t, res.Success)
	assert.Equal(t, schema.ErrCodeCoercion, res.ErrorCode)
}

func TestHandleCreateNode_MalformedArguments(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing blueprint", map[string]any{"function_name": "Branch"}, "blueprint_name is required"},
		{"missing function", map[string]any{"blueprint_name": "BP_Hero"}, "function_name is required"},
		{"bad position", map[string]any{"blueprint_name": "BP_Hero", "function_name": "Branch", "node_position": "left,top"}, "invalid node_position"},
		{"short position", map[string]any{"blueprint_name": "BP_Hero", "function_name": "Branch", "node_position": []any{1.0}}, "invalid node_position"},
		{"params not json", map[string]any{"blueprint_name": "BP_Hero", "function_name": "Branch", "json_params": "{oops"}, "invalid json_params"},
		{"params wrong type", map[string]any{"blueprint_name": "BP_Hero", "function_name": "Branch", "json_params": 3.0}, "invalid json_params"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, s, ToolCreateNode, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, mcp.GetTextFromContent(result.Content[0]), tt.want)
		})
	}
}

func TestParseParams(t *testing.T) {
	p, err := parseParams(nil)
	require.NoError(t, err)
	assert.Empty(t, p)

	p, err = parseParams(`{"a": 1}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p["a"])

	p, err = parseParams("null")
	require.NoError(t, err)
	assert.NotNil(t, p)

	_, err = parseParams("[1,2]")
	assert.Error(t, err)
}
