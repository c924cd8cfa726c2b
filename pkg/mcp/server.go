package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/nodeforge/internal/expressions"
	"github.com/rendis/nodeforge/internal/search"
	"github.com/rendis/nodeforge/internal/synth"
)

// Tool names.
const (
	ToolActionsForPin       = "get_actions_for_pin"
	ToolActionsForClass     = "get_actions_for_class"
	ToolActionsForHierarchy = "get_actions_for_class_hierarchy"
	ToolSearchActions       = "search_blueprint_actions"
	ToolNodePinInfo         = "get_node_pin_info"
	ToolCreateNode          = "create_node_by_action_name"
)

// ForgeServerDeps holds the dependencies for creating a ForgeServer.
type ForgeServerDeps struct {
	Search *search.Service
	Synth  *synth.Synthesizer
	// Predicates evaluates "where" arguments. Defaults to expr.
	Predicates expressions.Engine
	Logger     *slog.Logger
}

// ForgeServer wraps an MCP server with the discovery and node creation tools.
type ForgeServer struct {
	search     *search.Service
	synth      *synth.Synthesizer
	predicates expressions.Engine
	projector  *expressions.GoJQEngine
	logger     *slog.Logger
	mcpServer  *server.MCPServer
}

// NewForgeServer creates a ForgeServer with all 6 tools registered.
func NewForgeServer(deps ForgeServerDeps) *ForgeServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	predicates := deps.Predicates
	if predicates == nil {
		predicates = expressions.NewExprEngine()
	}

	s := &ForgeServer{
		search:     deps.Search,
		synth:      deps.Synth,
		predicates: predicates,
		projector:  expressions.NewGoJQEngine(),
		logger:     logger,
	}

	mcpSrv := server.NewMCPServer(
		"nodeforge",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("nodeforge builds Blueprint graphs from action names. Use get_actions_for_pin, get_actions_for_class, get_actions_for_class_hierarchy and search_blueprint_actions to discover actions, get_node_pin_info to inspect pins, and create_node_by_action_name to add a node to a Blueprint graph. Discovery tools accept a 'where' predicate over action fields and a 'jq' projection of the result."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *ForgeServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *ForgeServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *ForgeServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: actionsForPinTool(), Handler: s.traced(ToolActionsForPin, s.handleActionsForPin)},
		{Tool: actionsForClassTool(), Handler: s.traced(ToolActionsForClass, s.handleActionsForClass)},
		{Tool: actionsForHierarchyTool(), Handler: s.traced(ToolActionsForHierarchy, s.handleActionsForHierarchy)},
		{Tool: searchActionsTool(), Handler: s.traced(ToolSearchActions, s.handleSearchActions)},
		{Tool: nodePinInfoTool(), Handler: s.traced(ToolNodePinInfo, s.handleNodePinInfo)},
		{Tool: createNodeTool(), Handler: s.traced(ToolCreateNode, s.handleCreateNode)},
	}
}

// --- Tool definitions ---

func discoveryOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("max_results", mcp.Description("Maximum number of actions to return")),
		mcp.WithString("where", mcp.Description("Boolean predicate over action fields, e.g. is_pure && category contains 'Math'")),
		mcp.WithString("jq", mcp.Description("jq expression applied to the result before it is returned")),
	}
}

func actionsForPinTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("List actions that can connect to a pin of the given type"),
		mcp.WithString("pin_type", mcp.Required(), mcp.Description("Pin type: exec, bool, int, real, string, object, class, struct, wildcard...")),
		mcp.WithString("pin_subcategory", mcp.Description("Class or struct name for object, class and struct pins")),
		mcp.WithString("search_filter", mcp.Description("Only actions whose title, keywords or category contain this text")),
	}
	return mcp.NewTool(ToolActionsForPin, append(opts, discoveryOptions()...)...)
}

func actionsForClassTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("List the functions and native properties available on a class"),
		mcp.WithString("class_name", mcp.Required(), mcp.Description("Class name, with or without the A/U prefix")),
		mcp.WithString("search_filter", mcp.Description("Only actions whose title, keywords or category contain this text")),
	}
	return mcp.NewTool(ToolActionsForClass, append(opts, discoveryOptions()...)...)
}

func actionsForHierarchyTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("List the actions available on a class and all of its ancestors"),
		mcp.WithString("class_name", mcp.Required(), mcp.Description("Class name, with or without the A/U prefix")),
		mcp.WithString("search_filter", mcp.Description("Only actions whose title, keywords or category contain this text")),
	}
	return mcp.NewTool(ToolActionsForHierarchy, append(opts, discoveryOptions()...)...)
}

func searchActionsTool() mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription("Search all actions by keyword"),
		mcp.WithString("search_query", mcp.Required(), mcp.Description("Text to search for")),
		mcp.WithString("category", mcp.Description("Only actions whose category contains this text")),
		mcp.WithString("blueprint_name", mcp.Description("Also offer this Blueprint's variables and functions")),
	}
	return mcp.NewTool(ToolSearchActions, append(opts, discoveryOptions()...)...)
}

func nodePinInfoTool() mcp.Tool {
	return mcp.NewTool(ToolNodePinInfo,
		mcp.WithDescription("Describe a pin of a known node"),
		mcp.WithString("node_name", mcp.Required(), mcp.Description("Node name, e.g. Create Widget")),
		mcp.WithString("pin_name", mcp.Required(), mcp.Description("Pin name, e.g. Class")),
	)
}

func createNodeTool() mcp.Tool {
	return mcp.NewTool(ToolCreateNode,
		mcp.WithDescription("Create a node in a Blueprint graph from an action name"),
		mcp.WithString("blueprint_name", mcp.Required(), mcp.Description("Target Blueprint")),
		mcp.WithString("function_name", mcp.Required(), mcp.Description("Action name: a function, Get/Set variable, macro, event or control flow node")),
		mcp.WithString("class_name", mcp.Description("Class that declares the function")),
		mcp.WithArray("node_position", mcp.Description("Node position as [x, y] or \"x,y\"")),
		mcp.WithObject("json_params", mcp.Description("Pin values and node options (event_name, target_type, struct_type, variable_name); may nest them under kwargs")),
		mcp.WithString("target_graph", mcp.Description("Graph to add the node to (default EventGraph)")),
	)
}
