package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/rendis/nodeforge/internal/expressions"
	"github.com/rendis/nodeforge/internal/logging"
	"github.com/rendis/nodeforge/internal/search"
	"github.com/rendis/nodeforge/pkg/schema"
)

// discoveryArgs are the arguments shared by the discovery tools.
type discoveryArgs struct {
	PinType        string `mapstructure:"pin_type"`
	PinSubcategory string `mapstructure:"pin_subcategory"`
	ClassName      string `mapstructure:"class_name"`
	SearchFilter   string `mapstructure:"search_filter"`
	SearchQuery    string `mapstructure:"search_query"`
	Category       string `mapstructure:"category"`
	BlueprintName  string `mapstructure:"blueprint_name"`
	MaxResults     int    `mapstructure:"max_results"`
	Where          string `mapstructure:"where"`
	JQ             string `mapstructure:"jq"`
}

// createArgs carries the node request plus the loosely typed fields that
// need their own parsing.
type createArgs struct {
	schema.NodeRequest `mapstructure:",squash"`
	NodePosition       any `mapstructure:"node_position"`
	JSONParams         any `mapstructure:"json_params"`
}

// decodeArgs decodes the tool arguments into out. Numbers sent as strings and
// similar loose input are accepted.
func decodeArgs(req mcp.CallToolRequest, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(req.GetArguments())
}

// traced tags the context of every call with a fresh request id and the
// tool name before handing it to h.
func (s *ForgeServer) traced(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = logging.WithRequestID(ctx, uuid.NewString())
		ctx = logging.WithTool(ctx, name)
		logging.LogWith(ctx, s.logger).Debug("tool call")
		return h(ctx, req)
	}
}

func (s *ForgeServer) query(term, category string, args discoveryArgs) search.Query {
	q := searchQuery(term, category, args.MaxResults)
	if args.Where != "" {
		q.Where = expressions.NewPredicate(s.predicates, args.Where, map[string]any{
			"pin_type":        args.PinType,
			"pin_subcategory": args.PinSubcategory,
			"class_name":      args.ClassName,
			"search":          term,
			"category":        category,
		})
	}
	return q
}

func searchQuery(term, category string, max int) search.Query {
	return search.Query{Search: term, Category: category, MaxResults: max}
}

// handleActionsForPin lists actions compatible with a pin type.
func (s *ForgeServer) handleActionsForPin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args discoveryArgs
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(args.PinType) == "" {
		return mcp.NewToolResultError("pin_type is required"), nil
	}

	res := s.search.ActionsForPin(ctx, args.PinType, args.PinSubcategory, s.query(args.SearchFilter, "", args))
	return s.project(ctx, args.JQ, res)
}

// handleActionsForClass lists actions declared on a class.
func (s *ForgeServer) handleActionsForClass(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args discoveryArgs
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(args.ClassName) == "" {
		return mcp.NewToolResultError("class_name is required"), nil
	}

	res := s.search.ActionsForClass(ctx, args.ClassName, s.query(args.SearchFilter, "", args))
	return s.project(ctx, args.JQ, res)
}

// handleActionsForHierarchy lists actions across a class and its ancestors.
func (s *ForgeServer) handleActionsForHierarchy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args discoveryArgs
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(args.ClassName) == "" {
		return mcp.NewToolResultError("class_name is required"), nil
	}

	res := s.search.ActionsForClassHierarchy(ctx, args.ClassName, s.query(args.SearchFilter, "", args))
	return s.project(ctx, args.JQ, res)
}

// handleSearchActions runs a keyword search over every action.
func (s *ForgeServer) handleSearchActions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args discoveryArgs
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.BlueprintName != "" {
		ctx = logging.WithDocument(ctx, args.BlueprintName)
	}

	res := s.search.Search(ctx, s.query(args.SearchQuery, args.Category, args), args.BlueprintName)
	return s.project(ctx, args.JQ, res)
}

// handleNodePinInfo describes a pin of a well-known node.
func (s *ForgeServer) handleNodePinInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeName, err := req.RequireString("node_name")
	if err != nil {
		return mcp.NewToolResultError("node_name is required"), nil
	}
	pinName, err := req.RequireString("pin_name")
	if err != nil {
		return mcp.NewToolResultError("pin_name is required"), nil
	}

	return marshalResult(s.search.PinInfo(nodeName, pinName))
}

// handleCreateNode resolves an action name and adds the node to a graph.
func (s *ForgeServer) handleCreateNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := req.RequireString("blueprint_name"); err != nil {
		return mcp.NewToolResultError("blueprint_name is required"), nil
	}
	if _, err := req.RequireString("function_name"); err != nil {
		return mcp.NewToolResultError("function_name is required"), nil
	}

	var args createArgs
	if err := decodeArgs(req, &args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	pos, err := schema.ParsePosition(args.NodePosition)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid node_position: %v", err)), nil
	}
	params, err := parseParams(args.JSONParams)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid json_params: %v", err)), nil
	}

	nodeReq := args.NodeRequest
	nodeReq.Position = pos
	nodeReq.Params = params

	ctx = logging.WithDocument(ctx, nodeReq.Document)
	res := s.synth.Create(ctx, nodeReq)
	if !res.Success {
		logging.LogWith(ctx, s.logger).Info("create node failed",
			slog.String("symbol", nodeReq.Symbol),
			slog.String("error_code", res.ErrorCode),
		)
	}
	return marshalResult(res)
}

// parseParams accepts json_params as an object or as a JSON-encoded object.
func parseParams(v any) (map[string]any, error) {
	switch p := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return p, nil
	case string:
		if strings.TrimSpace(p) == "" {
			return map[string]any{}, nil
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(p), &out); err != nil {
			return nil, fmt.Errorf("not a JSON object: %w", err)
		}
		if out == nil {
			out = map[string]any{}
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected an object, got %T", v)
}

// project applies an optional jq expression to a result. Non-object output
// is wrapped as {"result": ...}.
func (s *ForgeServer) project(ctx context.Context, expr string, v any) (*mcp.CallToolResult, error) {
	if expr == "" {
		return marshalResult(v)
	}
	out, err := s.projector.Project(ctx, expr, v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("jq projection failed: %v", err)), nil
	}
	if m, ok := out.(map[string]any); ok {
		return marshalResult(m)
	}
	return marshalResult(map[string]any{"result": out})
}

// marshalResult converts a value to a JSON CallToolResult.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
