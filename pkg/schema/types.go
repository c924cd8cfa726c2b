package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NodeKind tags the kind of graph node an action produces.
type NodeKind string

const (
	KindBranch          NodeKind = "branch"
	KindSequence        NodeKind = "sequence"
	KindCast            NodeKind = "cast"
	KindEvent           NodeKind = "event"
	KindCustomEvent     NodeKind = "custom_event"
	KindCallFunction    NodeKind = "call_function"
	KindVariableGet     NodeKind = "variable_get"
	KindVariableSet     NodeKind = "variable_set"
	KindBreakStruct     NodeKind = "break_struct"
	KindMakeStruct      NodeKind = "make_struct"
	KindMacroInstance   NodeKind = "macro_instance"
	KindSelf            NodeKind = "self"
	KindMapForEach      NodeKind = "map_for_each"
	KindSetForEach      NodeKind = "set_for_each"
	KindInputAction     NodeKind = "input_action"
	KindConstructObject NodeKind = "construct_object"
)

// Structural reports whether the kind belongs to the structural allow-list that
// discovery admits regardless of pin type.
func (k NodeKind) Structural() bool {
	switch k {
	case KindBranch, KindSequence, KindCast, KindCustomEvent, KindVariableGet, KindVariableSet,
		KindEvent, KindBreakStruct, KindMakeStruct, KindMacroInstance, KindSelf:
		return true
	}
	return false
}

// Pin type categories.
const (
	PinExec     = "exec"
	PinBool     = "bool"
	PinByte     = "byte"
	PinInt      = "int"
	PinInt64    = "int64"
	PinReal     = "real"
	PinString   = "string"
	PinName     = "name"
	PinText     = "text"
	PinObject   = "object"
	PinClass    = "class"
	PinStruct   = "struct"
	PinEnum     = "enum"
	PinWildcard = "wildcard"
	PinDelegate = "delegate"
)

// PinDirection is the data-flow direction of a pin.
type PinDirection string

const (
	PinInput  PinDirection = "input"
	PinOutput PinDirection = "output"
)

// Position is a node location on the graph canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ParsePosition accepts [x, y], "x,y", {"x":..,"y":..} or nil and rounds both
// components to whole canvas units.
func ParsePosition(v any) (Position, error) {
	switch val := v.(type) {
	case nil:
		return Position{}, nil
	case Position:
		return Position{X: math.Round(val.X), Y: math.Round(val.Y)}, nil
	case []float64:
		if len(val) != 2 {
			return Position{}, NewErrorf(ErrCodeInvalidParameter, "position needs 2 components, got %d", len(val))
		}
		return Position{X: math.Round(val[0]), Y: math.Round(val[1])}, nil
	case []any:
		if len(val) != 2 {
			return Position{}, NewErrorf(ErrCodeInvalidParameter, "position needs 2 components, got %d", len(val))
		}
		x, okX := ToFloat(val[0])
		y, okY := ToFloat(val[1])
		if !okX || !okY {
			return Position{}, NewError(ErrCodeInvalidParameter, "position components must be numeric")
		}
		return Position{X: math.Round(x), Y: math.Round(y)}, nil
	case map[string]any:
		x, okX := ToFloat(val["x"])
		y, okY := ToFloat(val["y"])
		if !okX || !okY {
			return Position{}, NewError(ErrCodeInvalidParameter, "position object needs numeric x and y")
		}
		return Position{X: math.Round(x), Y: math.Round(y)}, nil
	case string:
		s := strings.Trim(strings.TrimSpace(val), "[]()")
		if s == "" {
			return Position{}, nil
		}
		parts := strings.Split(s, ",")
		if len(parts) != 2 {
			return Position{}, NewErrorf(ErrCodeInvalidParameter, "position %q is not of the form x,y", val)
		}
		x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errX != nil || errY != nil {
			return Position{}, NewErrorf(ErrCodeInvalidParameter, "position %q is not numeric", val)
		}
		return Position{X: math.Round(x), Y: math.Round(y)}, nil
	}
	return Position{}, NewError(ErrCodeInvalidParameter, fmt.Sprintf("unsupported position type %T", v))
}

// ToFloat converts JSON-ish numeric values (and numeric strings) to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// ActionDescriptor is the discovery-facing description of one catalog action.
type ActionDescriptor struct {
	Title            string   `json:"title"`
	Category         string   `json:"category"`
	Tooltip          string   `json:"tooltip,omitempty"`
	Keywords         string   `json:"keywords,omitempty"`
	NodeType         NodeKind `json:"node_type"`
	NodeClass        string   `json:"node_class,omitempty"`
	ClassName        string   `json:"class_name,omitempty"`
	FunctionName     string   `json:"function_name,omitempty"`
	StructName       string   `json:"struct_name,omitempty"`
	MacroGraph       string   `json:"macro_graph,omitempty"`
	PropertyName     string   `json:"property_name,omitempty"`
	PropertyType     string   `json:"property_type,omitempty"`
	IsMath           bool     `json:"is_math,omitempty"`
	IsPure           bool     `json:"is_pure,omitempty"`
	IsNativeProperty bool     `json:"is_native_property,omitempty"`
}

// Fields returns the descriptor as a flat map, the shape predicate expressions see.
func (d ActionDescriptor) Fields() map[string]any {
	return map[string]any{
		"title":              d.Title,
		"category":           d.Category,
		"tooltip":            d.Tooltip,
		"keywords":           d.Keywords,
		"node_type":          string(d.NodeType),
		"node_class":         d.NodeClass,
		"class_name":         d.ClassName,
		"function_name":      d.FunctionName,
		"struct_name":        d.StructName,
		"macro_graph":        d.MacroGraph,
		"property_name":      d.PropertyName,
		"property_type":      d.PropertyType,
		"is_math":            d.IsMath,
		"is_pure":            d.IsPure,
		"is_native_property": d.IsNativeProperty,
	}
}

// PinDescriptor describes one pin of an instantiated node.
type PinDescriptor struct {
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	SubType      string       `json:"sub_type,omitempty"`
	Direction    PinDirection `json:"direction"`
	IsExecution  bool         `json:"is_execution"`
	DefaultValue string       `json:"default_value,omitempty"`
}

// NodeRequest is a symbolic request to create a node in a document graph.
type NodeRequest struct {
	Document   string         `json:"blueprint_name" mapstructure:"blueprint_name"`
	Graph      string         `json:"target_graph,omitempty" mapstructure:"target_graph"`
	Symbol     string         `json:"function_name" mapstructure:"function_name"`
	OwnerHint  string         `json:"class_name,omitempty" mapstructure:"class_name"`
	Position   Position       `json:"node_position" mapstructure:"-"`
	Params     map[string]any `json:"params,omitempty" mapstructure:"-"`
	StructType string         `json:"struct_type,omitempty" mapstructure:"-"`
	TargetType string         `json:"target_type,omitempty" mapstructure:"-"`
}

// Param returns the parameter named key, matched case-insensitively.
func (r *NodeRequest) Param(key string) (any, bool) {
	if v, ok := r.Params[key]; ok {
		return v, true
	}
	// Among keys differing only in case, the first in sorted order wins.
	var (
		best  string
		value any
		found bool
	)
	for k, v := range r.Params {
		if strings.EqualFold(k, key) && (!found || k < best) {
			best, value, found = k, v, true
		}
	}
	return value, found
}

// StringParam returns a string parameter or "" when absent or not a string.
func (r *NodeRequest) StringParam(key string) string {
	v, ok := r.Param(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// FlattenParams merges a nested "kwargs" object into the root parameter map.
// Root keys win over kwargs keys.
func FlattenParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	if kw, ok := params["kwargs"].(map[string]any); ok {
		for k, v := range kw {
			out[k] = v
		}
	}
	for k, v := range params {
		if k == "kwargs" {
			continue
		}
		out[k] = v
	}
	return out
}
