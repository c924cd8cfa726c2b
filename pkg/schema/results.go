package schema

// DiscoveryResult is returned by pin-, class- and keyword-scoped discovery.
type DiscoveryResult struct {
	Success        bool               `json:"success"`
	PinType        string             `json:"pin_type,omitempty"`
	PinSubcategory string             `json:"pin_subcategory,omitempty"`
	ClassName      string             `json:"class_name,omitempty"`
	SearchFilter   string             `json:"search_filter,omitempty"`
	SearchQuery    string             `json:"search_query,omitempty"`
	CategoryFilter string             `json:"category_filter,omitempty"`
	Actions        []ActionDescriptor `json:"actions"`
	ActionCount    int                `json:"action_count"`
	Message        string             `json:"message,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// HierarchyResult extends DiscoveryResult with the leaf-first ancestor chain
// and the number of actions contributed by each class in it.
type HierarchyResult struct {
	DiscoveryResult
	ClassHierarchy []string       `json:"class_hierarchy"`
	CategoryCounts map[string]int `json:"category_counts"`
}

// PinInfo is the static metadata known for one pin of a well-known node.
type PinInfo struct {
	PinType      string `json:"pin_type" yaml:"pin_type"`
	ExpectedType string `json:"expected_type" yaml:"expected_type"`
	Description  string `json:"description" yaml:"description"`
	IsRequired   bool   `json:"is_required" yaml:"is_required"`
	IsInput      bool   `json:"is_input" yaml:"is_input"`
}

// PinInfoResult answers a pin metadata lookup.
type PinInfoResult struct {
	Success        bool     `json:"success"`
	NodeName       string   `json:"node_name"`
	PinName        string   `json:"pin_name"`
	PinInfo        *PinInfo `json:"pin_info"`
	AvailablePins  []string `json:"available_pins,omitempty"`
	AvailableNodes []string `json:"available_nodes,omitempty"`
	Message        string   `json:"message,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// NodeResult reports the outcome of a node creation request.
type NodeResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message,omitempty"`
	Error         string          `json:"error,omitempty"`
	ErrorCode     string          `json:"error_code,omitempty"`
	BlueprintName string          `json:"blueprint_name"`
	FunctionName  string          `json:"function_name"`
	NodeType      NodeKind        `json:"node_type,omitempty"`
	NodeClass     string          `json:"node_class,omitempty"`
	ClassName     string          `json:"class_name,omitempty"`
	NodeID        string          `json:"node_id,omitempty"`
	NodeTitle     string          `json:"node_title,omitempty"`
	Position      *Position       `json:"position,omitempty"`
	Pins          []PinDescriptor `json:"pins,omitempty"`
}
