package symbols

import (
	"github.com/rendis/nodeforge/internal/macros"
	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/pkg/schema"
)

// Binding is a resolved node description, ready for synthesis.
type Binding struct {
	Kind      schema.NodeKind
	NodeClass string
	Title     string
	// Strategy names the resolver strategy that produced the binding.
	Strategy string

	// Owner is the declaring type of a call, event or property, or the
	// generated class of the document for self members.
	Owner string
	// Member is the bound function, field, variable or subgraph name.
	Member string

	Function *reflection.Function
	Struct   *reflection.Type
	Macro    *macros.Result
	Cast     *CastTarget

	// ValueType and ValueSubType type the value pin of an accessor.
	ValueType    string
	ValueSubType string
	// SelfMember marks accessors bound to a document variable or component.
	SelfMember bool

	// EventName names a custom event.
	EventName string
}

// CastTarget is the resolved target class of a cast node.
type CastTarget struct {
	Name string
	Path string
	// Source is "common", "registry" or "blueprint".
	Source string
}
