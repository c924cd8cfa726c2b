package document

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/rendis/nodeforge/pkg/schema"
)

// DefaultGraph is the graph nodes land in when a request names none.
const DefaultGraph = "EventGraph"

// GraphKind classifies a graph inside a document.
type GraphKind string

const (
	GraphEvent    GraphKind = "event"
	GraphFunction GraphKind = "function"
	GraphMacro    GraphKind = "macro"
)

// Variable is a document-local member variable.
type Variable struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	SubType string `json:"sub_type,omitempty" yaml:"sub_type,omitempty"`
	Const   bool   `json:"const,omitempty" yaml:"const,omitempty"`
	Default string `json:"default,omitempty" yaml:"default,omitempty"`
}

// Component is a document-local component slot, readable as a variable.
type Component struct {
	Name  string `json:"name" yaml:"name"`
	Class string `json:"class" yaml:"class"`
}

// Node is an instantiated graph node.
type Node struct {
	ID       string                 `json:"id"`
	Kind     schema.NodeKind        `json:"kind"`
	Class    string                 `json:"class"`
	Title    string                 `json:"title"`
	Position schema.Position        `json:"position"`
	Owner    string                 `json:"owner,omitempty"`
	Member   string                 `json:"member,omitempty"`
	Pins     []schema.PinDescriptor `json:"pins"`
}

// Graph is a named container of nodes.
type Graph struct {
	Name  string    `json:"name"`
	Kind  GraphKind `json:"kind"`
	Nodes []*Node   `json:"nodes,omitempty"`
}

// AddNode appends n, assigning a fresh id when n has none. Ids are unique per graph.
func (g *Graph) AddNode(n *Node) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, exists := g.Node(n.ID); exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "node %q already exists in graph %q", n.ID, g.Name)
	}
	g.Nodes = append(g.Nodes, n)
	return nil
}

// Node finds a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Document is an editable visual-scripting asset.
type Document struct {
	Name        string      `json:"name"`
	Path        string      `json:"path,omitempty"`
	ParentClass string      `json:"parent_class,omitempty"`
	Variables   []Variable  `json:"variables,omitempty"`
	Components  []Component `json:"components,omitempty"`
	Graphs      []*Graph    `json:"graphs,omitempty"`

	modified bool
}

// New creates an empty document with its default event graph.
func New(name, parentClass string) *Document {
	return &Document{
		Name:        name,
		ParentClass: parentClass,
		Graphs:      []*Graph{{Name: DefaultGraph, Kind: GraphEvent}},
	}
}

// GeneratedClass is the name of the class the document compiles to.
func (d *Document) GeneratedClass() string { return d.Name + "_C" }

// Graph finds a graph by name, case-insensitively.
func (d *Document) Graph(name string) (*Graph, bool) {
	for _, g := range d.Graphs {
		if strings.EqualFold(g.Name, name) {
			return g, true
		}
	}
	return nil, false
}

// FindOrCreateGraph returns the named graph, creating an event graph when it
// does not exist. An empty name selects DefaultGraph.
func (d *Document) FindOrCreateGraph(name string) *Graph {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultGraph
	}
	if g, ok := d.Graph(name); ok {
		return g
	}
	g := &Graph{Name: name, Kind: GraphEvent}
	d.Graphs = append(d.Graphs, g)
	return g
}

// FunctionGraphs returns the names of the document's custom function graphs.
func (d *Document) FunctionGraphs() []string {
	var out []string
	for _, g := range d.Graphs {
		if g.Kind == GraphFunction {
			out = append(out, g.Name)
		}
	}
	return out
}

// Variable finds a document variable by name, case-insensitively.
func (d *Document) Variable(name string) (Variable, bool) {
	for _, v := range d.Variables {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return Variable{}, false
}

// Component finds a component by name, case-insensitively.
func (d *Document) Component(name string) (Component, bool) {
	for _, c := range d.Components {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Component{}, false
}

// NodeCount returns the number of nodes across all graphs.
func (d *Document) NodeCount() int {
	n := 0
	for _, g := range d.Graphs {
		n += len(g.Nodes)
	}
	return n
}

// MarkModified flags the document for persistence.
func (d *Document) MarkModified() { d.modified = true }

// Modified reports whether the document changed since it was loaded.
func (d *Document) Modified() bool { return d.modified }

// Encode serializes the document for storage.
func (d *Document) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// Decode restores a document written by Encode.
func Decode(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "corrupt document body").WithCause(err)
	}
	if len(d.Graphs) == 0 {
		d.Graphs = []*Graph{{Name: DefaultGraph, Kind: GraphEvent}}
	}
	return &d, nil
}
