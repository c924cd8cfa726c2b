package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nodeforge/internal/validation"
	"github.com/rendis/nodeforge/pkg/schema"
)

const doorManifest = `
name: BP_Door
parent_class: Actor
variables:
  - { name: IsOpen, type: bool }
  - { name: MaxAngle, type: real, const: true, default: "90" }
components:
  - { name: DoorMesh, class: StaticMeshComponent }
functions:
  - OpenDoor
  - CloseDoor
`

func TestParseManifest(t *testing.T) {
	v, err := validation.NewManifestValidator()
	require.NoError(t, err)

	d, err := ParseManifest([]byte(doorManifest), v)
	require.NoError(t, err)

	assert.Equal(t, "BP_Door", d.Name)
	assert.Equal(t, "/Game/Blueprints/BP_Door", d.Path)
	assert.Equal(t, "BP_Door_C", d.GeneratedClass())
	assert.Equal(t, []string{"OpenDoor", "CloseDoor"}, d.FunctionGraphs())

	iv, ok := d.Variable("isopen")
	require.True(t, ok)
	assert.Equal(t, "bool", iv.Type)
	mv, ok := d.Variable("MaxAngle")
	require.True(t, ok)
	assert.True(t, mv.Const)

	c, ok := d.Component("doormesh")
	require.True(t, ok)
	assert.Equal(t, "StaticMeshComponent", c.Class)

	_, ok = d.Graph(DefaultGraph)
	assert.True(t, ok)
	assert.False(t, d.Modified())
}

func TestParseManifest_Invalid(t *testing.T) {
	v, err := validation.NewManifestValidator()
	require.NoError(t, err)

	_, err = ParseManifest([]byte("name: BP_X\nvariables:\n  - { name: Speed, type: float }\n"), v)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))

	_, err = ParseManifest([]byte("parent_class: Actor\n"), nil)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
}

func TestGraph_AddNode(t *testing.T) {
	d := New("BP_Test", "Actor")
	g := d.FindOrCreateGraph("")
	assert.Equal(t, DefaultGraph, g.Name)

	a := &Node{Kind: schema.KindBranch}
	b := &Node{Kind: schema.KindBranch}
	require.NoError(t, g.AddNode(a))
	require.NoError(t, g.AddNode(b))
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)

	err := g.AddNode(&Node{ID: a.ID})
	assert.Equal(t, schema.ErrCodeConflict, schema.CodeOf(err))
	assert.Equal(t, 2, d.NodeCount())

	got, ok := g.Node(b.ID)
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestFindOrCreateGraph(t *testing.T) {
	d := New("BP_Test", "Actor")
	g := d.FindOrCreateGraph("Setup")
	assert.Equal(t, GraphEvent, g.Kind)
	assert.Same(t, g, d.FindOrCreateGraph("setup"))
	assert.Len(t, d.Graphs, 2)
}

func TestEncodeDecode(t *testing.T) {
	d := New("BP_Test", "Pawn")
	d.Variables = []Variable{{Name: "Health", Type: "real"}}
	require.NoError(t, d.FindOrCreateGraph("").AddNode(&Node{
		Kind:     schema.KindBranch,
		Class:    "K2Node_IfThenElse",
		Position: schema.Position{X: 100, Y: 200},
		Pins:     []schema.PinDescriptor{{Name: "Condition", Type: "bool", Direction: schema.PinInput}},
	}))
	d.MarkModified()

	data, err := d.Encode()
	require.NoError(t, err)
	back, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "Pawn", back.ParentClass)
	assert.False(t, back.Modified())
	require.Equal(t, 1, back.NodeCount())
	n := back.Graphs[0].Nodes[0]
	assert.Equal(t, schema.Position{X: 100, Y: 200}, n.Position)
	assert.Equal(t, "Condition", n.Pins[0].Name)

	_, err = Decode([]byte("{"))
	assert.Equal(t, schema.ErrCodeStore, schema.CodeOf(err))
}
