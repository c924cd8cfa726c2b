package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/pkg/schema"
)

func newBuiltCatalog(t *testing.T) *Catalog {
	t.Helper()
	reg, err := reflection.NewBuiltinRegistry(nil)
	require.NoError(t, err)
	c, err := Build(reg, []string{"ForEachLoop", "DoOnce"})
	require.NoError(t, err)
	return c
}

func TestCatalog_Add(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("Flow Control", &Template{Key: "branch", Title: "Branch"}))

	err := c.Add("Flow Control", &Template{Key: "branch", Title: "Branch"})
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeConflict, schema.CodeOf(err))

	err = c.Add("x", nil)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
	err = c.Add("x", &Template{})
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))

	got, ok := c.Get("branch")
	require.True(t, ok)
	assert.Equal(t, "Branch", got.Title)
	assert.Equal(t, 1, c.Count())
}

func TestCatalog_EnumerateEmpty(t *testing.T) {
	n := 0
	for range New().Enumerate() {
		n++
	}
	assert.Zero(t, n)

	var nilCatalog *Catalog
	for range nilCatalog.Enumerate() {
		n++
	}
	assert.Zero(t, n)
	assert.Zero(t, nilCatalog.Count())
}

func TestCatalog_EnumerateOrdered(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("b", &Template{Key: "2", Title: "Zeta"}))
	require.NoError(t, c.Add("b", &Template{Key: "1", Title: "Alpha"}))
	require.NoError(t, c.Add("a", &Template{Key: "3", Title: "Mid"}))

	var titles []string
	for group, tmpl := range c.Enumerate() {
		titles = append(titles, group+"/"+tmpl.Title)
	}
	assert.Equal(t, []string{"a/Mid", "b/Alpha", "b/Zeta"}, titles)
}

func TestCatalog_EnumerateEarlyExit(t *testing.T) {
	c := newBuiltCatalog(t)
	n := 0
	for range c.Enumerate() {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestBuild_Templates(t *testing.T) {
	c := newBuiltCatalog(t)

	branch, ok := c.Get("branch")
	require.True(t, ok)
	assert.Equal(t, ClassIfThenElse, branch.NodeClass)

	add, ok := c.Get("call:KismetMathLibrary.Add_DoubleDouble")
	require.True(t, ok)
	d := c.Describe(add)
	assert.Equal(t, "Add (Float)", d.Title)
	assert.Equal(t, schema.KindCallFunction, d.NodeType)
	assert.Equal(t, "KismetMathLibrary", d.ClassName)
	assert.Equal(t, "Add_DoubleDouble", d.FunctionName)
	assert.True(t, d.IsMath)
	assert.True(t, d.IsPure)
	assert.Contains(t, d.Keywords, MathKeywords)

	_, ok = c.Get("break_struct:Vector")
	assert.True(t, ok)
	_, ok = c.Get("make_struct:Vector")
	assert.True(t, ok)
	_, ok = c.Get("cast:PlayerController")
	assert.True(t, ok)
	_, ok = c.Get("cast:KismetMathLibrary")
	assert.False(t, ok, "libraries are not cast targets")

	begin, ok := c.Get("event:Actor.ReceiveBeginPlay")
	require.True(t, ok)
	assert.Equal(t, "Event BeginPlay", begin.Title)
	assert.Equal(t, schema.KindEvent, begin.Kind)

	macro, ok := c.Get("macro:ForEachLoop")
	require.True(t, ok)
	assert.Equal(t, "For Each Loop", macro.Title)
	assert.Equal(t, ClassMacroInstance, macro.NodeClass)
}

func TestCatalog_Match(t *testing.T) {
	c := newBuiltCatalog(t)

	for _, symbol := range []string{"Get Actor Location", "getactorlocation", "K2_GetActorLocation"} {
		matches := c.Match(symbol)
		require.NotEmpty(t, matches, symbol)
		assert.Equal(t, "K2_GetActorLocation", matches[0].Function.Name, symbol)
	}

	assert.Empty(t, c.Match(""))
	assert.Empty(t, c.Match("NoSuchAction"))
}

func TestSortByOwner(t *testing.T) {
	ts := []*Template{
		{Key: "3", Owner: "Pawn", Title: "B"},
		{Key: "1", Owner: "Actor", Title: "Z"},
		{Key: "2", Owner: "Actor", Title: "A"},
	}
	SortByOwner(ts)
	assert.Equal(t, []string{"2", "1", "3"}, []string{ts[0].Key, ts[1].Key, ts[2].Key})
}

func TestDefaultCategory(t *testing.T) {
	assert.Equal(t, "Math", DefaultCategory(OwnerMath))
	assert.Equal(t, "Utilities", DefaultCategory(OwnerSystem))
	assert.Equal(t, "Game", DefaultCategory(OwnerStatics))
	assert.Equal(t, "Player Controller", DefaultCategory("PlayerController"))
}
