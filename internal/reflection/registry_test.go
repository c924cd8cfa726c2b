package reflection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/nodeforge/internal/validation"
	"github.com/rendis/nodeforge/pkg/schema"
)

func newBuiltin(t *testing.T) *Registry {
	t.Helper()
	v, err := validation.NewManifestValidator()
	require.NoError(t, err)
	r, err := NewBuiltinRegistry(v)
	require.NoError(t, err)
	return r
}

func TestRegistry_Register_Duplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Type{Name: "Thing"}))

	err := r.Register(&Type{Name: "thing"})
	require.Error(t, err)
	var fe *schema.ForgeError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, schema.ErrCodeConflict, fe.Code)
}

func TestRegistry_Register_Invalid(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(r.Register(nil)))
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(r.Register(&Type{})))
}

func TestRegistry_Register_Defaults(t *testing.T) {
	r := NewRegistry()
	lib := &Type{Name: "MathLib", Kind: KindLibrary, Functions: []*Function{{Name: "Add"}}}
	require.NoError(t, r.Register(lib))

	assert.Equal(t, "/Script/Engine.MathLib", lib.Path)
	assert.Equal(t, "MathLib", lib.Functions[0].Owner)
	assert.True(t, lib.Functions[0].Static)
}

func TestRegistry_BuiltinLoads(t *testing.T) {
	r := newBuiltin(t)
	assert.Greater(t, r.Count(), 20)

	pc, ok := r.Lookup("/Script/Engine.PlayerController")
	require.True(t, ok)
	assert.Equal(t, "PlayerController", pc.Name)

	vec, ok := r.Lookup("Vector")
	require.True(t, ok)
	assert.True(t, vec.IsStruct())
	assert.Equal(t, "/Script/CoreUObject.Vector", vec.Path)
}

func TestRegistry_ResolveClass(t *testing.T) {
	r := newBuiltin(t)

	tests := []struct {
		input string
		want  string
	}{
		{"PlayerController", "PlayerController"},
		{"playercontroller", "PlayerController"},
		{"APlayerController", "PlayerController"},
		{"UUserWidget", "UserWidget"},
		{"/Script/Engine.Actor", "Actor"},
		{"/Script/UMG.UserWidget", "UserWidget"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := r.ResolveClass(tc.input)
			require.True(t, ok)
			assert.Equal(t, tc.want, got.Name)
		})
	}

	_, ok := r.ResolveClass("Vector")
	assert.False(t, ok, "structs are not classes")
	_, ok = r.ResolveClass("NoSuchClass")
	assert.False(t, ok)
}

func TestRegistry_ResolveStruct(t *testing.T) {
	r := newBuiltin(t)

	for _, name := range []string{"Vector", "FVector", "hitresult", "FHitResult"} {
		st, ok := r.ResolveStruct(name)
		require.True(t, ok, name)
		assert.True(t, st.IsStruct())
	}
	_, ok := r.ResolveStruct("Actor")
	assert.False(t, ok)
}

func TestRegistry_Ancestors(t *testing.T) {
	r := newBuiltin(t)

	assert.Equal(t, []string{"PlayerController", "Controller", "Actor", "Object"}, r.Ancestors("PlayerController"))
	assert.Nil(t, r.Ancestors("Nope"))
	assert.True(t, r.IsChildOf("Character", "Actor"))
	assert.False(t, r.IsChildOf("Actor", "Character"))
	assert.True(t, r.Related("Actor", "Character"))
	assert.False(t, r.Related("Pawn", "Controller"))
}

func TestRegistry_FindFunction(t *testing.T) {
	r := newBuiltin(t)

	fn, ok := r.FindFunction("Character", "GetController")
	require.True(t, ok)
	assert.Equal(t, "Pawn", fn.Owner)

	fn, ok = r.FindFunction("Character", "k2_getactorlocation")
	require.True(t, ok)
	assert.Equal(t, "K2_GetActorLocation", fn.Name)
	assert.Equal(t, "Actor", fn.Owner)

	_, ok = r.FindFunction("Actor", "Jump")
	assert.False(t, ok)
}

func TestRegistry_TypesSorted(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"Zeta", "Alpha", "Mid"} {
		require.NoError(t, r.Register(&Type{Name: n}))
	}
	var names []string
	for tp := range r.Types() {
		names = append(names, tp.Name)
	}
	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, names)
}

func TestRegistry_LoadManifest_Invalid(t *testing.T) {
	v, err := validation.NewManifestValidator()
	require.NoError(t, err)

	r := NewRegistry()
	_, err = r.LoadManifest([]byte("types:\n  - name: Foo\n    fields:\n      - { name: X, type: float }\n"), v)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err))
	assert.Equal(t, 0, r.Count())
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Show Mouse Cursor", Humanize("bShowMouseCursor"))
	assert.Equal(t, "Get Actor Location", Humanize("GetActorLocation"))
	assert.Equal(t, "Add Int Int", Humanize("Add_IntInt"))
	assert.Equal(t, "base", Humanize("base"))
	assert.Equal(t, "bool", StripBoolPrefix("bool"))
}

func TestFunction_Title(t *testing.T) {
	assert.Equal(t, "Get Actor Location", (&Function{Name: "K2_GetActorLocation"}).Title())
	assert.Equal(t, "Create Widget", (&Function{Name: "Create", DisplayName: "Create Widget"}).Title())
}
