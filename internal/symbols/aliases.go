package symbols

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rendis/nodeforge/pkg/schema"
)

//go:embed aliases.yaml
var aliasesYAML []byte

// Builtin is one entry of the built-in symbol table.
type Builtin struct {
	Name  string          `yaml:"name"`
	Kind  schema.NodeKind `yaml:"kind"`
	Title string          `yaml:"title"`
	// Event is the implementable event bound by lifecycle entries.
	Event   string   `yaml:"-"`
	Aliases []string `yaml:"aliases"`
}

// Aliases maps every accepted spelling of a built-in symbol to its entry.
type Aliases struct {
	entries   map[string]*Builtin
	canonical map[string]string
}

var builtinKinds = map[schema.NodeKind]bool{
	schema.KindBranch:      true,
	schema.KindSequence:    true,
	schema.KindCast:        true,
	schema.KindCustomEvent: true,
	schema.KindSelf:        true,
	schema.KindMapForEach:  true,
	schema.KindSetForEach:  true,
}

var defaultAliases = func() *Aliases {
	a, err := LoadAliases(aliasesYAML)
	if err != nil {
		panic(fmt.Sprintf("symbols: embedded alias table: %v", err))
	}
	return a
}()

// DefaultAliases returns the embedded alias table.
func DefaultAliases() *Aliases { return defaultAliases }

// LoadAliases decodes an alias table. Every spelling must map to one entry.
func LoadAliases(data []byte) (*Aliases, error) {
	var raw struct {
		ControlFlow []*Builtin `yaml:"control_flow"`
		Events      []*Builtin `yaml:"events"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid alias table").WithCause(err)
	}

	a := &Aliases{entries: make(map[string]*Builtin), canonical: make(map[string]string)}
	for _, b := range raw.ControlFlow {
		if !builtinKinds[b.Kind] {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "alias %q has unsupported kind %q", b.Name, b.Kind)
		}
		if err := a.add(b); err != nil {
			return nil, err
		}
	}
	for _, b := range raw.Events {
		b.Kind = schema.KindEvent
		b.Event = b.Name
		if err := a.add(b); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *Aliases) add(b *Builtin) error {
	if b.Name == "" {
		return schema.NewError(schema.ErrCodeValidation, "alias entry without name")
	}
	if b.Title == "" {
		b.Title = b.Name
	}
	for _, s := range append([]string{b.Name}, b.Aliases...) {
		key := normalize(s)
		if prev, dup := a.canonical[key]; dup && prev != b.Name {
			return schema.NewErrorf(schema.ErrCodeConflict, "alias %q maps to both %s and %s", s, prev, b.Name)
		}
		a.canonical[key] = b.Name
		a.entries[key] = b
	}
	return nil
}

// Lookup finds the built-in entry for any spelling of symbol.
func (a *Aliases) Lookup(symbol string) (*Builtin, bool) {
	b, ok := a.entries[normalize(symbol)]
	return b, ok
}

// Canonical maps a known spelling to its canonical name.
func (a *Aliases) Canonical(symbol string) (string, bool) {
	name, ok := a.canonical[normalize(symbol)]
	return name, ok
}

// Events lists the canonical lifecycle event names in ascending order.
func (a *Aliases) Events() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range a.entries {
		if b.Kind == schema.KindEvent && !seen[b.Name] {
			seen[b.Name] = true
			out = append(out, b.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Spellings lists every accepted spelling of the canonical name.
func (a *Aliases) Spellings(name string) []string {
	b, ok := a.Lookup(name)
	if !ok {
		return nil
	}
	return append([]string{b.Name}, b.Aliases...)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
