package macros

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed macros.yaml
var tableYAML []byte

type entry struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// Table is the static macro vocabulary: canonical names, their aliases and
// the places containers are looked for.
type Table struct {
	names     []string
	canonical map[string]string
	wellKnown []string
	roots     []string
}

var defaultTable = mustLoadTable(tableYAML)

func mustLoadTable(data []byte) *Table {
	t, err := LoadTable(data)
	if err != nil {
		panic(fmt.Sprintf("macros: embedded table: %v", err))
	}
	return t
}

// LoadTable decodes a macro table.
func LoadTable(data []byte) (*Table, error) {
	var raw struct {
		Macros    []entry  `yaml:"macros"`
		WellKnown []string `yaml:"well_known"`
		Roots     []string `yaml:"roots"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	t := &Table{
		canonical: make(map[string]string),
		wellKnown: raw.WellKnown,
		roots:     raw.Roots,
	}
	for _, e := range raw.Macros {
		if e.Name == "" {
			return nil, fmt.Errorf("macro entry without name")
		}
		t.names = append(t.names, e.Name)
		for _, s := range append([]string{e.Name}, e.Aliases...) {
			key := normalize(s)
			if prev, dup := t.canonical[key]; dup && prev != e.Name {
				return nil, fmt.Errorf("alias %q maps to both %s and %s", s, prev, e.Name)
			}
			t.canonical[key] = e.Name
		}
	}
	return t, nil
}

// Default returns the embedded table.
func Default() *Table { return defaultTable }

// Names lists the canonical macro names in table order.
func (t *Table) Names() []string { return append([]string(nil), t.names...) }

// Roots lists the default asset-index search roots.
func (t *Table) Roots() []string { return append([]string(nil), t.roots...) }

// Canonical maps any known spelling of a macro to its canonical name.
func (t *Table) Canonical(symbol string) (string, bool) {
	name, ok := t.canonical[normalize(symbol)]
	return name, ok
}

// WellKnownPaths expands the direct-load container paths for name.
func (t *Table) WellKnownPaths(name string) []string {
	out := make([]string, 0, len(t.wellKnown))
	for _, p := range t.wellKnown {
		if strings.Contains(p, "%s") {
			p = strings.ReplaceAll(p, "%s", name)
		}
		out = append(out, p)
	}
	return out
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}
