package catalog

import (
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/pkg/schema"
)

// Template is one instantiable action: the prototype a node is spawned from.
type Template struct {
	Key        string
	NodeClass  string
	Kind       schema.NodeKind
	Title      string
	Category   string
	Tooltip    string
	Keywords   string
	Owner      string
	Function   *reflection.Function
	Struct     string
	MacroGraph string
	EventName  string
}

// Names returns the strings a symbol may use to refer to the template.
func (t *Template) Names() []string {
	names := []string{t.Title}
	if t.Function != nil {
		names = append(names, t.Function.Name)
	}
	return names
}

// Catalog is the thread-safe registry of action templates, grouped by menu category.
type Catalog struct {
	mu     sync.RWMutex
	groups map[string][]*Template
	keys   map[string]*Template
}

// New creates an empty Catalog.
func New() *Catalog {
	return &Catalog{
		groups: make(map[string][]*Template),
		keys:   make(map[string]*Template),
	}
}

// Add registers a template under group. Returns error on nil, unkeyed or duplicate templates.
func (c *Catalog) Add(group string, t *Template) error {
	if t == nil {
		return schema.NewError(schema.ErrCodeValidation, "template is nil")
	}
	if t.Key == "" {
		return schema.NewError(schema.ErrCodeValidation, "template key is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.keys[t.Key]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "template %q already registered", t.Key)
	}
	c.keys[t.Key] = t
	c.groups[group] = append(c.groups[group], t)
	return nil
}

// Get retrieves a template by key.
func (c *Catalog) Get(key string) (*Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.keys[key]
	return t, ok
}

// Count returns the number of registered templates.
func (c *Catalog) Count() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Enumerate lazily yields (group, template) pairs in ascending group order and
// title order within a group. A nil or empty catalog yields nothing.
func (c *Catalog) Enumerate() iter.Seq2[string, *Template] {
	if c == nil {
		return func(func(string, *Template) bool) {}
	}

	c.mu.RLock()
	groups := make([]string, 0, len(c.groups))
	snapshot := make(map[string][]*Template, len(c.groups))
	for g, ts := range c.groups {
		groups = append(groups, g)
		snapshot[g] = append([]*Template(nil), ts...)
	}
	c.mu.RUnlock()
	sort.Strings(groups)

	return func(yield func(string, *Template) bool) {
		for _, g := range groups {
			ts := snapshot[g]
			sort.SliceStable(ts, func(i, j int) bool {
				if ts[i].Title != ts[j].Title {
					return ts[i].Title < ts[j].Title
				}
				return ts[i].Key < ts[j].Key
			})
			for _, t := range ts {
				if !yield(g, t) {
					return
				}
			}
		}
	}
}

// Describe builds the discovery descriptor for t.
func (c *Catalog) Describe(t *Template) schema.ActionDescriptor {
	return Describe(t)
}

// Describe builds the discovery descriptor for a template outside any catalog.
func Describe(t *Template) schema.ActionDescriptor {
	d := schema.ActionDescriptor{
		Title:      t.Title,
		Category:   t.Category,
		Tooltip:    t.Tooltip,
		Keywords:   t.Keywords,
		NodeType:   t.Kind,
		NodeClass:  t.NodeClass,
		ClassName:  t.Owner,
		StructName: t.Struct,
		MacroGraph: t.MacroGraph,
	}
	if t.Function != nil {
		d.FunctionName = t.Function.Name
		d.IsPure = t.Function.Pure
	}
	d.IsMath = t.Owner == OwnerMath
	return d
}

// Match returns the templates whose title or bound function name equals symbol,
// ignoring case and spaces, sorted by owner then member.
func (c *Catalog) Match(symbol string) []*Template {
	want := squash(symbol)
	if want == "" {
		return nil
	}
	var out []*Template
	for _, t := range c.Enumerate() {
		for _, n := range t.Names() {
			if squash(n) == want {
				out = append(out, t)
				break
			}
		}
	}
	SortByOwner(out)
	return out
}

// SortByOwner orders templates by owner name, then member name, then key.
func SortByOwner(ts []*Template) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Owner != ts[j].Owner {
			return ts[i].Owner < ts[j].Owner
		}
		mi, mj := ts[i].Member(), ts[j].Member()
		if mi != mj {
			return mi < mj
		}
		return ts[i].Key < ts[j].Key
	})
}

// Member is the name ties are broken on: the bound function, else the title.
func (t *Template) Member() string {
	if t.Function != nil {
		return t.Function.Name
	}
	return t.Title
}

func squash(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
