package reflection

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"

	"github.com/rendis/nodeforge/pkg/schema"
)

// EngineModulePath is the module-qualified prefix used for unqualified engine types.
const EngineModulePath = "/Script/Engine."

// Registry is the indexed type registry: name -> {parent, fields, functions}.
// It is safe for concurrent use; types are immutable once registered.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Type
	byPath map[string]*Type
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*Type),
		byPath: make(map[string]*Type),
	}
}

// Register adds a type. Returns error on nil, unnamed or duplicate types.
func (r *Registry) Register(t *Type) error {
	if t == nil {
		return schema.NewError(schema.ErrCodeValidation, "type is nil")
	}
	if t.Name == "" {
		return schema.NewError(schema.ErrCodeValidation, "type name is empty")
	}
	if t.Kind == "" {
		t.Kind = KindClass
	}
	if t.Module == "" {
		t.Module = "Engine"
	}
	if t.Path == "" {
		t.Path = fmt.Sprintf("/Script/%s.%s", t.Module, t.Name)
	}
	for _, fn := range t.Functions {
		fn.Owner = t.Name
		if t.Kind == KindLibrary {
			fn.Static = true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(t.Name)
	if _, exists := r.byName[key]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "type %q already registered", t.Name)
	}
	r.byName[key] = t
	r.byPath[strings.ToLower(t.Path)] = t
	return nil
}

// Lookup finds a type by short name or by module path, case-insensitively.
func (r *Registry) Lookup(name string) (*Type, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := strings.ToLower(name)
	if t, ok := r.byName[key]; ok {
		return t, true
	}
	if t, ok := r.byPath[key]; ok {
		return t, true
	}
	return nil, false
}

// ResolveClass looks a class up by name, then with the conventional A and U
// prefixes, then with a leading prefix stripped, then as an engine module path.
func (r *Registry) ResolveClass(name string) (*Type, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	for _, candidate := range classCandidates(name) {
		if t, ok := r.Lookup(candidate); ok && !t.IsStruct() {
			return t, true
		}
	}
	return nil, false
}

// ResolveStruct looks a struct up by raw name, then with the F prefix, then with
// a leading F stripped.
func (r *Registry) ResolveStruct(name string) (*Type, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	candidates := []string{name, "F" + name}
	if stripped, ok := stripTypePrefix(name, "F"); ok {
		candidates = append(candidates, stripped)
	}
	for _, candidate := range candidates {
		if t, ok := r.Lookup(candidate); ok && t.IsStruct() {
			return t, true
		}
	}
	return nil, false
}

func classCandidates(name string) []string {
	out := []string{name}
	if !strings.HasPrefix(name, "/") && !hasTypePrefix(name, "U", "A", "F") {
		out = append(out, "A"+name, "U"+name)
	}
	if stripped, ok := stripTypePrefix(name, "A", "U"); ok {
		out = append(out, stripped)
	}
	if !strings.HasPrefix(name, "/") {
		out = append(out, EngineModulePath+name)
	}
	return out
}

func hasTypePrefix(name string, prefixes ...string) bool {
	_, ok := stripTypePrefix(name, prefixes...)
	return ok
}

// stripTypePrefix removes a one-letter type prefix when followed by an upper-case letter.
func stripTypePrefix(name string, prefixes ...string) (string, bool) {
	if len(name) < 2 || !isUpper(rune(name[1])) {
		return "", false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return name[1:], true
		}
	}
	return "", false
}

// Parent returns the registered parent of t, if any.
func (r *Registry) Parent(t *Type) (*Type, bool) {
	if t == nil || t.Parent == "" {
		return nil, false
	}
	return r.Lookup(t.Parent)
}

// Ancestors returns the leaf-first chain of type names starting at name.
// Unknown names yield nil.
func (r *Registry) Ancestors(name string) []string {
	t, ok := r.Lookup(name)
	if !ok {
		return nil
	}
	var chain []string
	seen := make(map[string]bool)
	for t != nil && !seen[t.Name] {
		seen[t.Name] = true
		chain = append(chain, t.Name)
		t, _ = r.Parent(t)
	}
	return chain
}

// IsChildOf reports whether child equals parent or derives from it.
func (r *Registry) IsChildOf(child, parent string) bool {
	for _, name := range r.Ancestors(child) {
		if strings.EqualFold(name, parent) {
			return true
		}
	}
	return false
}

// Related reports whether a and b lie on the same inheritance line.
func (r *Registry) Related(a, b string) bool {
	return r.IsChildOf(a, b) || r.IsChildOf(b, a)
}

// FindFunction looks up a function on owner, walking the ancestor chain:
// first an exact name match anywhere on the chain, then a case-insensitive one.
func (r *Registry) FindFunction(owner, name string) (*Function, bool) {
	chain := r.Ancestors(owner)
	for _, tn := range chain {
		t, _ := r.Lookup(tn)
		for _, fn := range t.Functions {
			if fn.Name == name {
				return fn, true
			}
		}
	}
	for _, tn := range chain {
		t, _ := r.Lookup(tn)
		for _, fn := range t.Functions {
			if strings.EqualFold(fn.Name, name) {
				return fn, true
			}
		}
	}
	return nil, false
}

// Types yields every registered type in ascending name order.
func (r *Registry) Types() iter.Seq[*Type] {
	r.mu.RLock()
	snapshot := make([]*Type, 0, len(r.byName))
	for _, t := range r.byName {
		snapshot = append(snapshot, t)
	}
	r.mu.RUnlock()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].Name < snapshot[j].Name })

	return func(yield func(*Type) bool) {
		for _, t := range snapshot {
			if !yield(t) {
				return
			}
		}
	}
}

// Count returns the number of registered types.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
