package search

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/rendis/nodeforge/internal/catalog"
	"github.com/rendis/nodeforge/internal/expressions"
	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/pkg/schema"
)

// DefaultMaxResults caps a discovery call that does not name a limit.
const DefaultMaxResults = 50

// Mode selects which templates a discovery call considers relevant.
type Mode int

const (
	// ModePin admits actions that can consume or produce a pin of a given type.
	ModePin Mode = iota
	// ModeClass admits calls on one class, its ancestors and descendants.
	ModeClass
	// ModeHierarchy admits calls related to any class on the ancestor chain.
	ModeHierarchy
	// ModeKeyword admits every template; only the text filters apply.
	ModeKeyword
)

// TypeIndex is the type lookup the filter needs. *reflection.Registry satisfies it.
type TypeIndex interface {
	Lookup(name string) (*reflection.Type, bool)
	ResolveClass(name string) (*reflection.Type, bool)
	Ancestors(name string) []string
	Related(a, b string) bool
}

// Criteria describes one relevance filtering pass.
type Criteria struct {
	Mode           Mode
	PinType        string
	PinSubcategory string
	OwnerType      string
	SearchTerm     string
	Category       string
	MaxResults     int
	Where          *expressions.Predicate

	// Local descriptors, such as a document's own variables, are offered
	// before any catalog entry.
	Local []schema.ActionDescriptor
}

func (c Criteria) limit() int {
	if c.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return c.MaxResults
}

// Filter walks seq and returns the descriptors relevant to c, in catalog
// order, stopping as soon as MaxResults descriptors were collected.
// Native property getters and setters of the scoped type are synthesized
// alongside the catalog entries.
func Filter(ctx context.Context, types TypeIndex, seq iter.Seq2[string, *catalog.Template], c Criteria) ([]schema.ActionDescriptor, error) {
	sc := newScope(types, c)
	f := &collector{ctx: ctx, criteria: c, limit: c.limit(), out: []schema.ActionDescriptor{}}
	for _, d := range c.Local {
		if !f.emit(d) {
			return f.out, f.err
		}
	}

	propertiesFirst := c.Mode == ModeClass || c.Mode == ModeHierarchy
	if propertiesFirst && !f.properties(types, sc) {
		return f.out, f.err
	}

	seen := make(map[string]bool)
	for _, t := range seq {
		if !sc.admits(t) {
			continue
		}
		if c.Mode == ModeHierarchy {
			if seen[t.Member()] {
				continue
			}
			seen[t.Member()] = true
		}
		if !f.emit(catalog.Describe(t)) {
			return f.out, f.err
		}
	}

	if !propertiesFirst {
		f.properties(types, sc)
	}
	return f.out, f.err
}

type collector struct {
	ctx      context.Context
	criteria Criteria
	limit    int
	out      []schema.ActionDescriptor
	err      error
}

// emit applies the text, category and predicate filters and appends d.
// It reports whether collection should continue.
func (f *collector) emit(d schema.ActionDescriptor) bool {
	if f.err != nil || len(f.out) >= f.limit {
		return false
	}
	if !MatchesText(d, f.criteria.SearchTerm) || !matchesCategory(d, f.criteria.Category) {
		return true
	}
	if f.criteria.Where != nil {
		ok, err := f.criteria.Where.Matches(f.ctx, d)
		if err != nil {
			f.err = err
			return false
		}
		if !ok {
			return true
		}
	}
	f.out = append(f.out, d)
	return len(f.out) < f.limit
}

// properties emits getter and setter descriptors for the visible fields of the
// scoped type and its ancestors. A field name seen on a nearer class shadows
// the same name further up the chain.
func (f *collector) properties(types TypeIndex, sc *scope) bool {
	if sc.target == nil {
		return true
	}
	hierarchy := f.criteria.Mode == ModeHierarchy
	seen := make(map[string]bool)
	for _, name := range sc.lineage {
		t, ok := types.Lookup(name)
		if !ok {
			continue
		}
		for _, field := range t.VisibleFields() {
			key := strings.ToLower(field.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			if !f.emit(PropertyDescriptor(t.Name, field, false, hierarchy)) {
				return false
			}
			if field.Writable() && !f.emit(PropertyDescriptor(t.Name, field, true, hierarchy)) {
				return false
			}
		}
	}
	return true
}

// PropertyDescriptor describes the getter (or setter) of a native field.
func PropertyDescriptor(owner string, f reflection.Field, setter, hierarchy bool) schema.ActionDescriptor {
	display := f.DisplayName
	if display == "" {
		display = reflection.Humanize(f.Name)
	}
	verb, kind, class := "Get", schema.KindVariableGet, catalog.ClassVariableGet
	if setter {
		verb, kind, class = "Set", schema.KindVariableSet, catalog.ClassVariableSet
	}
	category := "Native Property"
	if hierarchy {
		category = fmt.Sprintf("Native Property (%s)", owner)
	}
	title := verb + " " + display
	return schema.ActionDescriptor{
		Title:            title,
		Category:         category,
		Tooltip:          fmt.Sprintf("Access the %s property on %s", f.Name, owner),
		Keywords:         fmt.Sprintf("property variable %s %s native", f.Name, owner),
		NodeType:         kind,
		NodeClass:        class,
		ClassName:        owner,
		FunctionName:     title,
		PropertyName:     f.Name,
		PropertyType:     f.Type,
		IsPure:           !setter,
		IsNativeProperty: true,
	}
}

// MatchesText reports whether term is a case-insensitive substring of the
// title, category, tooltip or keywords of d. An empty term matches everything.
func MatchesText(d schema.ActionDescriptor, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, s := range []string{d.Title, d.Category, d.Tooltip, d.Keywords} {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

func matchesCategory(d schema.ActionDescriptor, category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	return category == "" || strings.Contains(strings.ToLower(d.Category), category)
}

// scope holds the per-call relevance state resolved once up front.
type scope struct {
	types   TypeIndex
	mode    Mode
	pinType string
	numeric map[string]bool
	target  *reflection.Type
	lineage []string
}

func newScope(types TypeIndex, c Criteria) *scope {
	sc := &scope{types: types, mode: c.Mode, pinType: strings.ToLower(strings.TrimSpace(c.PinType))}
	switch c.Mode {
	case ModePin:
		sc.numeric, _ = reflection.NumericFamily(sc.pinType)
		if c.PinSubcategory != "" {
			sc.target, _ = types.ResolveClass(c.PinSubcategory)
		}
	case ModeClass, ModeHierarchy:
		sc.target, _ = types.ResolveClass(c.OwnerType)
	}
	if sc.target != nil {
		sc.lineage = types.Ancestors(sc.target.Name)
	}
	return sc
}

func (sc *scope) admits(t *catalog.Template) bool {
	switch sc.mode {
	case ModeKeyword:
		return true
	case ModeClass:
		return t.Kind == schema.KindCallFunction && sc.target != nil && sc.types.Related(t.Owner, sc.target.Name)
	case ModeHierarchy:
		if t.Kind != schema.KindCallFunction {
			return false
		}
		for _, name := range sc.lineage {
			if sc.types.Related(t.Owner, name) {
				return true
			}
		}
		return false
	}

	if t.Kind.Structural() {
		return true
	}
	wildcard := sc.pinType == "" || sc.pinType == schema.PinWildcard
	if t.Kind != schema.KindCallFunction || t.Function == nil {
		return wildcard
	}

	switch {
	case sc.numeric != nil:
		return (t.Owner == catalog.OwnerMath || t.Owner == catalog.OwnerSystem) && t.Function.HasParamIn(sc.numeric)
	case sc.pinType == schema.PinObject || sc.pinType == schema.PinClass:
		return sc.target != nil && sc.types.Related(t.Owner, sc.target.Name)
	case wildcard:
		return t.Owner == catalog.OwnerMath || t.Owner == catalog.OwnerSystem || t.Owner == catalog.OwnerStatics
	}
	return t.Function.HasParamIn(map[string]bool{sc.pinType: true})
}
