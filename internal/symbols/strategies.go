package symbols

import (
	"context"
	"log/slog"
	"sort"

	"github.com/rendis/nodeforge/internal/catalog"
	"github.com/rendis/nodeforge/internal/document"
	"github.com/rendis/nodeforge/internal/macros"
	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/pkg/schema"
)

// UtilityOwners are searched by the function strategy when the request names
// no owner, or names one that does not resolve.
var UtilityOwners = []string{catalog.OwnerMath, catalog.OwnerSystem, catalog.OwnerStatics}

type macroStrategy struct {
	finder *macros.Finder
}

func (s *macroStrategy) Name() string { return "macro" }

func (s *macroStrategy) Resolve(ctx context.Context, _ *document.Document, req *schema.NodeRequest) (*Binding, error) {
	if s.finder == nil {
		return nil, ErrDecline
	}
	name, ok := s.finder.Canonical(req.Symbol)
	if !ok {
		return nil, ErrDecline
	}
	return macroBinding(ctx, s.finder, name)
}

func macroBinding(ctx context.Context, finder *macros.Finder, name string) (*Binding, error) {
	res, err := finder.Find(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Binding{
		Kind:      schema.KindMacroInstance,
		NodeClass: catalog.ClassMacroInstance,
		Title:     reflection.Humanize(res.Name),
		Owner:     res.Container.Path,
		Member:    res.Graph.Name,
		Macro:     &res,
	}, nil
}

// structOps maps the break/make spellings to their node kind.
var structOps = map[string]schema.NodeKind{
	"breakstruct": schema.KindBreakStruct, "k2nodebreakstruct": schema.KindBreakStruct, "uk2nodebreakstruct": schema.KindBreakStruct,
	"makestruct": schema.KindMakeStruct, "k2nodemakestruct": schema.KindMakeStruct, "uk2nodemakestruct": schema.KindMakeStruct,
}

type structStrategy struct {
	types *reflection.Registry
}

func (s *structStrategy) Name() string { return "struct" }

func (s *structStrategy) Resolve(_ context.Context, _ *document.Document, req *schema.NodeRequest) (*Binding, error) {
	kind, ok := structOps[normalize(req.Symbol)]
	if !ok {
		return nil, ErrDecline
	}
	name := req.StructType
	if name == "" {
		name = req.StringParam("struct_type")
	}
	if name == "" {
		return nil, schema.NewErrorf(schema.ErrCodeInvalidParameter, "struct_type is required for %s", req.Symbol)
	}
	var t *reflection.Type
	if s.types != nil {
		t, _ = s.types.ResolveStruct(name)
	}
	if t == nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "Struct '%s' not found", name)
	}
	return structBinding(kind, t), nil
}

func structBinding(kind schema.NodeKind, t *reflection.Type) *Binding {
	verb := "Break"
	if kind == schema.KindMakeStruct {
		verb = "Make"
	}
	return &Binding{
		Kind:      kind,
		NodeClass: catalog.KindClass[kind],
		Title:     verb + " " + t.Name,
		Owner:     t.Name,
		Member:    t.Name,
		Struct:    t,
	}
}

type catalogStrategy struct {
	catalog *catalog.Catalog
	types   *reflection.Registry
	finder  *macros.Finder
	logger  *slog.Logger
}

func (s *catalogStrategy) Name() string { return "catalog" }

// preferHinted stably moves templates whose owner is related to the owner
// hint to the front. An empty or unresolvable hint leaves the order alone.
func preferHinted(types *reflection.Registry, ownerHint string, templates []*catalog.Template) {
	if ownerHint == "" || types == nil {
		return
	}
	hint, ok := types.ResolveClass(ownerHint)
	if !ok {
		return
	}
	sort.SliceStable(templates, func(i, j int) bool {
		return types.Related(templates[i].Owner, hint.Name) && !types.Related(templates[j].Owner, hint.Name)
	})
}

// Resolve matches the symbol against template titles and bound function
// names. Candidates related to a resolvable owner hint come first; candidates
// that cannot be bound are skipped.
func (s *catalogStrategy) Resolve(ctx context.Context, doc *document.Document, req *schema.NodeRequest) (*Binding, error) {
	matches := s.catalog.Match(req.Symbol)
	if len(matches) == 0 {
		return nil, ErrDecline
	}
	preferHinted(s.types, req.OwnerHint, matches)
	if len(matches) > 1 {
		s.logger.Warn("ambiguous catalog symbol resolved",
			slog.String("symbol", req.Symbol),
			slog.String("chosen", matches[0].Key),
			slog.Int("candidates", len(matches)),
		)
	}
	for _, t := range matches {
		b, err := s.bind(ctx, doc, req, t)
		if err != nil {
			s.logger.Debug("catalog candidate skipped", slog.String("key", t.Key), slog.String("error", err.Error()))
			continue
		}
		return b, nil
	}
	return nil, ErrDecline
}

func (s *catalogStrategy) bind(ctx context.Context, doc *document.Document, req *schema.NodeRequest, t *catalog.Template) (*Binding, error) {
	switch t.Kind {
	case schema.KindCallFunction:
		if t.Function == nil {
			break
		}
		return callBinding(t), nil
	case schema.KindEvent:
		return &Binding{
			Kind:      schema.KindEvent,
			NodeClass: catalog.ClassEvent,
			Title:     t.Title,
			Owner:     t.Owner,
			Member:    t.EventName,
			Function:  t.Function,
		}, nil
	case schema.KindCast:
		target := &CastTarget{Name: t.Owner, Source: "registry"}
		if s.types != nil {
			if typ, ok := s.types.Lookup(t.Owner); ok {
				target.Path = typ.Path
			}
		}
		return &Binding{
			Kind:      schema.KindCast,
			NodeClass: catalog.ClassDynamicCast,
			Title:     t.Title,
			Owner:     t.Owner,
			Cast:      target,
		}, nil
	case schema.KindBreakStruct, schema.KindMakeStruct:
		if s.types == nil {
			break
		}
		typ, ok := s.types.ResolveStruct(t.Struct)
		if !ok {
			break
		}
		return structBinding(t.Kind, typ), nil
	case schema.KindMacroInstance:
		if s.finder == nil {
			break
		}
		return macroBinding(ctx, s.finder, t.MacroGraph)
	case schema.KindCustomEvent:
		name := req.StringParam("event_name")
		if name == "" {
			name = DefaultCustomEvent
		}
		return &Binding{Kind: t.Kind, NodeClass: t.NodeClass, Title: name, Member: name, EventName: name}, nil
	default:
		b := &Binding{Kind: t.Kind, NodeClass: t.NodeClass, Title: t.Title}
		if t.Kind == schema.KindSelf && doc != nil {
			b.Owner = doc.GeneratedClass()
		}
		return b, nil
	}
	return nil, schema.NewErrorf(schema.ErrCodeNotFound, "template %q cannot be bound", t.Key)
}

type functionStrategy struct {
	types  *reflection.Registry
	logger *slog.Logger
}

func (s *functionStrategy) Name() string { return "function" }

// Resolve looks the symbol up as a function on the owner hint, or on the
// utility libraries when the hint is empty or unknown. Lookup is exact, then
// case-insensitive, along each owner's ancestor chain.
func (s *functionStrategy) Resolve(_ context.Context, _ *document.Document, req *schema.NodeRequest) (*Binding, error) {
	if s.types == nil {
		return nil, ErrDecline
	}

	if req.OwnerHint != "" {
		if t, ok := s.types.ResolveClass(req.OwnerHint); ok {
			if fn, ok := s.types.FindFunction(t.Name, req.Symbol); ok && fn.Callable() {
				return functionBinding(fn), nil
			}
			return nil, ErrDecline
		}
		s.logger.Debug("owner hint not resolved, trying utility libraries", slog.String("class_name", req.OwnerHint))
	}

	var found []*reflection.Function
	for _, owner := range UtilityOwners {
		if fn, ok := s.types.FindFunction(owner, req.Symbol); ok && fn.Callable() {
			found = append(found, fn)
		}
	}
	if len(found) == 0 {
		return nil, ErrDecline
	}
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Owner != found[j].Owner {
			return found[i].Owner < found[j].Owner
		}
		return found[i].Name < found[j].Name
	})
	if len(found) > 1 {
		s.logger.Warn("ambiguous function resolved",
			slog.String("symbol", req.Symbol),
			slog.String("chosen", found[0].Owner+"."+found[0].Name),
			slog.Int("candidates", len(found)),
		)
	}
	return functionBinding(found[0]), nil
}

func functionBinding(fn *reflection.Function) *Binding {
	return &Binding{
		Kind:      schema.KindCallFunction,
		NodeClass: catalog.ClassCallFunction,
		Title:     fn.Title(),
		Owner:     fn.Owner,
		Member:    fn.Name,
		Function:  fn,
	}
}
