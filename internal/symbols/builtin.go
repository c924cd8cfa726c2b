package symbols

import (
	"context"
	"strings"

	"github.com/rendis/nodeforge/internal/catalog"
	"github.com/rendis/nodeforge/internal/document"
	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/pkg/schema"
)

// DefaultCustomEvent names a custom event created without event_name.
const DefaultCustomEvent = "CustomEvent"

// defaultEventOwner declares the lifecycle events when the document's parent
// class does not.
const defaultEventOwner = "Actor"

// commonCastTargets are tried before any registry lookup.
var commonCastTargets = []string{"PlayerController", "Pawn", "Actor"}

type builtinStrategy struct {
	types      *reflection.Registry
	aliases    *Aliases
	blueprints BlueprintSource
}

func (s *builtinStrategy) Name() string { return "builtin" }

func (s *builtinStrategy) Resolve(_ context.Context, doc *document.Document, req *schema.NodeRequest) (*Binding, error) {
	entry, ok := s.aliases.Lookup(req.Symbol)
	if !ok {
		if strings.HasPrefix(req.Symbol, "Receive") {
			if b, err := s.event(doc, req.Symbol); err == nil {
				return b, nil
			}
		}
		return nil, ErrDecline
	}

	b := &Binding{Kind: entry.Kind, NodeClass: catalog.KindClass[entry.Kind], Title: entry.Title}
	switch entry.Kind {
	case schema.KindEvent:
		return s.event(doc, entry.Event)
	case schema.KindCustomEvent:
		b.EventName = req.StringParam("event_name")
		if b.EventName == "" {
			b.EventName = DefaultCustomEvent
		}
		b.Title = b.EventName
		b.Member = b.EventName
	case schema.KindCast:
		name := req.TargetType
		if name == "" {
			name = req.StringParam("target_type")
		}
		if name == "" {
			return nil, schema.NewError(schema.ErrCodeInvalidParameter, "target_type is required for a Cast node")
		}
		target, err := s.castTarget(name)
		if err != nil {
			return nil, err
		}
		b.Cast = target
		b.Owner = target.Name
		b.Title = "Cast To " + target.Name
	case schema.KindSelf:
		if doc != nil {
			b.Owner = doc.GeneratedClass()
		}
	}
	return b, nil
}

// event binds an implementable event, looked up on the document's parent
// class first and on Actor otherwise.
func (s *builtinStrategy) event(doc *document.Document, name string) (*Binding, error) {
	owners := []string{defaultEventOwner}
	if doc != nil && doc.ParentClass != "" {
		owners = append([]string{doc.ParentClass}, owners...)
	}
	if s.types != nil {
		for _, owner := range owners {
			t, ok := s.types.ResolveClass(owner)
			if !ok {
				continue
			}
			fn, ok := s.types.FindFunction(t.Name, name)
			if !ok || !fn.Event {
				continue
			}
			title := fn.DisplayName
			if title == "" {
				title = "Event " + strings.TrimPrefix(fn.Name, "Receive")
			}
			return &Binding{
				Kind:      schema.KindEvent,
				NodeClass: catalog.ClassEvent,
				Title:     title,
				Owner:     fn.Owner,
				Member:    fn.Name,
				Function:  fn,
			}, nil
		}
	}
	return nil, schema.NewErrorf(schema.ErrCodeNotFound, "event %q is not declared by %s", name, strings.Join(owners, " or "))
}

// castTarget resolves a cast target class: the common targets, then the
// registry (name, A/U prefixes, engine module path), then the known
// blueprints by asset name or by generated class with BP_ stripped.
func (s *builtinStrategy) castTarget(name string) (*CastTarget, error) {
	name = strings.TrimSpace(name)
	if s.types != nil {
		for _, common := range commonCastTargets {
			if !strings.EqualFold(common, name) {
				continue
			}
			if t, ok := s.types.Lookup(common); ok {
				return &CastTarget{Name: t.Name, Path: t.Path, Source: "common"}, nil
			}
		}
		if t, ok := s.types.ResolveClass(name); ok {
			return &CastTarget{Name: t.Name, Path: t.Path, Source: "registry"}, nil
		}
	}

	if s.blueprints != nil {
		for _, bp := range s.blueprints.Blueprints() {
			class := strings.TrimSuffix(bp.GeneratedClass, "_C")
			if strings.EqualFold(bp.Name, name) ||
				strings.EqualFold(bp.GeneratedClass, name) ||
				strings.EqualFold(strings.TrimPrefix(class, "BP_"), name) {
				return &CastTarget{Name: bp.GeneratedClass, Path: bp.Path, Source: "blueprint"}, nil
			}
		}
	}
	return nil, schema.NewErrorf(schema.ErrCodeNotFound, "Cast target type '%s' not found", name)
}
