package symbols

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rendis/nodeforge/internal/catalog"
	"github.com/rendis/nodeforge/internal/document"
	"github.com/rendis/nodeforge/internal/properties"
	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/pkg/schema"
)

// rawAccessors are node class spellings that take the member from the
// variable_name parameter.
var rawAccessors = map[string]bool{
	"variableget": true, "k2nodevariableget": true, "uk2nodevariableget": true,
	"variableset": false, "k2nodevariableset": false, "uk2nodevariableset": false,
}

type accessorStrategy struct {
	catalog *catalog.Catalog
	types   *reflection.Registry
	locator *properties.Locator
	logger  *slog.Logger
}

func (s *accessorStrategy) Name() string { return "accessor" }

// parseAccessor splits "Get X" / "Set X" and the raw accessor node classes
// into the member name and the accessor direction.
func parseAccessor(req *schema.NodeRequest) (name string, getter, ok bool, err error) {
	sym := req.Symbol
	if g, raw := rawAccessors[normalize(sym)]; raw {
		name = req.StringParam("variable_name")
		if name == "" {
			return "", false, true, schema.NewErrorf(schema.ErrCodeInvalidParameter, "variable_name is required for %s", sym)
		}
		return name, g, true, nil
	}
	if len(sym) > 4 && sym[3] == ' ' {
		switch strings.ToLower(sym[:3]) {
		case "get":
			return strings.TrimSpace(sym[4:]), true, true, nil
		case "set":
			return strings.TrimSpace(sym[4:]), false, true, nil
		}
	}
	return "", false, false, nil
}

// Resolve tries the document variables, the document components (getters
// only), the catalog under the Get X / GetX / K2_GetX spellings and finally
// the native property locator.
func (s *accessorStrategy) Resolve(_ context.Context, doc *document.Document, req *schema.NodeRequest) (*Binding, error) {
	name, getter, ok, err := parseAccessor(req)
	if !ok {
		return nil, ErrDecline
	}
	if err != nil {
		return nil, err
	}
	verb, kind := "Set", schema.KindVariableSet
	if getter {
		verb, kind = "Get", schema.KindVariableGet
	}

	if doc != nil {
		if v, ok := doc.Variable(name); ok {
			if !getter && v.Const {
				return nil, schema.NewErrorf(schema.ErrCodeNotFound,
					"Variable '%s' is const in Blueprint '%s' and has no setter", v.Name, doc.Name)
			}
			return &Binding{
				Kind:         kind,
				NodeClass:    catalog.KindClass[kind],
				Title:        verb + " " + v.Name,
				Owner:        doc.GeneratedClass(),
				Member:       v.Name,
				ValueType:    v.Type,
				ValueSubType: v.SubType,
				SelfMember:   true,
			}, nil
		}
		if c, ok := doc.Component(name); ok && getter {
			return &Binding{
				Kind:         kind,
				NodeClass:    catalog.KindClass[kind],
				Title:        verb + " " + c.Name,
				Owner:        doc.GeneratedClass(),
				Member:       c.Name,
				ValueType:    schema.PinObject,
				ValueSubType: c.Class,
				SelfMember:   true,
			}, nil
		}
	}

	if b := s.fromCatalog(verb, name, req.OwnerHint); b != nil {
		return b, nil
	}

	if s.locator != nil {
		if m, ok := s.locator.Find(name, getter); ok {
			return propertyBinding(m, kind, verb), nil
		}
	}

	docName := ""
	if doc != nil {
		docName = doc.Name
	}
	return nil, schema.NewErrorf(schema.ErrCodeNotFound,
		"Variable or property '%s' not found in Blueprint '%s'", name, docName)
}

// fromCatalog looks for a call template under the accessor spellings of name.
// Owners related to the hint are preferred.
func (s *accessorStrategy) fromCatalog(verb, name, ownerHint string) *Binding {
	compact := strings.ReplaceAll(name, " ", "")
	for _, spelling := range []string{verb + " " + name, verb + compact, "K2_" + verb + compact} {
		var calls []*catalog.Template
		for _, t := range s.catalog.Match(spelling) {
			if t.Kind == schema.KindCallFunction && t.Function != nil {
				calls = append(calls, t)
			}
		}
		if len(calls) == 0 {
			continue
		}
		preferHinted(s.types, ownerHint, calls)
		if len(calls) > 1 {
			s.logger.Warn("ambiguous accessor resolved",
				slog.String("symbol", spelling),
				slog.String("chosen", calls[0].Owner+"."+calls[0].Member()),
				slog.Int("candidates", len(calls)),
			)
		}
		return callBinding(calls[0])
	}
	return nil
}

func propertyBinding(m properties.Match, kind schema.NodeKind, verb string) *Binding {
	display := m.Field.DisplayName
	if display == "" {
		display = reflection.Humanize(m.Field.Name)
	}
	return &Binding{
		Kind:         kind,
		NodeClass:    catalog.KindClass[kind],
		Title:        verb + " " + display,
		Owner:        m.Owner,
		Member:       m.Field.Name,
		ValueType:    m.Field.Type,
		ValueSubType: m.Field.SubType,
	}
}

func callBinding(t *catalog.Template) *Binding {
	return &Binding{
		Kind:      schema.KindCallFunction,
		NodeClass: catalog.ClassCallFunction,
		Title:     t.Title,
		Owner:     t.Owner,
		Member:    t.Function.Name,
		Function:  t.Function,
	}
}
