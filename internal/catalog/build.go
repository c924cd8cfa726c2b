package catalog

import (
	"fmt"
	"strings"

	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/pkg/schema"
)

// Well-known utility owners.
const (
	OwnerMath    = "KismetMathLibrary"
	OwnerSystem  = "KismetSystemLibrary"
	OwnerStatics = "GameplayStatics"
)

// Node classes of the graph editor.
const (
	ClassCallFunction  = "K2Node_CallFunction"
	ClassEvent         = "K2Node_Event"
	ClassCustomEvent   = "K2Node_CustomEvent"
	ClassIfThenElse    = "K2Node_IfThenElse"
	ClassSequence      = "K2Node_ExecutionSequence"
	ClassDynamicCast   = "K2Node_DynamicCast"
	ClassVariableGet   = "K2Node_VariableGet"
	ClassVariableSet   = "K2Node_VariableSet"
	ClassBreakStruct   = "K2Node_BreakStruct"
	ClassMakeStruct    = "K2Node_MakeStruct"
	ClassMacroInstance = "K2Node_MacroInstance"
	ClassSelf          = "K2Node_Self"
	ClassMapForEach    = "K2Node_MapForEach"
	ClassSetForEach    = "K2Node_SetForEach"
	ClassInputAction   = "K2Node_InputAction"
	ClassConstruct     = "K2Node_GenericCreateObject"
)

// MathKeywords are appended to every math-library action.
const MathKeywords = "math mathematics calculation"

// KindClass maps a node kind to its node class.
var KindClass = map[schema.NodeKind]string{
	schema.KindCallFunction:    ClassCallFunction,
	schema.KindEvent:           ClassEvent,
	schema.KindCustomEvent:     ClassCustomEvent,
	schema.KindBranch:          ClassIfThenElse,
	schema.KindSequence:        ClassSequence,
	schema.KindCast:            ClassDynamicCast,
	schema.KindVariableGet:     ClassVariableGet,
	schema.KindVariableSet:     ClassVariableSet,
	schema.KindBreakStruct:     ClassBreakStruct,
	schema.KindMakeStruct:      ClassMakeStruct,
	schema.KindMacroInstance:   ClassMacroInstance,
	schema.KindSelf:            ClassSelf,
	schema.KindMapForEach:      ClassMapForEach,
	schema.KindSetForEach:      ClassSetForEach,
	schema.KindInputAction:     ClassInputAction,
	schema.KindConstructObject: ClassConstruct,
}

// DefaultCategory is the menu category for functions that declare none.
func DefaultCategory(owner string) string {
	switch owner {
	case OwnerMath:
		return "Math"
	case OwnerSystem:
		return "Utilities"
	case OwnerStatics:
		return "Game"
	}
	return reflection.Humanize(owner)
}

var structural = []*Template{
	{Key: "branch", Kind: schema.KindBranch, Title: "Branch", Category: "Flow Control",
		Tooltip: "Branch Statement: if Condition is true, execution goes to True, otherwise it goes to False",
		Keywords: "if bool branch"},
	{Key: "sequence", Kind: schema.KindSequence, Title: "Sequence", Category: "Flow Control",
		Tooltip: "Executes a series of pins in order", Keywords: "sequence then"},
	{Key: "custom_event", Kind: schema.KindCustomEvent, Title: "Add Custom Event...", Category: "Add Event",
		Tooltip: "An event that can be called from anywhere in the graph", Keywords: "event custom"},
	{Key: "self", Kind: schema.KindSelf, Title: "Get a reference to self", Category: "Variables",
		Keywords: "self this"},
	{Key: "map_for_each", Kind: schema.KindMapForEach, Title: "For Each Loop (Map)", Category: "Utilities|Map",
		Tooltip: "Loop over each element of a map", Keywords: "foreach loop each map"},
	{Key: "set_for_each", Kind: schema.KindSetForEach, Title: "For Each Loop (Set)", Category: "Utilities|Set",
		Tooltip: "Loop over each element of a set", Keywords: "foreach loop each set"},
	{Key: "input_action", Kind: schema.KindInputAction, Title: "InputAction", Category: "Input|Action Events",
		Keywords: "input action key"},
	{Key: "construct_object", Kind: schema.KindConstructObject, Title: "Construct Object from Class", Category: "Game",
		Tooltip: "Creates a new object of the given class", Keywords: "construct create new object"},
}

// Build populates a catalog from the type registry plus the standard macro names.
func Build(types *reflection.Registry, macros []string) (*Catalog, error) {
	c := New()
	for _, proto := range structural {
		t := *proto
		t.NodeClass = KindClass[t.Kind]
		if err := c.Add(t.Category, &t); err != nil {
			return nil, err
		}
	}

	for _, name := range macros {
		t := &Template{
			Key:        "macro:" + name,
			Kind:       schema.KindMacroInstance,
			NodeClass:  ClassMacroInstance,
			Title:      reflection.Humanize(name),
			Category:   "Utilities|Flow Control",
			Keywords:   "macro " + strings.ToLower(name),
			MacroGraph: name,
		}
		if err := c.Add(t.Category, t); err != nil {
			return nil, err
		}
	}

	for typ := range types.Types() {
		if err := addType(c, typ); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func addType(c *Catalog, typ *reflection.Type) error {
	if typ.IsStruct() {
		for _, op := range []struct {
			kind   schema.NodeKind
			prefix string
		}{{schema.KindBreakStruct, "Break"}, {schema.KindMakeStruct, "Make"}} {
			t := &Template{
				Key:       fmt.Sprintf("%s:%s", op.kind, typ.Name),
				Kind:      op.kind,
				NodeClass: KindClass[op.kind],
				Title:     op.prefix + " " + typ.Name,
				Category:  "Utilities|Struct",
				Tooltip:   typ.Tooltip,
				Keywords:  strings.ToLower(op.prefix) + " struct " + strings.ToLower(typ.Name),
				Struct:    typ.Name,
			}
			if err := c.Add(t.Category, t); err != nil {
				return err
			}
		}
		return nil
	}

	if typ.Kind == reflection.KindClass {
		t := &Template{
			Key:       "cast:" + typ.Name,
			Kind:      schema.KindCast,
			NodeClass: ClassDynamicCast,
			Title:     "Cast To " + typ.Name,
			Category:  "Utilities|Casting",
			Keywords:  "cast convert " + strings.ToLower(typ.Name),
			Owner:     typ.Name,
		}
		if err := c.Add(t.Category, t); err != nil {
			return err
		}
	}

	for _, fn := range typ.Functions {
		switch {
		case fn.Event && !fn.Hidden:
			t := &Template{
				Key:       "event:" + typ.Name + "." + fn.Name,
				Kind:      schema.KindEvent,
				NodeClass: ClassEvent,
				Title:     "Event " + strings.TrimPrefix(fn.Name, "Receive"),
				Category:  "Add Event",
				Tooltip:   fn.Tooltip,
				Keywords:  fn.Keywords,
				Owner:     typ.Name,
				Function:  fn,
				EventName: fn.Name,
			}
			if err := c.Add(t.Category, t); err != nil {
				return err
			}
		case fn.Callable():
			category := fn.Category
			if category == "" {
				category = DefaultCategory(typ.Name)
			}
			keywords := fn.Keywords
			if typ.Name == OwnerMath {
				keywords = strings.TrimSpace(keywords + " " + MathKeywords)
			}
			t := &Template{
				Key:       "call:" + typ.Name + "." + fn.Name,
				Kind:      schema.KindCallFunction,
				NodeClass: ClassCallFunction,
				Title:     fn.Title(),
				Category:  category,
				Tooltip:   fn.Tooltip,
				Keywords:  keywords,
				Owner:     typ.Name,
				Function:  fn,
			}
			if err := c.Add(t.Category, t); err != nil {
				return err
			}
		}
	}
	return nil
}
