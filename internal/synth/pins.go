package synth

import (
	"strings"

	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/internal/symbols"
	"github.com/rendis/nodeforge/pkg/schema"
)

// Well-known pin names.
const (
	PinExecute     = "execute"
	PinThen        = "then"
	PinElse        = "else"
	PinCondition   = "Condition"
	PinSelf        = "self"
	PinReturnValue = "ReturnValue"
	PinCastFailed  = "CastFailed"
	PinObjectIn    = "Object"
	PinDelegate    = "OutputDelegate"
	PinOutputGet   = "Output_Get"
	PinCompleted   = "Completed"
	PinLoopBody    = "Loop Body"
)

func execIn(name string) schema.PinDescriptor {
	return schema.PinDescriptor{Name: name, Type: schema.PinExec, Direction: schema.PinInput, IsExecution: true}
}

func execOut(name string) schema.PinDescriptor {
	return schema.PinDescriptor{Name: name, Type: schema.PinExec, Direction: schema.PinOutput, IsExecution: true}
}

func dataPin(name, typ, subType string, dir schema.PinDirection, def string) schema.PinDescriptor {
	return schema.PinDescriptor{Name: name, Type: typ, SubType: subType, Direction: dir, DefaultValue: def}
}

// Allocate returns the pins a node of the bound kind carries, in display
// order.
func Allocate(b *symbols.Binding) ([]schema.PinDescriptor, error) {
	switch b.Kind {
	case schema.KindBranch:
		return []schema.PinDescriptor{
			execIn(PinExecute),
			dataPin(PinCondition, schema.PinBool, "", schema.PinInput, "true"),
			execOut(PinThen),
			execOut(PinElse),
		}, nil

	case schema.KindSequence:
		return []schema.PinDescriptor{execIn(PinExecute), execOut("then_0"), execOut("then_1")}, nil

	case schema.KindCast:
		if b.Cast == nil {
			return nil, schema.NewError(schema.ErrCodeValidation, "cast node without a target type")
		}
		return []schema.PinDescriptor{
			execIn(PinExecute),
			dataPin(PinObjectIn, schema.PinObject, "Object", schema.PinInput, ""),
			execOut(PinThen),
			execOut(PinCastFailed),
			dataPin("As "+strings.TrimSuffix(b.Cast.Name, "_C"), schema.PinObject, b.Cast.Name, schema.PinOutput, ""),
		}, nil

	case schema.KindEvent:
		pins := []schema.PinDescriptor{
			dataPin(PinDelegate, schema.PinDelegate, "", schema.PinOutput, ""),
			execOut(PinThen),
		}
		if b.Function != nil {
			for _, p := range b.Function.Params {
				pins = append(pins, dataPin(p.Name, p.Type, p.SubType, schema.PinOutput, ""))
			}
		}
		return pins, nil

	case schema.KindCustomEvent:
		return []schema.PinDescriptor{
			dataPin(PinDelegate, schema.PinDelegate, "", schema.PinOutput, ""),
			execOut(PinThen),
		}, nil

	case schema.KindCallFunction:
		if b.Function == nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "call node %q has no function", b.Title)
		}
		return functionPins(b.Function), nil

	case schema.KindVariableGet:
		var pins []schema.PinDescriptor
		if !b.SelfMember {
			pins = append(pins, dataPin(PinSelf, schema.PinObject, b.Owner, schema.PinInput, ""))
		}
		return append(pins, dataPin(b.Member, b.ValueType, b.ValueSubType, schema.PinOutput, "")), nil

	case schema.KindVariableSet:
		pins := []schema.PinDescriptor{execIn(PinExecute), execOut(PinThen)}
		if !b.SelfMember {
			pins = append(pins, dataPin(PinSelf, schema.PinObject, b.Owner, schema.PinInput, ""))
		}
		return append(pins,
			dataPin(b.Member, b.ValueType, b.ValueSubType, schema.PinInput, ""),
			dataPin(PinOutputGet, b.ValueType, b.ValueSubType, schema.PinOutput, ""),
		), nil

	case schema.KindBreakStruct, schema.KindMakeStruct:
		if b.Struct == nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "%s node without a struct type", b.Kind)
		}
		return structPins(b.Kind, b.Struct), nil

	case schema.KindMacroInstance:
		if b.Macro == nil || b.Macro.Graph == nil {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "macro node %q has no graph", b.Title)
		}
		pins := make([]schema.PinDescriptor, 0, len(b.Macro.Graph.Pins))
		for _, p := range b.Macro.Graph.Pins {
			dir := schema.PinInput
			if strings.EqualFold(string(p.Direction), string(schema.PinOutput)) {
				dir = schema.PinOutput
			}
			pins = append(pins, schema.PinDescriptor{
				Name:         p.Name,
				Type:         p.Type,
				SubType:      p.SubType,
				Direction:    dir,
				IsExecution:  p.Type == schema.PinExec,
				DefaultValue: p.Default,
			})
		}
		return pins, nil

	case schema.KindSelf:
		return []schema.PinDescriptor{dataPin(PinSelf, schema.PinObject, b.Owner, schema.PinOutput, "")}, nil

	case schema.KindMapForEach:
		return []schema.PinDescriptor{
			execIn(PinExecute),
			dataPin("Map", schema.PinWildcard, "", schema.PinInput, ""),
			execOut(PinLoopBody),
			dataPin("Key", schema.PinWildcard, "", schema.PinOutput, ""),
			dataPin("Value", schema.PinWildcard, "", schema.PinOutput, ""),
			execOut(PinCompleted),
		}, nil

	case schema.KindSetForEach:
		return []schema.PinDescriptor{
			execIn(PinExecute),
			dataPin("Set", schema.PinWildcard, "", schema.PinInput, ""),
			execOut(PinLoopBody),
			dataPin("Value", schema.PinWildcard, "", schema.PinOutput, ""),
			execOut(PinCompleted),
		}, nil

	case schema.KindInputAction:
		return []schema.PinDescriptor{
			execOut("Pressed"),
			execOut("Released"),
			dataPin("Key", schema.PinStruct, "Key", schema.PinOutput, ""),
		}, nil

	case schema.KindConstructObject:
		return []schema.PinDescriptor{
			execIn(PinExecute),
			dataPin("Class", schema.PinClass, "Object", schema.PinInput, ""),
			dataPin("Outer", schema.PinObject, "Object", schema.PinInput, ""),
			execOut(PinThen),
			dataPin(PinReturnValue, schema.PinObject, "Object", schema.PinOutput, ""),
		}, nil
	}
	return nil, schema.NewErrorf(schema.ErrCodeValidation, "no pin layout for node kind %q", b.Kind)
}

// functionPins lays out a call node: exec pins unless pure, the target pin
// unless static, visible inputs, outputs, then the return value.
func functionPins(fn *reflection.Function) []schema.PinDescriptor {
	var pins []schema.PinDescriptor
	if !fn.Pure {
		pins = append(pins, execIn(PinExecute), execOut(PinThen))
	}
	if !fn.Static {
		pins = append(pins, dataPin(PinSelf, schema.PinObject, fn.Owner, schema.PinInput, ""))
	}
	for _, p := range fn.Params {
		if p.Hidden || p.Out {
			continue
		}
		pins = append(pins, dataPin(p.Name, p.Type, p.SubType, schema.PinInput, p.Default))
	}
	for _, p := range fn.Params {
		if p.Hidden || !p.Out {
			continue
		}
		pins = append(pins, dataPin(p.Name, p.Type, p.SubType, schema.PinOutput, ""))
	}
	if fn.Return != nil {
		pins = append(pins, dataPin(PinReturnValue, fn.Return.Type, fn.Return.SubType, schema.PinOutput, ""))
	}
	return pins
}

func structPins(kind schema.NodeKind, t *reflection.Type) []schema.PinDescriptor {
	fieldDir, structDir := schema.PinOutput, schema.PinInput
	if kind == schema.KindMakeStruct {
		fieldDir, structDir = schema.PinInput, schema.PinOutput
	}
	whole := dataPin(t.Name, schema.PinStruct, t.Name, structDir, "")
	var pins []schema.PinDescriptor
	if kind == schema.KindBreakStruct {
		pins = append(pins, whole)
	}
	for _, f := range t.VisibleFields() {
		pins = append(pins, dataPin(f.Name, f.Type, f.SubType, fieldDir, ""))
	}
	if kind == schema.KindMakeStruct {
		pins = append(pins, whole)
	}
	return pins
}
