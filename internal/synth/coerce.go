package synth

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/pkg/schema"
)

// reservedParams configure the node itself and never target a pin.
var reservedParams = map[string]bool{
	"event_name":    true,
	"target_type":   true,
	"struct_type":   true,
	"variable_name": true,
	"kwargs":        true,
}

// Coercer writes caller-supplied values onto input pin defaults.
type Coercer struct {
	types  *reflection.Registry
	logger *slog.Logger
}

// NewCoercer creates a Coercer resolving class pins against types.
func NewCoercer(types *reflection.Registry, logger *slog.Logger) *Coercer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coercer{types: types, logger: logger}
}

// Apply coerces every parameter that names an input data pin. Parameters are
// applied in name order. Only a class pin that cannot be bound fails the
// call; any other value that does not fit its pin is logged and skipped.
func (c *Coercer) Apply(pins []schema.PinDescriptor, params map[string]any) error {
	keys := make([]string, 0, len(params))
	for k := range params {
		if !reservedParams[strings.ToLower(k)] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	exact := make(map[*schema.PinDescriptor]bool)
	for _, key := range keys {
		pin := findInput(pins, key)
		if pin == nil {
			c.logger.Debug("parameter has no input pin", slog.String("param", key))
			continue
		}
		// A key naming the pin exactly beats any case-folded spelling.
		if pin.Name != key && exact[pin] {
			continue
		}
		value, ok, err := c.coerce(pin, params[key])
		if err != nil {
			return err
		}
		if !ok {
			c.logger.Warn("parameter not applied, pin keeps its default",
				slog.String("pin", pin.Name),
				slog.String("pin_type", pin.Type),
				slog.String("value_type", fmt.Sprintf("%T", params[key])),
			)
			continue
		}
		pin.DefaultValue = value
		if pin.Name == key {
			exact[pin] = true
		}
	}
	return nil
}

func findInput(pins []schema.PinDescriptor, name string) *schema.PinDescriptor {
	var fold *schema.PinDescriptor
	for i := range pins {
		p := &pins[i]
		if p.Direction != schema.PinInput || p.IsExecution {
			continue
		}
		if p.Name == name {
			return p
		}
		if fold == nil && strings.EqualFold(p.Name, name) {
			fold = p
		}
	}
	return fold
}

func (c *Coercer) coerce(pin *schema.PinDescriptor, v any) (string, bool, error) {
	switch pin.Type {
	case schema.PinClass:
		name, _ := v.(string)
		var t *reflection.Type
		if c.types != nil && name != "" {
			t, _ = c.types.ResolveClass(name)
		}
		if t == nil {
			return "", false, schema.NewErrorf(schema.ErrCodeCoercion, "Failed to find class '%v'", v).
				WithDetails(map[string]any{"pin": pin.Name})
		}
		return t.Path, true, nil

	case schema.PinInt, schema.PinInt64, schema.PinByte:
		f, ok := finiteFloat(v)
		if !ok {
			return "", false, nil
		}
		n, ok := roundToPin(f, pin.Type)
		if !ok {
			return "", false, nil
		}
		return strconv.FormatInt(n, 10), true, nil

	case schema.PinReal:
		f, ok := finiteFloat(v)
		if !ok {
			return "", false, nil
		}
		return strconv.FormatFloat(f, 'f', -1, 64), true, nil

	case schema.PinBool:
		b, ok := toBool(v)
		if !ok {
			return "", false, nil
		}
		return strconv.FormatBool(b), true, nil

	case schema.PinStruct:
		if pin.SubType != "Vector" {
			return "", false, nil
		}
		x, y, z, ok := vector3(v)
		if !ok {
			return "", false, nil
		}
		return FormatVector(x, y, z), true, nil

	case schema.PinString, schema.PinName, schema.PinText:
		s, ok := v.(string)
		return s, ok, nil
	}
	return "", false, nil
}

// integerRange is the inclusive range of each integer pin type. Blueprint
// int is 32-bit.
var integerRange = map[string][2]float64{
	schema.PinInt:   {math.MinInt32, math.MaxInt32},
	schema.PinInt64: {math.MinInt64, math.MaxInt64},
	schema.PinByte:  {0, math.MaxUint8},
}

// roundToPin rounds f half away from zero and reports whether the result fits
// the integer pin type.
func roundToPin(f float64, pinType string) (int64, bool) {
	bounds, ok := integerRange[pinType]
	if !ok {
		return 0, false
	}
	r := math.Round(f)
	if r < bounds[0] || r > bounds[1] {
		return 0, false
	}
	// float64(MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if pinType == schema.PinInt64 && r >= 1<<63 {
		return 0, false
	}
	return int64(r), true
}

// finiteFloat is schema.ToFloat without NaN and the infinities.
func finiteFloat(v any) (float64, bool) {
	f, ok := schema.ToFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	}
	if f, ok := schema.ToFloat(v); ok {
		return f != 0, true
	}
	return false, false
}

func vector3(v any) (x, y, z float64, ok bool) {
	items, isList := v.([]any)
	if !isList || len(items) != 3 {
		return 0, 0, 0, false
	}
	var out [3]float64
	for i, item := range items {
		if _, isString := item.(string); isString {
			return 0, 0, 0, false
		}
		f, ok := finiteFloat(item)
		if !ok {
			return 0, 0, 0, false
		}
		out[i] = f
	}
	return out[0], out[1], out[2], true
}

// FormatVector renders a vector literal such as (X=1.0,Y=-2.5,Z=0.0).
// Components keep full precision and always carry a decimal point.
func FormatVector(x, y, z float64) string {
	return "(X=" + vectorComponent(x) + ",Y=" + vectorComponent(y) + ",Z=" + vectorComponent(z) + ")"
}

func vectorComponent(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseVectorLiteral reads a literal produced by FormatVector. Component keys
// must appear in X, Y, Z order.
func ParseVectorLiteral(s string) (x, y, z float64, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return 0, 0, 0, schema.NewErrorf(schema.ErrCodeInvalidParameter, "vector literal %q is not parenthesized", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != 3 {
		return 0, 0, 0, schema.NewErrorf(schema.ErrCodeInvalidParameter, "vector literal %q needs 3 components", s)
	}
	var out [3]float64
	for i, key := range []string{"X", "Y", "Z"} {
		k, val, found := strings.Cut(strings.TrimSpace(parts[i]), "=")
		if !found || !strings.EqualFold(k, key) {
			return 0, 0, 0, schema.NewErrorf(schema.ErrCodeInvalidParameter, "vector literal %q: expected %s component", s, key)
		}
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return 0, 0, 0, schema.NewErrorf(schema.ErrCodeInvalidParameter, "vector literal %q: bad %s component", s, key).WithCause(perr)
		}
		out[i] = f
	}
	return out[0], out[1], out[2], nil
}
