package reflection

import (
	"strings"

	"github.com/rendis/nodeforge/pkg/schema"
)

// TypeKind classifies a reflected type.
type TypeKind string

const (
	KindClass   TypeKind = "class"
	KindStruct  TypeKind = "struct"
	KindLibrary TypeKind = "library"
)

// Field is a reflected member variable.
type Field struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	SubType     string `yaml:"sub_type,omitempty" json:"sub_type,omitempty"`
	DisplayName string `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Category    string `yaml:"category,omitempty" json:"category,omitempty"`
	Tooltip     string `yaml:"tooltip,omitempty" json:"tooltip,omitempty"`
	Hidden      bool   `yaml:"hidden,omitempty" json:"hidden,omitempty"`
	ReadOnly    bool   `yaml:"read_only,omitempty" json:"read_only,omitempty"`
	Const       bool   `yaml:"const,omitempty" json:"const,omitempty"`
}

// Visible reports whether scripts can see the field at all.
func (f Field) Visible() bool { return !f.Hidden }

// Writable reports whether a setter may be synthesized for the field.
func (f Field) Writable() bool { return !f.Hidden && !f.ReadOnly && !f.Const }

// Param is a function parameter or return value.
type Param struct {
	Name    string `yaml:"name" json:"name"`
	Type    string `yaml:"type" json:"type"`
	SubType string `yaml:"sub_type,omitempty" json:"sub_type,omitempty"`
	Out     bool   `yaml:"out,omitempty" json:"out,omitempty"`
	Default string `yaml:"default,omitempty" json:"default,omitempty"`
	Hidden  bool   `yaml:"hidden,omitempty" json:"hidden,omitempty"`
}

// Function is a reflected member or static function.
type Function struct {
	Name        string  `yaml:"name" json:"name"`
	DisplayName string  `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Category    string  `yaml:"category,omitempty" json:"category,omitempty"`
	Tooltip     string  `yaml:"tooltip,omitempty" json:"tooltip,omitempty"`
	Keywords    string  `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Params      []Param `yaml:"params,omitempty" json:"params,omitempty"`
	Return      *Param  `yaml:"return,omitempty" json:"return,omitempty"`
	Pure        bool    `yaml:"pure,omitempty" json:"pure,omitempty"`
	Static      bool    `yaml:"static,omitempty" json:"static,omitempty"`
	Event       bool    `yaml:"event,omitempty" json:"event,omitempty"`
	Hidden      bool    `yaml:"hidden,omitempty" json:"hidden,omitempty"`

	// Owner is the name of the declaring type, filled in at registration.
	Owner string `yaml:"-" json:"-"`
}

// Callable reports whether the function can back a call node.
func (f *Function) Callable() bool { return !f.Hidden && !f.Event }

// Title is the menu title shown for the function.
func (f *Function) Title() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return Humanize(strings.TrimPrefix(f.Name, "K2_"))
}

// HasParamIn reports whether any visible parameter or the return value has a
// category contained in cats.
func (f *Function) HasParamIn(cats map[string]bool) bool {
	for _, p := range f.Params {
		if !p.Hidden && cats[p.Type] {
			return true
		}
	}
	return f.Return != nil && cats[f.Return.Type]
}

// Type is one entry of the type registry.
type Type struct {
	Name      string      `yaml:"name" json:"name"`
	Kind      TypeKind    `yaml:"kind" json:"kind"`
	Parent    string      `yaml:"parent,omitempty" json:"parent,omitempty"`
	Module    string      `yaml:"module,omitempty" json:"module,omitempty"`
	Path      string      `yaml:"path,omitempty" json:"path,omitempty"`
	Tooltip   string      `yaml:"tooltip,omitempty" json:"tooltip,omitempty"`
	Abstract  bool        `yaml:"abstract,omitempty" json:"abstract,omitempty"`
	Fields    []Field     `yaml:"fields,omitempty" json:"fields,omitempty"`
	Functions []*Function `yaml:"functions,omitempty" json:"functions,omitempty"`
}

// IsStruct reports whether the type is a value struct.
func (t *Type) IsStruct() bool { return t.Kind == KindStruct }

// Field returns the declared field with the given name (case-insensitive).
func (t *Type) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// VisibleFields returns the declared fields scripts can see.
func (t *Type) VisibleFields() []Field {
	out := make([]Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.Visible() {
			out = append(out, f)
		}
	}
	return out
}

// NumericFamily maps a numeric pin category to the set of categories that
// count as the same family.
func NumericFamily(pinType string) (map[string]bool, bool) {
	switch strings.ToLower(pinType) {
	case "int", "integer", "int64", "byte":
		return map[string]bool{schema.PinInt: true, schema.PinInt64: true, schema.PinByte: true}, true
	case "float", "real", "double":
		return map[string]bool{schema.PinReal: true}, true
	}
	return nil, false
}

// Humanize turns an identifier into a display name: a leading boolean "b"
// prefix is dropped and words are split at lower-to-upper case boundaries.
func Humanize(name string) string {
	name = StripBoolPrefix(name)
	name = strings.ReplaceAll(name, "_", " ")
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && isUpper(r) && isLower(runes[i-1]) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// StripBoolPrefix drops a leading "b" when it is followed by an upper-case letter.
func StripBoolPrefix(name string) string {
	if len(name) > 1 && name[0] == 'b' && isUpper(rune(name[1])) {
		return name[1:]
	}
	return name
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
