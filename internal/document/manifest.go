package document

import (
	"gopkg.in/yaml.v3"

	"github.com/rendis/nodeforge/internal/validation"
	"github.com/rendis/nodeforge/pkg/schema"
)

// Validator checks a decoded manifest before it is used.
type Validator interface {
	Validate(kind string, manifest any) error
}

type manifest struct {
	Name        string      `yaml:"name"`
	Path        string      `yaml:"path"`
	ParentClass string      `yaml:"parent_class"`
	Variables   []Variable  `yaml:"variables"`
	Components  []Component `yaml:"components"`
	Functions   []string    `yaml:"functions"`
}

// ParseManifest builds a document from a YAML or JSON document manifest.
// The manifest is validated first when v is non-nil.
func ParseManifest(data []byte, v Validator) (*Document, error) {
	if v != nil {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, "invalid document manifest").WithCause(err)
		}
		if err := v.Validate(validation.ManifestDocument, raw); err != nil {
			return nil, err
		}
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid document manifest").WithCause(err)
	}
	if m.Name == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "document manifest has no name")
	}

	parent := m.ParentClass
	if parent == "" {
		parent = "Actor"
	}
	d := New(m.Name, parent)
	d.Path = m.Path
	if d.Path == "" {
		d.Path = "/Game/Blueprints/" + m.Name
	}
	d.Variables = m.Variables
	d.Components = m.Components
	for _, fn := range m.Functions {
		if _, exists := d.Graph(fn); exists {
			continue
		}
		d.Graphs = append(d.Graphs, &Graph{Name: fn, Kind: GraphFunction})
	}
	return d, nil
}
