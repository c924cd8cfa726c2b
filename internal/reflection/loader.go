package reflection

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rendis/nodeforge/internal/validation"
	"github.com/rendis/nodeforge/pkg/schema"
)

//go:embed manifests/*.yaml
var builtinManifests embed.FS

// Validator checks a decoded manifest before its types are registered.
type Validator interface {
	Validate(kind string, manifest any) error
}

type manifest struct {
	Types []*Type `yaml:"types"`
}

// LoadManifest decodes a YAML type manifest, validates it when v is non-nil and
// registers every type it declares. Returns the number of registered types.
func (r *Registry) LoadManifest(data []byte, v Validator) (int, error) {
	if v != nil {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return 0, schema.NewError(schema.ErrCodeValidation, "invalid manifest yaml").WithCause(err)
		}
		if err := v.Validate(validation.ManifestTypes, raw); err != nil {
			return 0, err
		}
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return 0, schema.NewError(schema.ErrCodeValidation, "invalid manifest yaml").WithCause(err)
	}
	for i, t := range m.Types {
		if err := r.Register(t); err != nil {
			return i, err
		}
	}
	return len(m.Types), nil
}

// LoadFile reads and registers a manifest from disk.
func (r *Registry) LoadFile(path string, v Validator) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read manifest %s: %w", path, err)
	}
	n, err := r.LoadManifest(data, v)
	if err != nil {
		return n, fmt.Errorf("load manifest %s: %w", path, err)
	}
	return n, nil
}

// LoadBuiltin registers the embedded engine manifests in file-name order.
func LoadBuiltin(r *Registry, v Validator) error {
	names, err := fs.Glob(builtinManifests, "manifests/*.yaml")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := builtinManifests.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := r.LoadManifest(data, v); err != nil {
			return fmt.Errorf("builtin manifest %s: %w", name, err)
		}
	}
	return nil
}

// NewBuiltinRegistry returns a registry holding the embedded engine types plus
// any extra manifest files.
func NewBuiltinRegistry(v Validator, extra ...string) (*Registry, error) {
	r := NewRegistry()
	if err := LoadBuiltin(r, v); err != nil {
		return nil, err
	}
	for _, path := range extra {
		if _, err := r.LoadFile(path, v); err != nil {
			return nil, err
		}
	}
	return r, nil
}
