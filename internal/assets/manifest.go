package assets

import (
	_ "embed"
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/rendis/nodeforge/internal/store"
	"github.com/rendis/nodeforge/internal/validation"
	"github.com/rendis/nodeforge/pkg/schema"
)

//go:embed seed/standard_macros.yaml
var standardMacros []byte

// Validator checks a decoded manifest before it is used.
type Validator interface {
	Validate(kind string, manifest any) error
}

type manifest struct {
	Containers []*Container `yaml:"containers"`
}

// ParseManifest decodes a YAML or JSON asset manifest, validating it first when v is non-nil.
func ParseManifest(data []byte, v Validator) ([]*Container, error) {
	if v != nil {
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, "invalid asset manifest").WithCause(err)
		}
		if err := v.Validate(validation.ManifestAssets, raw); err != nil {
			return nil, err
		}
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid asset manifest").WithCause(err)
	}
	return m.Containers, nil
}

// SeedContainers returns the built-in standard macro library.
func SeedContainers() ([]*Container, error) {
	return ParseManifest(standardMacros, nil)
}

// Record converts a container into its persisted form.
func Record(c *Container) (*store.AssetRecord, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return &store.AssetRecord{Path: c.Path, Name: c.Name(), Class: c.Class, Body: body}, nil
}
