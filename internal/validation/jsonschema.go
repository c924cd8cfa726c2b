package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rendis/nodeforge/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Manifest kinds understood by ManifestValidator.
const (
	ManifestTypes    = "types"
	ManifestAssets   = "assets"
	ManifestDocument = "document"
)

const pinTypeEnum = `["exec","bool","byte","int","int64","real","string","name","text","object","class","struct","enum","wildcard","delegate"]`

// typesSchemaJSON validates reflected type manifests.
var typesSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://nodeforge.dev/schemas/types.json",
  "type": "object",
  "required": ["types"],
  "properties": {
    "types": {
      "type": "array",
      "items": { "$ref": "#/$defs/type" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "type": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "kind": { "type": "string", "enum": ["class", "struct", "library"] },
        "parent": { "type": "string" },
        "module": { "type": "string" },
        "path": { "type": "string", "pattern": "^/" },
        "tooltip": { "type": "string" },
        "abstract": { "type": "boolean" },
        "fields": { "type": "array", "items": { "$ref": "#/$defs/field" } },
        "functions": { "type": "array", "items": { "$ref": "#/$defs/function" } }
      },
      "additionalProperties": false
    },
    "field": {
      "type": "object",
      "required": ["name", "type"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "type": { "type": "string", "enum": ` + pinTypeEnum + ` },
        "sub_type": { "type": "string" },
        "display_name": { "type": "string" },
        "category": { "type": "string" },
        "tooltip": { "type": "string" },
        "hidden": { "type": "boolean" },
        "read_only": { "type": "boolean" },
        "const": { "type": "boolean" }
      },
      "additionalProperties": false
    },
    "param": {
      "type": "object",
      "required": ["type"],
      "properties": {
        "name": { "type": "string" },
        "type": { "type": "string", "enum": ` + pinTypeEnum + ` },
        "sub_type": { "type": "string" },
        "out": { "type": "boolean" },
        "default": { "type": "string" },
        "hidden": { "type": "boolean" }
      },
      "additionalProperties": false
    },
    "function": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "display_name": { "type": "string" },
        "category": { "type": "string" },
        "tooltip": { "type": "string" },
        "keywords": { "type": "string" },
        "params": { "type": "array", "items": { "$ref": "#/$defs/param" } },
        "return": { "$ref": "#/$defs/param" },
        "pure": { "type": "boolean" },
        "static": { "type": "boolean" },
        "event": { "type": "boolean" },
        "hidden": { "type": "boolean" }
      },
      "additionalProperties": false
    }
  }
}`

// assetsSchemaJSON validates asset manifests (macro containers).
var assetsSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://nodeforge.dev/schemas/assets.json",
  "type": "object",
  "required": ["containers"],
  "properties": {
    "containers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["path", "graphs"],
        "properties": {
          "path": { "type": "string", "pattern": "^/" },
          "class": { "type": "string" },
          "graphs": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {
                "name": { "type": "string", "minLength": 1 },
                "pins": { "type": "array", "items": { "$ref": "#/$defs/pin" } }
              },
              "additionalProperties": false
            }
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "pin": {
      "type": "object",
      "required": ["name", "type", "direction"],
      "properties": {
        "name": { "type": "string", "minLength": 1 },
        "type": { "type": "string", "enum": ` + pinTypeEnum + ` },
        "sub_type": { "type": "string" },
        "direction": { "type": "string", "enum": ["input", "output"] },
        "default": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

// documentSchemaJSON validates visual-scripting document manifests.
var documentSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://nodeforge.dev/schemas/document.json",
  "type": "object",
  "required": ["name"],
  "properties": {
    "name": { "type": "string", "minLength": 1 },
    "path": { "type": "string", "pattern": "^/" },
    "parent_class": { "type": "string" },
    "variables": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "type"],
        "properties": {
          "name": { "type": "string", "minLength": 1 },
          "type": { "type": "string", "enum": ` + pinTypeEnum + ` },
          "sub_type": { "type": "string" },
          "const": { "type": "boolean" },
          "default": { "type": "string" }
        },
        "additionalProperties": false
      }
    },
    "components": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "class"],
        "properties": {
          "name": { "type": "string", "minLength": 1 },
          "class": { "type": "string", "minLength": 1 }
        },
        "additionalProperties": false
      }
    },
    "functions": {
      "type": "array",
      "items": { "type": "string", "minLength": 1 }
    }
  },
  "additionalProperties": false
}`

// ManifestValidator validates decoded manifests against JSON Schema Draft 2020-12.
// Schemas are compiled once; the validator is safe for concurrent use.
type ManifestValidator struct {
	schemas map[string]*jsonschema.Schema
}

// NewManifestValidator compiles the built-in manifest schemas.
func NewManifestValidator() (*ManifestValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	sources := map[string]struct{ url, doc string }{
		ManifestTypes:    {"https://nodeforge.dev/schemas/types.json", typesSchemaJSON},
		ManifestAssets:   {"https://nodeforge.dev/schemas/assets.json", assetsSchemaJSON},
		ManifestDocument: {"https://nodeforge.dev/schemas/document.json", documentSchemaJSON},
	}

	schemas := make(map[string]*jsonschema.Schema, len(sources))
	for kind, src := range sources {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(src.doc))
		if err != nil {
			return nil, fmt.Errorf("unmarshal %s schema: %w", kind, err)
		}
		if err := c.AddResource(src.url, doc); err != nil {
			return nil, fmt.Errorf("add %s schema resource: %w", kind, err)
		}
		compiled, err := c.Compile(src.url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", kind, err)
		}
		schemas[kind] = compiled
	}
	return &ManifestValidator{schemas: schemas}, nil
}

// Validate checks a decoded manifest (YAML or JSON) of the given kind.
func (v *ManifestValidator) Validate(kind string, manifest any) error {
	compiled, ok := v.schemas[kind]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeValidation, "unknown manifest kind %q", kind)
	}
	if manifest == nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "%s manifest is empty", kind)
	}

	doc, err := toJSONValue(manifest)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "failed to serialize %s manifest", kind).WithCause(err)
	}
	if err := compiled.Validate(doc); err != nil {
		return toForgeError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toForgeError converts a jsonschema.ValidationError into a ForgeError
// listing every violation with its instance location.
func toForgeError(err error) *schema.ForgeError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error messages.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
