// Package validation checks layout pages before expression scanning: a JSON
// Schema pass for shape, then structural checks the schema cannot express.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/torbjokv/formexpr/pkg/schema"
)

// layoutSchemaJSON is the JSON Schema for layout pages.
// Embedded as a constant to avoid filesystem dependencies.
const layoutSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://formexpr.dev/schemas/layout.json",
  "type": "object",
  "required": ["data"],
  "properties": {
    "data": {
      "type": "object",
      "required": ["layout"],
      "properties": {
        "layout": {
          "type": "array",
          "items": { "$ref": "#/$defs/component" }
        }
      }
    }
  },
  "$defs": {
    "component": {
      "type": "object",
      "required": ["id", "type"],
      "properties": {
        "id": {
          "type": "string",
          "minLength": 1,
          "pattern": "^[0-9a-zA-Z][0-9a-zA-Z-]*$"
        },
        "type": {
          "type": "string",
          "minLength": 1
        },
        "dataModelBindings": {
          "type": "object",
          "additionalProperties": { "type": "string" }
        },
        "children": {
          "type": "array",
          "items": { "type": "string" }
        },
        "maxCount": {
          "type": "integer",
          "minimum": 1
        },
        "hidden": {
          "anyOf": [
            { "type": "boolean" },
            { "type": "array" }
          ]
        }
      }
    }
  }
}`

// LayoutValidator validates layout pages against the embedded JSON Schema.
// It is safe for concurrent use.
type LayoutValidator struct {
	layoutSchema *jsonschema.Schema
}

// NewLayoutValidator creates a LayoutValidator with the layout schema
// pre-compiled.
func NewLayoutValidator() (*LayoutValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(layoutSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal layout schema: %w", err)
	}
	if err := c.AddResource("https://formexpr.dev/schemas/layout.json", doc); err != nil {
		return nil, fmt.Errorf("add layout schema resource: %w", err)
	}

	compiled, err := c.Compile("https://formexpr.dev/schemas/layout.json")
	if err != nil {
		return nil, fmt.Errorf("compile layout schema: %w", err)
	}

	return &LayoutValidator{layoutSchema: compiled}, nil
}

// ValidatePage validates a raw layout page document.
func (v *LayoutValidator) ValidatePage(raw []byte) error {
	if len(raw) == 0 {
		return schema.NewError(schema.ErrCodeValidation, "layout page is empty")
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "layout page is not valid JSON").WithCause(err)
	}

	if err := v.layoutSchema.Validate(doc); err != nil {
		return toExprError(err)
	}

	// Structural checks JSON Schema cannot express: duplicate component IDs
	// and dangling group child references.
	var page schema.LayoutPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to decode layout page").WithCause(err)
	}

	seen := make(map[string]struct{}, len(page.Data.Layout))
	for _, comp := range page.Data.Layout {
		if _, exists := seen[comp.ID]; exists {
			return schema.NewErrorf(schema.ErrCodeValidation, "duplicate component id %q", comp.ID)
		}
		seen[comp.ID] = struct{}{}
	}
	for _, comp := range page.Data.Layout {
		for _, childID := range comp.Children {
			if _, ok := seen[childID]; !ok {
				return schema.NewErrorf(schema.ErrCodeValidation,
					"component %q references unknown child %q", comp.ID, childID)
			}
		}
	}

	return nil
}

// toExprError converts a jsonschema.ValidationError into an ExprError with
// one message per leaf violation.
func toExprError(err error) *schema.ExprError {
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

	msg := fmt.Sprintf("layout validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
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
