package outline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var schemaLoader = gojsonschema.NewStringLoader(`{
  "type": "object",
  "required": ["introduction", "subtopics", "conclusion"],
  "properties": {
    "title": {"type": "string"},
    "introduction": {
      "type": "object",
      "properties": {
        "hook": {"type": "string"},
        "mainThemes": {"type": "array", "items": {"type": "string"}},
        "narrativeSetup": {"type": "string"}
      }
    },
    "subtopics": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "keyPoint": {"type": "string"},
          "supportingEvidence": {"type": "string"},
          "narrativeConnection": {"type": "string"}
        }
      }
    },
    "conclusion": {
      "type": "object",
      "properties": {
        "keyInsights": {"type": "array", "items": {"type": "string"}},
        "fascinatingElements": {"type": "array", "items": {"type": "string"}},
        "finalThoughts": {"type": "string"}
      }
    }
  }
}`)

// validate checks raw JSON against the outline schema.
func validate(raw string) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errors.New("schema violations: " + strings.Join(errs, "; "))
}
