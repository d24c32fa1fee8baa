// Package schema validates the JSON documents accepted at the system
// boundary (competition rubrics and prize structures) before they are
// persisted or interpreted.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const rubricSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "minProperties": 1,
  "additionalProperties": {
    "type": "object",
    "properties": {
      "description": {"type": "string"},
      "weight": {"type": ["number", "string"]}
    },
    "required": ["weight"]
  }
}`

const prizeStructureSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "properties": {
      "place": {"type": "string", "minLength": 1},
      "percentage": {"type": ["number", "string"]}
    },
    "required": ["place", "percentage"]
  }
}`

var (
	rubric         = jsonschema.MustCompileString("rubric.json", rubricSchema)
	prizeStructure = jsonschema.MustCompileString("prize_structure.json", prizeStructureSchema)
)

// ValidateRubric checks a rubric document against its schema.
func ValidateRubric(raw []byte) error {
	return validate(rubric, raw, "rubric")
}

// ValidatePrizeStructure checks a prize structure document against its
// schema. Ordering, place uniqueness and the fraction sum are business rules
// enforced by the competition service, not here.
func ValidatePrizeStructure(raw []byte) error {
	return validate(prizeStructure, raw, "prize structure")
}

func validate(s *jsonschema.Schema, raw []byte, label string) error {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s is not valid JSON: %w", label, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s does not match schema: %w", label, err)
	}
	return nil
}
