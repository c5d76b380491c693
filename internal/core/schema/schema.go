// SPDX-License-Identifier: Apache-2.0

// Package schema validates module definition files against the descriptor
// contract before the registry constructs a module from them.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// descriptorSchema is the JSON schema every module definition must satisfy.
// The execution section is optional; a definition without one produces a
// module that only reports a synthetic result.
const descriptorSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "version", "category", "description", "author"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "category": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "author": {"type": "string"},
    "dependencies": {"type": "array", "items": {"type": "string"}},
    "capabilities": {"type": "array", "items": {"type": "string"}},
    "risk_level": {
      "type": "string",
      "pattern": "^(?i)(low|medium|high|critical)$"
    },
    "inputs": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["description", "input_type"],
        "properties": {
          "description": {"type": "string"},
          "input_type": {"type": "string"},
          "required": {"type": "boolean"},
          "default_value": {"type": "string"},
          "validation_regex": {"type": "string"}
        }
      }
    },
    "outputs": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["description", "output_type"],
        "properties": {
          "description": {"type": "string"},
          "output_type": {"type": "string"},
          "format": {"type": "string"}
        }
      }
    },
    "execution": {
      "type": "object",
      "required": ["command"],
      "properties": {
        "command": {"type": "string", "minLength": 1},
        "args": {"type": "array", "items": {"type": "string"}},
        "parse": {"type": "string", "enum": ["json", "text"]},
        "pattern": {"type": "string"}
      }
    }
  }
}`

// ValidateDefinition checks a parsed module definition against the descriptor
// schema and aggregates every violation into one error.
func ValidateDefinition(def map[string]interface{}) error {
	defBytes, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("schema validation error: failed to serialize definition: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(descriptorSchema)
	documentLoader := gojsonschema.NewBytesLoader(defBytes)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		errorMsg := "definition validation failed:"
		for _, verr := range result.Errors() {
			errorMsg += fmt.Sprintf("\n- %s", verr)
		}
		return fmt.Errorf("%s", errorMsg)
	}

	return nil
}
