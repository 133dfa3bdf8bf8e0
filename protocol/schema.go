package protocol

import (
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/surfacestream/errors"
)

// WireSchema is the JSON Schema (draft-07) of one wire message.
const WireSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "surface protocol message",
  "type": "object",
  "oneOf": [
    {"required": ["beginRendering"]},
    {"required": ["updateComponents"]},
    {"required": ["surfaceUpdate"]},
    {"required": ["updateDataModel"]},
    {"required": ["dataModelUpdate"]},
    {"required": ["deleteSurface"]}
  ],
  "properties": {
    "beginRendering": {
      "type": "object",
      "required": ["surfaceId", "root"],
      "properties": {
        "surfaceId": {"$ref": "#/definitions/id"},
        "root": {"$ref": "#/definitions/id"}
      }
    },
    "updateComponents": {"$ref": "#/definitions/surfaceUpdate"},
    "surfaceUpdate": {"$ref": "#/definitions/surfaceUpdate"},
    "updateDataModel": {"$ref": "#/definitions/dataModelUpdate"},
    "dataModelUpdate": {"$ref": "#/definitions/dataModelUpdate"},
    "deleteSurface": {
      "type": "object",
      "required": ["surfaceId"],
      "properties": {
        "surfaceId": {"$ref": "#/definitions/id"}
      }
    }
  },
  "definitions": {
    "id": {"type": "string", "minLength": 1},
    "surfaceUpdate": {
      "type": "object",
      "required": ["surfaceId", "components"],
      "properties": {
        "surfaceId": {"$ref": "#/definitions/id"},
        "components": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "component"],
            "properties": {
              "id": {"$ref": "#/definitions/id"},
              "component": {
                "type": "object",
                "required": ["type"],
                "properties": {
                  "id": {"$ref": "#/definitions/id"},
                  "type": {"type": "string"},
                  "children": {"type": "array", "items": {"type": "string"}},
                  "dataPath": {"type": "string"}
                }
              }
            }
          }
        }
      }
    },
    "dataModelUpdate": {
      "type": "object",
      "anyOf": [
        {"required": ["value"]},
        {"required": ["contents"]}
      ],
      "properties": {
        "path": {"type": "string"}
      }
    }
  }
}`

// SchemaViolation is one schema-level problem with a message.
type SchemaViolation struct {
	Field       string
	Description string
}

var (
	wireSchemaOnce sync.Once
	wireSchema     *gojsonschema.Schema
	wireSchemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	wireSchemaOnce.Do(func() {
		wireSchema, wireSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(WireSchema))
	})
	return wireSchema, wireSchemaErr
}

// ValidateSchema checks one JSON document against WireSchema. An error is
// returned only when the document cannot be decoded; schema problems are
// returned as violations.
func ValidateSchema(data []byte) ([]SchemaViolation, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, errors.WrapFatal(err, "protocol", "ValidateSchema", "schema compile")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, errors.WrapInvalid(err, "protocol", "ValidateSchema", "document decode")
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]SchemaViolation, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, SchemaViolation{
			Field:       desc.Field(),
			Description: desc.Description(),
		})
	}
	return violations, nil
}
