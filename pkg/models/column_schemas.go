package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// JSON Schemas for the json columns of nodes and edges. Values are checked
// against these before they are written.
const (
	positionSchema = `{
  "type": "object",
  "required": ["x", "y"],
  "properties": {
    "x": {"type": "number"},
    "y": {"type": "number"}
  },
  "additionalProperties": false
}`

	sourcesSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["url", "name"],
    "properties": {
      "url":  {"type": "string", "format": "uri"},
      "name": {"type": "string", "minLength": 1},
      "icon": {"type": "string"}
    },
    "additionalProperties": false
  }
}`

	imagesSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["url"],
    "properties": {
      "url":         {"type": "string", "format": "uri"},
      "description": {"type": "string"}
    },
    "additionalProperties": false
  }
}`

	edgeDataSchema = `{
  "type": "object",
  "properties": {
    "label":    {"type": "string", "maxLength": 256},
    "relation": {"type": "string", "maxLength": 50},
    "weight":   {"type": "number", "minimum": 0}
  },
  "additionalProperties": false
}`
)

var (
	positionValidator = mustCompileSchema("position", positionSchema)
	sourcesValidator  = mustCompileSchema("sources", sourcesSchema)
	imagesValidator   = mustCompileSchema("images", imagesSchema)
	edgeDataValidator = mustCompileSchema("edge data", edgeDataSchema)
)

// ColumnSchemaError lists every violation found in one json column.
type ColumnSchemaError struct {
	Column     string
	Violations []string
}

func (e *ColumnSchemaError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Column, strings.Join(e.Violations, "; "))
}

type columnValidator struct {
	column string
	schema *gojsonschema.Schema
}

func mustCompileSchema(column, schema string) *columnValidator {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("compile %s schema: %v", column, err))
	}
	return &columnValidator{column: column, schema: s}
}

func (v *columnValidator) validate(value any) error {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return fmt.Errorf("failed to validate %s: %w", v.column, err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return &ColumnSchemaError{Column: v.column, Violations: violations}
}

// ValidateColumns checks the json columns of a node.
func (n *Node) ValidateColumns() error {
	if err := positionValidator.validate(n.Position); err != nil {
		return err
	}
	if err := sourcesValidator.validate(nonNilSources(n.Sources)); err != nil {
		return err
	}
	return imagesValidator.validate(nonNilImages(n.Images))
}

// ValidateColumns checks the json data column of an edge.
func (e *Edge) ValidateColumns() error {
	return edgeDataValidator.validate(e.Data)
}

func nonNilSources(s []Source) []Source {
	if s == nil {
		return []Source{}
	}
	return s
}

func nonNilImages(i []Image) []Image {
	if i == nil {
		return []Image{}
	}
	return i
}
