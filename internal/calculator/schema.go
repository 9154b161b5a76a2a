package calculator

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/google/jsonschema-go/jsonschema"
)

const (
	PARAM_A = "a"
	PARAM_B = "b"
)

// Field documents one input field of a tool.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Format      string `json:"format"`
	Description string `json:"description"`
}

// SumRequest is the input of the sum tool.
type SumRequest struct {
	A int32 `json:"a"`
	B int32 `json:"b"`
}

// SubRequest is the input of the sub tool.
type SubRequest struct {
	A int32 `json:"a"`
	B int32 `json:"b"`
}

var operandFields = []Field{
	{Name: PARAM_A, Type: "integer", Format: "int32", Description: "the left hand side number"},
	{Name: PARAM_B, Type: "integer", Format: "int32", Description: "the right hand side number"},
}

// objectSchema builds the input schema advertised for a tool. Every field is
// a required int32 and unknown properties are allowed.
func objectSchema(fields []Field) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(fields)),
		Required:   make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		lo, hi := float64(math.MinInt32), float64(math.MaxInt32)
		schema.Properties[f.Name] = &jsonschema.Schema{
			Type:        f.Type,
			Description: f.Description,
			Minimum:     &lo,
			Maximum:     &hi,
		}
		schema.Required = append(schema.Required, f.Name)
	}
	return schema
}

// decode validates raw against the resolved schema of tool and unmarshals it
// into a T. An empty or null payload is treated as an empty object.
func decode[T any](tool string, schema *jsonschema.Resolved, raw json.RawMessage) (T, error) {
	var req T

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	var instance any
	if err := json.Unmarshal(trimmed, &instance); err != nil {
		return req, &DecodeError{Tool: tool, Err: err}
	}
	if err := schema.Validate(instance); err != nil {
		return req, &DecodeError{Tool: tool, Err: err}
	}
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return req, &DecodeError{Tool: tool, Err: err}
	}
	return req, nil
}
