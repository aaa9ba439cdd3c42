package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator wraps JSON Schema compilation and validation
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator creates a validator from a JSON schema definition
func NewSchemaValidator(name string, schemaMap map[string]interface{}) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	schemaJSON, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	url := name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &SchemaValidator{schema: schema}, nil
}

// ValidateJSON decodes raw and validates it against the compiled schema.
func (v *SchemaValidator) ValidateJSON(raw []byte) error {
	_, err := v.validate(raw)
	return err
}

// Decode validates raw and unmarshals it into dst. Integral numbers written
// with a fraction or exponent ("75.0", "1e2") are accepted by the schema's
// integer type, so they are rewritten before reaching int fields.
func (v *SchemaValidator) Decode(raw []byte, dst any) error {
	doc, err := v.validate(raw)
	if err != nil {
		return err
	}

	normalized, err := json.Marshal(wholeNumbers(doc))
	if err != nil {
		return fmt.Errorf("re-encode failed: %w", err)
	}
	if err := json.Unmarshal(normalized, dst); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}
	return nil
}

func (v *SchemaValidator) validate(raw []byte) (interface{}, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := v.schema.Validate(doc); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			leaf := deepestCause(ve)
			return nil, &ValidationError{
				Field:   leaf.InstanceLocation,
				Message: leaf.Message,
			}
		}
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return doc, nil
}

// wholeNumbers rewrites every integral json.Number in doc to plain integer
// form. Other values are returned unchanged.
func wholeNumbers(doc interface{}) interface{} {
	switch val := doc.(type) {
	case map[string]interface{}:
		for k, item := range val {
			val[k] = wholeNumbers(item)
		}
	case []interface{}:
		for i, item := range val {
			val[i] = wholeNumbers(item)
		}
	case json.Number:
		s := val.String()
		if !strings.ContainsAny(s, ".eE") {
			return val
		}
		f, err := val.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return val
		}
		return json.Number(strconv.FormatInt(int64(f), 10))
	}
	return doc
}

// deepestCause walks to the most specific validation failure.
func deepestCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// ValidationError is a schema violation in a model reply.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}
