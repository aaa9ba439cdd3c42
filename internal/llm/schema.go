package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"
)

// ToSchema converts a JSON Schema document, as used for reply validation,
// into the model's response schema. Only the keywords the dashboard's
// schemas use are supported.
func ToSchema(m map[string]interface{}) (*genai.Schema, error) {
	s := &genai.Schema{}

	if t, ok := m["type"].(string); ok {
		typ, err := schemaType(t)
		if err != nil {
			return nil, err
		}
		s.Type = typ
	}

	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	if p, ok := m["pattern"].(string); ok {
		s.Pattern = p
	}

	if v, ok := m["enum"]; ok {
		enum, err := stringList(v)
		if err != nil {
			return nil, fmt.Errorf("enum: %w", err)
		}
		s.Enum = enum
	}
	if v, ok := m["required"]; ok {
		required, err := stringList(v)
		if err != nil {
			return nil, fmt.Errorf("required: %w", err)
		}
		s.Required = required
	}

	if v, ok := m["minimum"]; ok {
		f, err := number(v)
		if err != nil {
			return nil, fmt.Errorf("minimum: %w", err)
		}
		s.Minimum = &f
	}
	if v, ok := m["maximum"]; ok {
		f, err := number(v)
		if err != nil {
			return nil, fmt.Errorf("maximum: %w", err)
		}
		s.Maximum = &f
	}
	if v, ok := m["minItems"]; ok {
		f, err := number(v)
		if err != nil {
			return nil, fmt.Errorf("minItems: %w", err)
		}
		n := int64(f)
		s.MinItems = &n
	}
	if v, ok := m["maxItems"]; ok {
		f, err := number(v)
		if err != nil {
			return nil, fmt.Errorf("maxItems: %w", err)
		}
		n := int64(f)
		s.MaxItems = &n
	}

	if v, ok := m["items"].(map[string]interface{}); ok {
		items, err := ToSchema(v)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.Items = items
	}

	if props, ok := m["properties"].(map[string]interface{}); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		names := make([]string, 0, len(props))
		for name, raw := range props {
			child, ok := raw.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("property %s: not an object", name)
			}
			converted, err := ToSchema(child)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", name, err)
			}
			s.Properties[name] = converted
			names = append(names, name)
		}
		sort.Strings(names)
		s.PropertyOrdering = orderProperties(names, s.Required)
	}

	return s, nil
}

// orderProperties lists required properties first in their declared order,
// then the rest alphabetically.
func orderProperties(names, required []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, r := range required {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func schemaType(t string) (genai.Type, error) {
	switch strings.ToLower(t) {
	case "string":
		return genai.TypeString, nil
	case "number":
		return genai.TypeNumber, nil
	case "integer":
		return genai.TypeInteger, nil
	case "boolean":
		return genai.TypeBoolean, nil
	case "array":
		return genai.TypeArray, nil
	case "object":
		return genai.TypeObject, nil
	}
	return "", fmt.Errorf("unsupported schema type %q", t)
}

func stringList(v interface{}) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("non-string entry %v", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unexpected type %T", v)
}

func number(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}
