package amarvoice

import (
	"reflect"
	"strings"
)

// JSONSchema is the subset of JSON Schema the service accepts for tool
// input declarations.
type JSONSchema struct {
	Type        string                `json:"type,omitempty"`
	Description string                `json:"description,omitempty"`
	Properties  map[string]JSONSchema `json:"properties,omitempty"`
	Required    []string              `json:"required,omitempty"`
	Items       *JSONSchema           `json:"items,omitempty"`
	Enum        []string              `json:"enum,omitempty"`
}

// GenerateJSONSchema generates a JSON Schema from a Go type.
// It supports struct tags:
//   - json:"name"        - field name in JSON
//   - desc:"description" - field description
//   - enum:"a,b,c"       - enum values
func GenerateJSONSchema(t reflect.Type) *JSONSchema {
	if t == nil {
		return &JSONSchema{}
	}
	return generateSchemaFromType(t)
}

// generateSchema generates a JSON schema from a Go value.
func generateSchema(v any) *JSONSchema {
	if v == nil {
		return &JSONSchema{}
	}
	t := reflect.TypeOf(v)
	if t == nil {
		return &JSONSchema{}
	}
	return generateSchemaFromType(t)
}

// SchemaFromStruct generates a JSON schema from a struct type.
// This is an exported helper for users who want to generate schemas manually.
func SchemaFromStruct[T any]() *JSONSchema {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return &JSONSchema{}
	}
	return generateSchemaFromType(t)
}

// generateSchemaFromType generates a JSON schema from a Go type.
func generateSchemaFromType(t reflect.Type) *JSONSchema {
	// Dereference pointer
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return generateObjectSchema(t)
	case reflect.Slice, reflect.Array:
		items := generateSchemaFromType(t.Elem())
		return &JSONSchema{
			Type:  "array",
			Items: items,
		}
	case reflect.String:
		return &JSONSchema{Type: "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &JSONSchema{Type: "integer"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &JSONSchema{Type: "number"}
	case reflect.Bool:
		return &JSONSchema{Type: "boolean"}
	case reflect.Map:
		// For maps, we just return object type
		return &JSONSchema{Type: "object"}
	case reflect.Interface:
		// For interface{}, return without type constraint
		return &JSONSchema{}
	default:
		return &JSONSchema{Type: "string"} // Fallback
	}
}

// generateObjectSchema generates a JSON schema for a struct type.
func generateObjectSchema(t reflect.Type) *JSONSchema {
	schema := &JSONSchema{
		Type:       "object",
		Properties: make(map[string]JSONSchema),
		Required:   []string{},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		// Skip unexported fields
		if !field.IsExported() {
			continue
		}

		// Get JSON field name
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue // Skip this field
		}

		jsonName := field.Name
		omitempty := false
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				jsonName = parts[0]
			}
			// Check for omitempty
			for _, part := range parts[1:] {
				if part == "omitempty" {
					omitempty = true
					break
				}
			}
		}

		// Generate field schema
		fieldSchema := generateSchemaFromType(field.Type)

		// Apply description from tag
		if desc := field.Tag.Get("desc"); desc != "" {
			fieldSchema.Description = desc
		}

		// Apply enum from tag
		if enum := field.Tag.Get("enum"); enum != "" {
			fieldSchema.Enum = parseEnumTag(enum)
		}

		schema.Properties[jsonName] = *fieldSchema

		// Check if required (not a pointer and no omitempty)
		isRequired := true
		if field.Type.Kind() == reflect.Ptr {
			isRequired = false
		}
		if omitempty {
			isRequired = false
		}
		if isRequired {
			schema.Required = append(schema.Required, jsonName)
		}
	}

	return schema
}

// parseEnumTag parses a comma-separated enum tag value.
func parseEnumTag(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
