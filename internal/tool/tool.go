//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package tool holds helpers shared by tool implementations.
package tool

import (
	"reflect"
	"strings"

	"trpc.group/trpc-go/mathsgpt/tool"
)

// GenerateJSONSchema generates a basic JSON schema from a reflect.Type.
// A nil type yields an empty object schema.
func GenerateJSONSchema(t reflect.Type) *tool.Schema {
	if t == nil {
		return &tool.Schema{Type: "object"}
	}
	switch t.Kind() {
	case reflect.Struct:
		return structSchema(t, true)
	case reflect.Ptr:
		elemSchema := GenerateJSONSchema(t.Elem())
		elemSchema.Type = elemSchema.Type + ",null"
		return elemSchema
	default:
		return GenerateFieldSchema(t)
	}
}

// GenerateFieldSchema generates schema for a specific field type.
func GenerateFieldSchema(t reflect.Type) *tool.Schema {
	switch t.Kind() {
	case reflect.String:
		return &tool.Schema{Type: "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &tool.Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &tool.Schema{Type: "number"}
	case reflect.Bool:
		return &tool.Schema{Type: "boolean"}
	case reflect.Slice, reflect.Array:
		return &tool.Schema{
			Type:  "array",
			Items: GenerateFieldSchema(t.Elem()),
		}
	case reflect.Map:
		return &tool.Schema{
			Type:                 "object",
			AdditionalProperties: GenerateFieldSchema(t.Elem()),
		}
	case reflect.Ptr:
		elemSchema := GenerateFieldSchema(t.Elem())
		// Pointers are nullable
		elemSchema.Type = elemSchema.Type + ",null"
		return elemSchema
	case reflect.Struct:
		return structSchema(t, false)
	default:
		return &tool.Schema{Type: "object"}
	}
}

func structSchema(t reflect.Type, withRequired bool) *tool.Schema {
	schema := &tool.Schema{
		Type:       "object",
		Properties: map[string]*tool.Schema{},
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		fieldName := field.Name
		isOmitEmpty := false
		if jsonTag != "" {
			name, rest, _ := strings.Cut(jsonTag, ",")
			if name != "" {
				fieldName = name
			}
			isOmitEmpty = strings.Contains(rest, "omitempty")
		}

		fieldSchema := GenerateFieldSchema(field.Type)
		fieldSchema.Description = schemaDescription(field.Tag.Get("jsonschema"))
		schema.Properties[fieldName] = fieldSchema

		if withRequired && field.Type.Kind() != reflect.Ptr && !isOmitEmpty {
			schema.Required = append(schema.Required, fieldName)
		}
	}
	return schema
}

// schemaDescription extracts description=... from a jsonschema struct tag.
func schemaDescription(tag string) string {
	for _, part := range strings.Split(tag, ",") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(part), "description="); ok {
			return v
		}
	}
	return ""
}
