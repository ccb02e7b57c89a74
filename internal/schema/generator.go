// Package schema turns tool parameter structs into JSON Schema objects.
//
// Tags read from each exported field:
//
//	json:"name"                    property name (json:"-" skips the field)
//	description:"..."              property description
//	schema:"required,enum:a|b,min:1,max:10,default:5,pattern:^x"
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Generator converts Go structs to JSON schemas. Schemas are cached per type.
type Generator struct {
	cache sync.Map // reflect.Type -> map[string]interface{}
}

// NewGenerator creates a new schema generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate creates a JSON schema for a struct or pointer to struct. A nil
// value yields an object schema with no properties.
func (g *Generator) Generate(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return emptyObject(), nil
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", t.Kind())
	}

	if cached, ok := g.cache.Load(t); ok {
		return cached.(map[string]interface{}), nil
	}
	obj := g.object(t)
	g.cache.Store(t, obj)
	return obj, nil
}

// FunctionSpec creates an OpenAI-compatible function spec
func (g *Generator) FunctionSpec(name, description string, params interface{}) (map[string]interface{}, error) {
	parameters, err := g.Generate(params)
	if err != nil {
		return nil, fmt.Errorf("schema for %s: %w", name, err)
	}
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        name,
			"description": description,
			"parameters":  parameters,
		},
	}, nil
}

func emptyObject() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
		"required":   []string{},
	}
}

func (g *Generator) object(t reflect.Type) map[string]interface{} {
	obj := emptyObject()
	properties := obj["properties"].(map[string]interface{})
	required := []string{}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, ok := FieldName(field)
		if !ok {
			continue
		}

		tag := ParseTag(field.Tag.Get("schema"))
		if tag.Required {
			required = append(required, name)
		}

		prop := g.property(field.Type)
		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		tag.apply(prop)
		properties[name] = prop
	}

	obj["required"] = required
	return obj
}

func (g *Generator) property(t reflect.Type) map[string]interface{} {
	switch t.Kind() {
	case reflect.Ptr:
		return g.property(t.Elem())
	case reflect.String:
		return map[string]interface{}{"type": "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return map[string]interface{}{"type": "integer"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]interface{}{"type": "integer", "minimum": 0}
	case reflect.Float32, reflect.Float64:
		return map[string]interface{}{"type": "number"}
	case reflect.Bool:
		return map[string]interface{}{"type": "boolean"}
	case reflect.Slice, reflect.Array:
		return map[string]interface{}{"type": "array", "items": g.property(t.Elem())}
	case reflect.Map:
		prop := map[string]interface{}{"type": "object"}
		if t.Elem().Kind() != reflect.Interface {
			prop["additionalProperties"] = g.property(t.Elem())
		}
		return prop
	case reflect.Struct:
		if t.String() == "time.Time" {
			return map[string]interface{}{"type": "string", "format": "date-time"}
		}
		return g.object(t)
	default:
		return map[string]interface{}{"type": "string"}
	}
}

// Tag is a parsed schema struct tag
type Tag struct {
	Required bool
	Enum     []string
	Min      *float64
	Max      *float64
	Pattern  string
	Default  interface{}
}

// ParseTag parses a comma separated schema tag
func ParseTag(raw string) Tag {
	var tag Tag
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		key, value, _ := strings.Cut(part, ":")
		switch key {
		case "required":
			tag.Required = true
		case "enum":
			tag.Enum = strings.Split(value, "|")
		case "min":
			tag.Min = parseNumber(value)
		case "max":
			tag.Max = parseNumber(value)
		case "pattern":
			tag.Pattern = value
		case "default":
			var def interface{}
			if err := json.Unmarshal([]byte(value), &def); err == nil {
				tag.Default = def
			} else {
				tag.Default = value
			}
		}
	}
	return tag
}

func (t Tag) apply(prop map[string]interface{}) {
	if len(t.Enum) > 0 {
		prop["enum"] = t.Enum
	}
	numeric := prop["type"] == "integer" || prop["type"] == "number"
	if t.Min != nil {
		if numeric {
			prop["minimum"] = *t.Min
		} else if prop["type"] == "string" {
			prop["minLength"] = int(*t.Min)
		}
	}
	if t.Max != nil {
		if numeric {
			prop["maximum"] = *t.Max
		} else if prop["type"] == "string" {
			prop["maxLength"] = int(*t.Max)
		}
	}
	if t.Pattern != "" {
		prop["pattern"] = t.Pattern
	}
	if t.Default != nil {
		prop["default"] = t.Default
	}
}

func parseNumber(s string) *float64 {
	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err != nil {
		return nil
	}
	return &f
}

// FieldName returns the JSON property name of a struct field and false when
// the field is skipped.
func FieldName(field reflect.StructField) (string, bool) {
	jsonTag := field.Tag.Get("json")
	if jsonTag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(jsonTag, ",")
	name = strings.TrimSpace(name)
	if name == "" {
		return field.Name, true
	}
	return name, true
}
