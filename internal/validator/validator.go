// Package validator checks decoded tool arguments against their schema tags.
package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gertlabs/gert/internal/schema"
)

// Validator validates structs based on their schema tags
type Validator struct {
	tagName string
}

// New creates a new validator
func New() *Validator {
	return &Validator{tagName: "schema"}
}

// Validate validates a struct or pointer to struct
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return fmt.Errorf("expected struct, got nil")
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("expected struct, got %s", val.Kind())
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, ok := schema.FieldName(field)
		if !ok {
			continue
		}
		raw := field.Tag.Get(v.tagName)
		if raw == "" {
			continue
		}
		if err := validateField(val.Field(i), schema.ParseTag(raw), name); err != nil {
			return err
		}
	}
	return nil
}

func validateField(value reflect.Value, tag schema.Tag, name string) error {
	if isZero(value) {
		if tag.Required {
			return fmt.Errorf("field '%s' is required", name)
		}
		return nil
	}
	for value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	if len(tag.Enum) > 0 {
		current := fmt.Sprintf("%v", value.Interface())
		found := false
		for _, allowed := range tag.Enum {
			if current == allowed {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("field '%s' must be one of: %s", name, strings.Join(tag.Enum, ", "))
		}
	}

	if n, ok := magnitude(value); ok {
		if tag.Min != nil && n < *tag.Min {
			return fmt.Errorf("field '%s' must be at least %g", name, *tag.Min)
		}
		if tag.Max != nil && n > *tag.Max {
			return fmt.Errorf("field '%s' must be at most %g", name, *tag.Max)
		}
	}

	if tag.Pattern != "" && value.Kind() == reflect.String {
		re, err := regexp.Compile(tag.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern for field '%s': %s", name, tag.Pattern)
		}
		if !re.MatchString(value.String()) {
			return fmt.Errorf("field '%s' does not match pattern: %s", name, tag.Pattern)
		}
	}
	return nil
}

// magnitude is the number compared against min/max: the value itself for
// numbers, the length for strings.
func magnitude(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.String:
		return float64(len([]rune(v.String()))), true
	}
	return 0, false
}

func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return v.IsZero()
}
