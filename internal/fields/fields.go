// Package fields validates and resolves the typed field values of content records.
package fields

import (
	"fmt"
	"maps"
	"slices"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

// Resolver maps a raw extracted value to its final value. raw is nil when the
// source did not provide the field; a resolver may supply a default.
type Resolver func(raw any) (any, error)

// Spec declares one field of a pipeline schema.
type Spec struct {
	Type     Type
	Required bool
	Resolve  Resolver
}

// Schema is a validated set of field specs, including the default fields.
type Schema struct {
	specs map[string]Spec
	names []string
}

// Defaults are merged beneath every declared schema.
func Defaults() map[string]Spec {
	return map[string]Spec{
		"title":       {Type: TypeString},
		"description": {Type: TypeString},
	}
}

// NewSchema merges declared specs over Defaults. Unknown type tags are a
// ConfigError.
func NewSchema(declared map[string]Spec) (*Schema, error) {
	specs := Defaults()
	maps.Copy(specs, declared)
	for name, spec := range specs {
		if !spec.Type.Known() {
			return nil, ferrors.ConfigError(fmt.Sprintf("field %q has unknown type %q", name, spec.Type)).
				WithContext("field", name).
				Build()
		}
	}
	return &Schema{specs: specs, names: slices.Sorted(maps.Keys(specs))}, nil
}

// Names returns the declared field names in sorted order.
func (s *Schema) Names() []string {
	return slices.Clone(s.names)
}

// Spec returns the spec of a field.
func (s *Schema) Spec(name string) (Spec, bool) {
	spec, ok := s.specs[name]
	return spec, ok
}

// Apply produces the final field map for one record of file. Declared fields
// are resolved, coerced and checked in name order so the first reported
// error is deterministic. Raw fields without a spec pass through unchanged.
// raw is never modified.
func (s *Schema) Apply(file string, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(raw)+len(s.specs))
	maps.Copy(out, raw)

	for _, name := range s.names {
		spec := s.specs[name]
		value, present := raw[name]
		if !present {
			value = nil
		}

		if spec.Resolve != nil {
			resolved, err := spec.Resolve(value)
			if err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryValidation, fmt.Sprintf("resolve field %q", name)).
					WithContext("field", name).
					WithContext("file", file).
					Build()
			}
			value = resolved
		}

		if value != nil {
			coerced, ok := spec.Type.Coerce(value)
			if !ok {
				return nil, ferrors.FieldTypeError(name, file, string(spec.Type)).Build()
			}
			value = coerced
		}

		if value == nil {
			if spec.Required {
				return nil, ferrors.FieldValidationError(name, file).Build()
			}
			delete(out, name)
			continue
		}
		out[name] = value
	}
	return out, nil
}

// Default returns a Resolver that substitutes v when the raw value is absent.
func Default(v any) Resolver {
	return func(raw any) (any, error) {
		if raw == nil {
			return v, nil
		}
		return raw, nil
	}
}
