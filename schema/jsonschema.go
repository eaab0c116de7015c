// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ObjectValidator validates a whole environment mapping at once.
type ObjectValidator interface {
	ValidateObject(values map[string]any) Result
}

// JSONSchemaOption configures a JSONSchema.
type JSONSchemaOption func(*JSONSchema)

// StripUnknown drops keys that the schema does not declare under
// "properties" from the validated output.
func StripUnknown() JSONSchemaOption {
	return func(s *JSONSchema) {
		s.stripUnknown = true
	}
}

// NoCoercion validates string values as they are, without converting them
// to the declared property types first.
func NoCoercion() JSONSchemaOption {
	return func(s *JSONSchema) {
		s.coerce = false
	}
}

// JSONSchema validates environment mappings against a JSON Schema document.
// It is safe for concurrent use.
type JSONSchema struct {
	schema       *gojsonschema.Schema
	properties   map[string]map[string]any
	required     map[string]bool
	stripUnknown bool
	coerce       bool
}

// NewJSONSchema compiles doc. The document must describe an object.
func NewJSONSchema(doc []byte, opts ...JSONSchemaOption) (*JSONSchema, error) {
	var raw map[string]any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON schema: %w", err)
	}
	if t, ok := raw["type"]; ok && !hasType(t, "object") {
		return nil, fmt.Errorf("invalid JSON schema: root type must be object, got %v", t)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to compile JSON schema: %w", err)
	}

	s := &JSONSchema{
		schema:     compiled,
		properties: map[string]map[string]any{},
		required:   map[string]bool{},
		coerce:     true,
	}
	if props, ok := raw["properties"].(map[string]any); ok {
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.properties[name] = pm
			}
		}
	}
	if req, ok := raw["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.required[name] = true
			}
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Properties returns the declared property names in sorted order.
func (s *JSONSchema) Properties() []string {
	names := make([]string, 0, len(s.properties))
	for name := range s.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateObject implements ObjectValidator. Nil values are treated as
// absent. On success Value holds the coerced mapping.
func (s *JSONSchema) ValidateObject(values map[string]any) Result {
	doc := make(map[string]any, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		prop, declared := s.properties[k]
		if s.stripUnknown && !declared {
			continue
		}
		if s.coerce && declared {
			v = coerce(v, prop["type"])
		}
		doc[k] = v
	}

	res, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return Fail(fmt.Sprintf("schema validation failed: %v", err))
	}
	if !res.Valid() {
		return Result{Issues: resultIssues(res.Errors())}
	}
	return Ok(doc)
}

// Field returns a validator for a single declared property, used to
// re-validate values read back from the injected slot. It reports false
// when the property is not declared.
func (s *JSONSchema) Field(key string) (Validator, bool) {
	prop, ok := s.properties[key]
	if !ok {
		return nil, false
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(prop))
	if err != nil {
		return Func(func(any) Result {
			return Fail(fmt.Sprintf("invalid schema for %s: %v", key, err))
		}), true
	}
	required := s.required[key]
	coerceOn := s.coerce

	return Func(func(value any) Result {
		if value == nil {
			if required {
				return Fail("Required")
			}
			return Ok(nil)
		}
		if coerceOn {
			value = coerce(value, prop["type"])
		}
		res, err := compiled.Validate(gojsonschema.NewGoLoader(value))
		if err != nil {
			return Fail(fmt.Sprintf("schema validation failed: %v", err))
		}
		if !res.Valid() {
			issues := resultIssues(res.Errors())
			for i := range issues {
				issues[i].Path = nil
			}
			return Result{Issues: issues}
		}
		return Ok(value)
	}), true
}

func resultIssues(errs []gojsonschema.ResultError) []Issue {
	issues := make([]Issue, 0, len(errs))
	for _, e := range errs {
		if e.Type() == "required" {
			if prop, ok := e.Details()["property"].(string); ok {
				issues = append(issues, Issue{Message: "Required", Path: []string{prop}})
				continue
			}
		}
		var path []string
		if f := e.Field(); f != "" && f != RootPath {
			path = strings.Split(f, ".")
		}
		issues = append(issues, Issue{Message: e.Description(), Path: path})
	}
	return issues
}

// coerce converts a string to the first declared non-string type it parses
// as. Values that do not parse are left alone so the schema reports them.
func coerce(v any, typ any) any {
	s, ok := v.(string)
	if !ok || typ == nil || hasType(typ, "string") {
		return v
	}
	for _, t := range typeList(typ) {
		switch t {
		case "integer":
			if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
				return n
			}
		case "number":
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		case "boolean":
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return b
			}
		case "array", "object":
			var out any
			if err := json.Unmarshal([]byte(s), &out); err == nil {
				return out
			}
		}
	}
	return v
}

func typeList(typ any) []string {
	switch t := typ.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func hasType(typ any, want string) bool {
	for _, t := range typeList(typ) {
		if t == want {
			return true
		}
	}
	return false
}
