// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/dynenv/env"
	"github.com/stacklok/dynenv/policy"
	"github.com/stacklok/dynenv/resolve"
	"github.com/stacklok/dynenv/schema"
	"github.com/stacklok/dynenv/validation/name"
)

// ManifestPath is the manifest location relative to the XDG config
// directories.
var ManifestPath = filepath.Join("dynenv", "dynenv.yaml")

// ErrInvalidManifest wraps every manifest validation failure.
var ErrInvalidManifest = errors.New("invalid manifest")

// Variable types accepted in a manifest.
const (
	TypeString   = "string"
	TypeInt      = "int"
	TypeFloat    = "float"
	TypeBool     = "bool"
	TypeURL      = "url"
	TypeEnum     = "enum"
	TypeDuration = "duration"
	TypeJSON     = "json"
)

// Manifest declares the variables of an application.
//
//	varName: __ENV__
//	policy: warn
//	server:
//	  DATABASE_URL:
//	    type: url
//	    schemes: [postgres]
//	client:
//	  PORT:
//	    type: int
//	    min: 1
//	    max: 65535
//	    default: "3000"
//	  API_URL:
//	    type: url
//	    rule: value.startsWith("https://")
//	    message: must use https
//
// A manifest either lists server and client variables or carries a JSON
// Schema object under schema, never both.
type Manifest struct {
	VarName                string              `yaml:"varName,omitempty"`
	Policy                 string              `yaml:"policy,omitempty"`
	EmptyStringAsUndefined *bool               `yaml:"emptyStringAsUndefined,omitempty"`
	Server                 map[string]Variable `yaml:"server,omitempty"`
	Client                 map[string]Variable `yaml:"client,omitempty"`
	Schema                 map[string]any      `yaml:"schema,omitempty"`
}

// Variable declares one variable. A variable with neither type nor rule is
// passed through unvalidated.
type Variable struct {
	// From names the process variable to read. It defaults to the key.
	From     string   `yaml:"from,omitempty"`
	Type     string   `yaml:"type,omitempty"`
	Optional bool     `yaml:"optional,omitempty"`
	Default  *string  `yaml:"default,omitempty"`
	Min      *float64 `yaml:"min,omitempty"`
	Max      *float64 `yaml:"max,omitempty"`
	Values   []string `yaml:"values,omitempty"`
	Schemes  []string `yaml:"schemes,omitempty"`
	// Rule is a CEL expression over `value`.
	Rule    string `yaml:"rule,omitempty"`
	Message string `yaml:"message,omitempty"`
}

// FindManifest returns the first dynenv/dynenv.yaml found in the XDG
// config directories.
func FindManifest() (string, error) {
	p, err := xdg.SearchConfigFile(ManifestPath)
	if err != nil {
		return "", fmt.Errorf("no manifest found: %w", err)
	}
	return p, nil
}

// LoadManifest reads and validates the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path) // #nosec G304 - path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return ParseManifest(f)
}

// ParseManifest decodes and validates a manifest. Unknown fields are
// rejected.
func ParseManifest(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks names, types, rules and the schema without reading any
// variable.
func (m *Manifest) Validate() error {
	if m.VarName != "" {
		if err := name.ValidateSlot(m.VarName); err != nil {
			return fmt.Errorf("%w: varName: %w", ErrInvalidManifest, err)
		}
	}
	if _, err := policy.Parse(m.Policy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	if m.Schema != nil {
		if len(m.Server) > 0 || len(m.Client) > 0 {
			return fmt.Errorf("%w: schema cannot be combined with server or client variables", ErrInvalidManifest)
		}
		if _, err := m.JSONSchema(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
		return nil
	}

	for _, group := range []map[string]Variable{m.Server, m.Client} {
		for _, k := range sortedNames(group) {
			if err := name.ValidateVariable(k); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
			}
			if _, err := group[k].Validator(); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrInvalidManifest, k, err)
			}
		}
	}
	return nil
}

// HasSchema reports whether the manifest uses whole-object validation.
func (m *Manifest) HasSchema() bool {
	return m.Schema != nil
}

// ErrorPolicy returns the configured validation policy, or an unset one.
func (m *Manifest) ErrorPolicy() policy.Policy {
	p, _ := policy.Parse(m.Policy)
	return p
}

// Config reads every declared variable from r.
func (m *Manifest) Config(r env.Reader) (resolve.Config, error) {
	server, err := entries(m.Server, r)
	if err != nil {
		return resolve.Config{}, err
	}
	client, err := entries(m.Client, r)
	if err != nil {
		return resolve.Config{}, err
	}
	return resolve.Config{Server: server, Client: client}, nil
}

// JSONSchema compiles the manifest's schema.
func (m *Manifest) JSONSchema() (*schema.JSONSchema, error) {
	if m.Schema == nil {
		return nil, errors.New("manifest has no schema")
	}
	doc, err := json.Marshal(m.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	return schema.NewJSONSchema(doc)
}

// SchemaValues reads every property of the manifest's schema from r.
// Missing variables are left out.
func (m *Manifest) SchemaValues(r env.Reader) (map[string]string, error) {
	s, err := m.JSONSchema()
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	for _, k := range s.Properties() {
		if v, ok := r.LookupEnv(k); ok {
			out[k] = v
		}
	}
	return out, nil
}

// Validator builds the validator for v, or nil for a pass-through
// variable.
func (v Variable) Validator() (schema.Validator, error) {
	if v.Type == "" && v.Rule == "" {
		if v.Default != nil || v.Optional || v.Min != nil || v.Max != nil {
			return v.rule(schema.String())
		}
		return nil, nil
	}

	var base *schema.Rule
	switch v.Type {
	case "", TypeString:
		base = schema.String()
	case TypeInt:
		base = schema.Int()
	case TypeFloat:
		base = schema.Float()
	case TypeBool:
		base = schema.Bool()
	case TypeURL:
		base = schema.URL(v.Schemes...)
	case TypeEnum:
		if len(v.Values) == 0 {
			return nil, errors.New("enum requires values")
		}
		base = schema.Enum(v.Values...)
	case TypeDuration:
		base = schema.Duration()
	case TypeJSON:
		base = schema.JSON()
	default:
		return nil, fmt.Errorf("unknown type %q", v.Type)
	}
	return v.rule(base)
}

func (v Variable) rule(base *schema.Rule) (schema.Validator, error) {
	if v.Optional {
		base = base.Optional()
	}
	if v.Default != nil {
		base = base.Default(*v.Default)
	}
	if v.Min != nil {
		base = base.Min(*v.Min)
	}
	if v.Max != nil {
		base = base.Max(*v.Max)
	}
	if v.Rule == "" {
		return base, nil
	}

	expr, err := schema.CEL(v.Rule, v.Message)
	if err != nil {
		return nil, fmt.Errorf("invalid rule: %w", err)
	}
	return schema.All(base, expr), nil
}

func entries(vars map[string]Variable, r env.Reader) (resolve.Entries, error) {
	out := make(resolve.Entries, len(vars))
	for _, k := range sortedNames(vars) {
		v := vars[k]
		validator, err := v.Validator()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		from := v.From
		if from == "" {
			from = k
		}
		out[k] = resolve.Lookup(r, from, validator)
	}
	return out, nil
}

func sortedNames(vars map[string]Variable) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
