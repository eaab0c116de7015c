// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package dynenv

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/stacklok/dynenv/accessor"
	"github.com/stacklok/dynenv/env"
	"github.com/stacklok/dynenv/logging"
	"github.com/stacklok/dynenv/platform"
	"github.com/stacklok/dynenv/policy"
	"github.com/stacklok/dynenv/resolve"
	"github.com/stacklok/dynenv/schema"
	"github.com/stacklok/dynenv/slot"
	"github.com/stacklok/dynenv/validation/name"
)

// Env is the result of resolving a configuration.
type Env struct {
	// All reads every declared variable. In the browser, server-only
	// variables are denied.
	All *accessor.Accessor
	// Client reads the client-exposed variables.
	Client *accessor.Accessor
	// Server reads the server-only variables. In the browser every read is
	// denied.
	Server *accessor.Accessor
	// Errors lists the variables that failed validation under a
	// non-throwing policy.
	Errors []resolve.KeyError
}

type options struct {
	policy                 policy.Policy
	skipValidation         bool
	emptyStringAsUndefined bool
	reader                 env.Reader
	sensor                 platform.Sensor
	mode                   *platform.Mode
	store                  slot.Store
	varName                string
	accessPolicy           policy.Policy
	runtimePolicy          policy.Policy
	logger                 *slog.Logger
}

// Option configures New and NewWithSchema.
type Option func(*options)

// WithPolicy sets the policy for validation failures. It defaults to
// policy.Throw.
func WithPolicy(p policy.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithSkipValidation runs validators as transforms only and never reports
// failures. Validation is also skipped during the build phase.
func WithSkipValidation(skip bool) Option {
	return func(o *options) {
		o.skipValidation = skip
	}
}

// WithEmptyStringAsUndefined controls whether "" counts as unset. It
// defaults to true.
func WithEmptyStringAsUndefined(b bool) Option {
	return func(o *options) {
		o.emptyStringAsUndefined = b
	}
}

// WithEnvReader sets where the build mode and build phase are read from.
// It defaults to the process environment.
func WithEnvReader(r env.Reader) Option {
	return func(o *options) {
		o.reader = r
	}
}

// WithSensor sets the execution-context sensor.
func WithSensor(s platform.Sensor) Option {
	return func(o *options) {
		o.sensor = s
	}
}

// WithMode overrides the build mode read from the environment.
func WithMode(m platform.Mode) Option {
	return func(o *options) {
		o.mode = &m
	}
}

// WithStore sets the store holding injected values in the browser.
func WithStore(s slot.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithVarName sets the global slot name.
func WithVarName(varName string) Option {
	return func(o *options) {
		o.varName = varName
	}
}

// WithAccessPolicy sets the policy for server-only reads in the browser.
func WithAccessPolicy(p policy.Policy) Option {
	return func(o *options) {
		o.accessPolicy = p
	}
}

// WithRuntimePolicy sets the policy for injected values that fail
// re-validation.
func WithRuntimePolicy(p policy.Policy) Option {
	return func(o *options) {
		o.runtimePolicy = p
	}
}

// WithLogger sets the logger for warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		policy:                 policy.Throw,
		emptyStringAsUndefined: true,
		reader:                 &env.OSReader{},
		sensor:                 platform.Runtime,
		varName:                slot.DefaultVarName,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.sensor == nil {
		o.sensor = platform.Runtime
	}
	o.logger = logging.OrDefault(o.logger)
	return o
}

func (o *options) buildMode() platform.Mode {
	if o.mode != nil {
		return *o.mode
	}
	return platform.ModeFrom(o.reader)
}

func (o *options) skip() bool {
	return o.skipValidation || platform.IsBuildPhase(o.reader)
}

func (o *options) accessorOptions(validators map[string]schema.Validator) []accessor.Option {
	return []accessor.Option{
		accessor.WithSensor(o.sensor),
		accessor.WithMode(o.buildMode()),
		accessor.WithStore(o.store),
		accessor.WithVarName(o.varName),
		accessor.WithAccessPolicy(o.accessPolicy),
		accessor.WithRuntimePolicy(o.runtimePolicy),
		accessor.WithValidators(validators),
		accessor.WithLogger(o.logger),
	}
}

func (o *options) validateNames(keys []string) error {
	if err := name.ValidateSlot(o.varName); err != nil {
		return fmt.Errorf("invalid slot name: %w", err)
	}
	for _, k := range keys {
		if err := name.ValidateVariable(k); err != nil {
			return fmt.Errorf("invalid variable %q: %w", k, err)
		}
		if !name.IsConventional(k) {
			o.logger.Debug("variable name is not UPPER_SNAKE_CASE", "key", k)
		}
	}
	return nil
}

// New resolves server and client variables and returns accessors over
// them.
//
// On the server every variable is validated and transformed; failures are
// handled by the policy, so under policy.Throw a *resolve.ValidationError
// is returned. In the browser nothing is resolved: client values come from
// the injected slot at read time.
func New(server, client resolve.Entries, opts ...Option) (*Env, error) {
	o := newOptions(opts)
	cfg := resolve.Config{Server: server, Client: client}
	if err := o.validateNames(cfg.Keys()); err != nil {
		return nil, err
	}

	var res resolve.Resolved
	if !o.sensor.IsBrowser() {
		var err error
		res, err = resolve.Resolve(cfg, resolve.Options{
			Policy:                 o.policy,
			SkipValidation:         o.skip(),
			EmptyStringAsUndefined: o.emptyStringAsUndefined,
			Logger:                 o.logger,
		})
		if err != nil {
			return nil, err
		}
	} else {
		// Nothing is resolved in the browser, but collisions are still
		// reported.
		resolve.Merge(server, client, o.logger)
	}

	validators := server.Validators()
	maps.Copy(validators, client.Validators())
	serverOnly := cfg.ServerOnly()
	clientKeys := client.Keys()

	base := o.accessorOptions(validators)
	e := &Env{
		All: accessor.New(res.Processed, res.Raw,
			append(base, accessor.WithServerKeys(serverOnly...), accessor.WithClientKeys(clientKeys...))...),
		Client: accessor.NewClient(
			subset(res.Processed, clientKeys), subset(res.Raw, clientKeys),
			append(base, accessor.WithClientKeys(clientKeys...))...),
		Server: accessor.NewServer(
			subset(res.Processed, serverOnly), subset(res.Raw, serverOnly),
			append(base, accessor.WithServerKeys(serverOnly...))...),
		Errors: res.Errors,
	}
	return e, nil
}

// NewWithSchema validates values as one object against s. Every schema
// property is client-exposed.
//
// On failure the policy decides; under a non-throwing policy the accessor
// serves the original values unvalidated. Injected values read in the
// browser are re-validated against the property's own schema.
func NewWithSchema(values map[string]string, s *schema.JSONSchema, opts ...Option) (*accessor.Accessor, error) {
	if s == nil {
		return nil, errors.New("a schema is required")
	}
	o := newOptions(opts)
	keys := s.Properties()
	if err := o.validateNames(keys); err != nil {
		return nil, err
	}

	validators := make(map[string]schema.Validator, len(keys))
	for _, k := range keys {
		if v, ok := s.Field(k); ok {
			validators[k] = v
		}
	}

	raw := make(map[string]any, len(values))
	for k, v := range values {
		raw[k] = v
	}

	processed := map[string]any{}
	if !o.sensor.IsBrowser() {
		var err error
		processed, err = resolve.ResolveObject(
			resolve.ToValues(values, o.emptyStringAsUndefined), s, o.policy, o.skip(), o.logger)
		if err != nil {
			return nil, err
		}
	}

	return accessor.NewClient(processed, raw,
		append(o.accessorOptions(validators), accessor.WithClientKeys(keys...))...), nil
}

func subset(m map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}
