// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package accessor

import (
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"

	"github.com/stacklok/dynenv/env"
	"github.com/stacklok/dynenv/logging"
	"github.com/stacklok/dynenv/platform"
	"github.com/stacklok/dynenv/policy"
	"github.com/stacklok/dynenv/resolve"
	"github.com/stacklok/dynenv/schema"
	"github.com/stacklok/dynenv/slot"
)

type split int

const (
	splitNone split = iota
	splitClient
	splitServer
)

// AccessError is returned when a server-only variable is read from the
// browser under a throwing policy.
type AccessError struct {
	Key        string
	ServerKeys []string
}

// Error implements the error interface.
func (e *AccessError) Error() string {
	return fmt.Sprintf(
		"Attempted to access server-only environment variable %q on the client. "+
			"Server-only variables (%s) are not available in the browser. "+
			"If you need this value on the client, move it to the client variables in your configuration.",
		e.Key, strings.Join(e.ServerKeys, ", "))
}

// Accessor is a read-only view over resolved values. Whether a read returns
// the resolved value, an injected runtime value or nothing depends on the
// execution context at the time of the read and on how the key is
// classified. An Accessor is immutable and safe for concurrent use.
type Accessor struct {
	processed  map[string]any
	raw        map[string]any
	clientKeys map[string]struct{}
	serverKeys map[string]struct{}
	serverList []string
	validators map[string]schema.Validator

	sensor        platform.Sensor
	mode          platform.Mode
	store         slot.Store
	varName       string
	accessPolicy  policy.Policy
	runtimePolicy policy.Policy
	logger        *slog.Logger
	split         split
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithClientKeys classifies keys as client-exposed.
func WithClientKeys(keys ...string) Option {
	return func(a *Accessor) {
		for _, k := range keys {
			a.clientKeys[k] = struct{}{}
		}
	}
}

// WithServerKeys classifies keys as server-only.
func WithServerKeys(keys ...string) Option {
	return func(a *Accessor) {
		for _, k := range keys {
			a.serverKeys[k] = struct{}{}
		}
	}
}

// WithValidators sets the per-key validators used to re-validate injected
// runtime values.
func WithValidators(v map[string]schema.Validator) Option {
	return func(a *Accessor) {
		maps.Copy(a.validators, v)
	}
}

// WithSensor sets the execution-context sensor. It defaults to
// platform.Runtime.
func WithSensor(s platform.Sensor) Option {
	return func(a *Accessor) {
		if s != nil {
			a.sensor = s
		}
	}
}

// WithMode sets the build mode that selects default policies. It defaults
// to the mode read from the process environment.
func WithMode(m platform.Mode) Option {
	return func(a *Accessor) {
		a.mode = m
	}
}

// WithStore sets the store holding injected values. It defaults to
// slot.Global().
func WithStore(s slot.Store) Option {
	return func(a *Accessor) {
		if s != nil {
			a.store = s
		}
	}
}

// WithVarName sets the global slot name. It defaults to slot.DefaultVarName.
func WithVarName(name string) Option {
	return func(a *Accessor) {
		if name != "" {
			a.varName = name
		}
	}
}

// WithAccessPolicy sets the policy applied when a server-only key is read
// in the browser.
func WithAccessPolicy(p policy.Policy) Option {
	return func(a *Accessor) {
		a.accessPolicy = p
	}
}

// WithRuntimePolicy sets the policy applied when an injected value fails
// re-validation.
func WithRuntimePolicy(p policy.Policy) Option {
	return func(a *Accessor) {
		a.runtimePolicy = p
	}
}

// WithLogger sets the logger used by warning policies.
func WithLogger(l *slog.Logger) Option {
	return func(a *Accessor) {
		a.logger = l
	}
}

// New creates an accessor over processed values and their raw literals.
// Keys that are neither client nor server classified are unclassified and
// behave like client keys.
func New(processed, raw map[string]any, opts ...Option) *Accessor {
	a := &Accessor{
		processed:  maps.Clone(processed),
		raw:        maps.Clone(raw),
		clientKeys: map[string]struct{}{},
		serverKeys: map[string]struct{}{},
		validators: map[string]schema.Validator{},
		sensor:     platform.Runtime,
		mode:       platform.ModeFrom(&env.OSReader{}),
		store:      slot.Global(),
		varName:    slot.DefaultVarName,
	}
	if a.processed == nil {
		a.processed = map[string]any{}
	}
	if a.raw == nil {
		a.raw = map[string]any{}
	}
	for _, opt := range opts {
		opt(a)
	}

	a.serverList = make([]string, 0, len(a.serverKeys))
	for k := range a.serverKeys {
		a.serverList = append(a.serverList, k)
	}
	sort.Strings(a.serverList)
	return a
}

// NewClient creates the client half of a split configuration. Every key is
// client-exposed.
func NewClient(processed, raw map[string]any, opts ...Option) *Accessor {
	opts = append([]Option{WithClientKeys(unionKeys(processed, raw)...)}, opts...)
	a := New(processed, raw, opts...)
	a.split = splitClient
	return a
}

// NewServer creates the server half of a split configuration. Every key is
// server-only.
func NewServer(processed, raw map[string]any, opts ...Option) *Accessor {
	opts = append([]Option{WithServerKeys(unionKeys(processed, raw)...)}, opts...)
	a := New(processed, raw, opts...)
	a.split = splitServer
	return a
}

// Get returns the value of key.
//
// On the server it returns the resolved value. In the browser a server-only
// key is denied according to the access policy, and any other key prefers
// the injected runtime value, re-validated with the key's validator, over
// the resolved one. An empty key, like an unknown one, yields nil.
func (a *Accessor) Get(key string) (any, error) {
	if key == "" {
		return nil, nil
	}

	if !a.sensor.IsBrowser() {
		return a.processed[key], nil
	}

	if _, ok := a.serverKeys[key]; ok {
		err := &AccessError{Key: key, ServerKeys: a.serverList}
		p := a.accessPolicy.Or(policy.ForMode(a.mode))
		return nil, p.Handle(err, a.logger, "key", key)
	}

	if injected, ok := slot.Read(a.store, a.varName); ok {
		if v, present := injected[key]; present && v != nil {
			return a.revalidate(key, v)
		}
	}
	return a.processed[key], nil
}

func (a *Accessor) revalidate(key string, v any) (any, error) {
	validator, ok := a.validators[key]
	if !ok {
		return v, nil
	}
	out, err := schema.Run(validator, v)
	if err == nil {
		return out, nil
	}

	p := a.runtimePolicy.Or(policy.ForMode(a.mode))
	if herr := p.Handle(resolve.KeyError{Key: key, Err: err}, a.logger, "key", key); herr != nil {
		return nil, herr
	}
	return v, nil
}

// Lookup returns the value of key and whether it is set. Errors read as
// unset.
func (a *Accessor) Lookup(key string) (any, bool) {
	v, err := a.Get(key)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the value of key formatted as a string. Unset keys yield
// the empty string.
func (a *Accessor) String(key string) (string, error) {
	v, err := a.Get(key)
	if err != nil || v == nil {
		return "", err
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

// Keys returns the variable names visible in the current context in sorted
// order. In the browser server-only keys are excluded and injected keys are
// included.
func (a *Accessor) Keys() []string {
	seen := make(map[string]struct{}, len(a.processed))
	for k := range a.processed {
		seen[k] = struct{}{}
	}

	if a.sensor.IsBrowser() {
		if injected, ok := slot.Read(a.store, a.varName); ok {
			for k := range injected {
				seen[k] = struct{}{}
			}
		}
		for k := range a.serverKeys {
			delete(seen, k)
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a fresh copy of every visible key and its value. Changing it
// does not affect the accessor.
func (a *Accessor) Map() map[string]any {
	keys := a.Keys()
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v, err := a.Get(k)
		if err != nil {
			continue
		}
		out[k] = v
	}
	return out
}

// Raw returns a copy of the pre-validation literals, suitable for
// injection. In the browser it only contains client keys.
func (a *Accessor) Raw() map[string]any {
	if !a.sensor.IsBrowser() {
		return maps.Clone(a.raw)
	}
	out := make(map[string]any, len(a.clientKeys))
	for k, v := range a.raw {
		if _, ok := a.clientKeys[k]; ok {
			out[k] = v
		}
	}
	return out
}

// IsClient reports whether a is the client half of a split configuration.
func (a *Accessor) IsClient() bool {
	return a.split == splitClient
}

// IsServer reports whether a is the server half of a split configuration.
func (a *Accessor) IsServer() bool {
	return a.split == splitServer
}

// VarName returns the global slot name a reads injected values from.
func (a *Accessor) VarName() string {
	return a.varName
}

// Logger returns the logger used for warnings.
func (a *Accessor) Logger() *slog.Logger {
	return logging.OrDefault(a.logger)
}

func unionKeys(ms ...map[string]any) []string {
	var keys []string
	seen := map[string]struct{}{}
	for _, m := range ms {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}
