// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package waitfor

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/stacklok/dynenv/cel"
	"github.com/stacklok/dynenv/logging"
	"github.com/stacklok/dynenv/platform"
	"github.com/stacklok/dynenv/slot"
	"github.com/stacklok/dynenv/validation/name"
)

const (
	// DefaultTimeout is the length of the first wait window.
	DefaultTimeout = 5 * time.Second
	// DefaultInterval is the poll interval.
	DefaultInterval = 50 * time.Millisecond
	// DefaultBackoffMultiplier grows the window on every retry.
	DefaultBackoffMultiplier = 2.0
)

var envEngine = cel.NewEnvEngine()

type options struct {
	timeout    time.Duration
	interval   time.Duration
	varName    string
	retries    int
	multiplier float64
	required   []string
	condition  func(map[string]any) bool
	expression string
	program    *cel.Program

	onReady       func(map[string]any)
	onTimeout     func()
	onRetry       func(attempt int, next time.Duration)
	onPartialLoad func(present, missing []string)

	store  slot.Store
	sensor platform.Sensor
	clock  clock.Clock
	logger *slog.Logger
	debug  bool
	hooks  timerHooks
}

// timerHooks observe every armed and stopped timer.
type timerHooks struct {
	armed   func(kind string)
	cleared func(kind string)
}

// Option configures a wait.
type Option func(*options)

// WithTimeout sets the first wait window. It must be positive.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithInterval sets the poll interval. It must be positive and shorter than
// the timeout.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithVarName sets the global slot to wait for.
func WithVarName(varName string) Option {
	return func(o *options) {
		o.varName = varName
	}
}

// WithRetries sets how many extra windows follow the first one.
func WithRetries(n int) Option {
	return func(o *options) {
		o.retries = n
	}
}

// WithBackoffMultiplier sets the factor applied to the window on each
// retry. It must be at least 1.
func WithBackoffMultiplier(m float64) Option {
	return func(o *options) {
		o.multiplier = m
	}
}

// WithRequiredKeys makes the slot ready only once every key is present.
func WithRequiredKeys(keys ...string) Option {
	return func(o *options) {
		o.required = append(o.required, keys...)
	}
}

// WithCondition adds a predicate over the slot's values. A panicking
// predicate counts as not ready.
func WithCondition(fn func(map[string]any) bool) Option {
	return func(o *options) {
		o.condition = fn
	}
}

// WithExpression adds a CEL predicate over the slot's values, bound to
// `env`:
//
//	"API_URL" in env && env.API_URL.startsWith("https://")
func WithExpression(expr string) Option {
	return func(o *options) {
		o.expression = expr
	}
}

// OnReady is called once with the slot's values when the wait succeeds.
func OnReady(fn func(map[string]any)) Option {
	return func(o *options) {
		o.onReady = fn
	}
}

// OnTimeout is called once when the last window expires.
func OnTimeout(fn func()) Option {
	return func(o *options) {
		o.onTimeout = fn
	}
}

// OnRetry is called before every retry with the 1-based retry number and
// the length of the next window.
func OnRetry(fn func(attempt int, next time.Duration)) Option {
	return func(o *options) {
		o.onRetry = fn
	}
}

// OnPartialLoad is called when the slot exists but required keys are
// missing. It fires again only when the set of present or missing keys
// changes.
func OnPartialLoad(fn func(present, missing []string)) Option {
	return func(o *options) {
		o.onPartialLoad = fn
	}
}

// WithStore sets the store the slot is read from. It defaults to
// slot.Global().
func WithStore(s slot.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithSensor sets the execution-context sensor. It defaults to
// platform.Runtime.
func WithSensor(s platform.Sensor) Option {
	return func(o *options) {
		o.sensor = s
	}
}

// WithClock sets the clock driving the poll and timeout timers.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger for progress and failure messages.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDebug logs every poll at INFO level instead of DEBUG.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

func withHooks(h timerHooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		timeout:    DefaultTimeout,
		interval:   DefaultInterval,
		varName:    slot.DefaultVarName,
		multiplier: DefaultBackoffMultiplier,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = slot.Global()
	}
	if o.sensor == nil {
		o.sensor = platform.Runtime
	}
	if o.clock == nil {
		o.clock = clock.New()
	}
	o.logger = logging.OrDefault(o.logger)
	if o.hooks.armed == nil {
		o.hooks.armed = func(string) {}
	}
	if o.hooks.cleared == nil {
		o.hooks.cleared = func(string) {}
	}
	return o
}

// validate checks the options before any timer is armed.
func (o *options) validate() error {
	if o.timeout <= 0 {
		return validationError("Timeout must be greater than 0", o, nil)
	}
	if o.interval <= 0 || o.interval >= o.timeout {
		return validationError("Interval must be greater than 0 and less than timeout", o, nil)
	}
	if o.varName == "" {
		return validationError("Variable name must be a non-empty string", o, nil)
	}
	if err := name.ValidateSlot(o.varName); err != nil {
		return validationError("Variable name must be a JavaScript identifier", o, err)
	}
	if o.retries < 0 {
		return validationError("Retries must be 0 or greater", o, nil)
	}
	if o.multiplier < 1 {
		return validationError("Backoff multiplier must be at least 1", o, nil)
	}
	if o.expression != "" {
		prg, err := envEngine.Compile(o.expression)
		if err != nil {
			return validationError("Condition expression is invalid", o, err)
		}
		o.program = prg
	}
	return nil
}
