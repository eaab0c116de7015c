// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package inject

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/stacklok/dynenv/accessor"
	"github.com/stacklok/dynenv/env"
	"github.com/stacklok/dynenv/httperr"
	"github.com/stacklok/dynenv/logging"
	"github.com/stacklok/dynenv/platform"
	"github.com/stacklok/dynenv/recovery"
	"github.com/stacklok/dynenv/slot"
	vhttp "github.com/stacklok/dynenv/validation/http"
	"github.com/stacklok/dynenv/validation/name"
)

// Source produces the values to inject for a request.
type Source func(r *http.Request) (map[string]any, error)

// FromAccessor injects the raw client-safe values of a.
func FromAccessor(a *accessor.Accessor) Source {
	return func(*http.Request) (map[string]any, error) {
		return a.Raw(), nil
	}
}

// Static injects a fixed set of values.
func Static(values map[string]any) Source {
	return func(*http.Request) (map[string]any, error) {
		return values, nil
	}
}

// Injector renders injected values as a script.
type Injector struct {
	varName      string
	id           string
	nonce        string
	mode         platform.Mode
	onMissingVar func(key string)
	headers      map[string]string
	logger       *slog.Logger
}

// Option configures an Injector.
type Option func(*Injector)

// WithVarName sets the global slot name. It defaults to slot.DefaultVarName.
func WithVarName(varName string) Option {
	return func(i *Injector) {
		i.varName = varName
	}
}

// WithID sets the id attribute of rendered tags.
func WithID(id string) Option {
	return func(i *Injector) {
		i.id = id
	}
}

// WithNonce sets the nonce attribute of rendered tags.
func WithNonce(nonce string) Option {
	return func(i *Injector) {
		i.nonce = nonce
	}
}

// WithMode sets the build mode. It defaults to the mode read from the
// process environment.
func WithMode(m platform.Mode) Option {
	return func(i *Injector) {
		i.mode = m
	}
}

// OnMissingVar registers fn to be called, in development only, for every
// key whose value is nil or empty.
func OnMissingVar(fn func(key string)) Option {
	return func(i *Injector) {
		i.onMissingVar = fn
	}
}

// WithHeader adds a response header to the script handler.
func WithHeader(key, value string) Option {
	return func(i *Injector) {
		i.headers[key] = value
	}
}

// WithLogger sets the logger for filtered values and handler failures.
func WithLogger(l *slog.Logger) Option {
	return func(i *Injector) {
		i.logger = l
	}
}

// New creates an Injector. It fails when the slot name is not a plain
// identifier or a header is malformed.
func New(opts ...Option) (*Injector, error) {
	i := &Injector{
		varName: slot.DefaultVarName,
		id:      DefaultScriptID,
		mode:    platform.ModeFrom(&env.OSReader{}),
		headers: map[string]string{},
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = logging.OrDefault(i.logger)

	if err := name.ValidateSlot(i.varName); err != nil {
		return nil, err
	}
	for k, v := range i.headers {
		if err := vhttp.ValidateHeaderName(k); err != nil {
			return nil, fmt.Errorf("header %q: %w", k, err)
		}
		if err := vhttp.ValidateHeaderValue(v); err != nil {
			return nil, fmt.Errorf("header %q: %w", k, err)
		}
	}
	return i, nil
}

// Snapshot reports missing variables in development and returns the
// filtered values.
func (i *Injector) Snapshot(values map[string]any) map[string]any {
	if i.mode.IsDevelopment() && i.onMissingVar != nil {
		for _, key := range MissingVars(values) {
			i.onMissingVar(key)
		}
	}
	return Snapshot(values, i.logger)
}

// Script returns the assignment statement for values.
func (i *Injector) Script(values map[string]any) (string, error) {
	return Script(i.varName, i.Snapshot(values))
}

// Tag returns the script element for values.
func (i *Injector) Tag(values map[string]any) (string, error) {
	return Tag(i.id, i.nonce, i.varName, i.Snapshot(values))
}

// Handler serves the script for src as application/javascript. Responses
// carry a content digest as ETag and honour If-None-Match.
func (i *Injector) Handler(src Source) http.Handler {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := i.serve(w, r, src); err != nil {
			httperr.Write(w, err, i.logger)
		}
	})
	return recovery.Middleware(i.logger)(h)
}

func (i *Injector) serve(w http.ResponseWriter, r *http.Request, src Source) error {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		return httperr.New("method not allowed", http.StatusMethodNotAllowed)
	}

	values, err := src(r)
	if err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}
	body, err := i.Script(values)
	if err != nil {
		return err
	}

	etag := `"` + digest.FromString(body).Encoded() + `"`
	for k, v := range i.headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", etag)

	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return nil
	}
	if _, err := w.Write([]byte(body)); err != nil {
		i.logger.Debug("failed to write script response", "error", err)
	}
	return nil
}

func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
