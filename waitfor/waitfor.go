// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package waitfor

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/stacklok/dynenv/cel"
	"github.com/stacklok/dynenv/slot"
)

// Pending is one wait in progress. It completes exactly once.
type Pending struct {
	done   chan struct{}
	once   sync.Once
	values map[string]any
	err    error
}

// Done is closed when the wait completes.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the wait completes and returns the slot's values or
// the failure.
func (p *Pending) Wait() (map[string]any, error) {
	<-p.done
	return p.values, p.err
}

func (p *Pending) finish(values map[string]any, err error) {
	p.once.Do(func() {
		p.values = values
		p.err = err
		close(p.done)
	})
}

// Start begins waiting for the global slot to become ready.
//
// Invalid options are reported synchronously as an *Error with
// CodeValidation, before any timer exists. On the server the returned wait
// has already completed with an empty map. In the browser the slot is
// checked once immediately; if it is not ready a goroutine polls it until
// it is, or until the timeout and retry budget is spent.
func Start(opts ...Option) (*Pending, error) {
	o := newOptions(opts)
	if err := o.validate(); err != nil {
		return nil, err
	}

	p := &Pending{done: make(chan struct{})}

	if !o.sensor.IsBrowser() {
		empty := map[string]any{}
		if o.onReady != nil {
			o.onReady(empty)
		}
		p.finish(empty, nil)
		return p, nil
	}

	w := newWaiter(o)
	if w.immediate(p) {
		return p, nil
	}

	go w.run(p)
	return p, nil
}

// Wait starts a wait and blocks until it completes.
func Wait(opts ...Option) (map[string]any, error) {
	p, err := Start(opts...)
	if err != nil {
		return nil, err
	}
	return p.Wait()
}

type waiter struct {
	o           *options
	schedule    *backoff.ExponentialBackOff
	polls       int
	seen        bool
	lastPartial string
	lastMissing []string
}

func newWaiter(o *options) *waiter {
	// Each retry window is the previous one times the multiplier, so the
	// schedule must be deterministic and never give up on its own.
	b := &backoff.ExponentialBackOff{
		InitialInterval:     o.timeout,
		RandomizationFactor: 0,
		Multiplier:          o.multiplier,
		MaxInterval:         time.Duration(math.MaxInt64),
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               o.clock,
	}
	b.Reset()
	return &waiter{o: o, schedule: b}
}

func (w *waiter) logf(format string, args ...any) {
	msg := "[waitForEnv] " + fmt.Sprintf(format, args...)
	if w.o.debug {
		w.o.logger.Info(msg, "var", w.o.varName)
		return
	}
	w.o.logger.Debug(msg, "var", w.o.varName)
}

// immediate checks the slot once on the caller's goroutine and reports
// whether p has completed. A panicking callback completes p with
// ErrCallbackPanic.
func (w *waiter) immediate(p *Pending) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			p.finish(nil, fmt.Errorf("%w: %v", ErrCallbackPanic, r))
			done = true
		}
	}()

	values, ok := w.check()
	if !ok {
		return false
	}
	w.ready(p, values)
	return true
}

// run owns every timer of the wait. It only returns once the wait has
// completed.
func (w *waiter) run(p *Pending) {
	defer func() {
		if r := recover(); r != nil {
			p.finish(nil, fmt.Errorf("%w: %v", ErrCallbackPanic, r))
		}
	}()

	timeout := w.schedule.NextBackOff()
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if values, ok := w.check(); ok {
				w.ready(p, values)
				return
			}
		}

		if values, ok := w.window(timeout); ok {
			w.ready(p, values)
			return
		}

		if attempt < w.o.retries {
			next := w.schedule.NextBackOff()
			w.logf("Timeout reached, retrying (attempt %d/%d, next timeout: %s)", attempt+2, w.o.retries+1, next)
			if w.o.onRetry != nil {
				w.o.onRetry(attempt+1, next)
			}
			timeout = next
			continue
		}

		w.timedOut(p, timeout, attempt+1)
		return
	}
}

// window polls at the configured interval until the slot is ready or the
// timeout fires. Both timers are stopped on every return path.
func (w *waiter) window(timeout time.Duration) (map[string]any, bool) {
	ticker := w.o.clock.Ticker(w.o.interval)
	w.o.hooks.armed("interval")
	timer := w.o.clock.Timer(timeout)
	w.o.hooks.armed("timeout")
	defer func() {
		ticker.Stop()
		w.o.hooks.cleared("interval")
		timer.Stop()
		w.o.hooks.cleared("timeout")
	}()

	for {
		select {
		case <-ticker.C:
			if values, ok := w.check(); ok {
				return values, true
			}
		case <-timer.C:
			return nil, false
		}
	}
}

// check reads the slot once and reports whether it is ready.
func (w *waiter) check() (map[string]any, bool) {
	w.polls++
	w.logf("Polling attempt %d for window.%s", w.polls, w.o.varName)

	values, ok := slot.Read(w.o.store, w.o.varName)
	if !ok {
		return nil, false
	}
	w.seen = true

	if missing := missingKeys(values, w.o.required); len(missing) > 0 {
		w.lastMissing = missing
		present := sortedKeys(values)
		sig := strings.Join(present, ",") + "|" + strings.Join(missing, ",")
		if sig != w.lastPartial {
			w.lastPartial = sig
			w.logf("Partial load detected. Missing keys: %s", strings.Join(missing, ", "))
			if w.o.onPartialLoad != nil {
				w.o.onPartialLoad(present, missing)
			}
		}
		return nil, false
	}
	w.lastMissing = nil

	if !w.satisfied(values) {
		w.logf("Custom validation failed, continuing to wait")
		return nil, false
	}
	return values, true
}

func (w *waiter) satisfied(values map[string]any) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	if w.o.condition != nil && !w.o.condition(values) {
		return false
	}
	if w.o.program != nil {
		res, err := w.o.program.Bool(map[string]any{cel.EnvVar: values})
		if err != nil || !res {
			return false
		}
	}
	return true
}

func (w *waiter) ready(p *Pending, values map[string]any) {
	w.logf("Environment loaded successfully after %d polls", w.polls)
	if w.o.onReady != nil {
		w.o.onReady(values)
	}
	p.finish(values, nil)
}

func (w *waiter) timedOut(p *Pending, timeout time.Duration, attempts int) {
	missing := w.lastMissing
	if !w.seen && len(w.o.required) > 0 {
		missing = append([]string(nil), w.o.required...)
	}
	err := &Error{
		Code:        CodeTimeout,
		Message:     fmt.Sprintf("Environment variables (window.%s) not available after %s", w.o.varName, w.o.timeout),
		VarName:     w.o.varName,
		Timeout:     timeout,
		Interval:    w.o.interval,
		Attempts:    attempts,
		MissingKeys: missing,
	}

	w.logf("Timeout reached after %d attempts", attempts)
	if w.o.onTimeout != nil {
		w.o.onTimeout()
	}
	if w.o.debug {
		w.o.logger.Error("[waitForEnv] Debug info:\n"+err.DebugInfo(), "var", w.o.varName)
	}
	p.finish(nil, err)
}

func missingKeys(values map[string]any, required []string) []string {
	var missing []string
	for _, k := range required {
		if _, ok := values[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
