// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package waitfor

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/stacklok/dynenv/cel"
	"github.com/stacklok/dynenv/logging"
	"github.com/stacklok/dynenv/platform"
	"github.com/stacklok/dynenv/slot"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// timerCounter records armed and cleared timers by kind.
type timerCounter struct {
	mu      sync.Mutex
	armed   map[string]int
	cleared map[string]int
}

func newTimerCounter() *timerCounter {
	return &timerCounter{armed: map[string]int{}, cleared: map[string]int{}}
}

func (c *timerCounter) hooks() Option {
	return withHooks(timerHooks{
		armed: func(kind string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.armed[kind]++
		},
		cleared: func(kind string) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.cleared[kind]++
		},
	})
}

func (c *timerCounter) snapshot() (armed, cleared map[string]int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	armed = map[string]int{}
	cleared = map[string]int{}
	for k, v := range c.armed {
		armed[k] = v
	}
	for k, v := range c.cleared {
		cleared[k] = v
	}
	return armed, cleared
}

func browserOptions(store slot.Store, extra ...Option) []Option {
	return append([]Option{
		WithSensor(platform.Browser),
		WithStore(store),
		WithLogger(logging.Discard()),
	}, extra...)
}

// drive advances mock until p completes.
func drive(t *testing.T, mock *clock.Mock, p *Pending, step time.Duration) {
	t.Helper()
	for i := 0; i < 10000; i++ {
		select {
		case <-p.Done():
			return
		default:
			mock.Add(step)
		}
	}
	t.Fatal("wait did not complete")
}

func TestStart_InvalidOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
		msg  string
	}{
		{"zero timeout", []Option{WithTimeout(0)}, "Timeout must be greater than 0"},
		{"negative timeout", []Option{WithTimeout(-time.Second)}, "Timeout must be greater than 0"},
		{"zero interval", []Option{WithInterval(0)}, "Interval must be greater than 0 and less than timeout"},
		{"interval equals timeout", []Option{WithTimeout(time.Second), WithInterval(time.Second)}, "Interval must be greater than 0 and less than timeout"},
		{"empty var name", []Option{WithVarName("")}, "Variable name must be a non-empty string"},
		{"var name not identifier", []Option{WithVarName("a.b")}, "Variable name must be a JavaScript identifier"},
		{"negative retries", []Option{WithRetries(-1)}, "Retries must be 0 or greater"},
		{"shrinking backoff", []Option{WithBackoffMultiplier(0.5)}, "Backoff multiplier must be at least 1"},
		{"bad expression", []Option{WithExpression(`env.`)}, "Condition expression is invalid"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			counter := newTimerCounter()
			called := false
			opts := append(browserOptions(slot.NewMemory(), counter.hooks(), OnReady(func(map[string]any) { called = true })), tt.opts...)

			p, err := Start(opts...)
			require.Nil(t, p)

			var werr *Error
			require.ErrorAs(t, err, &werr)
			assert.Equal(t, CodeValidation, werr.Code)
			assert.Equal(t, tt.msg, werr.Message)
			assert.ErrorIs(t, err, ErrInvalidOptions)
			assert.NotErrorIs(t, err, ErrTimeout)

			armed, _ := counter.snapshot()
			assert.Empty(t, armed, "no timer may be armed before options are valid")
			assert.False(t, called)
		})
	}
}

func TestStart_ExpressionCompileErrorIsWrapped(t *testing.T) {
	t.Parallel()

	_, err := Start(browserOptions(slot.NewMemory(), WithExpression(`nope(env)`))...)
	var cerr *cel.CompileError
	assert.ErrorAs(t, err, &cerr)
}

func TestStart_Server(t *testing.T) {
	t.Parallel()

	counter := newTimerCounter()
	store := slot.NewMemory()
	store.Set(slot.DefaultVarName, map[string]any{"A": "1"})

	var ready []map[string]any
	timeouts := 0
	p, err := Start(
		WithSensor(platform.Server),
		WithStore(store),
		counter.hooks(),
		OnReady(func(v map[string]any) { ready = append(ready, v) }),
		OnTimeout(func() { timeouts++ }),
	)
	require.NoError(t, err)

	select {
	case <-p.Done():
	default:
		t.Fatal("server wait must complete immediately")
	}

	values, err := p.Wait()
	require.NoError(t, err)
	assert.Empty(t, values)
	assert.NotNil(t, values)
	require.Len(t, ready, 1)
	assert.Empty(t, ready[0])
	assert.Zero(t, timeouts)

	armed, cleared := counter.snapshot()
	assert.Empty(t, armed)
	assert.Empty(t, cleared)
}

func TestStart_AlreadyAvailable(t *testing.T) {
	t.Parallel()

	counter := newTimerCounter()
	store := slot.NewMemory()
	store.Set(slot.DefaultVarName, map[string]any{"API_URL": "test"})

	readyCalls := 0
	p, err := Start(browserOptions(store, counter.hooks(), OnReady(func(map[string]any) { readyCalls++ }))...)
	require.NoError(t, err)

	select {
	case <-p.Done():
	default:
		t.Fatal("wait must complete without polling")
	}
	values, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"API_URL": "test"}, values)
	assert.Equal(t, 1, readyCalls)

	armed, _ := counter.snapshot()
	assert.Empty(t, armed, "immediate readiness arms no timer")
}

func TestWait_BecomesAvailable(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	counter := newTimerCounter()
	store := slot.NewMemory()

	p, err := Start(browserOptions(store,
		WithClock(mock),
		WithInterval(50*time.Millisecond),
		counter.hooks(),
	)...)
	require.NoError(t, err)

	mock.Add(120 * time.Millisecond)
	store.Set(slot.DefaultVarName, map[string]any{"API_URL": "https://x"})
	drive(t, mock, p, 10*time.Millisecond)

	values, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, "https://x", values["API_URL"])

	armed, cleared := counter.snapshot()
	assert.Equal(t, map[string]int{"interval": 1, "timeout": 1}, armed)
	assert.Equal(t, armed, cleared)
}

func TestWait_RequiredKeysPartialLoad(t *testing.T) {
	t.Parallel()

	store := slot.NewMemory()

	type partial struct{ present, missing []string }
	var (
		mu       sync.Mutex
		partials []partial
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(50 * time.Millisecond)
		store.Set(slot.DefaultVarName, map[string]any{"A": "1"})
		time.Sleep(100 * time.Millisecond)
		store.Set(slot.DefaultVarName, map[string]any{"A": "1", "B": "2"})
	}()

	values, err := Wait(browserOptions(store,
		WithRequiredKeys("A", "B"),
		WithTimeout(300*time.Millisecond),
		WithInterval(20*time.Millisecond),
		OnPartialLoad(func(present, missing []string) {
			mu.Lock()
			defer mu.Unlock()
			partials = append(partials, partial{present, missing})
		}),
	)...)
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"A": "1", "B": "2"}, values)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, partials, 1)
	assert.Equal(t, []string{"A"}, partials[0].present)
	assert.Equal(t, []string{"B"}, partials[0].missing)
}

func TestWait_RetryWithBackoff(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	counter := newTimerCounter()

	type retry struct {
		attempt int
		next    time.Duration
	}
	var (
		mu       sync.Mutex
		retries  []retry
		timeouts int
	)

	p, err := Start(browserOptions(slot.NewMemory(),
		WithClock(mock),
		WithTimeout(100*time.Millisecond),
		WithInterval(20*time.Millisecond),
		WithRetries(1),
		WithBackoffMultiplier(2),
		counter.hooks(),
		OnRetry(func(attempt int, next time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			retries = append(retries, retry{attempt, next})
		}),
		OnTimeout(func() {
			mu.Lock()
			defer mu.Unlock()
			timeouts++
		}),
	)...)
	require.NoError(t, err)

	drive(t, mock, p, 10*time.Millisecond)

	_, err = p.Wait()
	var werr *Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, CodeTimeout, werr.Code)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 2, werr.Attempts)
	assert.Equal(t, 200*time.Millisecond, werr.Timeout)
	assert.Equal(t, slot.DefaultVarName, werr.VarName)
	assert.Contains(t, werr.Error(), "window.__NEXT_DYNAMIC_ENV__")

	mu.Lock()
	assert.Equal(t, []retry{{1, 200 * time.Millisecond}}, retries)
	assert.Equal(t, 1, timeouts)
	mu.Unlock()

	armed, cleared := counter.snapshot()
	assert.Equal(t, map[string]int{"interval": 2, "timeout": 2}, armed)
	assert.Equal(t, armed, cleared, "every armed timer is cleared")
}

func TestWait_BackoffIsGeometric(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	var (
		mu    sync.Mutex
		nexts []time.Duration
	)

	p, err := Start(browserOptions(slot.NewMemory(),
		WithClock(mock),
		WithTimeout(100*time.Millisecond),
		WithInterval(10*time.Millisecond),
		WithRetries(3),
		WithBackoffMultiplier(3),
		OnRetry(func(_ int, next time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			nexts = append(nexts, next)
		}),
	)...)
	require.NoError(t, err)

	drive(t, mock, p, 20*time.Millisecond)

	_, err = p.Wait()
	var werr *Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, 4, werr.Attempts)
	assert.Equal(t, 2700*time.Millisecond, werr.Timeout)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []time.Duration{300 * time.Millisecond, 900 * time.Millisecond, 2700 * time.Millisecond}, nexts)
}

func TestWait_TimeoutReportsMissingKeys(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	store := slot.NewMemory()
	store.Set(slot.DefaultVarName, map[string]any{"A": "1"})

	p, err := Start(browserOptions(store,
		WithClock(mock),
		WithTimeout(100*time.Millisecond),
		WithInterval(20*time.Millisecond),
		WithRequiredKeys("A", "B", "C"),
	)...)
	require.NoError(t, err)
	drive(t, mock, p, 10*time.Millisecond)

	_, err = p.Wait()
	var werr *Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, []string{"B", "C"}, werr.MissingKeys)
	assert.Contains(t, werr.DebugInfo(), "Missing Keys: B, C")
	assert.Contains(t, werr.DebugInfo(), "Error Code: TIMEOUT")
	assert.Contains(t, werr.DebugInfo(), "Attempts: 1")
}

func TestWait_NeverLoadedReportsAllRequiredKeys(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	p, err := Start(browserOptions(slot.NewMemory(),
		WithClock(mock),
		WithTimeout(100*time.Millisecond),
		WithInterval(20*time.Millisecond),
		WithRequiredKeys("A"),
	)...)
	require.NoError(t, err)
	drive(t, mock, p, 10*time.Millisecond)

	_, err = p.Wait()
	var werr *Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, []string{"A"}, werr.MissingKeys)
}

func TestWait_Conditions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		opt   Option
		ready bool
	}{
		{"condition true", WithCondition(func(v map[string]any) bool { return v["API_URL"] == "https://x" }), true},
		{"condition false", WithCondition(func(map[string]any) bool { return false }), false},
		{"condition panics", WithCondition(func(map[string]any) bool { panic("bad") }), false},
		{"expression true", WithExpression(`"API_URL" in env && env.API_URL.startsWith("https://")`), true},
		{"expression false", WithExpression(`env.API_URL == "http://other"`), false},
		{"expression runtime error", WithExpression(`env.MISSING == "x"`), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := clock.NewMock()
			store := slot.NewMemory()
			store.Set(slot.DefaultVarName, map[string]any{"API_URL": "https://x"})

			p, err := Start(browserOptions(store,
				WithClock(mock),
				WithTimeout(100*time.Millisecond),
				WithInterval(20*time.Millisecond),
				tt.opt,
			)...)
			require.NoError(t, err)
			drive(t, mock, p, 10*time.Millisecond)

			_, err = p.Wait()
			if tt.ready {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrTimeout)
			}
		})
	}
}

func TestWait_CustomVarName(t *testing.T) {
	t.Parallel()

	store := slot.NewMemory()
	store.Set("__APP_ENV__", map[string]any{"A": "1"})

	values, err := Wait(browserOptions(store, WithVarName("__APP_ENV__"))...)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"A": "1"}, values)
}

func TestWait_CallbackPanicStopsTimers(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	counter := newTimerCounter()
	store := slot.NewMemory()

	p, err := Start(browserOptions(store,
		WithClock(mock),
		WithTimeout(100*time.Millisecond),
		WithInterval(20*time.Millisecond),
		WithRequiredKeys("B"),
		counter.hooks(),
		OnPartialLoad(func([]string, []string) { panic("callback bug") }),
	)...)
	require.NoError(t, err)

	store.Set(slot.DefaultVarName, map[string]any{"A": "1"})
	drive(t, mock, p, 10*time.Millisecond)

	_, err = p.Wait()
	assert.True(t, errors.Is(err, ErrCallbackPanic))

	armed, cleared := counter.snapshot()
	assert.Equal(t, armed, cleared)
}

func TestStart_AlreadyAvailableCallbackPanic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value map[string]any
		opts  []Option
	}{
		{
			name:  "partial load callback",
			value: map[string]any{"A": "1"},
			opts: []Option{
				WithRequiredKeys("B"),
				OnPartialLoad(func([]string, []string) { panic("callback bug") }),
			},
		},
		{
			name:  "ready callback",
			value: map[string]any{"A": "1"},
			opts:  []Option{OnReady(func(map[string]any) { panic("callback bug") })},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			counter := newTimerCounter()
			store := slot.NewMemory()
			store.Set(slot.DefaultVarName, tt.value)

			var (
				p   *Pending
				err error
			)
			require.NotPanics(t, func() {
				p, err = Start(browserOptions(store, append(tt.opts, counter.hooks())...)...)
			})
			require.NoError(t, err)
			require.NotNil(t, p)

			select {
			case <-p.Done():
			default:
				t.Fatal("wait must complete on the immediate check")
			}
			_, err = p.Wait()
			assert.ErrorIs(t, err, ErrCallbackPanic)
			assert.ErrorContains(t, err, "callback bug")

			armed, _ := counter.snapshot()
			assert.Empty(t, armed)
		})
	}
}

func TestWait_TimeoutWithAllKeysPresent(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	store := slot.NewMemory()
	store.Set(slot.DefaultVarName, map[string]any{"A": "1", "B": "2"})

	p, err := Start(browserOptions(store,
		WithClock(mock),
		WithTimeout(100*time.Millisecond),
		WithInterval(20*time.Millisecond),
		WithRequiredKeys("A", "B"),
		WithCondition(func(map[string]any) bool { return false }),
	)...)
	require.NoError(t, err)
	drive(t, mock, p, 10*time.Millisecond)

	_, err = p.Wait()
	var werr *Error
	require.ErrorAs(t, err, &werr)
	assert.Empty(t, werr.MissingKeys, "no required key is missing, only the condition failed")
	assert.NotContains(t, werr.DebugInfo(), "Missing Keys")
}

func TestWait_IndependentInvocations(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	store := slot.NewMemory()

	var readyCount atomic.Int32
	opts := browserOptions(store,
		WithClock(mock),
		WithTimeout(time.Second),
		WithInterval(10*time.Millisecond),
		OnReady(func(map[string]any) { readyCount.Add(1) }),
	)

	first, err := Start(opts...)
	require.NoError(t, err)
	second, err := Start(opts...)
	require.NoError(t, err)

	store.Set(slot.DefaultVarName, map[string]any{"A": "1"})
	drive(t, mock, first, 10*time.Millisecond)
	drive(t, mock, second, 10*time.Millisecond)

	v1, err := first.Wait()
	require.NoError(t, err)
	v2, err := second.Wait()
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, int32(2), readyCount.Load())
}

func TestError_DebugInfo(t *testing.T) {
	t.Parallel()

	err := &Error{Code: CodeValidation, Message: "bad"}
	assert.Equal(t, "Error Code: VALIDATION_ERROR", err.DebugInfo())
	assert.Equal(t, "bad", err.Error())
	assert.NoError(t, err.Unwrap())
}
