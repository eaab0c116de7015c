// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cel

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

const (
	// DefaultMaxExpressionLength is the maximum allowed length for a CEL expression.
	DefaultMaxExpressionLength = 10000

	// DefaultCostLimit is the default runtime cost limit for CEL program evaluation.
	DefaultCostLimit = 1000000

	// ValueVar is the variable holding a single variable's value in
	// validation rules.
	ValueVar = "value"

	// EnvVar is the variable holding the whole injected mapping in readiness
	// conditions.
	EnvVar = "env"
)

// Engine compiles CEL expressions against a fixed set of declarations.
// It is safe for concurrent use from multiple goroutines.
type Engine struct {
	options   []cel.EnvOption
	once      sync.Once
	env       *cel.Env
	envErr    error
	maxLength int
	costLimit uint64
}

// NewEngine creates an engine with the given declarations. Numeric
// comparisons across int, uint and double are always enabled because values
// coming from JSON are doubles while literals in rules are usually ints.
func NewEngine(options ...cel.EnvOption) *Engine {
	opts := append([]cel.EnvOption{cel.CrossTypeNumericComparisons(true)}, options...)
	return &Engine{
		options:   opts,
		maxLength: DefaultMaxExpressionLength,
		costLimit: DefaultCostLimit,
	}
}

// NewValueEngine creates an engine for per-variable rules, which see the
// candidate value as `value`.
//
//	value.startsWith("https://")
//	value > 0 && value < 65536
func NewValueEngine() *Engine {
	return NewEngine(cel.Variable(ValueVar, cel.DynType))
}

// NewEnvEngine creates an engine for readiness conditions, which see the
// injected mapping as `env`.
//
//	"API_URL" in env && env.API_URL != ""
func NewEnvEngine() *Engine {
	return NewEngine(cel.Variable(EnvVar, cel.MapType(cel.StringType, cel.DynType)))
}

// WithMaxExpressionLength sets the maximum allowed length for expressions.
func (e *Engine) WithMaxExpressionLength(maxLen int) *Engine {
	e.maxLength = maxLen
	return e
}

// WithCostLimit sets the runtime cost limit for program evaluation.
func (e *Engine) WithCostLimit(limit uint64) *Engine {
	e.costLimit = limit
	return e
}

func (e *Engine) celEnv() (*cel.Env, error) {
	e.once.Do(func() {
		e.env, e.envErr = cel.NewEnv(e.options...)
	})
	return e.env, e.envErr
}

// check parses and type-checks expr, returning the checked AST.
func (e *Engine) check(expr string) (*cel.Env, *cel.Ast, error) {
	if len(expr) > e.maxLength {
		return nil, nil, fmt.Errorf("%w: expression length %d exceeds maximum of %d",
			ErrExpressionCheck, len(expr), e.maxLength)
	}

	env, err := e.celEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get CEL environment: %w", err)
	}

	parsed, issues := env.Parse(expr)
	if issues.Err() != nil {
		return nil, nil, newCompileError(KindParse, expr, issues)
	}

	checked, issues := env.Check(parsed)
	if issues.Err() != nil {
		return nil, nil, newCompileError(KindCheck, expr, issues)
	}
	return env, checked, nil
}

// Check verifies that expr is syntactically and semantically valid without
// building a program. Manifests use it to fail fast at load time.
func (e *Engine) Check(expr string) error {
	_, _, err := e.check(expr)
	return err
}

// Compile parses, checks and plans expr into a reusable Program.
func (e *Engine) Compile(expr string) (*Program, error) {
	env, checked, err := e.check(expr)
	if err != nil {
		return nil, err
	}

	prg, err := env.Program(checked, cel.CostLimit(e.costLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program for %q: %w", expr, err)
	}
	return &Program{source: expr, program: prg}, nil
}

// Program is a compiled expression ready for evaluation.
type Program struct {
	source  string
	program cel.Program
}

// Source returns the original expression.
func (p *Program) Source() string {
	return p.source
}

// Eval runs the program against vars and returns its native result.
func (p *Program) Eval(vars map[string]any) (any, error) {
	out, _, err := p.program.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEvaluation, err)
	}
	return out.Value(), nil
}

// Bool runs the program and requires a boolean result.
func (p *Program) Bool(vars map[string]any) (bool, error) {
	result, err := p.Eval(vars)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expected bool, got %T", ErrInvalidResult, result)
	}
	return b, nil
}
