// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"time"

	"github.com/stacklok/dynenv/cel"
)

var valueEngine = cel.NewValueEngine()

// CEL compiles a boolean rule over `value`. The rule passes the value through
// unchanged when it evaluates to true and fails with message otherwise. An
// empty message falls back to "failed rule: <expr>".
//
// A nil value is reported as "Required" without evaluating the rule, so CEL
// rules are usually combined with a typed rule through All.
func CEL(expr, message string) (Validator, error) {
	prg, err := valueEngine.Compile(expr)
	if err != nil {
		return nil, err
	}
	if message == "" {
		message = "failed rule: " + expr
	}
	return Func(func(value any) Result {
		if value == nil {
			return Fail("Required")
		}
		ok, err := prg.Bool(map[string]any{cel.ValueVar: celValue(value)})
		if err != nil {
			return Fail(err.Error())
		}
		if !ok {
			return Fail(message)
		}
		return Ok(value)
	}), nil
}

// MustCEL is like CEL but panics when expr does not compile.
func MustCEL(expr, message string) Validator {
	v, err := CEL(expr, message)
	if err != nil {
		panic(err)
	}
	return v
}

// All runs validators in order, feeding each one the output of the previous.
// It stops at the first failure. A nil intermediate value ends the chain
// successfully, which lets Optional rules short-circuit later checks.
func All(validators ...Validator) Validator {
	return Func(func(value any) Result {
		cur := value
		for i, v := range validators {
			res := v.Validate(cur)
			if res.Pending != nil || res.Failed() {
				return res
			}
			cur = res.Value
			if cur == nil && i < len(validators)-1 {
				return Ok(nil)
			}
		}
		return Ok(cur)
	})
}

// celValue maps Go values that CEL does not understand natively.
func celValue(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case time.Duration:
		return t.String()
	default:
		return v
	}
}
