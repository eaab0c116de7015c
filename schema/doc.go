// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package schema defines the synchronous validation contract used for
environment variables and ships the validators dynenv needs out of the box.

A Validator receives a value and returns a Result holding either the
transformed value or a list of issues:

	port := schema.Int().Min(1).Max(65535)
	res := port.Validate("3000") // res.Value == 3000

Rules written in CEL can be chained after a typed rule:

	https, _ := schema.CEL(`value.startsWith("https://")`, "must use https")
	apiURL := schema.All(schema.URL(), https)

For whole-object validation, NewJSONSchema compiles a JSON Schema document.
String values are coerced to the declared property types before validation,
so "3000" satisfies {"type": "integer"}:

	s, err := schema.NewJSONSchema([]byte(`{
	  "type": "object",
	  "properties": {"PORT": {"type": "integer", "minimum": 1}},
	  "required": ["PORT"]
	}`))
	res := s.ValidateObject(map[string]any{"PORT": "3000"})

Validators must answer synchronously. A Result with a non-nil Pending
channel is rejected with ErrAsyncValidation by Run.
*/
package schema
