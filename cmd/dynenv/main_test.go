// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/dynenv/env"
	"github.com/stacklok/dynenv/logging"
	"github.com/stacklok/dynenv/resolve"
)

const testManifest = `
server:
  DATABASE_URL:
    type: url
    optional: true
client:
  API_URL:
    type: url
    schemes: [https]
  PORT:
    type: int
    min: 1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, environ map[string]string, args ...string) (string, string, error) {
	t.Helper()
	if environ == nil {
		environ = map[string]string{}
	}

	var stdout, stderr bytes.Buffer
	a := &app{stdout: &stdout, stderr: &stderr, environ: env.MapReader(environ), settingsEnv: environ}
	root := newRootCmd(a)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCheck(t *testing.T) {
	t.Parallel()

	manifest := writeFile(t, "dynenv.yaml", testManifest)

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		out, _, err := run(t, map[string]string{"API_URL": "https://api.example.com", "PORT": "3000"},
			"check", "--manifest", manifest)
		require.NoError(t, err)
		assert.Equal(t, "Environment is valid (2 client variables).\n", out)
	})

	t.Run("reports every failure", func(t *testing.T) {
		t.Parallel()
		_, stderr, err := run(t, map[string]string{"API_URL": "ftp://x", "PORT": "abc"},
			"check", "--manifest", manifest)
		require.ErrorIs(t, err, errReported)
		assert.Contains(t, stderr, "API_URL")
		assert.Contains(t, stderr, "PORT")
		assert.Contains(t, stderr, "Found 2 validation errors")
	})

	t.Run("manifest from settings", func(t *testing.T) {
		t.Parallel()
		_, _, err := run(t, map[string]string{"DYNENV_MANIFEST": manifest, "API_URL": "https://x", "PORT": "1"}, "check")
		assert.NoError(t, err)
	})

	t.Run("missing manifest", func(t *testing.T) {
		t.Parallel()
		_, _, err := run(t, nil, "check", "--manifest", filepath.Join(t.TempDir(), "none.yaml"))
		assert.ErrorContains(t, err, "failed to open manifest")
	})

	t.Run("dotenv fills in variables", func(t *testing.T) {
		t.Parallel()
		dotenv := writeFile(t, ".env", "API_URL=https://from-dotenv\nPORT=3000\n")
		_, _, err := run(t, map[string]string{"PORT": "4000"}, "check", "--manifest", manifest, "--dotenv", dotenv)
		assert.NoError(t, err)
	})
}

func TestCheck_Schema(t *testing.T) {
	t.Parallel()

	manifest := writeFile(t, "dynenv.yaml", `
schema:
  type: object
  properties:
    PORT:
      type: integer
      minimum: 1
  required: [PORT]
`)

	_, _, err := run(t, map[string]string{"PORT": "8080"}, "check", "--manifest", manifest)
	require.NoError(t, err)

	_, stderr, err := run(t, map[string]string{"PORT": "0"}, "check", "--manifest", manifest)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "Found 1 validation error.")
}

func TestScript(t *testing.T) {
	t.Parallel()

	manifest := writeFile(t, "dynenv.yaml", "varName: __APP_ENV__\n"+testManifest)
	environ := map[string]string{
		"API_URL":      "https://api.example.com",
		"PORT":         "3000",
		"DATABASE_URL": "postgres://secret",
	}

	t.Run("manifest var name", func(t *testing.T) {
		t.Parallel()
		out, _, err := run(t, environ, "script", "--manifest", manifest)
		require.NoError(t, err)
		assert.Equal(t, `window.__APP_ENV__ = {"API_URL":"https://api.example.com","PORT":"3000"};`+"\n", out)
		assert.NotContains(t, out, "DATABASE_URL")
	})

	t.Run("flag wins", func(t *testing.T) {
		t.Parallel()
		out, _, err := run(t, environ, "script", "--manifest", manifest, "--var-name", "__ENV__", "--tag", "--nonce", "n0nce")
		require.NoError(t, err)
		assert.Equal(t,
			`<script id="dynenv-script" nonce="n0nce">window.__ENV__ = {"API_URL":"https://api.example.com","PORT":"3000"};</script>`+"\n",
			out)
	})

	t.Run("throws on invalid values", func(t *testing.T) {
		t.Parallel()
		_, _, err := run(t, map[string]string{"API_URL": "https://x", "PORT": "0"}, "script", "--manifest", manifest)
		var verr *resolve.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("warn policy still renders raw values", func(t *testing.T) {
		t.Parallel()
		out, _, err := run(t, map[string]string{"API_URL": "https://x", "PORT": "0"},
			"script", "--manifest", manifest, "--policy", "warn")
		require.NoError(t, err)
		assert.Contains(t, out, `"PORT":"0"`)
	})

	t.Run("bad policy", func(t *testing.T) {
		t.Parallel()
		_, _, err := run(t, environ, "script", "--manifest", manifest, "--policy", "ignore")
		assert.ErrorContains(t, err, "unknown error policy")
	})
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	a := &app{logger: logging.Discard()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.serve(ctx, &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()})
	assert.NoError(t, err)
}
