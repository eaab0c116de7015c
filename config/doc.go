// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

/*
Package config loads everything the dynenv command needs before it can
resolve variables: its own settings, .env files and the manifest that
declares the variables.

Settings are read from DYNENV_* variables. .env files are parsed into an
env.MapReader and never written to the process environment, so they can be
layered over it with env.Layered.

The manifest is YAML. Each variable names a type, optional bounds and an
optional CEL rule over `value`; rules are compiled when the manifest is
parsed so a typo fails before any variable is read. A manifest can instead
carry a JSON Schema object for whole-object validation. Without an explicit
path the manifest is looked up as dynenv/dynenv.yaml in the XDG config
directories.
*/
package config
