// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/dynenv"
	"github.com/stacklok/dynenv/accessor"
	"github.com/stacklok/dynenv/config"
	"github.com/stacklok/dynenv/env"
	"github.com/stacklok/dynenv/platform"
	"github.com/stacklok/dynenv/policy"
)

// errReported is returned after the failure was already printed.
var errReported = errors.New("reported")

type app struct {
	stdout  io.Writer
	stderr  io.Writer
	environ env.Reader
	// settingsEnv overrides the process environment for settings; nil reads
	// the process environment.
	settingsEnv map[string]string

	manifestPath string
	dotenv       []string
	policyName   string
	varName      string

	settings config.Settings
	logger   *slog.Logger
	manifest *config.Manifest
	reader   env.Reader
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dynenv",
		Short:         "Validate runtime environment variables and inject them into the browser",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.manifestPath, "manifest", "m", "", "manifest path (default $DYNENV_MANIFEST or dynenv/dynenv.yaml in the XDG config dirs)")
	flags.StringSliceVar(&a.dotenv, "dotenv", nil, ".env files to read, later files win (default $DYNENV_DOTENV)")
	flags.StringVar(&a.policyName, "policy", "", `validation error policy: "throw" or "warn"`)
	flags.StringVar(&a.varName, "var-name", "", "global variable holding the injected values (default $DYNENV_VAR_NAME)")

	root.AddCommand(newCheckCmd(a), newScriptCmd(a), newServeCmd(a))
	return root
}

// load reads settings, the logger, .env files and the manifest. Flags win
// over settings, and settings win over the manifest.
func (a *app) load(cmd *cobra.Command) error {
	s, err := config.LoadSettings(a.settingsEnv)
	if err != nil {
		return err
	}
	if a.manifestPath != "" {
		s.Manifest = a.manifestPath
	}
	if len(a.dotenv) > 0 {
		s.Dotenv = a.dotenv
	}
	if a.policyName != "" {
		s.Policy = a.policyName
	}
	if a.logger, err = s.Logger(cmd.ErrOrStderr()); err != nil {
		return err
	}

	a.reader = a.environ
	if len(s.Dotenv) > 0 {
		values, err := config.LoadDotenv(s.Dotenv...)
		if err != nil {
			return err
		}
		a.reader = env.Layered{a.environ, values}
	}

	path := s.Manifest
	if path == "" {
		if path, err = config.FindManifest(); err != nil {
			return err
		}
	}
	if a.manifest, err = config.LoadManifest(path); err != nil {
		return err
	}

	switch {
	case a.varName != "":
		s.VarName = a.varName
	case a.manifest.VarName != "" && !a.isSet("DYNENV_VAR_NAME"):
		s.VarName = a.manifest.VarName
	}
	a.settings = s

	a.logger.Debug("manifest loaded", "path", path, "schema", a.manifest.HasSchema())
	return nil
}

// isSet reports whether a setting was given explicitly rather than left at
// its default.
func (a *app) isSet(key string) bool {
	if a.settingsEnv != nil {
		_, ok := a.settingsEnv[key]
		return ok
	}
	_, ok := a.environ.LookupEnv(key)
	return ok
}

// errorPolicy picks the validation policy: flag or setting, then manifest,
// then throw.
func (a *app) errorPolicy() (policy.Policy, error) {
	p, err := policy.Parse(a.settings.Policy)
	if err != nil {
		return policy.Policy{}, err
	}
	return p.Or(a.manifest.ErrorPolicy()).Or(policy.Throw), nil
}

func (a *app) mode() platform.Mode {
	return platform.ModeFrom(a.reader)
}

// client resolves the manifest and returns the accessor over the
// client-exposed variables.
func (a *app) client(p policy.Policy) (*accessor.Accessor, error) {
	opts := []dynenv.Option{
		dynenv.WithPolicy(p),
		dynenv.WithEnvReader(a.reader),
		dynenv.WithSensor(platform.Server),
		dynenv.WithVarName(a.settings.VarName),
		dynenv.WithLogger(a.logger),
	}
	if a.manifest.EmptyStringAsUndefined != nil {
		opts = append(opts, dynenv.WithEmptyStringAsUndefined(*a.manifest.EmptyStringAsUndefined))
	}

	if a.manifest.HasSchema() {
		s, err := a.manifest.JSONSchema()
		if err != nil {
			return nil, err
		}
		values, err := a.manifest.SchemaValues(a.reader)
		if err != nil {
			return nil, err
		}
		return dynenv.NewWithSchema(values, s, opts...)
	}

	cfg, err := a.manifest.Config(a.reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read variables: %w", err)
	}
	e, err := dynenv.New(cfg.Server, cfg.Client, opts...)
	if err != nil {
		return nil, err
	}
	return e.Client, nil
}
