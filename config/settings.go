// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/stacklok/dynenv/logging"
	"github.com/stacklok/dynenv/slot"
)

// ErrParsingSettings is returned when the settings cannot be read from the
// environment.
var ErrParsingSettings = errors.New("failed to parse settings")

// Settings configures the dynenv tooling itself, as opposed to the
// variables it manages.
type Settings struct {
	VarName   string   `env:"DYNENV_VAR_NAME" envDefault:"__NEXT_DYNAMIC_ENV__"`
	LogFormat string   `env:"DYNENV_LOG_FORMAT" envDefault:"json"`
	LogLevel  string   `env:"DYNENV_LOG_LEVEL" envDefault:"info"`
	Manifest  string   `env:"DYNENV_MANIFEST"`
	Addr      string   `env:"DYNENV_ADDR" envDefault:":8080"`
	Policy    string   `env:"DYNENV_POLICY"`
	Dotenv    []string `env:"DYNENV_DOTENV" envSeparator:","`
}

// LoadSettings parses Settings from environ, or from the process
// environment when environ is nil.
func LoadSettings(environ map[string]string) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, env.Options{Environment: environ}); err != nil {
		return Settings{}, errors.Join(ErrParsingSettings, err)
	}
	if s.VarName == "" {
		s.VarName = slot.DefaultVarName
	}
	return s, nil
}

// Logger builds the logger described by the settings.
func (s Settings) Logger(w io.Writer) (*slog.Logger, error) {
	format, err := logging.ParseFormat(s.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("invalid DYNENV_LOG_FORMAT: %w", err)
	}
	level, err := logging.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid DYNENV_LOG_LEVEL: %w", err)
	}
	return logging.New(logging.WithOutput(w), logging.WithFormat(format), logging.WithLevel(level)), nil
}
