/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, nil)
}

// SetupWithWriter configures zerolog with an additional writer that receives
// the raw JSON lines, typically the client log hub.
func SetupWithWriter(environment string, additionalWriter io.Writer) zerolog.Logger {
	return setup(environment, os.Stderr, additionalWriter)
}

func setup(environment string, out io.Writer, additionalWriter io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	switch environment {
	case "development":
		level = zerolog.DebugLevel
	case "trace":
		level = zerolog.TraceLevel
	}

	// Human readable output; the additional writer still sees JSON.
	var writer io.Writer = zerolog.ConsoleWriter{Out: out}
	if additionalWriter != nil {
		writer = zerolog.MultiLevelWriter(writer, additionalWriter)
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)
	log.Logger = logger
	return logger
}
