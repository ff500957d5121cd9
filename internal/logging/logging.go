// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

// Package logging builds the zerolog.Logger the demo shell and its
// fbasync Connections write through — console output on a terminal,
// rotated JSON lines once a log file is configured.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level      string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
}

// New builds a zerolog.Logger at the requested level. With no FilePath
// it writes a human-readable console line to stderr; with one, it
// writes newline-delimited JSON through a lumberjack.Logger that
// rotates at MaxSizeMB, retaining MaxBackups old files.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if opts.FilePath == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	} else {
		logger = zerolog.New(&lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
