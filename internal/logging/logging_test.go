// Copyright (c) 2026, the fbasync contributors.
// SPDX-License-Identifier: MIT

package logging

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewParsesLevel(t *testing.T) {
	logger := New(Options{Level: "warn"})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	logger := New(Options{Level: "not-a-level"})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewWithFilePathWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fbshell.log")
	logger := New(Options{Level: "debug", FilePath: path, MaxSizeMB: 1, MaxBackups: 1})
	logger.Info().Msg("hello")

	assert.FileExists(t, path)
}
