// log/log_test.go
// Copyright(c) 2022-2025 neo contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package log

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLoggerIsSafe(t *testing.T) {
	var lg *Logger
	lg.Debug("dropped")
	lg.Infof("dropped %d", 1)
	assert.Nil(t, lg.With("k", "v"))
}

func TestDiscardDropsEverything(t *testing.T) {
	lg := NewDiscard()
	assert.False(t, lg.Enabled(context.Background(), slog.LevelError))
	lg.Errorf("dropped %d", 1)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestNewWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	lg := New("info", dir)
	lg.Info("renderer up", slog.Int("frame", 3))

	b, err := os.ReadFile(filepath.Join(dir, "neo.slog"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "renderer up")
	assert.Contains(t, string(b), "callstack")
}

func TestCallstack(t *testing.T) {
	fr := func() []StackFrame { return Callstack(nil) }()
	require.NotEmpty(t, fr)
	assert.True(t, strings.HasSuffix(fr[0].File, "_test.go"), fr[0].String())
}
