package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upgradedManager(t *testing.T, level slog.Level) (*Manager, string) {
	t.Helper()
	mgr := NewManager()
	t.Cleanup(func() { _ = mgr.Close() })

	logFile := filepath.Join(t.TempDir(), "batchmon.log")
	require.NoError(t, mgr.Upgrade(FileOptions{Path: logFile, MaxSizeMB: 1}, level))
	return mgr, logFile
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestNewManager_BootstrapMode(t *testing.T) {
	mgr := NewManager()
	defer func() { _ = mgr.Close() }()

	require.NotNil(t, mgr.Logger())
	assert.Same(t, mgr.Logger(), mgr.Logger())
	assert.Equal(t, DefaultLevel, mgr.Level())
}

func TestManager_Upgrade_WritesJSON(t *testing.T) {
	mgr, logFile := upgradedManager(t, slog.LevelInfo)

	mgr.Logger().Info("test message", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace([]byte(readLog(t, logFile))), &entry))
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestManager_Upgrade_CreatesParentDirs(t *testing.T) {
	mgr := NewManager()
	defer func() { _ = mgr.Close() }()

	logFile := filepath.Join(t.TempDir(), "nested", "dirs", "test.log")
	require.NoError(t, mgr.Upgrade(FileOptions{Path: logFile}, slog.LevelInfo))

	_, err := os.Stat(logFile)
	assert.NoError(t, err)
}

func TestManager_Upgrade_PathIsDirectory(t *testing.T) {
	mgr := NewManager()
	defer func() { _ = mgr.Close() }()

	err := mgr.Upgrade(FileOptions{Path: t.TempDir()}, slog.LevelInfo)
	assert.Error(t, err)
}

func TestManager_ChildLoggerFollowsUpgrade(t *testing.T) {
	mgr := NewManager()
	defer func() { _ = mgr.Close() }()

	// Created in bootstrap mode, before the file exists.
	child := mgr.Logger().With("component", "registry").WithGroup("job")

	logFile := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, mgr.Upgrade(FileOptions{Path: logFile}, slog.LevelInfo))

	child.Info("job started", "id", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace([]byte(readLog(t, logFile))), &entry))
	assert.Equal(t, "registry", entry["component"])
	job, ok := entry["job"].(map[string]any)
	require.True(t, ok, "expected job group in %v", entry)
	assert.Equal(t, "abc", job["id"])
}

func TestManager_SetLevel(t *testing.T) {
	mgr, logFile := upgradedManager(t, slog.LevelInfo)

	mgr.Logger().Debug("debug message 1")
	mgr.SetLevel(slog.LevelDebug)
	mgr.Logger().Debug("debug message 2")

	output := readLog(t, logFile)
	assert.NotContains(t, output, "debug message 1")
	assert.Contains(t, output, "debug message 2")
}

func TestManager_LevelFiltering(t *testing.T) {
	mgr, logFile := upgradedManager(t, slog.LevelWarn)

	logger := mgr.Logger()
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := readLog(t, logFile)
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestManager_Rotate(t *testing.T) {
	mgr, logFile := upgradedManager(t, slog.LevelInfo)

	mgr.Logger().Info("before rotate")
	require.NoError(t, mgr.Rotate())
	mgr.Logger().Info("after rotate")

	assert.NotContains(t, readLog(t, logFile), "before rotate")
	assert.Contains(t, readLog(t, logFile), "after rotate")

	entries, err := os.ReadDir(filepath.Dir(logFile))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "rotated backup should sit next to the active file")
}

func TestManager_Close_Idempotent(t *testing.T) {
	mgr, _ := upgradedManager(t, slog.LevelInfo)

	assert.NoError(t, mgr.Close())
	assert.NoError(t, mgr.Close())
}

func TestManager_Rotate_BootstrapNoop(t *testing.T) {
	mgr := NewManager()
	assert.NoError(t, mgr.Rotate())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input     string
		wantLevel slog.Level
		wantOK    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" Warn ", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"", DefaultLevel, false},
		{"verbose", DefaultLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, ok := ParseLevel(tt.input)
			assert.Equal(t, tt.wantLevel, level)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLevel, ParseLevelOrDefault(tt.input))
		})
	}
}

func TestSwappableHandler_Swap(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	sh := NewSwappableHandler(slog.NewTextHandler(&buf1, nil))
	logger := slog.New(sh).With("k", "v")

	logger.Info("message 1")
	sh.Swap(slog.NewTextHandler(&buf2, nil))
	logger.Info("message 2")

	assert.Contains(t, buf1.String(), "message 1")
	assert.NotContains(t, buf1.String(), "message 2")
	assert.Contains(t, buf2.String(), "message 2")
	assert.True(t, strings.Contains(buf2.String(), "k=v"), "derived attrs should survive a swap")
}
