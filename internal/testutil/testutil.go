// Package testutil provides isolated config environments for command tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leefowlercu/batch-monitor/internal/config"
)

// TestEnv is an isolated batchmon environment with its own config directory
// and job database.
type TestEnv struct {
	t         *testing.T
	ConfigDir string
}

// NewTestEnv points every batchmon path at a fresh temp directory through
// BATCHMON_* environment variables and reinitializes config.
// Cleanup is automatic via t.Cleanup.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	root := t.TempDir()
	configDir := filepath.Join(root, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create test config dir: %v", err)
	}

	t.Setenv("HOME", root)
	t.Setenv("BATCHMON_CONFIG_DIR", configDir)
	t.Setenv("BATCHMON_STORE_BACKEND", "sqlite")
	t.Setenv("BATCHMON_STORE_SQLITE_PATH", filepath.Join(configDir, "jobs.db"))
	t.Setenv("BATCHMON_LOG_FILE", filepath.Join(configDir, "batchmon.log"))

	config.Reset()
	if err := config.Init(); err != nil {
		t.Fatalf("failed to initialize test config: %v", err)
	}

	t.Cleanup(config.Reset)

	return &TestEnv{t: t, ConfigDir: configDir}
}

// DatabasePath returns the SQLite job database used by the environment.
func (e *TestEnv) DatabasePath() string {
	return filepath.Join(e.ConfigDir, "jobs.db")
}

// WriteConfig writes content as config.yaml and reinitializes config from it.
func (e *TestEnv) WriteConfig(content string) string {
	e.t.Helper()

	path := filepath.Join(e.ConfigDir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		e.t.Fatalf("failed to write test config %s: %v", path, err)
	}

	config.Reset()
	if err := config.Init(); err != nil {
		e.t.Fatalf("failed to initialize test config: %v", err)
	}
	return path
}

// TempFile returns a path for name inside a fresh temp directory.
func (e *TestEnv) TempFile(name string) string {
	return filepath.Join(e.t.TempDir(), name)
}
