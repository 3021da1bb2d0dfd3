package servicemanager

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLaunchd(t *testing.T, opts Options) (*launchdManager, *fakeExecutor, string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	if opts.BinaryPath == "" {
		opts.BinaryPath = "/usr/local/bin/batchmon"
	}
	exec := newFakeExecutor()
	return newLaunchdManager(exec, opts), exec, home
}

func TestLaunchd_GeneratePlist(t *testing.T) {
	m, _, _ := newTestLaunchd(t, Options{ConfigDir: "/Users/ops/.batchmon"})

	plist, err := m.generatePlist()
	require.NoError(t, err)

	assert.Contains(t, plist, "<string>com.leefowlercu.batchmon</string>")
	assert.Contains(t, plist, "<string>/usr/local/bin/batchmon</string>\n        <string>serve</string>")
	assert.Contains(t, plist, "<key>BATCHMON_CONFIG_DIR</key>\n        <string>/Users/ops/.batchmon</string>")
	assert.Contains(t, plist, "<key>RunAtLoad</key>")
}

func TestLaunchd_GeneratePlist_NoConfigDir(t *testing.T) {
	m, _, _ := newTestLaunchd(t, Options{})

	plist, err := m.generatePlist()
	require.NoError(t, err)
	assert.NotContains(t, plist, "EnvironmentVariables")
}

func TestLaunchd_InstallUninstall(t *testing.T) {
	m, exec, home := newTestLaunchd(t, Options{})
	ctx := context.Background()
	plistPath := filepath.Join(home, "Library", "LaunchAgents", launchdPlistName)

	require.NoError(t, m.Install(ctx))
	assert.FileExists(t, plistPath)
	assert.Equal(t, []string{"launchctl load -w " + plistPath}, exec.Commands())

	require.NoError(t, m.Uninstall(ctx))
	assert.NoFileExists(t, plistPath)
	assert.Equal(t, "launchctl unload "+plistPath, exec.Commands()[1])
}

func TestLaunchd_Install_LoadError(t *testing.T) {
	m, exec, home := newTestLaunchd(t, Options{})
	exec.errors["launchctl load -w "+filepath.Join(home, "Library", "LaunchAgents", launchdPlistName)] = errors.New("boom")

	assert.ErrorContains(t, m.Install(context.Background()), "failed to load service with launchctl")
}

func TestLaunchd_Restart(t *testing.T) {
	m, exec, _ := newTestLaunchd(t, Options{})
	exec.errors["launchctl stop com.leefowlercu.batchmon"] = errors.New("not running")

	require.NoError(t, m.Restart(context.Background()))
	assert.Equal(t, []string{
		"launchctl stop com.leefowlercu.batchmon",
		"launchctl start com.leefowlercu.batchmon",
	}, exec.Commands())
}

func TestLaunchd_Restart_Canceled(t *testing.T) {
	m, exec, _ := newTestLaunchd(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, m.Restart(ctx), context.Canceled)
	assert.Len(t, exec.Commands(), 1)
}

func TestParseLaunchctlOutput(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		wantPID     int
		wantRunning bool
	}{
		{
			name:        "dictionary format",
			output:      "{\n\t\"LimitLoadToSessionType\" = \"Aqua\";\n\t\"PID\" = 5120;\n};",
			wantPID:     5120,
			wantRunning: true,
		},
		{
			name:        "tabular format",
			output:      "812\t0\tcom.leefowlercu.batchmon",
			wantPID:     812,
			wantRunning: true,
		},
		{
			name:   "loaded but not running",
			output: "-\t0\tcom.leefowlercu.batchmon",
		},
		{
			name:   "empty",
			output: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pid, running := parseLaunchctlOutput(tt.output)
			assert.Equal(t, tt.wantPID, pid)
			assert.Equal(t, tt.wantRunning, running)
		})
	}
}

func TestLaunchd_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("not loaded", func(t *testing.T) {
		m, exec, _ := newTestLaunchd(t, Options{})
		require.NoError(t, m.Install(ctx))
		exec.errors["launchctl list com.leefowlercu.batchmon"] = errors.New("Could not find service")

		status, err := m.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, ServiceStateDisabled, status.State)
	})

	t.Run("running", func(t *testing.T) {
		m, exec, _ := newTestLaunchd(t, Options{Health: healthy})
		require.NoError(t, m.Install(ctx))
		exec.outputs["launchctl list com.leefowlercu.batchmon"] = "\"PID\" = 77;"

		status, err := m.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, ServiceStateEnabled, status.State)
		assert.Equal(t, 77, status.PID)
		require.NotNil(t, status.Health)
		assert.True(t, status.Health.Ready)
	})
}
