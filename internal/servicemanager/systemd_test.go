package servicemanager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSystemd(t *testing.T, opts Options) (*systemdManager, *fakeExecutor, string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	if opts.BinaryPath == "" {
		opts.BinaryPath = "/opt/batchmon/bin/batchmon"
	}
	exec := newFakeExecutor()
	return newSystemdManager(exec, opts), exec, home
}

func TestSystemd_GenerateUnitFile(t *testing.T) {
	m, _, _ := newTestSystemd(t, Options{})

	unit, err := m.generateUnitFile()
	require.NoError(t, err)

	for _, want := range []string{
		"[Unit]", "[Service]", "[Install]",
		"Type=notify",
		"ExecStart=/opt/batchmon/bin/batchmon serve",
		"ExecReload=/bin/kill -HUP $MAINPID\nRestart=on-failure",
		"WantedBy=default.target",
	} {
		assert.Contains(t, unit, want)
	}
	assert.NotContains(t, unit, "Environment=")
}

func TestSystemd_GenerateUnitFile_ConfigDir(t *testing.T) {
	m, _, _ := newTestSystemd(t, Options{ConfigDir: "/etc/batchmon"})

	unit, err := m.generateUnitFile()
	require.NoError(t, err)
	assert.Contains(t, unit, "ExecReload=/bin/kill -HUP $MAINPID\nEnvironment=BATCHMON_CONFIG_DIR=/etc/batchmon\nRestart=on-failure")
}

func TestSystemd_InstallUninstall(t *testing.T) {
	m, exec, home := newTestSystemd(t, Options{})
	ctx := context.Background()
	unitPath := filepath.Join(home, ".config", "systemd", "user", systemdServiceName)

	require.NoError(t, m.Install(ctx))
	assert.FileExists(t, unitPath)
	installed, err := m.IsInstalled()
	require.NoError(t, err)
	assert.True(t, installed)
	assert.Equal(t, []string{
		"systemctl --user daemon-reload",
		"systemctl --user enable batchmon.service",
	}, exec.Commands())

	require.NoError(t, m.Uninstall(ctx))
	assert.NoFileExists(t, unitPath)
	assert.Equal(t, []string{
		"systemctl --user stop batchmon.service",
		"systemctl --user disable batchmon.service",
		"systemctl --user daemon-reload",
	}, exec.Commands()[2:])

	// Uninstalling twice is harmless.
	assert.NoError(t, m.Uninstall(ctx))
}

func TestSystemd_Install_EnableError(t *testing.T) {
	m, exec, _ := newTestSystemd(t, Options{})
	exec.errors["systemctl --user enable batchmon.service"] = errors.New("enable failed")

	err := m.Install(context.Background())
	assert.ErrorContains(t, err, "failed to enable service")
}

func TestSystemd_Control(t *testing.T) {
	m, exec, _ := newTestSystemd(t, Options{})
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Stop(ctx))
	require.NoError(t, m.Restart(ctx))
	require.NoError(t, m.Reload(ctx))

	assert.Equal(t, []string{
		"systemctl --user start batchmon.service",
		"systemctl --user stop batchmon.service",
		"systemctl --user restart batchmon.service",
		"systemctl --user reload batchmon.service",
	}, exec.Commands())

	exec.errors["systemctl --user start batchmon.service"] = errors.New("exit status 5")
	assert.ErrorContains(t, m.Start(ctx), "failed to start service")
}

func TestParseSystemctlOutput(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		wantState   ServiceState
		wantPID     int
		wantRunning bool
	}{
		{
			name:        "enabled and active",
			output:      "ActiveState=active\nMainPID=4242\nUnitFileState=enabled\n",
			wantState:   ServiceStateEnabled,
			wantPID:     4242,
			wantRunning: true,
		},
		{
			name:      "disabled and inactive",
			output:    "ActiveState=inactive\nMainPID=0\nUnitFileState=disabled",
			wantState: ServiceStateDisabled,
		},
		{
			name:        "reloading counts as running",
			output:      "ActiveState=reloading\nMainPID=7\nUnitFileState=enabled-runtime",
			wantState:   ServiceStateEnabled,
			wantPID:     7,
			wantRunning: true,
		},
		{
			name:      "garbage",
			output:    "not key value",
			wantState: ServiceStateDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, pid, running := parseSystemctlOutput(tt.output)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantPID, pid)
			assert.Equal(t, tt.wantRunning, running)
		})
	}
}

func TestSystemd_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("not installed", func(t *testing.T) {
		m, exec, _ := newTestSystemd(t, Options{})

		status, err := m.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, ServiceStateNotInstalled, status.State)
		assert.False(t, status.Running)
		assert.Empty(t, exec.Commands())
	})

	t.Run("running with health", func(t *testing.T) {
		m, exec, _ := newTestSystemd(t, Options{Health: healthy})
		require.NoError(t, m.Install(ctx))
		exec.outputs["systemctl --user show batchmon.service --property=ActiveState,MainPID,UnitFileState"] =
			"ActiveState=active\nMainPID=99\nUnitFileState=enabled\n"

		status, err := m.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, ServiceStateEnabled, status.State)
		assert.True(t, status.Running)
		assert.Equal(t, 99, status.PID)
		require.NotNil(t, status.Health)
		assert.Equal(t, "sqlite", status.Health.Backend)
	})

	t.Run("installed but systemctl fails", func(t *testing.T) {
		m, exec, _ := newTestSystemd(t, Options{Health: healthy})
		require.NoError(t, m.Install(ctx))
		exec.errors["systemctl --user show batchmon.service --property=ActiveState,MainPID,UnitFileState"] = errors.New("no user bus")

		status, err := m.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, ServiceStateDisabled, status.State)
		assert.Nil(t, status.Health)
	})
}

func TestSystemd_UnitPathUsesHome(t *testing.T) {
	m, _, home := newTestSystemd(t, Options{})

	path, err := m.UnitPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "systemd", "user", "batchmon.service"), path)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
