package subcommands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/batch-monitor/internal/server"
	"github.com/leefowlercu/batch-monitor/internal/servicemanager"
)

type fakeManager struct {
	installed bool
	status    servicemanager.Status
	calls     []string
	err       error
}

func (f *fakeManager) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeManager) Install(context.Context) error {
	f.installed = true
	return f.record("install")
}

func (f *fakeManager) Uninstall(context.Context) error {
	f.installed = false
	return f.record("uninstall")
}

func (f *fakeManager) Start(context.Context) error   { return f.record("start") }
func (f *fakeManager) Stop(context.Context) error    { return f.record("stop") }
func (f *fakeManager) Restart(context.Context) error { return f.record("restart") }
func (f *fakeManager) Reload(context.Context) error  { return f.record("reload") }

func (f *fakeManager) Status(context.Context) (servicemanager.Status, error) {
	return f.status, nil
}

func (f *fakeManager) IsInstalled() (bool, error) { return f.installed, nil }

func (f *fakeManager) UnitPath() (string, error) {
	return "/home/ops/.config/systemd/user/batchmon.service", nil
}

func useManager(t *testing.T, m *fakeManager) {
	t.Helper()
	orig := newManager
	newManager = func() (servicemanager.Manager, error) { return m, nil }
	t.Cleanup(func() { newManager = orig })
}

func execute(t *testing.T, src *cobra.Command, flags func(*cobra.Command), args ...string) (string, error) {
	t.Helper()
	cmd := &cobra.Command{
		Use:     src.Use,
		Args:    src.Args,
		PreRunE: src.PreRunE,
		RunE:    src.RunE,
	}
	if flags != nil {
		flags(cmd)
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInstall(t *testing.T) {
	m := &fakeManager{}
	useManager(t, m)
	flags := func(c *cobra.Command) {
		installStart = false
		c.Flags().BoolVar(&installStart, "start", false, "")
	}

	out, err := execute(t, InstallCmd, flags, "--start")
	require.NoError(t, err)
	assert.Contains(t, out, "Service installed: /home/ops/.config/systemd/user/batchmon.service")
	assert.Contains(t, out, "Service started.")
	assert.Equal(t, []string{"install", "start"}, m.calls)
}

func TestUninstall(t *testing.T) {
	m := &fakeManager{}
	useManager(t, m)

	out, err := execute(t, UninstallCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Service is not installed.")
	assert.Empty(t, m.calls)

	m.installed = true
	out, err = execute(t, UninstallCmd, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Service uninstalled.")
	assert.Equal(t, []string{"uninstall"}, m.calls)
}

func TestControlCommands(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		call string
		want string
	}{
		{StartCmd, "start", "Service started."},
		{StopCmd, "stop", "Service stopped."},
		{RestartCmd, "restart", "Service restarted."},
		{ReloadCmd, "reload", "Service reloaded."},
	}

	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			m := &fakeManager{installed: true}
			useManager(t, m)

			out, err := execute(t, tt.cmd, nil)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
			assert.Equal(t, []string{tt.call}, m.calls)
		})
	}
}

func TestControl_NotInstalled(t *testing.T) {
	useManager(t, &fakeManager{})

	_, err := execute(t, StartCmd, nil)
	assert.ErrorContains(t, err, "service is not installed")
}

func TestControl_ManagerError(t *testing.T) {
	useManager(t, &fakeManager{installed: true, err: errors.New("failed to stop service; exit status 5")})

	_, err := execute(t, StopCmd, nil)
	assert.EqualError(t, err, "failed to stop service; exit status 5")
}

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "Service: not installed",
		formatStatus(servicemanager.Status{State: servicemanager.ServiceStateNotInstalled}))

	stopped := formatStatus(servicemanager.Status{State: servicemanager.ServiceStateDisabled, UnitPath: "/u"})
	assert.Equal(t, "Service: disabled (/u)\nProcess: not running", stopped)

	running := formatStatus(servicemanager.Status{
		State:    servicemanager.ServiceStateEnabled,
		UnitPath: "/u",
		Running:  true,
		PID:      42,
		Health:   &server.ReadyzResponse{Status: "healthy", Ready: true, Backend: "redis", Uptime: 90 * time.Second},
	})
	assert.Contains(t, running, "Process: running (PID 42)")
	assert.Contains(t, running, "Health:  healthy")
	assert.Contains(t, running, "Store:   redis")
	assert.Contains(t, running, "Uptime:  1m30s")

	unreachable := formatStatus(servicemanager.Status{
		State:       servicemanager.ServiceStateEnabled,
		Running:     true,
		HealthError: "connection refused",
	})
	assert.Contains(t, unreachable, "Health:  unreachable (connection refused)")
}

func TestStatus_JSON(t *testing.T) {
	useManager(t, &fakeManager{installed: true, status: servicemanager.Status{
		State:   servicemanager.ServiceStateEnabled,
		Running: true,
		PID:     7,
	}})
	flags := func(c *cobra.Command) {
		statusJSON = false
		c.Flags().BoolVar(&statusJSON, "json", false, "")
	}

	out, err := execute(t, StatusCmd, flags, "--json")
	require.NoError(t, err)

	var got servicemanager.Status
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, servicemanager.ServiceStateEnabled, got.State)
	assert.Equal(t, 7, got.PID)
}

func TestManagerOptions_PassesConfigDir(t *testing.T) {
	t.Setenv("BATCHMON_CONFIG_DIR", "/srv/batchmon")

	opts := managerOptions()
	assert.Equal(t, "/srv/batchmon", opts.ConfigDir)
	assert.NotNil(t, opts.Health)
}
