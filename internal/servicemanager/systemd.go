package servicemanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const systemdServiceName = "batchmon.service"

// Type=notify pairs with the READY=1/STOPPING=1 notifications sent by serve.
const systemdUnitTemplate = `[Unit]
Description=batchmon - batch job monitor and Prometheus exporter
After=network-online.target
Wants=network-online.target
StartLimitBurst=5
StartLimitIntervalSec=60

[Service]
Type=notify
ExecStart={{.BinaryPath}} serve
ExecReload=/bin/kill -HUP $MAINPID
{{- if .ConfigDir}}
Environment=BATCHMON_CONFIG_DIR={{.ConfigDir}}
{{- end}}
Restart=on-failure
RestartSec=5
TimeoutStopSec=30

[Install]
WantedBy=default.target
`

type systemdManager struct {
	executor CommandExecutor
	opts     Options
}

func newSystemdManager(executor CommandExecutor, opts Options) *systemdManager {
	return &systemdManager{executor: executor, opts: opts}
}

func (m *systemdManager) UnitPath() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "systemd", "user", systemdServiceName), nil
}

func (m *systemdManager) generateUnitFile() (string, error) {
	return renderTemplate("unit", systemdUnitTemplate, m.opts)
}

func (m *systemdManager) systemctl(ctx context.Context, args ...string) ([]byte, error) {
	return m.executor.Run(ctx, "systemctl", append([]string{"--user"}, args...)...)
}

func (m *systemdManager) Install(ctx context.Context) error {
	unitPath, err := m.UnitPath()
	if err != nil {
		return err
	}

	content, err := m.generateUnitFile()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return fmt.Errorf("failed to create systemd user directory; %w", err)
	}
	if err := os.WriteFile(unitPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write unit file; %w", err)
	}

	if _, err := m.systemctl(ctx, "daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd daemon; %w", err)
	}
	if _, err := m.systemctl(ctx, "enable", systemdServiceName); err != nil {
		return fmt.Errorf("failed to enable service; %w", err)
	}

	return nil
}

func (m *systemdManager) Uninstall(ctx context.Context) error {
	unitPath, err := m.UnitPath()
	if err != nil {
		return err
	}

	// Stop and disable fail harmlessly when the service is not running or enabled.
	_, _ = m.systemctl(ctx, "stop", systemdServiceName)
	_, _ = m.systemctl(ctx, "disable", systemdServiceName)

	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file; %w", err)
	}

	_, _ = m.systemctl(ctx, "daemon-reload")
	return nil
}

func (m *systemdManager) Start(ctx context.Context) error {
	if _, err := m.systemctl(ctx, "start", systemdServiceName); err != nil {
		return fmt.Errorf("failed to start service; %w", err)
	}
	return nil
}

func (m *systemdManager) Stop(ctx context.Context) error {
	if _, err := m.systemctl(ctx, "stop", systemdServiceName); err != nil {
		return fmt.Errorf("failed to stop service; %w", err)
	}
	return nil
}

func (m *systemdManager) Restart(ctx context.Context) error {
	if _, err := m.systemctl(ctx, "restart", systemdServiceName); err != nil {
		return fmt.Errorf("failed to restart service; %w", err)
	}
	return nil
}

func (m *systemdManager) Reload(ctx context.Context) error {
	if _, err := m.systemctl(ctx, "reload", systemdServiceName); err != nil {
		return fmt.Errorf("failed to reload service; %w", err)
	}
	return nil
}

func (m *systemdManager) Status(ctx context.Context) (Status, error) {
	status := Status{State: ServiceStateNotInstalled}

	unitPath, err := m.UnitPath()
	if err != nil {
		return status, err
	}
	status.UnitPath = unitPath

	installed, err := fileExists(unitPath)
	if err != nil {
		return status, fmt.Errorf("failed to check unit file; %w", err)
	}
	if !installed {
		return status, nil
	}

	output, err := m.systemctl(ctx, "show", systemdServiceName,
		"--property=ActiveState,MainPID,UnitFileState")
	if err != nil {
		// Installed, but the user manager could not be queried.
		status.State = ServiceStateDisabled
		return status, nil
	}

	status.State, status.PID, status.Running = parseSystemctlOutput(string(output))
	attachHealth(ctx, m.opts.Health, &status)
	return status, nil
}

func (m *systemdManager) IsInstalled() (bool, error) {
	unitPath, err := m.UnitPath()
	if err != nil {
		return false, err
	}
	return fileExists(unitPath)
}

// parseSystemctlOutput parses `systemctl show` key=value output into the
// service state, main PID and whether the unit is active.
func parseSystemctlOutput(output string) (ServiceState, int, bool) {
	state := ServiceStateDisabled
	pid := 0
	running := false

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}

		switch key {
		case "ActiveState":
			running = value == "active" || value == "activating" || value == "reloading"
		case "MainPID":
			if p, err := strconv.Atoi(value); err == nil && p > 0 {
				pid = p
			}
		case "UnitFileState":
			switch value {
			case "enabled", "enabled-runtime":
				state = ServiceStateEnabled
			case "disabled":
				state = ServiceStateDisabled
			}
		}
	}

	return state, pid, running
}
