package servicemanager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	launchdServiceLabel = "com.leefowlercu.batchmon"
	launchdPlistName    = launchdServiceLabel + ".plist"
)

const launchdPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.BinaryPath}}</string>
        <string>serve</string>
    </array>
{{- if .ConfigDir}}
    <key>EnvironmentVariables</key>
    <dict>
        <key>BATCHMON_CONFIG_DIR</key>
        <string>{{.ConfigDir}}</string>
    </dict>
{{- end}}
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <dict>
        <key>SuccessfulExit</key>
        <false/>
    </dict>
    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>
`

type launchdManager struct {
	executor CommandExecutor
	opts     Options
}

func newLaunchdManager(executor CommandExecutor, opts Options) *launchdManager {
	return &launchdManager{executor: executor, opts: opts}
}

func (m *launchdManager) UnitPath() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", launchdPlistName), nil
}

func (m *launchdManager) generatePlist() (string, error) {
	data := struct {
		Options
		Label string
	}{Options: m.opts, Label: launchdServiceLabel}
	return renderTemplate("plist", launchdPlistTemplate, data)
}

func (m *launchdManager) Install(ctx context.Context) error {
	plistPath, err := m.UnitPath()
	if err != nil {
		return err
	}

	content, err := m.generatePlist()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory; %w", err)
	}
	if err := os.WriteFile(plistPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write plist file; %w", err)
	}

	// load -w also enables the agent.
	if _, err := m.executor.Run(ctx, "launchctl", "load", "-w", plistPath); err != nil {
		return fmt.Errorf("failed to load service with launchctl; %w", err)
	}

	return nil
}

func (m *launchdManager) Uninstall(ctx context.Context) error {
	plistPath, err := m.UnitPath()
	if err != nil {
		return err
	}

	_, _ = m.executor.Run(ctx, "launchctl", "unload", plistPath)

	if err := os.Remove(plistPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plist file; %w", err)
	}
	return nil
}

func (m *launchdManager) Start(ctx context.Context) error {
	if _, err := m.executor.Run(ctx, "launchctl", "start", launchdServiceLabel); err != nil {
		return fmt.Errorf("failed to start service; %w", err)
	}
	return nil
}

func (m *launchdManager) Stop(ctx context.Context) error {
	if _, err := m.executor.Run(ctx, "launchctl", "stop", launchdServiceLabel); err != nil {
		return fmt.Errorf("failed to stop service; %w", err)
	}
	return nil
}

func (m *launchdManager) Restart(ctx context.Context) error {
	_ = m.Stop(ctx)

	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	return m.Start(ctx)
}

// Reload sends SIGHUP to the agent's process.
func (m *launchdManager) Reload(ctx context.Context) error {
	if _, err := m.executor.Run(ctx, "launchctl", "kill", "SIGHUP", launchdTarget()); err != nil {
		return fmt.Errorf("failed to reload service; %w", err)
	}
	return nil
}

func launchdTarget() string {
	return fmt.Sprintf("gui/%d/%s", os.Getuid(), launchdServiceLabel)
}

func (m *launchdManager) Status(ctx context.Context) (Status, error) {
	status := Status{State: ServiceStateNotInstalled}

	plistPath, err := m.UnitPath()
	if err != nil {
		return status, err
	}
	status.UnitPath = plistPath

	installed, err := fileExists(plistPath)
	if err != nil {
		return status, fmt.Errorf("failed to check plist file; %w", err)
	}
	if !installed {
		return status, nil
	}

	output, err := m.executor.Run(ctx, "launchctl", "list", launchdServiceLabel)
	if err != nil {
		// Installed but not loaded.
		status.State = ServiceStateDisabled
		return status, nil
	}

	status.State = ServiceStateEnabled
	status.PID, status.Running = parseLaunchctlOutput(string(output))
	attachHealth(ctx, m.opts.Health, &status)
	return status, nil
}

func (m *launchdManager) IsInstalled() (bool, error) {
	plistPath, err := m.UnitPath()
	if err != nil {
		return false, err
	}
	return fileExists(plistPath)
}

// parseLaunchctlOutput extracts the PID from `launchctl list <label>`,
// which prints either a plist-like dictionary ("PID" = 123;) or a
// PID\tStatus\tLabel row.
func parseLaunchctlOutput(output string) (int, bool) {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, `"PID"`) {
			if _, value, ok := strings.Cut(line, "="); ok {
				value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), ";"))
				if pid, err := strconv.Atoi(value); err == nil && pid > 0 {
					return pid, true
				}
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) >= 1 {
			if pid, err := strconv.Atoi(fields[0]); err == nil && pid > 0 {
				return pid, true
			}
		}
	}

	return 0, false
}
