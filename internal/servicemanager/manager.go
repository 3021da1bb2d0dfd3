package servicemanager

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"text/template"

	"github.com/leefowlercu/batch-monitor/internal/server"
)

// ServiceState represents the installation state of the service.
type ServiceState string

const (
	// ServiceStateEnabled indicates the service is installed and starts at login.
	ServiceStateEnabled ServiceState = "enabled"

	// ServiceStateDisabled indicates the service is installed but not enabled.
	ServiceStateDisabled ServiceState = "disabled"

	// ServiceStateNotInstalled indicates no service file exists.
	ServiceStateNotInstalled ServiceState = "not-installed"
)

// String returns the service state as a string.
func (s ServiceState) String() string {
	return string(s)
}

// Status is the state of the installed service.
type Status struct {
	State   ServiceState `json:"state"`
	Running bool         `json:"running"`
	PID     int          `json:"pid,omitempty"`
	// Health is the /readyz answer of the running service, nil when it
	// is stopped or unreachable.
	Health *server.ReadyzResponse `json:"health,omitempty"`
	// HealthError explains a missing Health for a running service.
	HealthError string `json:"health_error,omitempty"`
	// UnitPath is the service file location.
	UnitPath string `json:"unit_path"`
}

// Manager installs and controls the batchmon service.
type Manager interface {
	// Install writes the service file and enables auto-start.
	Install(ctx context.Context) error

	// Uninstall stops the service, disables auto-start, and removes the service file.
	Uninstall(ctx context.Context) error

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error

	// Reload asks the running service to re-read its configuration.
	Reload(ctx context.Context) error

	// Status returns the service state, including health when running.
	Status(ctx context.Context) (Status, error)

	// IsInstalled checks if the service file exists.
	IsInstalled() (bool, error)

	// UnitPath returns where the service file lives.
	UnitPath() (string, error)
}

// CommandExecutor abstracts command execution for testability.
type CommandExecutor interface {
	// Run executes a command and returns its combined output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type defaultExecutor struct{}

func (e *defaultExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// NewCommandExecutor returns the os/exec backed executor.
func NewCommandExecutor() CommandExecutor {
	return &defaultExecutor{}
}

// HealthFunc queries the readiness endpoint of the running service.
type HealthFunc func(ctx context.Context) (*server.ReadyzResponse, error)

// Options describes the service to install.
type Options struct {
	// BinaryPath is the batchmon executable; defaults to BinaryPath().
	BinaryPath string

	// ConfigDir is exported to the service as BATCHMON_CONFIG_DIR when set.
	ConfigDir string

	// Health is called by Status for a running service. Optional.
	Health HealthFunc
}

// New returns the Manager for the current platform.
func New(opts Options) (Manager, error) {
	return NewWithExecutor(DetectPlatform(), NewCommandExecutor(), opts)
}

// NewWithExecutor returns the Manager for platform using executor.
func NewWithExecutor(platform Platform, executor CommandExecutor, opts Options) (Manager, error) {
	if opts.BinaryPath == "" {
		opts.BinaryPath = BinaryPath()
	}

	switch platform {
	case PlatformLinux:
		return newSystemdManager(executor, opts), nil
	case PlatformMacOS:
		return newLaunchdManager(executor, opts), nil
	default:
		return nil, fmt.Errorf("platform %s is not supported", platform)
	}
}

// renderTemplate executes a service file template with opts.
func renderTemplate(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template; %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute %s template; %w", name, err)
	}
	return buf.String(), nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// attachHealth fills the health fields of a running service.
func attachHealth(ctx context.Context, health HealthFunc, status *Status) {
	if !status.Running || health == nil {
		return
	}
	h, err := health(ctx)
	if err != nil {
		status.HealthError = err.Error()
		return
	}
	status.Health = h
}
