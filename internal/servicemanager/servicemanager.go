// Package servicemanager installs and controls `batchmon serve` as a per-user
// service: a systemd user unit on Linux, a launchd agent on macOS.
package servicemanager

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// binaryName is the executable looked up when the running binary cannot be resolved.
const binaryName = "batchmon"

// Platform represents an operating system platform.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformMacOS   Platform = "darwin"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

// String returns the platform as a string.
func (p Platform) String() string {
	return string(p)
}

// DetectPlatform returns the current platform.
func DetectPlatform() Platform {
	return platformFor(runtime.GOOS)
}

func platformFor(goos string) Platform {
	switch goos {
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnknown
	}
}

// IsPlatformSupported returns true if the platform has a service backend.
func IsPlatformSupported(p Platform) bool {
	return p == PlatformLinux || p == PlatformMacOS
}

// BinaryPath returns the path the service should execute.
// It checks in order:
//  1. The current executable path
//  2. ~/.local/bin/batchmon
//  3. PATH lookup
func BinaryPath() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}

	if home, err := homeDir(); err == nil {
		localBin := filepath.Join(home, ".local", "bin", binaryName)
		if _, err := os.Stat(localBin); err == nil {
			return localBin
		}
	}

	if path, err := exec.LookPath(binaryName); err == nil {
		return path
	}

	return binaryName
}

// homeDir prefers $HOME so tests can redirect unit files.
func homeDir() (string, error) {
	if home := os.Getenv("HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory; %w", err)
	}
	return home, nil
}
