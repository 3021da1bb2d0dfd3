package servicemanager

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/batch-monitor/internal/server"
)

type fakeExecutor struct {
	mu       sync.Mutex
	commands []string
	outputs  map[string]string
	errors   map[string]error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{outputs: map[string]string{}, errors: map[string]error{}}
}

func (f *fakeExecutor) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, line)
	return []byte(f.outputs[line]), f.errors[line]
}

func (f *fakeExecutor) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

func TestPlatformFor(t *testing.T) {
	assert.Equal(t, PlatformLinux, platformFor("linux"))
	assert.Equal(t, PlatformMacOS, platformFor("darwin"))
	assert.Equal(t, PlatformWindows, platformFor("windows"))
	assert.Equal(t, PlatformUnknown, platformFor("plan9"))
	assert.Equal(t, "darwin", PlatformMacOS.String())
}

func TestIsPlatformSupported(t *testing.T) {
	assert.True(t, IsPlatformSupported(PlatformLinux))
	assert.True(t, IsPlatformSupported(PlatformMacOS))
	assert.False(t, IsPlatformSupported(PlatformWindows))
	assert.False(t, IsPlatformSupported(PlatformUnknown))
}

func TestBinaryPath(t *testing.T) {
	assert.NotEmpty(t, BinaryPath())
}

func TestNewWithExecutor(t *testing.T) {
	exec := newFakeExecutor()

	m, err := NewWithExecutor(PlatformLinux, exec, Options{BinaryPath: "/usr/bin/batchmon"})
	require.NoError(t, err)
	assert.IsType(t, &systemdManager{}, m)

	m, err = NewWithExecutor(PlatformMacOS, exec, Options{})
	require.NoError(t, err)
	assert.IsType(t, &launchdManager{}, m)
	assert.NotEmpty(t, m.(*launchdManager).opts.BinaryPath)

	_, err = NewWithExecutor(PlatformWindows, exec, Options{})
	assert.EqualError(t, err, "platform windows is not supported")
}

func TestAttachHealth(t *testing.T) {
	failing := func(context.Context) (*server.ReadyzResponse, error) {
		return nil, errors.New("connection refused")
	}

	stopped := Status{Running: false}
	attachHealth(context.Background(), failing, &stopped)
	assert.Empty(t, stopped.HealthError)

	running := Status{Running: true}
	attachHealth(context.Background(), failing, &running)
	assert.Nil(t, running.Health)
	assert.Equal(t, "connection refused", running.HealthError)

	attachHealth(context.Background(), healthy, &running)
	require.NotNil(t, running.Health)
	assert.True(t, running.Health.Ready)
}

func healthy(context.Context) (*server.ReadyzResponse, error) {
	return &server.ReadyzResponse{Status: "healthy", Ready: true, Backend: "sqlite"}, nil
}
