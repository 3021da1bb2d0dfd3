package version

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/batch-monitor/internal/version"
)

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	versionJSON = false
	cmd := &cobra.Command{
		Use:     VersionCmd.Use,
		Args:    VersionCmd.Args,
		PreRunE: VersionCmd.PreRunE,
		RunE:    VersionCmd.RunE,
	}
	cmd.Flags().BoolVar(&versionJSON, "json", false, "")

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return buf.String()
}

func TestVersionCommand_Text(t *testing.T) {
	out := runCommand(t)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	for _, label := range []string{"Version:", "Git Commit:", "Build Date:", "Go Version:"} {
		assert.Contains(t, out, label)
	}
}

func TestVersionCommand_JSON(t *testing.T) {
	out := runCommand(t, "--json")

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Get(), info)
}
