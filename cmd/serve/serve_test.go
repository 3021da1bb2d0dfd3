package serve

import (
	"io"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func createTestCommand() *cobra.Command {
	serveBind, servePort = "", 0
	cmd := &cobra.Command{
		Use:     ServeCmd.Use,
		PreRunE: ServeCmd.PreRunE,
		RunE:    func(*cobra.Command, []string) error { return nil },
	}
	cmd.Flags().StringVar(&serveBind, "bind", "", "")
	cmd.Flags().IntVar(&servePort, "port", 0, "")
	return cmd
}

func TestValidateServe_Port(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "defaults", args: nil},
		{name: "valid port", args: []string{"--port", "9400", "--bind", "0.0.0.0"}},
		{name: "zero port", args: []string{"--port", "0"}, wantErr: "invalid --port 0"},
		{name: "port too large", args: []string{"--port", "70000"}, wantErr: "invalid --port 70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := createTestCommand()
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.False(t, cmd.SilenceUsage)
				return
			}
			assert.NoError(t, err)
			assert.True(t, cmd.SilenceUsage)
		})
	}
}

func TestNotify_NoSystemd(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	// Outside systemd this must be a silent no-op.
	notify(testLogger(t), "READY=1")
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
