// Package subcommands implements the job subcommands.
package subcommands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/leefowlercu/batch-monitor/internal/jobs"
	"github.com/leefowlercu/batch-monitor/internal/server"
)

// ServerURL overrides client.url for every job subcommand. Bound to --server
// on the parent command.
var ServerURL string

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output; %w", err)
	}
	return nil
}

func writeRecordJSON(w io.Writer, rec jobs.Record) error {
	return writeJSON(w, server.NewJobResponse(rec))
}

func describe(w io.Writer, rec jobs.Record) {
	fmt.Fprintf(w, "ID:       %s\n", rec.ID)
	fmt.Fprintf(w, "Name:     %s\n", rec.Name)
	fmt.Fprintf(w, "Status:   %s\n", rec.Status)
	fmt.Fprintf(w, "Started:  %s\n", rec.StartTime.Local().Format("2006-01-02 15:04:05.000"))
	if rec.EndTime != nil {
		fmt.Fprintf(w, "Ended:    %s\n", rec.EndTime.Local().Format("2006-01-02 15:04:05.000"))
		fmt.Fprintf(w, "Duration: %.3fs\n", rec.Duration().Seconds())
	}
}
