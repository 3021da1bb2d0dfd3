package subcommands

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/batch-monitor/internal/config"
)

// EditCmd opens the configuration file in an editor.
var EditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the configuration file in your default editor",
	Long: "Edit the configuration file in your default editor.\n\n" +
		"Opens the batchmon configuration file in the editor specified by " +
		"the EDITOR or VISUAL environment variable, falling back to vim, vi, nano " +
		"or emacs. A missing file is created with default values first.\n\n" +
		"The editor works on a draft copy. The draft replaces the configuration " +
		"only if it validates; otherwise it is kept next to the configuration as " +
		"config.yaml.draft and the active file is left untouched. A running service " +
		"picks up reloadable settings automatically.",
	Example: `  # Edit configuration with default editor
  batchmon config edit

  # Edit with a specific editor
  EDITOR=code batchmon config edit`,
	PreRunE: validateEdit,
	RunE:    runEdit,
}

func validateEdit(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configPath := config.GetConfigPath()

	if !config.ConfigExistsAt(configPath) {
		cfg := config.NewDefaultConfig()
		if err := config.Write(&cfg, configPath); err != nil {
			return err
		}
	}

	editor := findEditor()
	if editor == "" {
		return fmt.Errorf("no editor found; set EDITOR environment variable")
	}

	draftPath := configPath + ".draft"
	if err := copyFile(configPath, draftPath); err != nil {
		return err
	}

	editorCmd := exec.Command(editor, draftPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		os.Remove(draftPath)
		return fmt.Errorf("editor exited with error; %w", err)
	}

	if _, err := config.LoadFromPath(draftPath); err != nil {
		fmt.Fprintf(out, "Edited configuration is invalid:\n  %v\n", err)
		fmt.Fprintf(out, "Draft kept at %s; %s is unchanged.\n", draftPath, configPath)
		return fmt.Errorf("configuration is invalid")
	}

	if err := os.Rename(draftPath, configPath); err != nil {
		return fmt.Errorf("failed to install edited config; %w", err)
	}

	fmt.Fprintf(out, "Configuration saved: %s\n", configPath)
	return nil
}

// copyFile copies src to dst with owner-only permissions, replacing dst.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s; %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s; %w", dst, err)
	}
	return nil
}

func findEditor() string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}

	if editor := os.Getenv("VISUAL"); editor != "" {
		return editor
	}

	editors := []string{"vim", "vi", "nano", "emacs"}
	for _, editor := range editors {
		if _, err := exec.LookPath(editor); err == nil {
			return editor
		}
	}

	return ""
}
