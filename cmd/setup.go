package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/mirro/internal/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure mirro (re-run anytime to edit settings)",
	Args:  cobra.NoArgs,
	// Bypass the normal PersistentPreRunE so setup also works when the
	// config file is malformed; setup is the repair path.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		// Load existing settings as defaults if present. A malformed file
		// falls back to built-in defaults and gets rewritten on save.
		existing, err := config.LoadGlobal()
		if err != nil {
			existing = nil
		}

		updated, err := config.RunSetup(existing, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("setup cancelled: %w", err)
		}

		if err := config.Save(updated); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		path, err := config.GlobalPath()
		if err != nil {
			return err
		}
		cmd.Printf("  ✓ Config saved to %s\n", path)
		cmd.Println("  Setup complete. Run 'mirro <file>' to edit safely.")
		cmd.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
