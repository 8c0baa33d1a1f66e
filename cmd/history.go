package cmd

import (
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/mirro/internal/backup"
	"github.com/fakeyudi/mirro/internal/target"
	"github.com/fakeyudi/mirro/internal/tui"
)

var historyPlain bool

var historyCmd = &cobra.Command{
	Use:   "history [file]",
	Short: "Browse backups, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		resolver := &target.Resolver{BackupDir: cfg.BackupDir}

		root, err := resolver.Root()
		if err != nil {
			return err
		}

		var records []*backup.Record
		if len(args) == 1 {
			tgt, err := resolver.Resolve(args[0])
			if err != nil {
				return err
			}
			records, err = backup.ListFor(root, tgt.Path)
			if err != nil {
				return err
			}
		} else {
			records, err = backup.List(root)
			if err != nil {
				return err
			}
		}

		// Fall back to plain output when stdout is not a terminal.
		if historyPlain || !term.IsTerminal(os.Stdout.Fd()) {
			printRecords(cmd, records)
			return nil
		}
		return tui.Run(records, root)
	},
}

// printRecords writes a plain-text listing, one backup per line.
func printRecords(cmd *cobra.Command, records []*backup.Record) {
	if len(records) == 0 {
		cmd.Println("no backups")
		return
	}
	for _, rec := range records {
		cmd.Printf("%s  %s  %s\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.OriginalPath,
			rec.Name)
	}
}

func init() {
	historyCmd.Flags().BoolVar(&historyPlain, "plain", false, "plain text output instead of TUI")
	rootCmd.AddCommand(historyCmd)
}
