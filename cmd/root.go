package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/mirro/internal/config"
	"github.com/fakeyudi/mirro/internal/edit"
	"github.com/fakeyudi/mirro/internal/target"
)

// version is overridable at build time via
// -ldflags "-X github.com/fakeyudi/mirro/cmd.version=…".
var version = "0.4.0"

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

var (
	editorFlag    string
	backupDirFlag string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:          "mirro <file>",
	Short:        "Edit a file through a staged copy, backing up the original on change",
	Version:      version,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = config.Merge(global, config.FromEnv())

		// Flags override both the config file and the environment.
		if editorFlag != "" {
			cfg.Editor = editorFlag
		}
		if backupDirFlag != "" {
			cfg.BackupDir = backupDirFlag
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		runner := &edit.Runner{
			Path:     args[0],
			Resolver: &target.Resolver{BackupDir: cfg.BackupDir},
			Editor:   cfg.Editor,
		}
		if verbose {
			runner.OnSave = func(ts time.Time) {
				cmd.Printf("staged copy saved at %s\n", ts.Format("15:04:05"))
			}
		}

		res, err := runner.Run(cmd.Context())
		if err != nil {
			return err
		}

		if verbose {
			cmd.Printf("target: %s\n", res.Target.Path)
			if res.Backup != nil {
				cmd.Printf("backup file: %s\n", res.Backup.Path())
			}
		}
		cmd.Println(res.Message())
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backupDirFlag, "backup-dir", "", "directory for backups (overrides config)")
	rootCmd.Flags().StringVarP(&editorFlag, "editor", "e", "", "editor command (overrides $EDITOR and config)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print session details while editing")
}
