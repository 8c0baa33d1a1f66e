package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/mirro/internal/backup"
	"github.com/fakeyudi/mirro/internal/session"
	"github.com/fakeyudi/mirro/internal/target"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <backup>",
	Short: "Restore a file from a backup, preserving its current content first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		resolver := &target.Resolver{BackupDir: cfg.BackupDir}

		data, err := readBackup(resolver, args[0])
		if err != nil {
			return err
		}
		hdr, body, err := backup.ParseHeader(data)
		if err != nil {
			return err
		}

		tgt, err := resolver.Resolve(hdr.OriginalPath)
		if err != nil {
			return err
		}
		if err := tgt.CheckWritable(); err != nil {
			return err
		}

		if tgt.Exists {
			current, err := os.ReadFile(tgt.Path)
			if err != nil {
				return err
			}
			if !session.Changed(current, body) {
				cmd.Println("file already matches the backup")
				return nil
			}
			// The content being replaced gets its own backup first.
			if _, err := backup.Write(tgt.Path, current, tgt.BackupRoot, time.Now()); err != nil {
				return err
			}
			if err := session.Replace(tgt.Path, body); err != nil {
				return err
			}
			cmd.Printf("restored %s; previous content backed up at: %s\n", tgt.Path, tgt.BackupRoot)
			return nil
		}

		if err := session.Replace(tgt.Path, body); err != nil {
			return err
		}
		cmd.Printf("restored %s\n", tgt.Path)
		return nil
	},
}

// readBackup loads a backup either by path or by bare file name under the
// backup root.
func readBackup(resolver *target.Resolver, arg string) ([]byte, error) {
	data, err := os.ReadFile(arg)
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) || strings.ContainsRune(arg, os.PathSeparator) {
		return nil, err
	}
	root, rootErr := resolver.Root()
	if rootErr != nil {
		return nil, rootErr
	}
	data, err = os.ReadFile(filepath.Join(root, arg))
	if err != nil {
		return nil, fmt.Errorf("backup not found: %s", arg)
	}
	return data, nil
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
