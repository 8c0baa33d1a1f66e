package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config holds all configurable mirro settings.
type Config struct {
	Editor    string `json:"editor"`     // editor command, e.g. "vim" or "code --wait"
	BackupDir string `json:"backup_dir"` // override the backup directory
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		Editor: "nano",
	}
}

// GlobalPath returns the path of the global config file.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mirro", "config.json"), nil
}

// LoadGlobal reads ~/.config/mirro/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path)
}

// loadFile reads and parses a JSON config file at path.
// Returns defaults when the file is absent.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			d := Defaults()
			return &d, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// FromEnv returns a config overlay built from the environment.
// Returns nil when no recognized variable is set.
func FromEnv() *Config {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return &Config{Editor: editor}
	}
	return nil
}

// Merge combines the file config and the environment overlay, with the
// overlay taking precedence. Missing keys fall back to file values, then
// defaults. Command-line flags are applied on top by the caller.
func Merge(file, env *Config) Config {
	result := Defaults()

	// Apply file values over defaults.
	if file != nil {
		if file.Editor != "" {
			result.Editor = file.Editor
		}
		if file.BackupDir != "" {
			result.BackupDir = file.BackupDir
		}
	}

	// Apply environment values over file.
	if env != nil {
		if env.Editor != "" {
			result.Editor = env.Editor
		}
		if env.BackupDir != "" {
			result.BackupDir = env.BackupDir
		}
	}

	return result
}

// Save writes the config to the global path, creating the config directory
// if needed.
func Save(cfg *Config) error {
	path, err := GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// RunSetup runs the interactive setup wizard and returns the resulting
// config. If existing is non-nil, it is used as the default for each prompt
// (edit mode).
func RunSetup(existing *Config, in io.Reader, out io.Writer) (*Config, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	cfg := Defaults()
	if existing != nil {
		cfg = *existing
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │     mirro — first-time setup    │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error

	cfg.Editor, err = ask("  Editor command", cfg.Editor)
	if err != nil {
		return nil, err
	}

	cfg.BackupDir, err = ask("  Backup directory (empty for the default location)", cfg.BackupDir)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	return &cfg, nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
