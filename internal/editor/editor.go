package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Launcher opens an editor command on a staged file and blocks until the
// editor exits. This abstraction allows substituting a fake editor in tests.
type Launcher func(ctx context.Context, editor, path string) error

// AbortedError is returned when the editor exits with a non-zero status.
// The edit is discarded in that case.
type AbortedError struct {
	Editor string
	Code   int
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("editor %s exited with status %d", e.Editor, e.Code)
}

// Command splits an editor setting into argv form and appends the path to
// edit. Settings like "code --wait" carry their own flags.
func Command(editor, path string) ([]string, error) {
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		return nil, errors.New("no editor configured")
	}
	return append(fields, path), nil
}

// Launch runs the configured editor attached to the caller's terminal and
// blocks until it exits. A non-zero exit surfaces as *AbortedError.
func Launch(ctx context.Context, editor, path string) error {
	argv, err := Command(editor, path)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &AbortedError{Editor: argv[0], Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("launching editor %s: %w", argv[0], err)
	}
	return nil
}
