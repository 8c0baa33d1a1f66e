package editor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/fakeyudi/mirro/internal/editor"
)

func TestCommandSplitsFlags(t *testing.T) {
	argv, err := editor.Command("code --wait", "/tmp/staged.txt")
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	want := []string{"code", "--wait", "/tmp/staged.txt"}
	if !reflect.DeepEqual(argv, want) {
		t.Errorf("argv: want %v, got %v", want, argv)
	}
}

func TestCommandBareEditor(t *testing.T) {
	argv, err := editor.Command("nano", "/tmp/staged.txt")
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	want := []string{"nano", "/tmp/staged.txt"}
	if !reflect.DeepEqual(argv, want) {
		t.Errorf("argv: want %v, got %v", want, argv)
	}
}

func TestCommandEmptyEditor(t *testing.T) {
	if _, err := editor.Command("   ", "/tmp/staged.txt"); err == nil {
		t.Fatal("expected an error for an empty editor setting, got nil")
	}
}

func TestLaunchZeroExit(t *testing.T) {
	if err := editor.Launch(context.Background(), "true", "/dev/null"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLaunchNonZeroExitIsAborted(t *testing.T) {
	err := editor.Launch(context.Background(), "false", "/dev/null")
	if err == nil {
		t.Fatal("expected an error for a non-zero editor exit, got nil")
	}
	var aborted *editor.AbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("expected *AbortedError, got %T: %v", err, err)
	}
	if aborted.Code != 1 {
		t.Errorf("Code: want 1, got %d", aborted.Code)
	}
}

func TestLaunchMissingEditorIsNotAborted(t *testing.T) {
	err := editor.Launch(context.Background(), "definitely-not-an-editor-binary", "/dev/null")
	if err == nil {
		t.Fatal("expected an error for a missing editor binary, got nil")
	}
	var aborted *editor.AbortedError
	if errors.As(err, &aborted) {
		t.Errorf("a missing binary should not look like a user abort: %v", err)
	}
}

// A scripted editor exercises the real subprocess path end to end: it must
// receive the staged path as its final argument and its writes must land.
func TestLaunchRunsScriptAgainstPath(t *testing.T) {
	tmp := t.TempDir()

	staged := filepath.Join(tmp, "staged.txt")
	if err := os.WriteFile(staged, []byte("before\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	script := filepath.Join(tmp, "fake-editor.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho edited > \"$1\"\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := editor.Launch(context.Background(), script, staged); err != nil {
		t.Fatalf("Launch: %v", err)
	}

	data, err := os.ReadFile(staged)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "edited\n" {
		t.Errorf("staged content: want %q, got %q", "edited\n", data)
	}
}
