package target_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fakeyudi/mirro/internal/target"
)

// resolver returns a Resolver with identity lookups pinned so tests are
// independent of the UID and passwd database of the machine running them.
func resolver(euid int, rootHome string) *target.Resolver {
	return &target.Resolver{
		EUID:       func() int { return euid },
		LookupHome: func(uid int) (string, error) { return rootHome, nil },
	}
}

func TestResolveReturnsAbsolutePath(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	tgt, err := resolver(1000, "").Resolve("notes.txt")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !filepath.IsAbs(tgt.Path) {
		t.Errorf("expected absolute path, got %q", tgt.Path)
	}
	if filepath.Base(tgt.Path) != "notes.txt" {
		t.Errorf("expected basename notes.txt, got %q", tgt.Path)
	}
	if tgt.Exists {
		t.Error("expected Exists=false for a missing file")
	}
}

func TestResolveExistingFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	path := filepath.Join(tmp, "notes.txt")
	if err := os.WriteFile(path, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tgt, err := resolver(1000, "").Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !tgt.Exists {
		t.Error("expected Exists=true for an existing file")
	}
	if tgt.Privilege != target.Normal {
		t.Errorf("expected Normal privilege, got %v", tgt.Privilege)
	}
}

func TestResolveRejectsDirectory(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	_, err := resolver(1000, "").Resolve(tmp)
	if err == nil {
		t.Fatal("expected an error for a directory target, got nil")
	}
	var pathErr *target.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected *PathError, got %T: %v", err, err)
	}
	if pathErr.Path != tmp {
		t.Errorf("PathError.Path: want %q, got %q", tmp, pathErr.Path)
	}
}

func TestBackupRootNormalUsesXDGDataHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	tgt, err := resolver(1000, "").Resolve(filepath.Join(tmp, "notes.txt"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(tmp, "mirro")
	if tgt.BackupRoot != want {
		t.Errorf("BackupRoot: want %q, got %q", want, tgt.BackupRoot)
	}
}

func TestBackupRootNormalFallsBackToHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", tmp)

	tgt, err := resolver(1000, "").Resolve(filepath.Join(tmp, "notes.txt"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(tmp, ".local", "share", "mirro")
	if tgt.BackupRoot != want {
		t.Errorf("BackupRoot: want %q, got %q", want, tgt.BackupRoot)
	}
}

func TestBackupRootElevatedIgnoresEnvironment(t *testing.T) {
	tmp := t.TempDir()
	// A sudo-style environment still carrying the invoking user's paths.
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "user-data"))
	t.Setenv("HOME", filepath.Join(tmp, "user-home"))

	rootHome := filepath.Join(tmp, "root-home")
	tgt, err := resolver(0, rootHome).Resolve(filepath.Join(tmp, "notes.txt"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tgt.Privilege != target.Elevated {
		t.Errorf("expected Elevated privilege, got %v", tgt.Privilege)
	}
	want := filepath.Join(rootHome, ".local", "share", "mirro")
	if tgt.BackupRoot != want {
		t.Errorf("BackupRoot: want %q, got %q", want, tgt.BackupRoot)
	}
}

func TestBackupRootExplicitOverrideWins(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "xdg"))

	override := filepath.Join(tmp, "backups")
	r := resolver(0, filepath.Join(tmp, "root-home"))
	r.BackupDir = override

	tgt, err := r.Resolve(filepath.Join(tmp, "notes.txt"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tgt.BackupRoot != override {
		t.Errorf("BackupRoot: want %q, got %q", override, tgt.BackupRoot)
	}
}

func TestCheckWritableExistingReadOnlyFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root; permission checks are ineffective")
	}

	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	path := filepath.Join(tmp, "readonly.txt")
	if err := os.WriteFile(path, []byte("locked\n"), 0o444); err != nil {
		t.Fatal(err)
	}

	tgt, err := resolver(1000, "").Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	err = tgt.CheckWritable()
	if err == nil {
		t.Fatal("expected a privilege error for a read-only file, got nil")
	}
	var privErr *target.PrivilegeError
	if !errors.As(err, &privErr) {
		t.Fatalf("expected *PrivilegeError, got %T: %v", err, err)
	}
	want := "Need elevated privileges to open " + path
	if err.Error() != want {
		t.Errorf("message: want %q, got %q", want, err.Error())
	}
}

func TestCheckWritableNewFileInReadOnlyDir(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root; permission checks are ineffective")
	}

	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	dir := filepath.Join(tmp, "locked")
	if err := os.Mkdir(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	path := filepath.Join(dir, "new.txt")
	tgt, err := resolver(1000, "").Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	err = tgt.CheckWritable()
	if err == nil {
		t.Fatal("expected a privilege error for an unwritable parent, got nil")
	}
	want := "Need elevated privileges to create " + path
	if err.Error() != want {
		t.Errorf("message: want %q, got %q", want, err.Error())
	}
}

func TestCheckWritableOK(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	path := filepath.Join(tmp, "ok.txt")
	if err := os.WriteFile(path, []byte("fine\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tgt, err := resolver(1000, "").Resolve(path)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := tgt.CheckWritable(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
