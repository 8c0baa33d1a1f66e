package target

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"
)

// Privilege is the effective privilege context of the running process.
type Privilege int

const (
	// Normal means the process runs as a regular user.
	Normal Privilege = iota
	// Elevated means the process runs with effective UID 0.
	Elevated
)

func (p Privilege) String() string {
	if p == Elevated {
		return "elevated"
	}
	return "normal"
}

// Target is the file mirro will edit, resolved with its edit context.
type Target struct {
	Path       string    // absolute path, symlinks resolved for existing files
	Exists     bool      // whether the file existed at resolution time
	Privilege  Privilege // effective privilege context
	BackupRoot string    // directory that receives backups for this target
}

// PathError is returned when the target path cannot be edited as a regular file.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "cannot edit " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// PrivilegeError reports a target the current user may not modify.
type PrivilegeError struct {
	Path   string
	Create bool // the missing permission is on the parent directory
}

func (e *PrivilegeError) Error() string {
	if e.Create {
		return "Need elevated privileges to create " + e.Path
	}
	return "Need elevated privileges to open " + e.Path
}

// Resolver resolves target paths into edit contexts. The zero value uses
// the real process identity; the function fields override identity lookups
// in tests.
type Resolver struct {
	// BackupDir overrides the derived backup root when non-empty.
	BackupDir string
	// EUID overrides the effective UID lookup (used in tests).
	EUID func() int
	// LookupHome overrides per-UID home directory lookup (used in tests).
	LookupHome func(uid int) (string, error)
}

// Resolve turns a path argument into a Target. It is pure resolution:
// nothing is created on disk, the backup root is only computed here.
func (r *Resolver) Resolve(path string) (*Target, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &PathError{Path: path, Err: err}
	}

	exists := false
	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if info.IsDir() {
			return nil, &PathError{Path: abs, Err: errors.New("is a directory")}
		}
		if !info.Mode().IsRegular() {
			return nil, &PathError{Path: abs, Err: fmt.Errorf("not a regular file (mode %v)", info.Mode())}
		}
		// Follow symlinks so the later rename replaces the real file,
		// not the link.
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		exists = true
	case errors.Is(err, os.ErrNotExist):
		// New file; the parent may not exist either, which surfaces later
		// as a create-permission failure.
	default:
		return nil, &PathError{Path: abs, Err: err}
	}

	priv := r.privilege()
	root, err := r.backupRoot(priv)
	if err != nil {
		return nil, err
	}

	return &Target{Path: abs, Exists: exists, Privilege: priv, BackupRoot: root}, nil
}

// Root returns the backup root for the current privilege context without
// resolving a target file.
func (r *Resolver) Root() (string, error) {
	return r.backupRoot(r.privilege())
}

func (r *Resolver) privilege() Privilege {
	if r.euid() == 0 {
		return Elevated
	}
	return Normal
}

// CheckWritable verifies the invoking user can modify the target: the file
// itself for an existing target, the parent directory for a new one.
func (t *Target) CheckWritable() error {
	if t.Exists {
		if err := unix.Access(t.Path, unix.W_OK); err != nil {
			return &PrivilegeError{Path: t.Path}
		}
		return nil
	}
	if err := unix.Access(filepath.Dir(t.Path), unix.W_OK); err != nil {
		return &PrivilegeError{Path: t.Path, Create: true}
	}
	return nil
}

func (r *Resolver) euid() int {
	if r.EUID != nil {
		return r.EUID()
	}
	return os.Geteuid()
}

// backupRoot derives the backup directory for the given privilege context.
// Precedence: explicit BackupDir, then (elevated) the root account's home,
// then $XDG_DATA_HOME/mirro, then ~/.local/share/mirro.
func (r *Resolver) backupRoot(priv Privilege) (string, error) {
	if r.BackupDir != "" {
		abs, err := filepath.Abs(r.BackupDir)
		if err != nil {
			return "", fmt.Errorf("resolving backup directory: %w", err)
		}
		return abs, nil
	}

	if priv == Elevated {
		// Look the home up from the effective UID so a sudo-inherited
		// HOME or XDG_DATA_HOME cannot redirect root's backups into the
		// invoking user's tree.
		home, err := r.lookupHome(0)
		if err != nil {
			return "", fmt.Errorf("resolving home for uid 0: %w", err)
		}
		return filepath.Join(home, ".local", "share", "mirro"), nil
	}

	if base := os.Getenv("XDG_DATA_HOME"); base != "" {
		return filepath.Join(base, "mirro"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "mirro"), nil
}

func (r *Resolver) lookupHome(uid int) (string, error) {
	if r.LookupHome != nil {
		return r.LookupHome(uid)
	}
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}
