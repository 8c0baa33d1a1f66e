package session

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/fakeyudi/mirro/internal/target"
)

// Placeholder seeds the staged copy when the target does not exist yet.
// It is treated like any other original content: saving it untouched is a
// no-op, and editing it makes it the preserved "original" in the backup.
const Placeholder = "This is a new file created with 'mirro'!\n"

// Session is one staged edit of a single target file. It owns a private
// staging directory holding the copy handed to the editor; the original
// content is captured once, before any editing begins.
type Session struct {
	ID         string // unique id, also embedded in the staging dir name
	TargetPath string // absolute path of the file being edited
	Original   []byte // content before editing; Placeholder for new files
	Existed    bool   // whether the target existed when staged
	StagedPath string // the copy the editor works on

	stagingDir string // removed by Cleanup; empty once cleaned
}

// Stage captures the target's current content and materializes a private
// staged copy for the editor. The staged file keeps the target's basename
// so editors detect the file type; the directory around it is fresh and
// unpredictable, so it can never collide with the backup root.
func Stage(tgt *target.Target) (*Session, error) {
	s := &Session{
		ID:         uuid.New().String(),
		TargetPath: tgt.Path,
		Existed:    tgt.Exists,
	}

	if tgt.Exists {
		content, err := os.ReadFile(tgt.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", tgt.Path, err)
		}
		s.Original = content
	} else {
		s.Original = []byte(Placeholder)
	}

	dir, err := os.MkdirTemp("", "mirro-"+s.ID[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	s.stagingDir = dir
	s.StagedPath = filepath.Join(dir, filepath.Base(tgt.Path))

	if err := os.WriteFile(s.StagedPath, s.Original, 0o600); err != nil {
		s.Cleanup()
		return nil, fmt.Errorf("populating staged copy: %w", err)
	}
	return s, nil
}

// Cleanup removes the staging directory. It runs on every exit path of an
// edit, regardless of outcome, and is safe to call more than once.
func (s *Session) Cleanup() {
	if s.stagingDir == "" {
		return
	}
	os.RemoveAll(s.stagingDir)
	s.stagingDir = ""
}

// Staged returns the staged file's current content.
func (s *Session) Staged() ([]byte, error) {
	return os.ReadFile(s.StagedPath)
}

// Changed reports whether the staged content differs from the original.
func (s *Session) Changed() (bool, error) {
	staged, err := s.Staged()
	if err != nil {
		return false, fmt.Errorf("reading staged copy: %w", err)
	}
	return Changed(s.Original, staged), nil
}

// Changed compares original and staged content byte for byte. There is no
// normalization of any kind: a single trailing-newline difference counts.
func Changed(original, staged []byte) bool {
	return !bytes.Equal(original, staged)
}

// Commit atomically replaces the target file with the staged content.
func (s *Session) Commit() error {
	staged, err := s.Staged()
	if err != nil {
		return &CommitError{Path: s.TargetPath, Err: err}
	}
	return Replace(s.TargetPath, staged)
}

// CommitError is returned when the target cannot be atomically replaced.
// A backup written before the failed commit stays on disk.
type CommitError struct {
	Path string
	Err  error
}

func (e *CommitError) Error() string {
	return "cannot commit " + e.Path + ": " + e.Err.Error()
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Replace rewrites path with content via a temp file in the same directory
// and a rename, so a crash mid-write never leaves path truncated or mixed.
// An existing file keeps its permission bits; a new file gets 0644.
func Replace(path string, content []byte) (err error) {
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".mirro-*.tmp")
	if err != nil {
		return &CommitError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, werr := tmp.Write(content); werr != nil {
		tmp.Close()
		err = &CommitError{Path: path, Err: werr}
		return err
	}
	if serr := tmp.Sync(); serr != nil {
		tmp.Close()
		err = &CommitError{Path: path, Err: serr}
		return err
	}
	if cerr := tmp.Chmod(mode); cerr != nil {
		tmp.Close()
		err = &CommitError{Path: path, Err: cerr}
		return err
	}
	if cerr := tmp.Close(); cerr != nil {
		err = &CommitError{Path: path, Err: cerr}
		return err
	}
	if rerr := os.Rename(tmpName, path); rerr != nil {
		err = &CommitError{Path: path, Err: rerr}
		return err
	}
	return nil
}

// Watch reports saves of the staged file until ctx is done. Each write or
// create event on the staged path invokes onSave with the event time.
// Editors that save via rename show up as create events, so the watch is
// on the staging directory rather than the file itself.
func (s *Session) Watch(ctx context.Context, onSave func(time.Time)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.stagingDir); err != nil {
		return fmt.Errorf("watching staging directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != s.StagedPath {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				onSave(time.Now())
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; the edit itself is unaffected.
		}
	}
}
