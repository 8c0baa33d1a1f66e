package edit

import (
	"context"
	"time"

	"github.com/fakeyudi/mirro/internal/backup"
	"github.com/fakeyudi/mirro/internal/editor"
	"github.com/fakeyudi/mirro/internal/session"
	"github.com/fakeyudi/mirro/internal/target"
)

// Runner sequences one edit of one target file: resolve, stage, hand the
// staged copy to the editor, detect changes, and on a real change write a
// backup of the original before committing. The zero-value function fields
// use the real editor and clock; tests inject their own.
type Runner struct {
	Path     string           // target path as given by the user
	Resolver *target.Resolver // nil means a default resolver
	Editor   string           // editor command, e.g. "nano" or "code --wait"
	Launch   editor.Launcher  // nil means the real editor subprocess
	Now      func() time.Time // nil means time.Now
	OnSave   func(time.Time)  // optional notification for staged-file saves
}

// Result is the outcome of a completed run.
type Result struct {
	Target  *target.Target
	Changed bool
	Backup  *backup.Record // nil when nothing changed
}

// Message returns the user-facing outcome line.
func (res *Result) Message() string {
	if !res.Changed {
		return "file hasn't changed"
	}
	return "file changed; original backed up at: " + res.Target.BackupRoot
}

// Run executes the edit pipeline. The target file is never touched until a
// backup of its original content is durably on disk; the staging copy is
// removed on every exit path, including errors and aborts.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	resolver := r.Resolver
	if resolver == nil {
		resolver = &target.Resolver{}
	}
	tgt, err := resolver.Resolve(r.Path)
	if err != nil {
		return nil, err
	}
	if err := tgt.CheckWritable(); err != nil {
		return nil, err
	}

	s, err := session.Stage(tgt)
	if err != nil {
		return nil, err
	}
	defer s.Cleanup()

	// Save notifications are best-effort; the watcher dies with the context.
	// Run does not return until the watcher has, so OnSave never fires after
	// the result is in the caller's hands.
	if r.OnSave != nil {
		watchCtx, stop := context.WithCancel(ctx)
		watchDone := make(chan struct{})
		go func() {
			defer close(watchDone)
			s.Watch(watchCtx, r.OnSave)
		}()
		defer func() {
			stop()
			<-watchDone
		}()
	}

	launch := r.Launch
	if launch == nil {
		launch = editor.Launch
	}
	if err := launch(ctx, r.Editor, s.StagedPath); err != nil {
		return nil, err
	}

	changed, err := s.Changed()
	if err != nil {
		return nil, err
	}
	if !changed {
		return &Result{Target: tgt, Changed: false}, nil
	}

	now := r.Now
	if now == nil {
		now = time.Now
	}
	rec, err := backup.Write(tgt.Path, s.Original, tgt.BackupRoot, now())
	if err != nil {
		return nil, err
	}
	if err := s.Commit(); err != nil {
		// The backup stays on disk; an extra backup is never harmful.
		return nil, err
	}

	return &Result{Target: tgt, Changed: true, Backup: rec}, nil
}
