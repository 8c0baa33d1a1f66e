package backup

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// nameStamp is the compact timestamp embedded in backup file names.
	nameStamp = "20060102T150405"
	// headerStamp is the human-readable timestamp in the header block.
	headerStamp = "2006-01-02 15:04:05"

	separator = "# ---------------------------------------------"
	label     = "# mirro backup"

	originalPrefix  = "# Original file: "
	timestampPrefix = "# Timestamp: "
	timestampSuffix = " UTC"
)

// Record describes one preserved original written under a backup root.
type Record struct {
	OriginalPath string    // absolute path of the file the backup preserves
	Timestamp    time.Time // UTC, second precision
	Root         string    // directory the backup lives in
	Name         string    // file name inside Root
}

// Path returns the full path of the backup file.
func (r *Record) Path() string {
	return filepath.Join(r.Root, r.Name)
}

// DirError is returned when the backup root cannot be created or written.
type DirError struct {
	Root string
	Err  error
}

func (e *DirError) Error() string {
	return "cannot write backup under " + e.Root + ": " + e.Err.Error()
}

func (e *DirError) Unwrap() error {
	return e.Err
}

// FileName derives the backup file name for originalPath at ts.
func FileName(originalPath string, ts time.Time) string {
	return filepath.Base(originalPath) + ".orig." + ts.UTC().Format(nameStamp) + ".bak"
}

// renderHeader produces the fixed header block prepended to every backup.
func renderHeader(originalPath string, ts time.Time) string {
	var sb strings.Builder
	sb.WriteString(separator + "\n")
	sb.WriteString(label + "\n")
	sb.WriteString(originalPrefix + originalPath + "\n")
	sb.WriteString(timestampPrefix + ts.UTC().Format(headerStamp) + timestampSuffix + "\n")
	sb.WriteString(separator + "\n")
	return sb.String()
}

// Write preserves original under root as a header-annotated backup file and
// flushes it to disk before returning. Two backups of the same file within
// the same second share a name; the later write overwrites the earlier one.
func Write(originalPath string, original []byte, root string, ts time.Time) (*Record, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &DirError{Root: root, Err: err}
	}

	ts = ts.UTC().Truncate(time.Second)
	name := FileName(originalPath, ts)
	path := filepath.Join(root, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, &DirError{Root: root, Err: err}
	}
	if _, err := f.WriteString(renderHeader(originalPath, ts)); err != nil {
		f.Close()
		return nil, &DirError{Root: root, Err: err}
	}
	if _, err := f.Write(original); err != nil {
		f.Close()
		return nil, &DirError{Root: root, Err: err}
	}
	// The commit must not proceed until the backup is on disk.
	if err := f.Sync(); err != nil {
		f.Close()
		return nil, &DirError{Root: root, Err: err}
	}
	if err := f.Close(); err != nil {
		return nil, &DirError{Root: root, Err: err}
	}

	return &Record{OriginalPath: originalPath, Timestamp: ts, Root: root, Name: name}, nil
}

// Header is the metadata parsed from a backup file's header block.
type Header struct {
	OriginalPath string
	Timestamp    time.Time
}

// ParseHeader splits a backup file into its header and the preserved body.
// The header is exactly five lines, so the body round-trips byte for byte
// even when it contains header-lookalike lines.
func ParseHeader(data []byte) (Header, []byte, error) {
	rest := data
	line := func() (string, bool) {
		i := bytes.IndexByte(rest, '\n')
		if i == -1 {
			return "", false
		}
		l := string(rest[:i])
		rest = rest[i+1:]
		return l, true
	}

	var hdr Header

	l, ok := line()
	if !ok || l != separator {
		return hdr, nil, errors.New("not a mirro backup: missing header separator")
	}
	l, ok = line()
	if !ok || l != label {
		return hdr, nil, errors.New("not a mirro backup: missing label line")
	}
	l, ok = line()
	if !ok || !strings.HasPrefix(l, originalPrefix) {
		return hdr, nil, errors.New("not a mirro backup: missing original file line")
	}
	hdr.OriginalPath = strings.TrimPrefix(l, originalPrefix)

	l, ok = line()
	if !ok || !strings.HasPrefix(l, timestampPrefix) || !strings.HasSuffix(l, timestampSuffix) {
		return hdr, nil, errors.New("not a mirro backup: missing timestamp line")
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(l, timestampPrefix), timestampSuffix)
	ts, err := time.Parse(headerStamp, stamp)
	if err != nil {
		return hdr, nil, fmt.Errorf("not a mirro backup: bad timestamp %q: %w", stamp, err)
	}
	hdr.Timestamp = ts.UTC()

	l, ok = line()
	if !ok || l != separator {
		return hdr, nil, errors.New("not a mirro backup: missing closing separator")
	}

	return hdr, rest, nil
}

// parseName extracts the timestamp from a backup file name.
// ok is false when the name does not follow the backup naming convention.
func parseName(name string) (time.Time, bool) {
	if !strings.HasSuffix(name, ".bak") {
		return time.Time{}, false
	}
	trimmed := strings.TrimSuffix(name, ".bak")
	i := strings.LastIndex(trimmed, ".orig.")
	if i <= 0 {
		return time.Time{}, false
	}
	ts, err := time.Parse(nameStamp, trimmed[i+len(".orig."):])
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}

// List returns the backups under root, newest first. Files that do not
// follow the backup naming convention or lack a valid header are skipped.
// A missing root means no backups yet.
func List(root string) ([]*Record, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, entry.Name()))
		if err != nil {
			continue
		}
		hdr, _, err := ParseHeader(data)
		if err != nil {
			continue
		}
		records = append(records, &Record{
			OriginalPath: hdr.OriginalPath,
			Timestamp:    ts,
			Root:         root,
			Name:         entry.Name(),
		})
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].Name < records[j].Name
	})
	return records, nil
}

// ListFor returns the backups of one original file under root, newest first.
func ListFor(root, originalPath string) ([]*Record, error) {
	all, err := List(root)
	if err != nil {
		return nil, err
	}
	var records []*Record
	for _, rec := range all {
		if rec.OriginalPath == originalPath {
			records = append(records, rec)
		}
	}
	return records, nil
}
