package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
)

// File is a Ledger backed by a line-oriented id file, so the record survives
// process restarts and can be shared between processes. Access is serialized
// with advisory file locks: exclusive for read-modify-write, shared for
// membership reads.
type File struct {
	path     string
	capacity int
	lock     *flock.Flock
}

// NewFile creates a file-backed ledger at path. The parent directory must
// exist. A capacity of zero or less falls back to DefaultCapacity.
func NewFile(path string, capacity int) *File {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &File{
		path:     path,
		capacity: capacity,
		lock:     flock.New(lockPath(path)),
	}
}

func lockPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".lock")
}

// RecordDeletion appends mediaID, dropping any earlier line for the same id
// and trimming to capacity, all under one exclusive lock.
func (f *File) RecordDeletion(mediaID int64) error {
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	defer func() { _ = f.lock.Unlock() }()

	ids, err := f.read()
	if err != nil {
		return err
	}

	out := make([]int64, 0, len(ids)+1)
	for _, id := range ids {
		if id != mediaID {
			out = append(out, id)
		}
	}
	out = append(out, mediaID)
	if len(out) > f.capacity {
		out = out[len(out)-f.capacity:]
	}

	return f.write(out)
}

// WasRecentlyDeleted reports whether mediaID appears in the file. A missing
// file reads as empty.
func (f *File) WasRecentlyDeleted(mediaID int64) (bool, error) {
	if err := f.lock.RLock(); err != nil {
		return false, fmt.Errorf("lock ledger: %w", err)
	}
	defer func() { _ = f.lock.Unlock() }()

	ids, err := f.read()
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == mediaID {
			return true, nil
		}
	}
	return false, nil
}

func (f *File) read() ([]int64, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var ids []int64
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			// Skip unparseable lines rather than poisoning every lookup.
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *File) write(ids []int64) error {
	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%d\n", id)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
