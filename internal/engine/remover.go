package engine

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/bamsammich/purge/internal/platform"
)

// Remover performs the removal syscalls. Implementations must be safe for
// concurrent use.
type Remover interface {
	RemoveFile(path string) error
	RemoveDir(path string) error
}

// OSRemover removes entries from the local filesystem.
type OSRemover struct{}

func (OSRemover) RemoveFile(path string) error { return platform.RemoveFile(path) }
func (OSRemover) RemoveDir(path string) error  { return platform.RemoveDir(path) }

// DryRunRemover reports every removal as successful without touching disk.
type DryRunRemover struct{}

func (DryRunRemover) RemoveFile(string) error { return nil }
func (DryRunRemover) RemoveDir(string) error  { return nil }

// Failure is one per-entry error recorded during a run.
type Failure struct {
	Err  error
	Path string
	Op   string // lstat, readdir, unlink, rmdir or panic
}

func (f Failure) Error() string {
	cause := f.Err
	var pathErr *fs.PathError
	if errors.As(cause, &pathErr) {
		cause = pathErr.Err
	}
	return fmt.Sprintf("%s %s: %v", f.Op, f.Path, cause)
}

func (f Failure) Unwrap() error { return f.Err }
