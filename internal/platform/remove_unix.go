//go:build linux || darwin || freebsd

package platform

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// Method is the removal strategy compiled for this platform.
const Method = Unlinkat

// RemoveFile unlinks a non-directory entry. Symlinks are removed, never
// followed. Unlike os.Remove it does not retry as rmdir on failure, so each
// entry costs exactly one syscall.
func RemoveFile(path string) error {
	return unlinkat(path, 0, "unlink")
}

// RemoveDir removes an empty directory.
func RemoveDir(path string) error {
	return unlinkat(path, unix.AT_REMOVEDIR, "rmdir")
}

func unlinkat(path string, flags int, op string) error {
	for {
		err := unix.Unlinkat(unix.AT_FDCWD, path, flags)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return &os.PathError{Op: op, Path: path, Err: err}
		}
		return nil
	}
}
