//go:build !linux && !darwin && !freebsd

package platform

import "os"

// Method is the removal strategy compiled for this platform.
const Method = Portable

// RemoveFile removes a non-directory entry.
func RemoveFile(path string) error {
	return os.Remove(path)
}

// RemoveDir removes an empty directory.
func RemoveDir(path string) error {
	return os.Remove(path)
}
