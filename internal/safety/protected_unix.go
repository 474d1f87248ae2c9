//go:build !windows

package safety

import (
	"path/filepath"
	"runtime"
	"strings"
)

func defaultProtected() []string {
	base := []string{
		"/",
		"/bin",
		"/boot",
		"/dev",
		"/etc",
		"/lib",
		"/lib64",
		"/proc",
		"/root",
		"/sbin",
		"/sys",
		"/usr",
		"/var",
	}
	if runtime.GOOS == "darwin" {
		base = append(base, "/System", "/Library", "/private", "/Applications")
	}
	return base
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(s, prefix)
}
