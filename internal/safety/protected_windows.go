//go:build windows

package safety

import (
	"os"
	"path/filepath"
	"strings"
)

func defaultProtected() []string {
	drive := os.Getenv("SystemDrive")
	if drive == "" {
		drive = "C:"
	}
	root := drive + `\`
	sysRoot := os.Getenv("SystemRoot")
	if sysRoot == "" {
		sysRoot = filepath.Join(root, "Windows")
	}
	return []string{
		root,
		sysRoot,
		filepath.Join(root, "Program Files"),
		filepath.Join(root, "Program Files (x86)"),
		filepath.Join(root, "ProgramData"),
		filepath.Join(root, "Users"),
	}
}

// NTFS paths compare case-insensitively.
func samePath(a, b string) bool {
	return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
