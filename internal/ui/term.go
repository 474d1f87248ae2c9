package ui

import (
	"os"

	"golang.org/x/term"
)

const defaultWidth = 80

// IsTTY reports whether f is a terminal.
func IsTTY(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// TermWidth returns the width of f in columns, or 80 if it cannot be determined.
func TermWidth(f *os.File) int {
	if f == nil {
		return defaultWidth
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}
