// Package safety decides whether a deletion target may be removed outright,
// needs an explicit confirmation, or must be refused.
package safety

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Verdict is the outcome of classifying a deletion target.
type Verdict int

const (
	Allowed Verdict = iota
	RequiresConfirmation
	Denied
)

var verdictNames = [...]string{
	Allowed:              "allowed",
	RequiresConfirmation: "requires-confirmation",
	Denied:               "denied",
}

func (v Verdict) String() string {
	if int(v) >= 0 && int(v) < len(verdictNames) {
		return verdictNames[v]
	}
	return "unknown"
}

// Reason records which rule produced a Verdict.
type Reason int

const (
	ReasonInvalid Reason = iota
	ReasonProtected
	ReasonRelative
	ReasonUnderHome
	ReasonUnderCwd
	ReasonOutside
)

var reasonText = [...]string{
	ReasonInvalid:   "empty or unusable path",
	ReasonProtected: "protected system path",
	ReasonRelative:  "relative path",
	ReasonUnderHome: "inside home directory",
	ReasonUnderCwd:  "inside current directory",
	ReasonOutside:   "absolute path outside home and current directory",
}

func (r Reason) String() string {
	if int(r) >= 0 && int(r) < len(reasonText) {
		return reasonText[r]
	}
	return "unknown"
}

// Classification is the verdict for one input path.
type Classification struct {
	Input   string // path as given by the caller
	Path    string // absolute, cleaned, symlinks not evaluated
	Verdict Verdict
	Reason  Reason
}

func (c Classification) String() string {
	return fmt.Sprintf("%s: %s (%s)", c.Input, c.Verdict, c.Reason)
}

// Classifier holds the environment a path is judged against.
type Classifier struct {
	Home      string
	Cwd       string
	Protected []string
}

// New returns a classifier for the given home and working directory using the
// platform's protected set plus any extra entries.
func New(home, cwd string, extraProtected ...string) *Classifier {
	protected := defaultProtected()
	for _, p := range extraProtected {
		if strings.TrimSpace(p) == "" {
			continue
		}
		protected = append(protected, filepath.Clean(p))
	}
	return &Classifier{
		Home:      cleanOrEmpty(home),
		Cwd:       cleanOrEmpty(cwd),
		Protected: protected,
	}
}

// FromEnv builds a classifier from the process home and working directory.
func FromEnv(extraProtected ...string) (*Classifier, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "" // no home: nothing is allowed by the home rule
	}
	return New(home, cwd, extraProtected...), nil
}

// Classify judges path against home and cwd with the default protected set.
func Classify(path, home, cwd string) Classification {
	return New(home, cwd).Classify(path)
}

// Classify returns the verdict for path. It reads no filesystem state.
func (c *Classifier) Classify(path string) Classification {
	out := Classification{Input: path}

	if strings.TrimSpace(path) == "" {
		out.Verdict, out.Reason = Denied, ReasonInvalid
		return out
	}

	abs, ok := c.normalize(path)
	if !ok {
		out.Verdict, out.Reason = Denied, ReasonInvalid
		return out
	}
	out.Path = abs

	switch {
	case c.isProtected(abs):
		out.Verdict, out.Reason = Denied, ReasonProtected
	case !filepath.IsAbs(path):
		out.Verdict, out.Reason = Allowed, ReasonRelative
	case c.Home != "" && isDescendant(abs, c.Home):
		out.Verdict, out.Reason = Allowed, ReasonUnderHome
	case c.Cwd != "" && isDescendant(abs, c.Cwd):
		out.Verdict, out.Reason = Allowed, ReasonUnderCwd
	default:
		out.Verdict, out.Reason = RequiresConfirmation, ReasonOutside
	}
	return out
}

func (c *Classifier) normalize(path string) (string, bool) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), true
	}
	if c.Cwd == "" {
		return "", false
	}
	return filepath.Join(c.Cwd, path), true
}

// isProtected reports whether path is a protected entry or an ancestor of one.
func (c *Classifier) isProtected(path string) bool {
	for _, prot := range c.Protected {
		if samePath(path, prot) || isDescendant(prot, path) {
			return true
		}
	}
	return false
}

// ExpandHome replaces a leading "~" with home.
func ExpandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return filepath.Join(home, path[2:])
	}
	return path
}

// isDescendant reports whether path lies strictly below root.
func isDescendant(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if samePath(path, root) {
		return false
	}
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return hasPrefixFold(path, root)
	}
	return hasPrefixFold(path, root+string(filepath.Separator))
}

func cleanOrEmpty(p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	return filepath.Clean(p)
}
