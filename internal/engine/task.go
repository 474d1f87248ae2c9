package engine

// Kind identifies what a Task removes.
type Kind int

const (
	RemoveFile Kind = iota // any non-directory entry, symlinks included
	RemoveDir
)

func (k Kind) String() string {
	switch k {
	case RemoveFile:
		return "file"
	case RemoveDir:
		return "dir"
	default:
		return "unknown"
	}
}

// Task describes a single removal.
type Task struct {
	Path   string
	Parent *dirNode // settled once this task has run; not owned by the task
	Size   int64    // lstat size, 0 for directories
	Kind   Kind
}
