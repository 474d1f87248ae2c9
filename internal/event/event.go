package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	WalkStarted Type = iota + 1
	WalkComplete
	FileRemoved
	FileFailed
	DirRemoved
	DirFailed
	ReadDirFailed
	PathDenied
	PathDeclined
)

var typeNames = [...]string{
	WalkStarted:   "WalkStarted",
	WalkComplete:  "WalkComplete",
	FileRemoved:   "FileRemoved",
	FileFailed:    "FileFailed",
	DirRemoved:    "DirRemoved",
	DirFailed:     "DirFailed",
	ReadDirFailed: "ReadDirFailed",
	PathDenied:    "PathDenied",
	PathDeclined:  "PathDeclined",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Failed reports whether the event records an error.
func (t Type) Failed() bool {
	return t == FileFailed || t == DirFailed || t == ReadDirFailed
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // absolute path of the entry
	Size      int64  // bytes freed (FileRemoved)
	Total     int64  // entries discovered (WalkComplete)
	Error     error
	WorkerID  int // -1 for the walker
}
