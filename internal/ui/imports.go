package ui

import "github.com/bamsammich/purge/internal/event"

// Event is the engine's progress event.
type Event = event.Event

// Re-export event types for convenience.
const (
	WalkStarted   = event.WalkStarted
	WalkComplete  = event.WalkComplete
	FileRemoved   = event.FileRemoved
	FileFailed    = event.FileFailed
	DirRemoved    = event.DirRemoved
	DirFailed     = event.DirFailed
	ReadDirFailed = event.ReadDirFailed
	PathDenied    = event.PathDenied
	PathDeclined  = event.PathDeclined
)
