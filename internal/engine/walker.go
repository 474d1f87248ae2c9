package engine

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bamsammich/purge/internal/event"
)

const (
	walkerID  = -1
	readBatch = 512
)

// walk enumerates every root depth-first with an explicit stack and publishes
// removal tasks. It is the only producer of file tasks and blocks whenever
// the queue is full.
func (r *run) walk(roots []string) {
	r.emit(event.Event{Type: event.WalkStarted, WorkerID: walkerID})
	defer func() {
		r.emit(event.Event{
			Type:     event.WalkComplete,
			Total:    r.cfg.Stats.Snapshot().Entries(),
			WorkerID: walkerID,
		})
	}()

	for _, root := range roots {
		if !r.walkRoot(root) {
			return
		}
	}

	// Drop the walker's hold on the barrier; if every root already settled
	// this finishes the run.
	r.settle(r.barrier)
}

// walkRoot returns false once the queue has been closed.
func (r *run) walkRoot(root string) bool {
	info, err := os.Lstat(root)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("path already gone", "path", root)
		return true
	}
	if err != nil {
		r.fail(walkerID, Failure{Path: root, Op: "lstat", Err: err}, event.FileFailed)
		return true
	}

	r.barrier.hold()
	if !info.IsDir() {
		// Files, symlinks (whatever they point at), devices, sockets.
		r.cfg.Stats.AddFilesFound(1)
		return r.queue.Push(Task{Kind: RemoveFile, Path: root, Size: info.Size(), Parent: r.barrier})
	}

	r.cfg.Stats.AddDirsFound(1)
	stack := []*dirNode{newDirNode(root, r.barrier)}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var ok bool
		if stack, ok = r.list(n, stack); !ok {
			return false
		}
		if t, ready := r.settle(n); ready {
			if !r.queue.Push(t) {
				return false
			}
		}
	}
	return true
}

// list accounts for every entry of n: files are published at once,
// sub-directories are pushed on the stack. A directory that cannot be read
// keeps whatever children were already accounted for, and is still removed
// once those settle.
func (r *run) list(n *dirNode, stack []*dirNode) ([]*dirNode, bool) {
	d, err := r.cfg.openDir(n.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("directory vanished before listing", "path", n.path)
			return stack, true
		}
		r.fail(walkerID, Failure{Path: n.path, Op: "readdir", Err: err}, event.ReadDirFailed)
		return stack, true
	}
	defer d.Close()

	for {
		entries, err := d.ReadDir(readBatch)
		for _, e := range entries {
			path := filepath.Join(n.path, e.Name())

			// Count the child before it becomes visible to any worker.
			n.hold()
			if e.IsDir() {
				r.cfg.Stats.AddDirsFound(1)
				stack = append(stack, newDirNode(path, n))
				continue
			}

			var size int64
			if info, err := e.Info(); err == nil {
				size = info.Size()
			}
			r.cfg.Stats.AddFilesFound(1)
			if !r.queue.Push(Task{Kind: RemoveFile, Path: path, Size: size, Parent: n}) {
				return stack, false
			}
		}
		if errors.Is(err, io.EOF) {
			return stack, true
		}
		if err != nil {
			r.fail(walkerID, Failure{Path: n.path, Op: "readdir", Err: err}, event.ReadDirFailed)
			return stack, true
		}
		if len(entries) == 0 {
			return stack, true
		}
	}
}
