package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/bamsammich/purge/internal/event"
)

// work pops tasks until the queue closes.
func (r *run) work(id int) {
	for {
		task, ok := r.queue.Pop()
		if !ok {
			return
		}
		r.drive(id, task)
	}
}

// drive runs task, then settles its parent. A parent that becomes ready is
// handed back to the queue when there is room; otherwise this worker removes
// it itself and keeps climbing. Workers never block on a full queue, so the
// walker and the pool cannot wait on each other.
func (r *run) drive(id int, task Task) {
	for {
		r.execute(id, task)

		next, ready := r.settle(task.Parent)
		if !ready || r.queue.TryPush(next) || r.queue.Closed() {
			return
		}
		task = next
	}
}

// execute performs one removal. A panic is recorded as a failure of that
// entry and does not reach the worker loop.
func (r *run) execute(id int, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("recovered panic", "path", task.Path, "panic", rec, "worker", id)
			r.failTask(id, task, "panic", fmt.Errorf("panic: %v", rec))
		}
	}()

	switch task.Kind {
	case RemoveFile:
		r.removeFile(id, task)
	case RemoveDir:
		r.removeDir(id, task)
	default:
		r.failTask(id, task, "remove", fmt.Errorf("unknown task kind %d", task.Kind))
	}
}

func (r *run) removeFile(id int, task Task) {
	err := r.cfg.Remover.RemoveFile(task.Path)
	switch {
	case err == nil:
		r.cfg.Stats.AddFilesRemoved(1)
		r.cfg.Stats.AddBytesFreed(task.Size)
		r.emit(event.Event{Type: event.FileRemoved, Path: task.Path, Size: task.Size, WorkerID: id})
	case errors.Is(err, fs.ErrNotExist):
		r.cfg.Stats.AddVanished(1)
	default:
		r.failTask(id, task, "unlink", err)
	}
}

func (r *run) removeDir(id int, task Task) {
	err := r.cfg.Remover.RemoveDir(task.Path)
	switch {
	case err == nil:
		r.cfg.Stats.AddDirsRemoved(1)
		r.emit(event.Event{Type: event.DirRemoved, Path: task.Path, WorkerID: id})
	case errors.Is(err, fs.ErrNotExist):
		r.cfg.Stats.AddVanished(1)
	default:
		r.failTask(id, task, "rmdir", err)
	}
}

func (r *run) failTask(id int, task Task, op string, err error) {
	typ := event.FileFailed
	if task.Kind == RemoveDir {
		typ = event.DirFailed
		r.cfg.Stats.AddDirsFailed(1)
	} else {
		r.cfg.Stats.AddFilesFailed(1)
	}
	r.fail(id, Failure{Path: task.Path, Op: op, Err: err}, typ)
}
