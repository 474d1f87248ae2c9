package engine

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/purge/internal/safety"
)

// createTestTree populates root with a standard test tree:
//
//	root.txt          (17 bytes)
//	big.bin           (320KB)
//	sub/mid.txt       (19 bytes)
//	sub/deep/leaf.txt (17 bytes)
//	link.txt          → root.txt (symlink)
func createTestTree(t *testing.T, root string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "root.txt"), []byte("root file content"), 0o644))

	bigData := bytes.Repeat([]byte("ABCDEFGHIJKLMNOP"), 20000) // 320KB
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.bin"), bigData, 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "mid.txt"), []byte("middle file content"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deep", "leaf.txt"), []byte("leaf file content"), 0o644))
	require.NoError(t, os.Symlink("root.txt", filepath.Join(root, "link.txt")))
}

// treeShape describes a synthetic tree built by buildTree.
type treeShape struct {
	Depth       int // levels of sub-directories below the root
	Fanout      int // sub-directories per directory
	FilesPerDir int
}

// buildTree creates a synthetic tree under root (root included) and returns
// the number of files and directories it contains, root counted.
func buildTree(t testing.TB, root string, shape treeShape) (files, dirs int) {
	t.Helper()

	var mk func(dir string, depth int)
	mk = func(dir string, depth int) {
		require.NoError(t, os.MkdirAll(dir, 0o755))
		dirs++
		for i := range shape.FilesPerDir {
			name := filepath.Join(dir, fmt.Sprintf("f%03d", i))
			require.NoError(t, os.WriteFile(name, []byte(name), 0o644))
			files++
		}
		if depth == shape.Depth {
			return
		}
		for i := range shape.Fanout {
			mk(filepath.Join(dir, fmt.Sprintf("d%02d", i)), depth+1)
		}
	}
	mk(root, 0)
	return files, dirs
}

// testConfig returns a Config that treats base as both home and working
// directory, so paths under it classify as Allowed.
func testConfig(base string, paths ...string) Config {
	return Config{
		Paths:      paths,
		Workers:    4,
		Classifier: safety.New(base, base),
	}
}

type op struct {
	kind Kind
	path string
}

// recordingRemover logs every call in order and can inject faults. When
// inner is nil no filesystem change is made.
type recordingRemover struct {
	inner Remover
	fail  func(Kind, string) error
	delay time.Duration

	mu  sync.Mutex
	log []op
}

func (r *recordingRemover) RemoveFile(path string) error { return r.do(RemoveFile, path) }
func (r *recordingRemover) RemoveDir(path string) error  { return r.do(RemoveDir, path) }

func (r *recordingRemover) do(kind Kind, path string) error {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	var err error
	if r.fail != nil {
		err = r.fail(kind, path)
	}
	if err == nil && r.inner != nil {
		if kind == RemoveDir {
			err = r.inner.RemoveDir(path)
		} else {
			err = r.inner.RemoveFile(path)
		}
	}
	r.mu.Lock()
	r.log = append(r.log, op{kind: kind, path: path})
	r.mu.Unlock()
	return err
}

func (r *recordingRemover) ops() []op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]op(nil), r.log...)
}

// dirCalls counts RemoveDir calls per path.
func (r *recordingRemover) dirCalls() map[string]int {
	counts := make(map[string]int)
	for _, o := range r.ops() {
		if o.kind == RemoveDir {
			counts[o.path]++
		}
	}
	return counts
}

// permissionDenied simulates an unremovable entry without relying on file
// modes, which have no effect when tests run as root.
func permissionDenied(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: syscall.EACCES}
}

// requirePostOrder asserts every entry inside a directory was removed before
// the directory itself.
func requirePostOrder(t *testing.T, ops []op) {
	t.Helper()
	dirIndex := make(map[string]int)
	for i, o := range ops {
		if o.kind == RemoveDir {
			dirIndex[o.path] = i
		}
	}
	for i, o := range ops {
		for dir := filepath.Dir(o.path); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			if di, ok := dirIndex[dir]; ok {
				require.Less(t, i, di, "%s removed after its ancestor %s", o.path, dir)
			}
		}
	}
}

// listTree returns every path under root, sorted.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		out = append(out, strings.TrimPrefix(path, root))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

// runWithTimeout fails the test instead of hanging when Run deadlocks.
func runWithTimeout(t *testing.T, ctx context.Context, cfg Config) Result {
	t.Helper()
	done := make(chan Result, 1)
	go func() { done <- Run(ctx, cfg) }()
	select {
	case res := <-done:
		return res
	case <-time.After(30 * time.Second):
		t.Fatal("run did not finish")
		return Result{}
	}
}
