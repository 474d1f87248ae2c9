package engine

import "sync/atomic"

// dirNode tracks one directory whose removal waits on its children.
//
// pending starts at 1, the walker's hold while it lists the directory. Each
// discovered child adds one before its task is published, and every settled
// child subtracts one. Whoever takes pending to zero owns the directory's
// own RemoveDir task; that transition happens exactly once.
type dirNode struct {
	parent  *dirNode
	path    string
	pending atomic.Int64
}

func newDirNode(path string, parent *dirNode) *dirNode {
	n := &dirNode{path: path, parent: parent}
	n.pending.Store(1)
	return n
}

func (n *dirNode) hold() { n.pending.Add(1) }

// release drops one reference and reports whether it was the last.
func (n *dirNode) release() bool {
	return n.pending.Add(-1) == 0
}

func (n *dirNode) task() Task {
	return Task{Kind: RemoveDir, Path: n.path, Parent: n.parent}
}
