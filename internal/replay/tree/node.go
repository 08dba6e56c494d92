// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tree models the replayed file-system namespace as a forest of
// Node values, rooted wherever the trace first mentions a directory with no
// known parent. The replay engine is the only writer; the tree itself only
// enforces the shape invariants of the namespace.
package tree

import (
	"fmt"
	"time"

	"github.com/jacobsa/syncutil"

	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/handle"
)

// Node is one file or directory in the replayed namespace. The handle map
// owns every node; a directory's Children map and each child's Parent are
// non-owning links between nodes it holds. Deleting a node means
// unlinking it from its parent's Children map; the struct itself may still
// be reachable through the handle map until the handle map drops it too.
type Node struct {
	mu syncutil.InvariantMutex

	Handle     handle.Handle
	Name       string
	Parent     *Node // nil for a root
	Children   map[string]*Node
	Size       int64
	Created    bool // true while a backing file or directory exists on disk
	IsDir      bool
	LastAccess time.Time
}

// NewRoot builds an unparented directory node, the starting point for a
// freshly discovered top-level handle.
func NewRoot(h handle.Handle, name string) *Node {
	n := &Node{
		Handle:   h,
		Name:     name,
		Children: make(map[string]*Node),
		IsDir:    true,
	}
	n.mu = syncutil.NewInvariantMutex(n.checkInvariants)
	return n
}

// checkInvariants is wired into the InvariantMutex and runs (in builds with
// invariant checking enabled) after every critical section.
func (n *Node) checkInvariants() {
	if !n.IsDir && len(n.Children) > 0 {
		panic(fmt.Sprintf("node %q: non-directory has children", n.Name))
	}
	for name, child := range n.Children {
		if child.Parent != n {
			panic(fmt.Sprintf("node %q: child %q has foreign parent", n.Name, name))
		}
		if child.Name != name {
			panic(fmt.Sprintf("node %q: child keyed %q has Name %q", n.Name, name, child.Name))
		}
	}
}

// Lock and Unlock expose the node's invariant-checked mutex for callers
// (principally the replay engine) that mutate more than one field at once.
func (n *Node) Lock()   { n.mu.Lock() }
func (n *Node) Unlock() { n.mu.Unlock() }

// NewChild allocates a child node of the directory n, linking both
// directions. The caller must hold n's lock.
func (n *Node) NewChild(h handle.Handle, name string, isDir bool) *Node {
	child := &Node{
		Handle:   h,
		Name:     name,
		Parent:   n,
		IsDir:    isDir,
		Children: make(map[string]*Node),
	}
	child.mu = syncutil.NewInvariantMutex(child.checkInvariants)

	n.Children[name] = child
	return child
}

// Detach removes n from its parent's Children map without touching n's own
// fields. It is a no-op if n has no parent. The caller must hold both n's
// parent's lock; Detach does not lock n itself.
func (n *Node) Detach() {
	if n.Parent == nil {
		return
	}
	delete(n.Parent.Children, n.Name)
	n.Parent = nil
}

// IsEmptyDir reports whether n is a directory with no children.
func (n *Node) IsEmptyDir() bool {
	return n.IsDir && len(n.Children) == 0
}
