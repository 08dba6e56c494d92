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

// Package handlemap indexes tree.Node values by their reduced handle. The
// map is multi-valued: distinct nodes may legitimately share a handle
// because the reduction in package handle is lossy, and one node (a hard
// link target) is reachable from more than one parent. The map is the sole
// owner of every Node it holds; tree parent/child pointers are considered
// non-owning back-references for graph-walking convenience only.
package handlemap

import (
	"sync"

	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/handle"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/tree"
)

// Map is a single-threaded-by-contract index from handle to the set of
// nodes currently known to carry it. The replay engine is its only caller
// and runs synchronously (see the engine package), so Map itself uses a
// plain mutex rather than anything fancier.
type Map struct {
	mu    sync.Mutex
	nodes map[handle.Handle][]*tree.Node
}

// New builds an empty Map.
func New() *Map {
	return &Map{nodes: make(map[handle.Handle][]*tree.Node)}
}

// Insert registers n under h. It does not check for duplicates; callers
// that want at-most-once semantics should check FindFirst first.
func (m *Map) Insert(h handle.Handle, n *tree.Node) {
	if h.IsEmpty() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[h] = append(m.nodes[h], n)
}

// FindFirst returns the first node registered under h, if any. "First"
// reflects insertion order, which is what the engine uses to prefer the
// oldest known alias of a handle when one must be chosen.
func (m *Map) FindFirst(h handle.Handle) (*tree.Node, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nodes := m.nodes[h]
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[0], true
}

// FindAll returns every node currently registered under h. The returned
// slice is a copy; mutating it does not affect the map.
func (m *Map) FindAll(h handle.Handle) []*tree.Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	nodes := m.nodes[h]
	out := make([]*tree.Node, len(nodes))
	copy(out, nodes)
	return out
}

// Remove drops n from h's bucket by identity (pointer equality), not by
// value. It is a no-op if n is not present under h.
func (m *Map) Remove(h handle.Handle, n *tree.Node) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nodes := m.nodes[h]
	for i, candidate := range nodes {
		if candidate == n {
			nodes = append(nodes[:i], nodes[i+1:]...)
			break
		}
	}

	if len(nodes) == 0 {
		delete(m.nodes, h)
	} else {
		m.nodes[h] = nodes
	}
}

// SwapKey moves n from its registration under oldH (if any) to newH. Used
// by LOOKUP/CREATE reconciliation when a reply names a different handle
// for a non-directory child that already exists under the same name.
func (m *Map) SwapKey(oldH, newH handle.Handle, n *tree.Node) {
	if oldH != newH {
		m.Remove(oldH, n)
	}
	m.Insert(newH, n)
}

// GetOrCreateDir returns the first node already registered under h, or
// else builds a fresh unparented directory root for h via tree.NewRoot,
// registers it, and returns it. Used when the trace references a handle
// the replayer has never seen before and context implies a directory.
func (m *Map) GetOrCreateDir(h handle.Handle, name string) (*tree.Node, bool) {
	if n, ok := m.FindFirst(h); ok {
		return n, false
	}
	n := tree.NewRoot(h, name)
	m.Insert(h, n)
	return n, true
}

// Roots returns every currently-indexed node with no parent: the forest
// roots the engine's garbage collector walks from. Order is unspecified.
func (m *Map) Roots() []*tree.Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[*tree.Node]bool)
	var roots []*tree.Node
	for _, nodes := range m.nodes {
		for _, n := range nodes {
			if n.Parent == nil && !seen[n] {
				seen[n] = true
				roots = append(roots, n)
			}
		}
	}
	return roots
}

// Len reports how many distinct handles are currently indexed.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.nodes)
}
