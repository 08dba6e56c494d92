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

package engine

import (
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/tree"
)

// Soft and hard node-count thresholds that trigger the driver to call GC,
// and the regime's corresponding discard cutoffs relative to "now".
const (
	SoftThreshold = 1 << 20   // 1,048,576 nodes
	HardThreshold = 4 * SoftThreshold

	SoftCutoffAge = 24 * 3600 // 1 day
	HardCutoffAge = 300       // 5 minutes

	SoftGCInterval = 12 * 3600 // trace-hours between soft-regime sweeps
)

// GC sweeps the namespace, removing deletable subtrees: nodes that are not
// Created, whose LastAccess predates cutoff KO, and all of whose
// descendants are themselves deletable. It returns the number of nodes
// removed.
func (e *Engine) GC(now, ko int64) int {
	removed := 0
	for _, root := range e.handles.Roots() {
		childRemoved, _ := e.gcSubtree(root, ko)
		removed += childRemoved
	}
	return removed
}

func (e *Engine) gcSubtree(n *tree.Node, ko int64) (removed int, gone bool) {
	for name, child := range n.Children {
		childRemoved, childGone := e.gcSubtree(child, ko)
		removed += childRemoved
		if childGone {
			delete(n.Children, name)
		}
	}

	deletable := !n.Created && n.LastAccess.Unix() < ko && len(n.Children) == 0
	if !deletable {
		return removed, false
	}

	e.handles.Remove(n.Handle, n)
	return removed + 1, true
}

// Cutoff computes the discard cutoff KO for the given regime.
func Cutoff(now int64, hard bool) int64 {
	if hard {
		return now - HardCutoffAge
	}
	return now - SoftCutoffAge
}
