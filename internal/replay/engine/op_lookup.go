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
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/frame"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/handle"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/tree"
)

// lookupOrCreate implements 4.3.1: ensure req.fh is a directory, locate or
// materialize req.name under it as res.fh.
func (e *Engine) lookupOrCreate(req, res *frame.Frame) error {
	parent := e.getOrCreateDir(handle.Parse(req.FH), req.FH)

	resH := handle.Parse(res.FH)
	isDir := res.Ftype == frame.FtypeDir

	child, exists := parent.Children[req.Name]
	if exists {
		return e.reconcileExistingChild(parent, child, req, res, resH, isDir)
	}
	return e.createMissingChild(parent, req, res, resH, isDir)
}

func (e *Engine) reconcileExistingChild(parent, child *tree.Node, req, res *frame.Frame, resH handle.Handle, isDir bool) error {
	if child.Handle != resH {
		if isDir {
			if other, ok := e.hNode(resH); ok && other != child {
				aside := child.Handle.String()
				if err := e.moveElement(child, parent, aside); err != nil {
					return err
				}
				if err := e.moveElement(other, parent, req.Name); err != nil {
					return err
				}
				child = other
			}
		} else {
			e.handles.SwapKey(child.Handle, resH, child)
			child.Handle = resH
		}
	}

	if res.Op == frame.OpCreate || res.Op == frame.OpMkdir {
		child.Size = 0
	} else if child.Handle == resH && !isDir {
		e.writeToSize(child, res.Size)
	}

	e.changeFtype(child, isDir)
	touchAccess(child, req.Time)
	return nil
}

func (e *Engine) createMissingChild(parent *tree.Node, req, res *frame.Frame, resH handle.Handle, isDir bool) error {
	if isDir {
		if existing, ok := e.hNode(resH); ok {
			return e.moveElement(existing, parent, req.Name)
		}
		child := parent.NewChild(resH, req.Name, true)
		e.handles.Insert(resH, child)
		touchAccess(child, req.Time)
		return nil
	}

	existing, ok := e.hNode(resH)
	switch {
	case ok && existing.Parent != nil:
		peer := parent.NewChild(resH, req.Name, false)
		e.handles.Insert(resH, peer)
		touchAccess(peer, req.Time)
		return nil
	case ok:
		return e.moveElement(existing, parent, req.Name)
	default:
		child := parent.NewChild(resH, req.Name, false)
		e.handles.Insert(resH, child)
		if res.Op == frame.OpCreate {
			e.writeToSize(child, res.Size)
		}
		touchAccess(child, req.Time)
		return nil
	}
}

// writeToSize grows the node's logical size without touching disk content;
// used to reconcile an observed size reported on LOOKUP/CREATE replies.
func (e *Engine) writeToSize(n *tree.Node, size uint64) {
	if int64(size) > n.Size {
		n.Size = int64(size)
	}
}
