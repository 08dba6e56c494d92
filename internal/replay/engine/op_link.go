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
	"os"

	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/frame"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/handle"
)

// link implements 4.3.7: create a hard-link peer of srcfile under
// targetdir/req.name.
func (e *Engine) link(req *frame.Frame) error {
	srcfile, ok := e.hNode(handle.Parse(req.FH))
	if !ok {
		return nil
	}

	targetdir := e.getOrCreateDir(handle.Parse(req.FH2), req.FH2)

	if element, exists := targetdir.Children[req.Name]; exists {
		if element == srcfile {
			return nil
		}
		if !isDeletable(element) {
			return nil
		}
		if element.Created {
			if path, err := e.calcPath(element); err == nil {
				os.Remove(path)
			}
		}
		element.Detach()
		e.handles.Remove(element.Handle, element)
	}

	peer := targetdir.NewChild(srcfile.Handle, req.Name, false)
	e.handles.Insert(srcfile.Handle, peer)

	if srcfile.Created {
		oldPath, err := e.calcPath(srcfile)
		if err != nil {
			return err
		}
		newPath, err := e.calcPath(peer)
		if err != nil {
			return err
		}
		if err := os.Link(oldPath, newPath); err == nil || os.IsExist(err) {
			peer.Created = true
		}
	}

	touchAccess(peer, req.Time)
	return nil
}
