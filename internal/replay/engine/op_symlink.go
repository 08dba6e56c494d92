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

// symlink implements 4.3.8.
func (e *Engine) symlink(req, res *frame.Frame) error {
	dir := e.getOrCreateDir(handle.Parse(req.FH), req.FH)

	if element, exists := dir.Children[req.Name]; exists {
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

	resH := handle.Parse(res.FH)
	node := dir.NewChild(resH, req.Name, false)
	e.handles.Insert(resH, node)

	if dir.Created {
		path, err := e.calcPath(node)
		if err != nil {
			return err
		}
		if err := os.Symlink(req.Name2, path); err == nil || os.IsExist(err) {
			node.Created = true
		}
	}

	touchAccess(node, req.Time)
	return nil
}
