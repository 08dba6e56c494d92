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

// remove implements 4.3.4.
func (e *Engine) remove(req *frame.Frame) error {
	parent, ok := e.hNode(handle.Parse(req.FH))
	if !ok {
		return nil
	}

	child, ok := parent.Children[req.Name]
	if !ok || !isDeletable(child) {
		return nil
	}

	if child.Created {
		path, err := e.calcPath(child)
		if err != nil {
			return err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil
		}
	}

	child.Detach()
	e.handles.Remove(child.Handle, child)
	e.clearEmptyDir(parent)
	return nil
}
