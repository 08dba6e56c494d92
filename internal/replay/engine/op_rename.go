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

// rename implements 4.3.6.
func (e *Engine) rename(req *frame.Frame) error {
	dir1, ok := e.hNode(handle.Parse(req.FH))
	if !ok {
		return nil
	}
	el, ok := dir1.Children[req.Name]
	if !ok {
		return nil
	}

	dir2 := e.getOrCreateDir(handle.Parse(req.FH2), req.FH2)

	el2, el2Exists := dir2.Children[req.Name2]
	if el == el2 {
		return nil
	}
	if el2Exists && !isDeletable(el2) {
		return nil
	}

	if el.Created {
		oldPath, err := e.calcPath(el)
		if err != nil {
			return err
		}
		newPath, err := e.calcChildPath(dir2, req.Name2)
		if err != nil {
			return err
		}

		if el2Exists && el2.Created {
			el.Created = true
		}

		if err := os.Rename(oldPath, newPath); err == nil && oldPath != newPath {
			os.Remove(oldPath)
		}
	} else if el2Exists && el2.Created {
		el.Created = true
	}

	if el2Exists {
		el2.Detach()
		e.handles.Remove(el2.Handle, el2)
	}

	if err := e.moveElement(el, dir2, req.Name2); err != nil {
		return err
	}
	e.clearEmptyDir(dir1)
	return nil
}

