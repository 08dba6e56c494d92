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
	"time"

	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/frame"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/handle"
)

// ownerRWX is ORed into SETATTR's mode so a replayed file remains usable by
// the replaying user regardless of the traced mode bits.
const ownerRWX = 0o700

// getAttr implements the get-attr half of 4.3.9: purely observational.
func (e *Engine) getAttr(req *frame.Frame) error {
	n, ok := e.hNode(handle.Parse(req.FH))
	if !ok || !n.Created {
		return nil
	}
	path, err := e.calcPath(n)
	if err != nil {
		return err
	}
	os.Lstat(path) // observational only; result intentionally unused
	return nil
}

// setAttr implements the set-attr half of 4.3.9. The SETATTR size field is
// deliberately ignored: "too many wrong values in the traces."
func (e *Engine) setAttr(req *frame.Frame) error {
	n, ok := e.hNode(handle.Parse(req.FH))
	if !ok {
		return nil
	}

	path, err := e.calcPath(n)
	if err != nil {
		return err
	}
	if !n.Created {
		return nil
	}

	if req.Mode != 0 {
		os.Chmod(path, os.FileMode(req.Mode)|ownerRWX)
	}

	if req.Atime != 0 || req.Mtime != 0 {
		atime := time.Unix(req.Atime, 0)
		mtime := time.Unix(req.Mtime, 0)
		os.Chtimes(path, atime, mtime)
	}

	touchAccess(n, req.Time)
	return nil
}
