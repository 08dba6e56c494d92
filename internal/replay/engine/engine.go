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

// Package engine applies matched request/response frame pairs to an
// in-memory namespace (package tree, indexed by package handlemap) and
// mirrors the resulting mutations onto a real directory tree on disk. It is
// the core of the replayer: every other package exists to feed it pairs.
package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/googlecloudplatform/nfstrace-replay/internal/clock"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/frame"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/handle"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/handlemap"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/tree"
)

// RandbufSize is the chunk size used when writing the shared random (or
// zero) payload buffer to a file.
const RandbufSize = 1 << 20 // 1 MiB

// maxPathLen is calc-path's hard cap, matching the trace format's own path
// buffer size.
const maxPathLen = 4096

// enospcMaxRetries and enospcBackoff bound the write-path retry loop.
const enospcMaxRetries = 3

var enospcBackoff = 10 * time.Second

// InvariantError is raised for structural logic errors (as opposed to
// ordinary, tolerated I/O failures) and is meant to unwind to the driver's
// top-level loop.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return "replay invariant violated: " + e.Msg }

func invariantf(format string, args ...any) error {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}

// Config holds the replay-time knobs that change the engine's on-disk
// behavior; it is a trimmed view of cfg.ReplayConfig.
type Config struct {
	BaseDir   string
	DataSync  bool
	ZeroFill  bool
	InodeTest bool
}

// Counters is the subset of the statistics package the engine increments
// directly, kept as an interface so engine doesn't import stats.
type Counters interface {
	IncRemove()
	IncLink()
	IncLookup()
	IncRename()
	IncWrite()
	IncCreate()
	IncENOSPCRetry()
}

// noopCounters discards every increment; used when the caller doesn't care.
type noopCounters struct{}

func (noopCounters) IncRemove()       {}
func (noopCounters) IncLink()         {}
func (noopCounters) IncLookup()       {}
func (noopCounters) IncRename()       {}
func (noopCounters) IncWrite()        {}
func (noopCounters) IncCreate()       {}
func (noopCounters) IncENOSPCRetry()  {}

// Engine applies matched request/response pairs against the in-memory
// namespace and the real filesystem rooted at Config.BaseDir.
type Engine struct {
	handles *handlemap.Map
	cfg     Config
	randbuf []byte
	stats   Counters
	clock   clock.Clock
}

// New builds an Engine. randbuf is the shared payload buffer described in
// the concurrency model: callers allocate it once at startup, sized
// RandbufSize, pre-filled from /dev/urandom unless cfg.ZeroFill is set.
func New(cfg Config, randbuf []byte, stats Counters) *Engine {
	if stats == nil {
		stats = noopCounters{}
	}
	return &Engine{
		handles: handlemap.New(),
		cfg:     cfg,
		randbuf: randbuf,
		stats:   stats,
		clock:   clock.RealClock{},
	}
}

// WithClock swaps the engine's time source, for tests that want to assert
// ENOSPC retry behavior without sleeping for real (see clock.FakeClock).
func (e *Engine) WithClock(c clock.Clock) *Engine {
	e.clock = c
	return e
}

// sleep blocks for d according to e.clock, so tests can swap in
// clock.FakeClock instead of waiting out the real backoff.
func (e *Engine) sleep(d time.Duration) {
	<-e.clock.After(d)
}

// Handles exposes the underlying handle map, chiefly for GC and tests.
func (e *Engine) Handles() *handlemap.Map { return e.handles }

// Apply dispatches (req, res) to its handler by res.Op. Unrecognized ops
// and the common structural pre-filters are handled here before any
// per-operation logic runs.
func (e *Engine) Apply(req, res *frame.Frame) error {
	if req.Name == "." || req.Name == ".." {
		return nil
	}

	switch res.Op {
	case frame.OpLookup, frame.OpCreate, frame.OpMkdir:
		if req.FH == res.FH {
			return nil
		}
		if res.Ftype != frame.FtypeReg && res.Ftype != frame.FtypeDir {
			return nil
		}
		e.stats.IncLookup()
		if res.Op != frame.OpLookup {
			e.stats.IncCreate()
		}
		return e.lookupOrCreate(req, res)
	case frame.OpRemove, frame.OpRmdir:
		e.stats.IncRemove()
		return e.remove(req)
	case frame.OpWrite:
		e.stats.IncWrite()
		return e.write(req)
	case frame.OpRename:
		e.stats.IncRename()
		return e.rename(req)
	case frame.OpLink:
		e.stats.IncLink()
		return e.link(req)
	case frame.OpSymlink:
		return e.symlink(req, res)
	case frame.OpAccess, frame.OpGetattr:
		return e.getAttr(req)
	case frame.OpSetattr:
		return e.setAttr(req)
	default:
		return nil
	}
}

func (e *Engine) hNode(h handle.Handle) (*tree.Node, bool) {
	return e.handles.FindFirst(h)
}

// getOrCreateDir returns the node registered under h, creating an
// unparented directory root if none exists yet.
func (e *Engine) getOrCreateDir(h handle.Handle, name string) *tree.Node {
	n, _ := e.handles.GetOrCreateDir(h, name)
	return n
}

// calcPath concatenates name segments from root to n, separated by "/",
// relative to cfg.BaseDir. Fails if the absolute buffer would exceed
// maxPathLen.
func (e *Engine) calcPath(n *tree.Node) (string, error) {
	var segments []string
	for cur := n; cur != nil; cur = cur.Parent {
		segments = append(segments, cur.Name)
	}
	// reverse
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}

	rel := "/" + strings.Join(segments, "/")
	full := filepath.Join(e.cfg.BaseDir, rel)
	if len(full) > maxPathLen {
		return "", invariantf("path exceeds %d bytes: %s", maxPathLen, full)
	}
	return full, nil
}

// calcChildPath computes the path a would-be child named name would have
// under parent, without allocating or attaching a node.
func (e *Engine) calcChildPath(parent *tree.Node, name string) (string, error) {
	parentPath, err := e.calcPath(parent)
	if err != nil {
		return "", err
	}
	full := filepath.Join(parentPath, name)
	if len(full) > maxPathLen {
		return "", invariantf("path exceeds %d bytes: %s", maxPathLen, full)
	}
	return full, nil
}

// makePath realizes every not-yet-created ancestor directory of n (not
// including n itself) on disk, bottom-up, tolerating EEXIST.
func (e *Engine) makePath(n *tree.Node) error {
	var ancestors []*tree.Node
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		ancestors = append(ancestors, cur)
	}
	for i, j := 0, len(ancestors)-1; i < j; i, j = i+1, j-1 {
		ancestors[i], ancestors[j] = ancestors[j], ancestors[i]
	}

	for _, anc := range ancestors {
		if anc.Created {
			continue
		}
		path, err := e.calcPath(anc)
		if err != nil {
			return err
		}
		if err := os.Mkdir(path, 0755); err != nil && !os.IsExist(err) {
			return nil // expected I/O error: not logged; the caller's later open fails
		}
		anc.Created = true
	}
	return nil
}

// clearEmptyDir walks upward from n, removing each ancestor that is
// created, empty (or has no created descendants), stopping at the first
// node that fails the condition or at the root.
func (e *Engine) clearEmptyDir(n *tree.Node) {
	cur := n
	for cur != nil {
		if !cur.Created {
			return
		}
		if !allChildrenUncreated(cur) {
			return
		}
		path, err := e.calcPath(cur)
		if err != nil {
			return
		}
		if err := os.Remove(path); err != nil {
			return
		}
		cur.Created = false
		cur = cur.Parent
	}
}

func allChildrenUncreated(n *tree.Node) bool {
	for _, c := range n.Children {
		if c.Created {
			return false
		}
	}
	return true
}

// isDeletable reports whether n has no children at all.
func isDeletable(n *tree.Node) bool {
	return len(n.Children) == 0
}

// changeFtype reconciles a mismatch between the trace's reported type and
// the node's current type: if the node was created on disk under the old
// type, remove it and clear Created; always update IsDir.
func (e *Engine) changeFtype(n *tree.Node, isDir bool) {
	if n.IsDir == isDir {
		return
	}
	if n.Created {
		if path, err := e.calcPath(n); err == nil {
			os.Remove(path)
		}
		n.Created = false
	}
	n.IsDir = isDir
}

// moveElement relocates element to be a child of newParent under newName,
// renaming the backing file if element.Created, then running
// clear-empty-dir on the old parent.
func (e *Engine) moveElement(element, newParent *tree.Node, newName string) error {
	oldParent := element.Parent

	if element.Created {
		oldPath, err := e.calcPath(element)
		if err != nil {
			return err
		}

		oldName := element.Name
		element.Detach()
		element.Parent = newParent
		element.Name = newName
		newParent.Children[newName] = element

		newPath, err := e.calcPath(element)
		if err != nil {
			return err
		}

		if err := os.Rename(oldPath, newPath); err == nil && oldPath != newPath {
			os.Remove(oldPath)
		}
		_ = oldName
	} else {
		element.Detach()
		element.Parent = newParent
		element.Name = newName
		newParent.Children[newName] = element
	}

	if oldParent != nil {
		e.clearEmptyDir(oldParent)
	}
	return nil
}

func touchAccess(n *tree.Node, t int64) {
	n.LastAccess = time.Unix(t, 0)
}

func isENOSPC(err error) bool {
	return errors.Is(err, syscall.ENOSPC)
}
