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

// Package txn pairs call frames with their matching reply frames by xid,
// bounded by TransTTL of trace time. It never advances the wall clock
// itself — the driver feeds it the trace's own timestamps.
package txn

import (
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/frame"
)

// TransTTL is the maximum trace-time gap, in seconds, between a request and
// its matching response (and the window a pending request may survive
// without one).
const TransTTL = 5 * 60

// requiredFields lists, per operation, the frame fields AdmitRequest
// checks for presence before accepting a call frame.
var requiredFields = map[frame.Op][]string{
	frame.OpLookup:  {"fh", "name"},
	frame.OpCreate:  {"fh", "name"},
	frame.OpMkdir:   {"fh", "name"},
	frame.OpRemove:  {"fh", "name"},
	frame.OpRmdir:   {"fh", "name"},
	frame.OpAccess:  {"fh"},
	frame.OpGetattr: {"fh"},
	frame.OpWrite:   {"fh"},
	frame.OpSetattr: {"fh"},
	frame.OpRename:  {"fh", "fh2", "name", "name2"},
	frame.OpLink:    {"fh", "fh2", "name"},
	frame.OpSymlink: {"fh", "name", "name2"},
}

func hasRequiredFields(f *frame.Frame) bool {
	fields, ok := requiredFields[f.Op]
	if !ok {
		// Operations with no entry (readdir, fsstat, ...) carry no field
		// requirement at all; they're simply never dispatched.
		return true
	}

	for _, want := range fields {
		switch want {
		case "fh":
			if f.FH == "" {
				return false
			}
		case "fh2":
			if f.FH2 == "" {
				return false
			}
		case "name":
			if f.Name == "" {
				return false
			}
		case "name2":
			if f.Name2 == "" {
				return false
			}
		}
	}
	return true
}

// Pair is a matched call/reply couple handed to the replay engine.
type Pair struct {
	Request  *frame.Frame
	Response *frame.Frame
}

// Table tracks pending requests by xid. It is not safe for concurrent use;
// the driver calls it synchronously per the single-threaded replay model.
type Table struct {
	pending map[uint32]*frame.Frame
}

// New builds an empty transaction table.
func New() *Table {
	return &Table{pending: make(map[uint32]*frame.Frame)}
}

// AdmitRequest accepts a call frame if it carries the minimum required
// fields for its operation, and if no other request is already pending at
// the same xid (first wins). Returns whether it was admitted.
func (t *Table) AdmitRequest(f *frame.Frame) bool {
	if !hasRequiredFields(f) {
		return false
	}
	if _, pending := t.pending[f.Xid]; pending {
		return false
	}
	t.pending[f.Xid] = f
	return true
}

// AdmitResponse looks up the pending request for f.Xid. If there is none,
// or the pairing fails validity checks, the entry (if any) is dropped and
// ok is false. On a valid pairing the entry is removed and the Pair is
// returned with ok true.
func (t *Table) AdmitResponse(f *frame.Frame) (Pair, bool) {
	req, pending := t.pending[f.Xid]
	if !pending {
		return Pair{}, false
	}

	delete(t.pending, f.Xid)

	if f.Status != frame.StatusOK {
		return Pair{}, false
	}
	if f.Op != req.Op {
		return Pair{}, false
	}
	if f.Time-req.Time > TransTTL {
		return Pair{}, false
	}

	return Pair{Request: req, Response: f}, true
}

// GC drops any pending entry whose request predates now-TransTTL, and
// reports how many entries were dropped.
func (t *Table) GC(now int64) int {
	dropped := 0
	for xid, req := range t.pending {
		if req.Time < now-TransTTL {
			delete(t.pending, xid)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of pending requests.
func (t *Table) Len() int {
	return len(t.pending)
}
