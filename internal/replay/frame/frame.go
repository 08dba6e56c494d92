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

// Package frame parses one line of NFS trace text into a Frame, the unit
// the transaction table and replay engine operate on.
package frame

// Protocol identifies the trace line's transport/version marker.
type Protocol int

const (
	ProtoNone Protocol = iota
	ProtoCallV2
	ProtoCallV3
	ProtoReplyV2
	ProtoReplyV3
)

// Status is the outcome of a reply frame.
type Status int

const (
	StatusNone Status = iota
	StatusSent
	StatusOK
	StatusError
)

// FileType is the reduced file-type enum carried by some frames.
type FileType int

const (
	FtypeNone FileType = iota
	FtypeReg
	FtypeDir
	FtypeOther
)

// Op is an NFS operation code, recognized from the lowercase opcode table
// in opNames.
type Op int

const (
	OpNone Op = iota
	OpNull
	OpGetattr
	OpSetattr
	OpLookup
	OpAccess
	OpRead
	OpReadlink
	OpWrite
	OpCreate
	OpMkdir
	OpSymlink
	OpMknod
	OpRemove
	OpRmdir
	OpRename
	OpLink
	OpReaddir
	OpReaddirp
	OpReaddirplus
	OpFsstat
	OpFsinfo
	OpPathconf
	OpCommit
)

// opNames is the static lowercase opcode table from the wire format.
var opNames = map[string]Op{
	"null":        OpNull,
	"getattr":     OpGetattr,
	"setattr":     OpSetattr,
	"lookup":      OpLookup,
	"access":      OpAccess,
	"read":        OpRead,
	"readlink":    OpReadlink,
	"write":       OpWrite,
	"create":      OpCreate,
	"mkdir":       OpMkdir,
	"symlink":     OpSymlink,
	"mknod":       OpMknod,
	"remove":      OpRemove,
	"rmdir":       OpRmdir,
	"rename":      OpRename,
	"link":        OpLink,
	"readdir":     OpReaddir,
	"readdirp":    OpReaddirp,
	"readdirplus": OpReaddirplus,
	"fsstat":      OpFsstat,
	"fsinfo":      OpFsinfo,
	"pathconf":    OpPathconf,
	"commit":      OpCommit,
}

// Frame is a parsed trace record. All attribute setters record only the
// first occurrence of each field, matching the wire format's convention of
// repeating earlier attributes verbatim in later tokens.
type Frame struct {
	// Seq is the 1-based trace line number this frame was tokenized from.
	// It plays no role in matching or replay; it exists purely so log lines
	// and error messages can point back at the offending line. The
	// tokenizer never sets it — the driver stamps it on every frame it
	// successfully parses, since only the read loop knows the line count.
	Seq int64

	Protocol  Protocol
	Op        Op
	Status    Status
	Xid       uint32
	Time      int64
	Atime     int64
	Mtime     int64
	ClientID  uint32
	Truncated bool

	Count       uint64
	Size        uint64
	SizeWasSet  bool
	Mode        uint32
	Offset      uint64
	FH          string
	FH2         string
	Name        string
	Name2       string
	Ftype       FileType

	atimeSet, mtimeSet bool
	countSet           bool
	modeSet            bool
	offsetSet          bool
	fhSet, fh2Set      bool
	nameSet, name2Set  bool
	ftypeSet           bool
}

func (f *Frame) setCount(v uint64) {
	if !f.countSet {
		f.Count, f.countSet = v, true
	}
}

func (f *Frame) setSize(v uint64) {
	if !f.SizeWasSet {
		f.Size, f.SizeWasSet = v, true
	}
}

func (f *Frame) setMode(v uint32) {
	if !f.modeSet {
		f.Mode, f.modeSet = v&0x1FF, true
	}
}

func (f *Frame) setOffset(v uint64) {
	if !f.offsetSet {
		f.Offset, f.offsetSet = v, true
	}
}

func (f *Frame) setFH(v string) {
	if !f.fhSet {
		f.FH, f.fhSet = v, true
	}
}

func (f *Frame) setFH2(v string) {
	if !f.fh2Set {
		f.FH2, f.fh2Set = v, true
	}
}

func (f *Frame) setName(v string) {
	if !f.nameSet {
		f.Name, f.nameSet = v, true
	}
}

func (f *Frame) setName2(v string) {
	if !f.name2Set {
		f.Name2, f.name2Set = v, true
	}
}

func (f *Frame) setFtype(v FileType) {
	if !f.ftypeSet {
		f.Ftype, f.ftypeSet = v, true
	}
}

func (f *Frame) setAtime(v int64) {
	if !f.atimeSet {
		f.Atime, f.atimeSet = v, true
	}
}

func (f *Frame) setMtime(v int64) {
	if !f.mtimeSet {
		f.Mtime, f.mtimeSet = v, true
	}
}

// opLabels is the reverse of opNames, used to label metrics by operation
// name instead of by the numeric Op constant.
var opLabels = func() map[Op]string {
	labels := make(map[Op]string, len(opNames))
	for name, op := range opNames {
		labels[op] = name
	}
	return labels
}()

// String returns the lowercase wire opcode name, or "none" for OpNone.
func (o Op) String() string {
	if label, ok := opLabels[o]; ok {
		return label
	}
	return "none"
}

// IsCall reports whether the frame is a call (request) frame.
func (f *Frame) IsCall() bool {
	return f.Protocol == ProtoCallV2 || f.Protocol == ProtoCallV3
}

// IsReply reports whether the frame is a reply (response) frame.
func (f *Frame) IsReply() bool {
	return f.Protocol == ProtoReplyV2 || f.Protocol == ProtoReplyV3
}
