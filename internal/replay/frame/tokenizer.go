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

package frame

import (
	"strconv"
	"strings"
)

// MaxLineLength is the tokenizer's input contract: lines longer than this
// are rejected without being scanned.
const MaxLineLength = 1024

// structural token ordinals; everything past 8 (and 8 itself on calls) is a
// name/value attribute pair.
const (
	posTime  = 0
	posSrc   = 1
	posDst   = 2
	posProto = 4
	posXid   = 5
	posOp    = 7
	posAttrs = 8
)

// splitTokens splits line on single spaces, treating a token that begins
// with `"` as extending verbatim to the next `"`.
func splitTokens(line string) []string {
	var tokens []string
	i := 0
	for i < len(line) {
		if line[i] == ' ' {
			i++
			continue
		}
		if line[i] == '"' {
			end := strings.IndexByte(line[i+1:], '"')
			if end < 0 {
				tokens = append(tokens, line[i+1:])
				break
			}
			tokens = append(tokens, line[i+1:i+1+end])
			i = i + 1 + end + 1
			continue
		}
		j := strings.IndexByte(line[i:], ' ')
		if j < 0 {
			tokens = append(tokens, line[i:])
			break
		}
		tokens = append(tokens, line[i:i+j])
		i += j + 1
	}
	return tokens
}

// Tokenize parses one trace line into a Frame. The second return value is
// false when the line should be skipped: too long, doesn't start with a
// digit, or never set a protocol.
func Tokenize(line string) (*Frame, bool) {
	if len(line) > MaxLineLength {
		return nil, false
	}
	if line == "" || line[0] < '0' || line[0] > '9' {
		return nil, false
	}

	tokens := splitTokens(line)
	if len(tokens) == 0 {
		return nil, false
	}

	f := &Frame{}

	if t, err := strconv.ParseInt(tokens[posTime], 10, 64); err == nil {
		f.Time = t
	}

	if len(tokens) > posDst {
		if id, ok := PackClientID(tokens[posSrc], tokens[posDst]); ok {
			f.ClientID = id
		}
	}
	if len(tokens) > posProto {
		parseProtocol(f, tokens[posProto])
	}
	if len(tokens) > posXid {
		if x, err := strconv.ParseUint(tokens[posXid], 16, 32); err == nil {
			f.Xid = uint32(x)
		}
	}
	if len(tokens) > posOp {
		f.Op = opNames[strings.ToLower(tokens[posOp])]
	}

	attrStart := posAttrs
	if len(tokens) > posAttrs {
		if f.IsReply() {
			if tokens[posAttrs] == "OK" {
				f.Status = StatusOK
			} else {
				f.Status = StatusError
			}
			attrStart = posAttrs + 1
		}
	}

	for i := attrStart; i+1 < len(tokens); i += 2 {
		applyAttr(f, tokens[i], tokens[i+1])
	}

	// LONGPKT is a standalone literal, not a name/value pair; scan for it
	// among the remaining tokens too.
	for i := attrStart; i < len(tokens); i++ {
		if tokens[i] == "LONGPKT" {
			f.Truncated = true
		}
	}

	if f.Protocol == ProtoNone {
		return nil, false
	}

	return f, true
}

func parseProtocol(f *Frame, tok string) {
	if len(tok) < 2 {
		return
	}
	switch tok[0] {
	case 'R':
		if tok[1] == '2' {
			f.Protocol = ProtoReplyV2
		} else {
			f.Protocol = ProtoReplyV3
		}
	case 'C':
		if tok[1] == '2' {
			f.Protocol = ProtoCallV2
		} else {
			f.Protocol = ProtoCallV3
		}
	}
}

func applyAttr(f *Frame, name, value string) {
	switch name {
	case "count", "tcount":
		if v, err := strconv.ParseUint(value, 16, 64); err == nil {
			f.setCount(v)
		}
	case "name", "fn":
		f.setName(value)
	case "size":
		if v, err := strconv.ParseUint(value, 16, 64); err == nil {
			f.setSize(v)
		}
	case "ftype":
		if v, err := strconv.Atoi(value); err == nil {
			f.setFtype(decodeFtype(v))
		}
	case "off", "offset":
		if v, err := strconv.ParseUint(value, 16, 64); err == nil {
			f.setOffset(v)
		}
	case "fh":
		f.setFH(value)
	case "fh2":
		f.setFH2(value)
	case "fn2", "name2", "sdata":
		f.setName2(value)
	case "mode":
		if v, err := strconv.ParseUint(value, 16, 32); err == nil {
			f.setMode(uint32(v))
		}
	case "atime":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			f.setAtime(v)
		}
	case "mtime":
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			f.setMtime(v)
		}
	}
}

func decodeFtype(v int) FileType {
	switch v {
	case 1:
		return FtypeReg
	case 2:
		return FtypeDir
	default:
		return FtypeOther
	}
}

// PackClientID combines two hex-token integers into the client-id encoding
// used by the trace's source/destination tokens: (first << 16) | second.
func PackClientID(first, second string) (uint32, bool) {
	a, err := strconv.ParseUint(first, 16, 32)
	if err != nil {
		return 0, false
	}
	b, err := strconv.ParseUint(second, 16, 32)
	if err != nil {
		return 0, false
	}
	return uint32((a << 16) | (b & 0xFFFF)), true
}
