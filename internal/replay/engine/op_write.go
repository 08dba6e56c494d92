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
	"syscall"

	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/frame"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/handle"
)

// write implements 4.3.5.
func (e *Engine) write(req *frame.Frame) error {
	h := handle.Parse(req.FH)
	n, created := e.handles.GetOrCreateDir(h, req.FH)
	if created {
		n.IsDir = false
	}

	if err := e.makePath(n); err != nil {
		return err
	}

	prevSize := n.Size
	newSize := prevSize
	if want := int64(req.Offset + req.Count); want > newSize {
		newSize = want
	}

	path, err := e.calcPath(n)
	if err != nil {
		return err
	}

	flags := os.O_RDWR | os.O_CREATE
	if prevSize == 0 {
		flags |= os.O_TRUNC
	}

	f, err := e.openWithRetry(path, flags, 0644)
	if err != nil {
		return nil // expected I/O error: operation abandoned
	}
	defer f.Close()

	if e.cfg.InodeTest {
		if err := e.truncateWithRetry(f, newSize); err != nil {
			return nil
		}
	} else {
		if _, err := f.Seek(int64(req.Offset), 0); err != nil {
			return nil
		}
		if err := e.writeRandbufWithRetry(f, req.Count); err != nil {
			return nil
		}
	}

	if e.cfg.DataSync {
		syscall.Fdatasync(int(f.Fd()))
	}

	n.Size = newSize
	n.Created = true
	touchAccess(n, req.Time)
	return nil
}

func (e *Engine) openWithRetry(path string, flags int, perm os.FileMode) (*os.File, error) {
	var f *os.File
	var err error
	for attempt := 0; attempt <= enospcMaxRetries; attempt++ {
		f, err = os.OpenFile(path, flags, perm)
		if err == nil || !isENOSPC(err) {
			return f, err
		}
		e.stats.IncENOSPCRetry()
		e.sleep(enospcBackoff)
	}
	return nil, err
}

func (e *Engine) truncateWithRetry(f *os.File, size int64) error {
	var err error
	for attempt := 0; attempt <= enospcMaxRetries; attempt++ {
		err = f.Truncate(size)
		if err == nil || !isENOSPC(err) {
			return err
		}
		e.stats.IncENOSPCRetry()
		e.sleep(enospcBackoff)
	}
	return err
}

// writeRandbufWithRetry writes count bytes from the shared payload buffer
// in chunks of up to RandbufSize, retrying the current chunk's write on
// ENOSPC.
func (e *Engine) writeRandbufWithRetry(f *os.File, count uint64) error {
	remaining := count
	for remaining > 0 {
		chunk := remaining
		if chunk > RandbufSize {
			chunk = RandbufSize
		}

		buf := e.randbuf
		if uint64(len(buf)) < chunk {
			buf = make([]byte, chunk)
		}

		var err error
		for attempt := 0; attempt <= enospcMaxRetries; attempt++ {
			_, err = f.Write(buf[:chunk])
			if err == nil || !isENOSPC(err) {
				break
			}
			e.stats.IncENOSPCRetry()
			e.sleep(enospcBackoff)
		}
		if err != nil {
			return err
		}

		remaining -= chunk
	}
	return nil
}
