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

package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// AsyncLogger decouples log writers from a slow sink (a rotating file on a
// loaded disk) by buffering writes through a channel and a single
// background goroutine. A full buffer drops the message rather than
// blocking the replay loop.
type AsyncLogger struct {
	sink     io.Writer
	messages chan []byte
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewAsyncLogger starts a background writer for sink with the given
// buffered-message capacity.
func NewAsyncLogger(sink io.Writer, bufferSize int) *AsyncLogger {
	al := &AsyncLogger{
		sink:     sink,
		messages: make(chan []byte, bufferSize),
		done:     make(chan struct{}),
	}

	al.wg.Add(1)
	go al.run()

	return al
}

func (al *AsyncLogger) run() {
	defer al.wg.Done()
	for msg := range al.messages {
		al.sink.Write(msg)
	}
}

// Write copies p and enqueues it for the background writer. It never
// blocks: if the buffer is full, the message is dropped and a warning is
// printed to stderr.
func (al *AsyncLogger) Write(p []byte) (int, error) {
	msg := make([]byte, len(p))
	copy(msg, p)

	select {
	case al.messages <- msg:
	default:
		fmt.Fprintln(os.Stderr, "asynclogger: log buffer is full, dropping message.")
	}

	return len(p), nil
}

// Close drains the pending messages, stops the background goroutine, and
// closes the sink if it supports it.
func (al *AsyncLogger) Close() error {
	close(al.messages)
	al.wg.Wait()

	if closer, ok := al.sink.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
