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
	"context"
	"fmt"
	"io"
	"log/slog"
)

// textTimeLayout produces a fixed-width timestamp so text-format log lines
// are easy to align and grep.
const textTimeLayout = "2006/01/02 15:04:05.000000"

// recordHandler is a minimal slog.Handler that writes gcsfuse-style
// single-line records, in either a quoted key=value text form or a
// Cloud-Logging-shaped JSON form. It does not support attribute groups;
// this replayer only ever logs a formatted message.
type recordHandler struct {
	w            io.Writer
	programLevel *slog.LevelVar
	prefix       string
	format       string
}

func (h *recordHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.programLevel.Level()
}

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	severity := levelToSeverity(r.Level)
	message := h.prefix + r.Message

	var err error
	if h.format == "text" {
		_, err = fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n",
			r.Time.Format(textTimeLayout), severity, message)
	} else {
		_, err = fmt.Fprintf(h.w,
			"{\"timestamp\":{\"seconds\":%d,\"nanos\":%d},\"severity\":%q,\"message\":%q}\n",
			r.Time.Unix(), r.Time.Nanosecond(), severity, message)
	}
	return err
}

func (h *recordHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *recordHandler) WithGroup(_ string) slog.Handler      { return h }

// createJsonOrTextHandler builds a handler writing to w at the given prefix,
// in the factory's currently configured format (json unless "text").
func (f *loggerFactory) createJsonOrTextHandler(
	w io.Writer, programLevel *slog.LevelVar, prefix string) slog.Handler {
	return &recordHandler{
		w:            w,
		programLevel: programLevel,
		prefix:       prefix,
		format:       f.format,
	}
}
