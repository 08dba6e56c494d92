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

package cfg

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Severity is the logging severity and can accept the following values:
// "TRACE", "DEBUG", "INFO", "WARNING", "ERROR", "OFF".
type Severity string

const (
	TRACE   Severity = "TRACE"
	DEBUG   Severity = "DEBUG"
	INFO    Severity = "INFO"
	WARNING Severity = "WARNING"
	ERROR   Severity = "ERROR"
	OFF     Severity = "OFF"
)

var severityRanking = map[Severity]int{
	TRACE:   0,
	DEBUG:   1,
	INFO:    2,
	WARNING: 3,
	ERROR:   4,
	OFF:     5,
}

func (s *Severity) UnmarshalText(text []byte) error {
	level := Severity(strings.ToUpper(string(text)))
	if _, ok := severityRanking[level]; !ok {
		return fmt.Errorf("invalid severity: %s. Must be one of [TRACE, DEBUG, INFO, WARNING, ERROR, OFF]", text)
	}
	*s = level
	return nil
}

// Rank returns the integer representation of the severity rank, used to
// decide whether a given log call is enabled at the configured level.
// Returns -1 if the severity is unknown.
func (s Severity) Rank() int {
	if rank, ok := severityRanking[s]; ok {
		return rank
	}
	return -1
}

// ResolvedPath is a filesystem path made absolute with filepath.Abs when
// decoded; symlinks are not resolved. "" and "-" are kept as given.
type ResolvedPath string

func (p *ResolvedPath) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" || s == "-" {
		*p = ResolvedPath(s)
		return nil
	}

	abs, err := filepath.Abs(s)
	if err != nil {
		return fmt.Errorf("resolving path %q: %w", s, err)
	}

	*p = ResolvedPath(abs)
	return nil
}

// LogFormat is the wire format used for log lines: "text" or "json".
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

func (f *LogFormat) UnmarshalText(text []byte) error {
	format := LogFormat(strings.ToLower(string(text)))
	if !slices.Contains([]LogFormat{LogFormatText, LogFormatJSON}, format) {
		return fmt.Errorf("invalid log format: %s", text)
	}
	*f = format
	return nil
}
