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

// Package stats accumulates the replayer's run counters and renders the
// final "key value" report.
package stats

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Stats holds every counter the report and the OpenTelemetry bridge read.
// All fields are accessed through atomic ops so the driver's main loop and
// any background metrics scrape never race.
type Stats struct {
	LinesRead          int64
	RequestsProcessed  int64
	ResponsesProcessed int64
	RemoveOperations   int64
	LinkOperations     int64
	LookupOperations   int64
	RenameOperations   int64
	WriteOperations    int64
	CreateOperations   int64

	GCRuns            int64
	TransactionsExpired int64
	ENOSPCRetries     int64
}

func (s *Stats) IncLinesRead()          { atomic.AddInt64(&s.LinesRead, 1) }
func (s *Stats) IncRequestsProcessed()  { atomic.AddInt64(&s.RequestsProcessed, 1) }
func (s *Stats) IncResponsesProcessed() { atomic.AddInt64(&s.ResponsesProcessed, 1) }
func (s *Stats) IncRemove()             { atomic.AddInt64(&s.RemoveOperations, 1) }
func (s *Stats) IncLink()               { atomic.AddInt64(&s.LinkOperations, 1) }
func (s *Stats) IncLookup()             { atomic.AddInt64(&s.LookupOperations, 1) }
func (s *Stats) IncRename()             { atomic.AddInt64(&s.RenameOperations, 1) }
func (s *Stats) IncWrite()              { atomic.AddInt64(&s.WriteOperations, 1) }
func (s *Stats) IncCreate()             { atomic.AddInt64(&s.CreateOperations, 1) }
func (s *Stats) IncGCRun()              { atomic.AddInt64(&s.GCRuns, 1) }
func (s *Stats) AddTransactionsExpired(n int) {
	atomic.AddInt64(&s.TransactionsExpired, int64(n))
}
func (s *Stats) IncENOSPCRetry() { atomic.AddInt64(&s.ENOSPCRetries, 1) }

// WriteReport renders the plain-text "key value" report to w, one pair per
// line, in the fixed key order the driver CLI's -r flag contract expects.
func (s *Stats) WriteReport(w io.Writer) error {
	lines := []struct {
		key   string
		value int64
	}{
		{"LinesRead", atomic.LoadInt64(&s.LinesRead)},
		{"RequestsProcessed", atomic.LoadInt64(&s.RequestsProcessed)},
		{"ResponsesProcessed", atomic.LoadInt64(&s.ResponsesProcessed)},
		{"RemoveOperations", atomic.LoadInt64(&s.RemoveOperations)},
		{"LinkOperations", atomic.LoadInt64(&s.LinkOperations)},
		{"LookupOperations", atomic.LoadInt64(&s.LookupOperations)},
		{"RenameOperations", atomic.LoadInt64(&s.RenameOperations)},
		{"WriteOperations", atomic.LoadInt64(&s.WriteOperations)},
		{"CreateOperations", atomic.LoadInt64(&s.CreateOperations)},
		{"GCRuns", atomic.LoadInt64(&s.GCRuns)},
		{"TransactionsExpired", atomic.LoadInt64(&s.TransactionsExpired)},
		{"ENOSPCRetries", atomic.LoadInt64(&s.ENOSPCRetries)},
	}

	for _, l := range lines {
		if _, err := fmt.Fprintf(w, "%s %d\n", l.key, l.value); err != nil {
			return err
		}
	}
	return nil
}
