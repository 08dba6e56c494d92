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

package stats_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/stats"
)

func TestWriteReport_FixedKeyOrder(t *testing.T) {
	s := &stats.Stats{}
	s.IncLinesRead()
	s.IncRequestsProcessed()
	s.IncResponsesProcessed()
	s.IncRemove()
	s.IncLink()
	s.IncLookup()
	s.IncRename()
	s.IncWrite()
	s.IncCreate()

	var buf bytes.Buffer
	require.NoError(t, s.WriteReport(&buf))

	want := "LinesRead 1\n" +
		"RequestsProcessed 1\n" +
		"ResponsesProcessed 1\n" +
		"RemoveOperations 1\n" +
		"LinkOperations 1\n" +
		"LookupOperations 1\n" +
		"RenameOperations 1\n" +
		"WriteOperations 1\n" +
		"CreateOperations 1\n" +
		"GCRuns 0\n" +
		"TransactionsExpired 0\n" +
		"ENOSPCRetries 0\n"
	assert.Equal(t, want, buf.String())
}

func TestAddTransactionsExpired(t *testing.T) {
	s := &stats.Stats{}
	s.AddTransactionsExpired(3)
	s.AddTransactionsExpired(2)
	assert.EqualValues(t, 5, s.TransactionsExpired)
}
