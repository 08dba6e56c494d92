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

package driver_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/googlecloudplatform/nfstrace-replay/internal/cfg"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/driver"
)

func TestRun_ConsumesTraceAndWritesReport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))

	config := cfg.DefaultConfig()
	config.Replay.DisableSync = true
	config.Replay.ReportPath = cfg.ResolvedPath(dir + "/report.txt")

	d, err := driver.New(config, nil)
	require.NoError(t, err)

	trace := strings.Join([]string{
		`100 s d x C3 1 0 create fh root name "a.txt"`,
		`100 s d x R3 1 0 create OK fh fileh ftype 1`,
	}, "\n")

	require.NoError(t, d.Run(strings.NewReader(trace)))

	report, err := os.ReadFile(dir + "/report.txt")
	require.NoError(t, err)
	require.Contains(t, string(report), "LinesRead 2")
	require.Contains(t, string(report), "CreateOperations 1")
}

func TestRun_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))

	config := cfg.DefaultConfig()
	config.Replay.DisableSync = true

	d, err := driver.New(config, nil)
	require.NoError(t, err)

	trace := "not a trace line\n# comment\n"
	require.NoError(t, d.Run(strings.NewReader(trace)))
}
