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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/googlecloudplatform/nfstrace-replay/internal/clock"
)

// TestSleep_UsesInjectedClockNotRealTime swaps in a FakeClock with a
// negligible wait so the ENOSPC backoff path can be exercised in a unit
// test without actually blocking for enospcBackoff (10s).
func TestSleep_UsesInjectedClockNotRealTime(t *testing.T) {
	e := New(Config{BaseDir: t.TempDir()}, nil, nil)
	e.WithClock(&clock.FakeClock{WaitTime: time.Millisecond})

	done := make(chan struct{})
	go func() {
		e.sleep(enospcBackoff)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sleep did not return promptly under FakeClock")
	}
}
