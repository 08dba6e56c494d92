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

// Package clock abstracts wall-clock time so that the replay engine's
// ENOSPC backoff can be tested without real sleeps. The trace's own
// logical clock (frame timestamps, which also pace the periodic sync)
// never goes through this package.
package clock

import "time"

// Clock is satisfied by RealClock, FakeClock and SimulatedClock.
type Clock interface {
	// Now returns the current time as this clock sees it.
	Now() time.Time

	// After notifies on the returned channel once d has elapsed according to
	// this clock.
	After(d time.Duration) <-chan time.Time
}
