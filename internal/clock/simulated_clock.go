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

package clock

import (
	"sync"
	"time"
)

// SimulatedClock implements Clock with a time that only moves when the
// test tells it to, via SetTime/AdvanceTime. After() timers fire against
// that simulated time, not the wall clock.
type SimulatedClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
}

type waiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewSimulatedClock returns a clock whose Now() starts at t.
func NewSimulatedClock(t time.Time) *SimulatedClock {
	return &SimulatedClock{now: t}
}

// Now returns the simulated current time.
func (c *SimulatedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// SetTime sets the simulated current time and fires any timers whose
// deadline has passed.
func (c *SimulatedClock) SetTime(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.fireLocked()
	c.mu.Unlock()
}

// AdvanceTime moves the simulated clock forward (or backward) by d and
// fires any timers whose deadline has passed.
func (c *SimulatedClock) AdvanceTime(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.fireLocked()
	c.mu.Unlock()
}

// After returns a channel that receives the simulated time once d has
// elapsed according to this clock. Non-positive durations fire immediately.
func (c *SimulatedClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}

	c.waiters = append(c.waiters, waiter{deadline: c.now.Add(d), ch: ch})
	return ch
}

// fireLocked must be called with c.mu held.
func (c *SimulatedClock) fireLocked() {
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			w.ch <- w.deadline
			continue
		}
		remaining = append(remaining, w)
	}
	c.waiters = remaining
}
