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

// Package ratelimit paces the replay driver's frame-consumption loop when
// --max-ops-per-sec is set, so a trace can be replayed against slow storage
// without saturating it the instant the loop starts.
package ratelimit

import (
	"fmt"
	"math"
	"time"
)

// capacityWindowFraction chooses a burst capacity equal to the number of
// tokens accumulated over window/50 of smoothing, rather than the whole
// window — a single window-sized burst would let the limiter admit every
// request in the window all at once.
const capacityWindowFraction = 50

// ChooseLimiterCapacity picks a token bucket capacity appropriate for
// limiting to rateHz over the given window.
func ChooseLimiterCapacity(
	rateHz float64,
	window time.Duration) (capacity uint64, err error) {
	if !(rateHz > 0) {
		err = fmt.Errorf("Illegal rate: %f", rateHz)
		return
	}

	if window <= 0 {
		err = fmt.Errorf("Illegal window: %v", window)
		return
	}

	capacityFloat := rateHz * window.Seconds() / capacityWindowFraction
	if math.IsInf(capacityFloat, 0) || math.IsNaN(capacityFloat) {
		err = fmt.Errorf("Illegal rate: %f", rateHz)
		return
	}

	capacityFloat = math.Floor(capacityFloat)
	if capacityFloat <= 0 {
		err = fmt.Errorf(
			"Can't use a token bucket to limit to %f Hz over a window of %v "+
				"(result is a capacity of %f)",
			rateHz,
			window,
			capacityFloat)
		return
	}

	capacity = uint64(capacityFloat)
	return
}
