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

package ratelimit

import (
	"context"
	"io"
)

// ThrottledReader returns an io.Reader that wraps r, consulting throttle
// before each underlying read and never asking it for more tokens than its
// capacity in a single call.
func ThrottledReader(
	ctx context.Context,
	r io.Reader,
	throttle Throttle) io.Reader {
	return &throttledReader{
		ctx:      ctx,
		wrapped:  r,
		throttle: throttle,
	}
}

type throttledReader struct {
	ctx      context.Context
	wrapped  io.Reader
	throttle Throttle
}

func (tr *throttledReader) Read(p []byte) (n int, err error) {
	capacity := tr.throttle.Capacity()
	if uint64(len(p)) > capacity {
		p = p[:capacity]
	}

	if err = tr.throttle.Wait(tr.ctx, uint64(len(p))); err != nil {
		return 0, err
	}

	for n < len(p) {
		nn, readErr := tr.wrapped.Read(p[n:])
		n += nn
		if readErr != nil {
			return n, readErr
		}
		if nn == 0 {
			break
		}
	}

	return n, nil
}
