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

package handle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/handle"
)

func TestParse_Empty(t *testing.T) {
	assert.Equal(t, handle.Empty, handle.Parse(""))
	assert.True(t, handle.Parse("").IsEmpty())
}

func TestParse_SingleChunk(t *testing.T) {
	assert.Equal(t, handle.Handle(0x1), handle.Parse("0000000000000001"))
}

func TestParse_MultiChunkSum(t *testing.T) {
	// Two 16-digit chunks, each 1, should sum to 2.
	got := handle.Parse("00000000000000010000000000000001")
	assert.Equal(t, handle.Handle(2), got)
}

func TestParse_ShortTailChunk(t *testing.T) {
	// 20 hex digits: one full 16-digit chunk of zero, plus a 4-digit tail "00ff".
	got := handle.Parse("000000000000000000ff")
	assert.Equal(t, handle.Handle(0xff), got)
}

func TestParse_WrapAround(t *testing.T) {
	// Two max-uint64 chunks wrap around on summation.
	got := handle.Parse("ffffffffffffffffffffffffffffffff")
	assert.Equal(t, handle.Handle(0xfffffffffffffffe), got)
}

func TestParse_ZeroFromNonEmptyBecomesOne(t *testing.T) {
	got := handle.Parse("00000000000000000000000000000000")
	assert.Equal(t, handle.Handle(1), got)
}

func TestParse_IsDeterministic(t *testing.T) {
	token := "aabbccdd11223344"
	assert.Equal(t, handle.Parse(token), handle.Parse(token))
}

func TestString_RoundTripsForSingleChunk(t *testing.T) {
	h := handle.Parse("00000000000000ff")
	assert.Equal(t, "ff", h.String())
}
