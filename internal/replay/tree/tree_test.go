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

package tree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/handle"
	"github.com/googlecloudplatform/nfstrace-replay/internal/replay/tree"
)

func TestNewRoot(t *testing.T) {
	root := tree.NewRoot(handle.Parse("1"), "root")
	assert.True(t, root.IsDir)
	assert.Nil(t, root.Parent)
	assert.True(t, root.IsEmptyDir())
}

func TestNewChild_LinksBothDirections(t *testing.T) {
	root := tree.NewRoot(handle.Parse("1"), "root")

	root.Lock()
	child := root.NewChild(handle.Parse("2"), "a", false)
	root.Unlock()

	require.NotNil(t, child)
	assert.Equal(t, root, child.Parent)
	assert.Same(t, child, root.Children["a"])
	assert.False(t, root.IsEmptyDir())
}

func TestDetach_RemovesFromParentAndClearsBackref(t *testing.T) {
	root := tree.NewRoot(handle.Parse("1"), "root")
	root.Lock()
	child := root.NewChild(handle.Parse("2"), "a", false)
	root.Unlock()

	child.Detach()

	assert.Nil(t, child.Parent)
	_, present := root.Children["a"]
	assert.False(t, present)
	assert.True(t, root.IsEmptyDir())
}

func TestDetach_NoopWithoutParent(t *testing.T) {
	root := tree.NewRoot(handle.Parse("1"), "root")
	assert.NotPanics(t, root.Detach)
}
