// Copyright 2025 Blink Labs Software
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

package mirror_test

import (
	"testing"

	"github.com/blinklabs-io/gohiero/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCursorStore(t *testing.T, store mirror.CursorStore) {
	t.Helper()
	_, ok, err := store.Load("missing")
	require.NoError(t, err)
	assert.False(t, ok)
	cursor := mirror.Cursor{Start: ts(42), LastSequenceNumber: 7}
	require.NoError(t, store.Save("topic-1", cursor))
	loaded, ok, err := store.Load("topic-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cursor.Start, loaded.Start)
	assert.Equal(t, cursor.LastSequenceNumber, loaded.LastSequenceNumber)
	require.NoError(t, store.Save("topic-1", mirror.Cursor{Start: ts(43)}))
	loaded, _, err = store.Load("topic-1")
	require.NoError(t, err)
	assert.Equal(t, ts(43), loaded.Start)
}

func TestMemoryCursorStore(t *testing.T) {
	testCursorStore(t, mirror.NewMemoryCursorStore())
}

func TestBadgerCursorStore(t *testing.T) {
	store, err := mirror.NewBadgerCursorStore("")
	require.NoError(t, err)
	defer store.Close()
	testCursorStore(t, store)
}

func TestBadgerCursorStorePersists(t *testing.T) {
	dir := t.TempDir()
	store, err := mirror.NewBadgerCursorStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Save("topic-1", mirror.Cursor{Start: ts(9), LastSequenceNumber: 3}))
	require.NoError(t, store.Close())

	store, err = mirror.NewBadgerCursorStore(dir)
	require.NoError(t, err)
	defer store.Close()
	loaded, ok, err := store.Load("topic-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(3), loaded.LastSequenceNumber)
}
