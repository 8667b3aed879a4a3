// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package patchlog

import (
	"context"
	"testing"

	"github.com/riftdb/patchlog/internal/base"
	"github.com/riftdb/patchlog/internal/bufcache"
	"github.com/riftdb/patchlog/patch"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T, blockSize, count int) (*Log, *bufcache.Serializer, *bufcache.Cache, *bufcache.Index) {
	t.Helper()
	ser := bufcache.NewSerializer(blockSize)
	cache := bufcache.NewCache(blockSize)
	index := bufcache.NewIndex()
	l := New(Options{Serializer: ser, Cache: cache, Index: index})
	require.NoError(t, l.Init(context.Background(), base.BlockID(0), count))
	return l, ser, cache, index
}

// TestCompactionIdempotence checks that compress(id) run twice in a row
// with no intervening writes is a no-op after the first call.
func TestCompactionIdempotence(t *testing.T) {
	l, _, cache, index := newTestLog(t, 512, 2)

	stale := patch.Patch{BlockID: 1, Seq: 1, Payload: []byte("stale")}
	live := patch.Patch{BlockID: 1, Seq: 2, Payload: []byte("live")}
	require.True(t, l.StorePatch(stale))
	require.True(t, l.StorePatch(live))
	index.Set(1, []patch.Patch{live})

	require.NoError(t, l.compress(0))
	after := cache.Contents(base.BlockID(0))

	require.NoError(t, l.compress(0))
	require.Equal(t, after, cache.Contents(base.BlockID(0)))
}

// TestCompactionDiscardsOnlyStale checks that compress reduces nextOffset
// by exactly the discarded patches' serialized sizes.
func TestCompactionDiscardsOnlyStale(t *testing.T) {
	l, _, _, index := newTestLog(t, 512, 2)

	stale := patch.Patch{BlockID: 1, Seq: 1, Payload: []byte("stale")}
	live := patch.Patch{BlockID: 1, Seq: 2, Payload: []byte("live")}
	other := patch.Patch{BlockID: 2, Seq: 3, Payload: []byte("other")}
	require.True(t, l.StorePatch(stale))
	require.True(t, l.StorePatch(live))
	require.True(t, l.StorePatch(other))

	index.Set(1, []patch.Patch{live})
	index.Set(2, []patch.Patch{other})

	before := l.nextOffset
	require.NoError(t, l.compress(0))
	l.setActiveLocked(0) // refresh next_offset the way reclaimSpace would
	after := l.nextOffset

	require.Equal(t, patch.SerializedSize(stale), before-after)
}

func TestCompactionOfEmptyBlockIsNoop(t *testing.T) {
	l, _, cache, _ := newTestLog(t, 512, 2)

	before := cache.Contents(base.BlockID(1))
	require.NoError(t, l.compress(1)) // block 1 was never written to
	require.Equal(t, before, cache.Contents(base.BlockID(1)))
}
