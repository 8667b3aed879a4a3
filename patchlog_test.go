// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package patchlog_test

import (
	"context"
	"testing"

	"github.com/riftdb/patchlog"
	"github.com/riftdb/patchlog/internal/base"
	"github.com/riftdb/patchlog/internal/bufcache"
	"github.com/riftdb/patchlog/logblock"
	"github.com/riftdb/patchlog/patch"
	"github.com/stretchr/testify/require"
)

func scanRecords(data, magic []byte) []logblock.Record {
	return logblock.ScanAll(data, len(magic), patch.MinSerializedSize())
}

type harness struct {
	ser   *bufcache.Serializer
	cache *bufcache.Cache
	index *bufcache.Index
	magic []byte
	size  int
}

func newHarness(blockSize int) *harness {
	return &harness{
		ser:   bufcache.NewSerializer(blockSize),
		cache: bufcache.NewCache(blockSize),
		index: bufcache.NewIndex(),
		magic: []byte("PLOGBLK1"),
		size:  blockSize,
	}
}

func (h *harness) newLog() *patchlog.Log {
	return patchlog.New(patchlog.Options{
		Magic:      h.magic,
		Serializer: h.ser,
		Cache:      h.cache,
		Index:      h.index,
	})
}

// markLogRangeInUse tells the fake serializer that the log blocks
// first..first+count-1 already exist, the state a reopened store would
// find them in. A first-ever Init leaves the range unmarked (not in use)
// so the fake behaves like a brand-new, never-allocated range.
func (h *harness) markLogRangeInUse(first base.BlockID, count int) {
	for i := 0; i < count; i++ {
		h.ser.SetInUse(first+base.BlockID(i), true)
	}
}

func TestEmptyInit(t *testing.T) {
	h := newHarness(4096)
	l := h.newLog()
	ctx := context.Background()
	require.NoError(t, l.Init(ctx, base.BlockID(100), 0))

	ok := l.StorePatch(patch.Patch{BlockID: 1, Seq: 1})
	require.False(t, ok)

	require.NoError(t, l.LoadPatches(ctx))
	_, ok2 := h.index.Patches(1)
	require.False(t, ok2)
}

func TestFillOneBlock(t *testing.T) {
	const blockSize = 4096
	const magicLen = 8
	const payloadSize = 100 - 28 // patch header is 28 bytes; total record = 100 bytes
	h := newHarness(blockSize)
	l := h.newLog()
	ctx := context.Background()
	require.NoError(t, l.Init(ctx, base.BlockID(0), 2))

	payload := make([]byte, payloadSize)
	var seq uint64
	successes := 0
	for i := 0; i < 1000; i++ {
		seq++
		id := base.BlockID(1000 + i)
		p := patch.Patch{BlockID: id, Seq: seq, Payload: payload}
		// A real caller updates the in-core index alongside every
		// successful StorePatch; mirror that so compaction sees these
		// patches as live and can't silently discard them.
		h.index.Set(id, []patch.Patch{p})
		ok := l.StorePatch(p)
		if !ok {
			break
		}
		successes++
	}
	// (4096-8)/100 = 40.88 -> 40 successes fill block 0; block 1 is empty so
	// reclaimSpace makes it active for free, yielding 40 more before a
	// persistent failure.
	require.Equal(t, 80, successes)

	ok := l.StorePatch(patch.Patch{BlockID: 9999, Seq: seq + 1, Payload: payload})
	require.False(t, ok)
}

func TestCrashRecovery(t *testing.T) {
	h := newHarness(4096)
	ctx := context.Background()

	l := h.newLog()
	require.NoError(t, l.Init(ctx, base.BlockID(0), 2))

	b := base.BlockID(7)
	h.ser.SetInUse(b, true)
	p1 := patch.Patch{BlockID: b, Seq: 1, Payload: []byte("p1")}
	p2 := patch.Patch{BlockID: b, Seq: 2, Payload: []byte("p2")}
	p3 := patch.Patch{BlockID: b, Seq: 3, Payload: []byte("p3")}
	require.True(t, l.StorePatch(p1))
	require.True(t, l.StorePatch(p2))
	require.True(t, l.StorePatch(p3))
	l.Shutdown()

	h.markLogRangeInUse(base.BlockID(0), 2)
	l2 := h.newLog()
	require.NoError(t, l2.Init(ctx, base.BlockID(0), 2))
	require.NoError(t, l2.LoadPatches(ctx))

	list, ok := h.index.Patches(b)
	require.True(t, ok)
	require.Equal(t, []patch.Patch{p1, p2, p3}, list)
}

func TestStalePatchEviction(t *testing.T) {
	h := newHarness(4096)
	ctx := context.Background()

	l := h.newLog()
	require.NoError(t, l.Init(ctx, base.BlockID(0), 2))

	b := base.BlockID(7)
	h.ser.SetInUse(b, true)
	require.True(t, l.StorePatch(patch.Patch{BlockID: b, Seq: 1, Payload: []byte("p")}))
	l.Shutdown()

	h.ser.SetInUse(b, false)
	h.markLogRangeInUse(base.BlockID(0), 2)

	l2 := h.newLog()
	require.NoError(t, l2.Init(ctx, base.BlockID(0), 2))
	require.NoError(t, l2.LoadPatches(ctx))

	_, ok := h.index.Patches(b)
	require.False(t, ok)
}

func TestForceFlush(t *testing.T) {
	const blockSize = 4096
	const count = 2
	h := newHarness(blockSize)
	ctx := context.Background()

	l := h.newLog()
	require.NoError(t, l.Init(ctx, base.BlockID(0), count))

	payload := make([]byte, 100-28)
	var seq uint64
	var blocks []base.BlockID
	for {
		seq++
		id := base.BlockID(2000 + seq)
		p := patch.Patch{BlockID: id, Seq: seq, Payload: payload}
		h.index.Set(id, []patch.Patch{p})
		if !l.StorePatch(p) {
			break
		}
		blocks = append(blocks, id)
	}
	require.NotEmpty(t, blocks)

	require.NoError(t, l.FlushNOldestBlocks(ctx, count))

	for _, id := range blocks {
		require.GreaterOrEqual(t, h.cache.FlushCount(id), 1)
	}
}

func TestPartialCompaction(t *testing.T) {
	const blockSize = 512
	h := newHarness(blockSize)
	ctx := context.Background()

	l := h.newLog()
	require.NoError(t, l.Init(ctx, base.BlockID(100), 2))

	stale := patch.Patch{BlockID: 50, Seq: 1, Payload: []byte("stale")}
	live := patch.Patch{BlockID: 50, Seq: 2, Payload: []byte("live")}
	other := patch.Patch{BlockID: 51, Seq: 3, Payload: []byte("other")}
	require.True(t, l.StorePatch(stale))
	require.True(t, l.StorePatch(live))
	require.True(t, l.StorePatch(other))

	// Only `live` (and later) survive compaction for block 50; `other`
	// remains untouched for block 51.
	h.index.Set(50, []patch.Patch{live})
	h.index.Set(51, []patch.Patch{other})

	// Keep writing filler patches (never referenced by the index, so never
	// live) until block 0 overflows enough times that it gets selected for
	// compaction: reclaimSpace alternates compaction targets between the
	// two blocks as the active block flips, so block 0 is eventually
	// rewritten, dropping `stale` and every filler while keeping `live`
	// and `other` in their original relative order.
	seq := uint64(100)
	compacted := false
	for i := 0; i < 2000 && !compacted; i++ {
		seq++
		id := base.BlockID(9000 + i)
		require.True(t, l.StorePatch(patch.Patch{BlockID: id, Seq: seq, Payload: []byte{0}}))
		if !containsStale(h.cache.Contents(base.BlockID(100))) {
			compacted = true
		}
	}
	require.True(t, compacted, "block 0 was never selected for compaction")

	recs := scanRecords(h.cache.Contents(base.BlockID(100)), h.magic)
	require.GreaterOrEqual(t, len(recs), 2)
	require.Equal(t, live, recs[0].Patch)
	require.Equal(t, other, recs[1].Patch)
}

func containsStale(data []byte) bool {
	for _, rec := range scanRecords(data, patchlog.DefaultMagic) {
		if string(rec.Patch.Payload) == "stale" {
			return true
		}
	}
	return false
}
