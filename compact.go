// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package patchlog

import (
	"github.com/riftdb/patchlog/internal/base"
	"github.com/riftdb/patchlog/internal/invariants"
	"github.com/riftdb/patchlog/logblock"
	"github.com/riftdb/patchlog/patch"
)

// compress rewrites the log block at ring position pos in place, retaining
// only patches still live per the in-core index. It never blocks on I/O:
// the block is already resident.
func (l *Log) compress(pos int) error {
	if l.opts.Metrics != nil {
		w := base.MakeStopwatch()
		defer func() { l.opts.Metrics.CompactionDuration.Observe(w.Stop().Seconds()) }()
	}

	buf := l.bufs[pos]
	data := buf.ReadBytes()
	recs := logblock.ScanAll(data, len(l.magic), patch.MinSerializedSize())

	kept := make([]patch.Patch, 0, len(recs))
	discarded := 0
	for _, rec := range recs {
		if l.isLive(rec.Patch) {
			kept = append(kept, rec.Patch)
		} else {
			discarded++
		}
	}

	if discarded == 0 {
		if invariants.Enabled && len(kept) != len(recs) {
			panic("patchlog: compress miscounted live patches")
		}
		return nil
	}

	out := buf.WriteBytes()
	logblock.Initialize(out, l.magic)
	offset := len(l.magic)
	for _, p := range kept {
		offset += patch.Serialize(p, out[offset:])
	}

	if l.opts.Metrics != nil {
		l.opts.Metrics.PatchesDiscarded.Add(float64(discarded))
	}
	l.opts.Logger.Infof("patchlog: compacted log block %s, discarded %d of %d patches",
		l.firstBlock+base.BlockID(pos), discarded, len(recs))
	return nil
}

// isLive reports whether p should survive compaction: its data block must
// still be tracked by the in-core index, and p must be at least as new as
// the oldest entry in that index's patch list.
func (l *Log) isLive(p patch.Patch) bool {
	list, ok := l.opts.Index.Patches(p.TargetBlock())
	if !ok || len(list) == 0 {
		return false
	}
	oldest := list[0]
	for _, q := range list[1:] {
		if patch.Less(q, oldest) {
			oldest = q
		}
	}
	return !patch.Less(p, oldest)
}
