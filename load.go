// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package patchlog

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/riftdb/patchlog/internal/base"
	"github.com/riftdb/patchlog/logblock"
	"github.com/riftdb/patchlog/patch"
)

// LoadPatches walks every log block once, rebuilds a data-block → patch-list
// mapping, drops any patch whose target block no longer exists, sorts each
// list under the codec's total order, and hands it to the in-core index.
// It is purely read-side: the log blocks themselves are left intact,
// validated through BufHandle.ReadBytes rather than a major-write path.
func (l *Log) LoadPatches(ctx context.Context) error {
	l.enter()
	defer l.exit()

	byBlock := make(map[base.BlockID][]patch.Patch)
	for pos := 0; pos < l.count; pos++ {
		data := l.bufs[pos].ReadBytes()
		if !logblock.CheckMagic(data, l.magic) {
			return errors.AssertionFailedf("patchlog: log block %s is missing its magic prefix during load",
				l.firstBlock+base.BlockID(pos))
		}
		recs := logblock.ScanAll(data, len(l.magic), patch.MinSerializedSize())
		for _, rec := range recs {
			byBlock[rec.Patch.TargetBlock()] = append(byBlock[rec.Patch.TargetBlock()], rec.Patch)
		}
	}

	for b, list := range byBlock {
		inUse, err := l.opts.Serializer.BlockInUse(ctx, b)
		if err != nil {
			return errors.Wrapf(err, "patchlog: querying serializer for data block %s during load", b)
		}
		if !inUse {
			continue
		}
		sort.Slice(list, func(i, j int) bool { return patch.Less(list[i], list[j]) })
		l.opts.Index.LoadBlockPatchList(b, list)
		if l.opts.Metrics != nil {
			l.opts.Metrics.PatchesReplayed.Add(float64(len(list)))
		}
	}
	return nil
}
