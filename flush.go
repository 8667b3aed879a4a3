// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package patchlog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/riftdb/patchlog/internal/base"
	"github.com/riftdb/patchlog/logblock"
	"github.com/riftdb/patchlog/patch"
	"golang.org/x/sync/errgroup"
)

// FlushNOldestBlocks forces the next n ring positions after the active
// block (wrapping, skipping already-empty blocks) to be evacuated. n is
// clamped to count. It may suspend: flushBlock acquires each referenced
// data block through the buffer cache.
func (l *Log) FlushNOldestBlocks(ctx context.Context, n int) error {
	l.enter()
	defer l.exit()

	if n > l.count {
		n = l.count
	}
	if n <= 0 {
		return nil
	}

	positions := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		pos := (l.active + i) % l.count
		if l.empty[pos] {
			continue
		}
		positions = append(positions, pos)
	}

	if len(positions) == 0 {
		// nothing to do, but n == count still means the active block
		// itself is being forced out: restore its next offset if it
		// happened to already be empty.
	} else if len(positions) == 1 {
		if err := l.flushBlock(ctx, positions[0]); err != nil {
			return err
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for _, pos := range positions {
			pos := pos
			g.Go(func() error { return l.flushBlock(gctx, pos) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if n == l.count {
		l.setActiveLocked(l.active)
	}
	return nil
}

// flushBlock forcibly evacuates the log block at ring position pos: for
// every patch it holds, it ensures the referenced data block is scheduled
// for a full rewrite, then wipes the log block.
func (l *Log) flushBlock(ctx context.Context, pos int) error {
	if l.opts.Metrics != nil {
		w := base.MakeStopwatch()
		defer func() { l.opts.Metrics.FlushDuration.Observe(w.Stop().Seconds()) }()
	}

	buf := l.bufs[pos]
	recs := logblock.ScanAll(buf.ReadBytes(), len(l.magic), patch.MinSerializedSize())

	seen := make(map[base.BlockID]bool, len(recs))
	for _, rec := range recs {
		b := rec.Patch.TargetBlock()
		if seen[b] {
			continue
		}
		seen[b] = true

		if _, ok := l.opts.Index.Patches(b); !ok {
			continue
		}

		dataBuf, err := l.opts.Cache.Acquire(ctx, b, NonLocking)
		if err != nil {
			return errors.Wrapf(err, "patchlog: acquiring data block %s during flush", b)
		}
		// The acquisition itself may have triggered eviction in the
		// in-core index, so the earlier observation is stale; recheck.
		if _, ok := l.opts.Index.Patches(b); ok {
			dataBuf.EnsureFlush()
		}
		dataBuf.Release()
	}

	logblock.Initialize(buf.WriteBytes(), l.magic)
	l.empty[pos] = true
	if l.opts.Metrics != nil {
		l.opts.Metrics.FlushesCompleted.Inc()
	}
	l.opts.Logger.Infof("patchlog: flushed log block %s, evacuated %d distinct data blocks",
		l.firstBlock+base.BlockID(pos), len(seen))
	return nil
}
