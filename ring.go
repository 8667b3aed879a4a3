// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package patchlog

import (
	"github.com/cockroachdb/errors"
	"github.com/riftdb/patchlog/logblock"
	"github.com/riftdb/patchlog/patch"
)

func logblockCheckMagic(data, magic []byte) bool { return logblock.CheckMagic(data, magic) }

func logblockInitialize(data, magic []byte) { logblock.Initialize(data, magic) }

// allPatchesAbsent reports whether a freshly scanned block holds zero
// records, i.e. whether it qualifies as empty[i] == true.
func allPatchesAbsent(data, magic []byte) bool {
	return logblock.ScanOffset(data, len(magic), patch.MinSerializedSize()) == len(magic)
}

// setActiveLocked moves the write cursor to ring position pos (an index
// into l.bufs, not a BlockID) and recomputes nextOffset by rescanning the
// block's existing records. Must be called with the home-thread guard
// already held.
func (l *Log) setActiveLocked(pos int) {
	l.active = pos
	data := l.bufs[pos].ReadBytes()
	l.nextOffset = logblock.ScanOffset(data, len(l.magic), patch.MinSerializedSize())
	l.empty[pos] = l.nextOffset == len(l.magic)
}

// selectForCompression returns the ring position following the active
// block, giving the oldest block a grace period before it is ever chosen
// as a compaction target.
func (l *Log) selectForCompression() int {
	return (l.active + 1) % l.count
}

// reclaimSpace picks the next block via selectForCompression, compacts it,
// and makes it active. It never suspends: compress itself is synchronous
// and acquiring the already-resident log block buffer requires no I/O.
func (l *Log) reclaimSpace() error {
	if l.count == 0 {
		return errors.New("patchlog: no log blocks configured")
	}
	target := l.selectForCompression()
	if err := l.compress(target); err != nil {
		return err
	}
	l.setActiveLocked(target)
	return nil
}
