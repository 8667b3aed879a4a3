// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package patchlog

import (
	"github.com/riftdb/patchlog/internal/invariants"
	"github.com/riftdb/patchlog/patch"
)

// StorePatch appends p to the active log block, reporting false on
// persistent space exhaustion — expected, not an error; the caller is
// expected to call FlushNOldestBlocks and retry. StorePatch never suspends.
func (l *Log) StorePatch(p patch.Patch) bool {
	l.enter()
	defer l.exit()

	if l.count == 0 {
		return false
	}

	size := patch.SerializedSize(p)
	if l.tryAppend(p, size) {
		return true
	}

	saved := l.active
	if err := l.reclaimSpace(); err != nil {
		l.setActiveLocked(saved)
		return false
	}
	if l.tryAppend(p, size) {
		return true
	}

	// Reclamation didn't free enough space; restore the original active
	// block so the caller's subsequent flush starts from the full one.
	l.setActiveLocked(saved)
	return false
}

// tryAppend writes p to the active block if it fits in the remaining
// space, advancing next_offset and clearing empty[active] on success.
func (l *Log) tryAppend(p patch.Patch, size int) bool {
	free := invariants.SafeSub(l.blockSize, l.nextOffset)
	if size > free {
		return false
	}
	buf := l.bufs[l.active].WriteBytes()
	patch.Serialize(p, buf[l.nextOffset:])
	l.nextOffset += size
	l.empty[l.active] = false
	if l.opts.Metrics != nil {
		l.opts.Metrics.PatchesStored.Inc()
	}
	return true
}
