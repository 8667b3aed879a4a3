// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package patchlog implements the out-of-core patch log of a disk-backed,
// copy-on-write B-tree storage engine: a ring of fixed-size log blocks that
// records small deltas (patches) against data blocks so the engine can defer
// rewriting a block wholesale until it is convenient to do so.
//
// A Log runs entirely on one goroutine. Every exported method asserts this
// by acquiring and releasing a non-reentrant guard; calling a Log method
// from a second goroutine, or reentrantly from within a callback the log
// itself invoked, panics. The log never performs its own locking against
// concurrent data writes; it documents, but does not enforce, that
// StorePatch and the compactor must not be invoked while a flush of the
// surrounding engine is in progress.
package patchlog

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/riftdb/patchlog/internal/base"
)

// DefaultMagic is the magic prefix written at the start of every log block
// when the host engine does not supply its own. It is exactly 8 bytes so
// that the worked example in the package's test suite (4096-byte blocks,
// 100-byte patches) matches the documented block capacity.
var DefaultMagic = []byte("PLOGBLK1")

// Options configures a Log: a plain struct of collaborators and knobs
// passed once to New, with no separate file-based configuration layer.
type Options struct {
	// Magic is the byte sequence written at offset 0 of every log block.
	// Must be stable across restarts of the same on-disk log. Defaults to
	// DefaultMagic if nil.
	Magic []byte

	// Serializer answers which blocks currently exist.
	Serializer Serializer

	// Cache acquires and releases block buffers.
	Cache BufferCache

	// Index is the in-core patch index the log consults during
	// compaction and flush, and seeds during LoadPatches.
	Index PatchIndex

	// Logger receives Infof notices on compaction and flush and the fatal
	// diagnostic on structural corruption. Defaults to base.DefaultLogger
	// if nil.
	Logger base.Logger

	// Metrics, if non-nil, receives counters and histograms for this Log's
	// lifetime. The Log does not register it; the caller does. Nil
	// disables metrics.
	Metrics *Metrics
}

func (o *Options) ensureDefaults() {
	if o.Magic == nil {
		o.Magic = DefaultMagic
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
}

// Log is the out-of-core patch log for one contiguous range of log blocks.
type Log struct {
	opts      Options
	magic     []byte
	blockSize int

	firstBlock base.BlockID
	count      int

	bufs  []BufHandle
	empty []bool

	active     int
	nextOffset int

	busy atomic.Bool
}

// New constructs a Log with the given options. The log does not touch any
// block until Init is called.
func New(opts Options) *Log {
	opts.ensureDefaults()
	return &Log{opts: opts, magic: opts.Magic}
}

// enter acquires the non-reentrant home-thread guard. It panics if the Log
// is already busy, which indicates either concurrent access from a second
// goroutine or a reentrant call made from within a callback the log itself
// invoked — both contract violations.
func (l *Log) enter() {
	if !l.busy.CompareAndSwap(false, true) {
		panic(errors.AssertionFailedf("patchlog: concurrent or reentrant access to Log from outside its home goroutine"))
	}
}

func (l *Log) exit() { l.busy.Store(false) }

// Init stores the log block range, acquires a buffer for each block, and
// validates or initializes its contents. first is the first log block id
// (inclusive) and count is the number of log blocks in the ring.
func (l *Log) Init(ctx context.Context, first base.BlockID, count int) error {
	l.enter()
	defer l.exit()

	l.firstBlock = first
	l.count = count
	l.blockSize = l.opts.Serializer.BlockSize()
	l.bufs = make([]BufHandle, count)
	l.empty = make([]bool, count)

	for i := 0; i < count; i++ {
		id := first + base.BlockID(i)
		inUse, err := l.opts.Serializer.BlockInUse(ctx, id)
		if err != nil {
			return errors.Wrapf(err, "patchlog: querying serializer for block %s", id)
		}
		buf, err := l.opts.Cache.Acquire(ctx, id, NonLocking)
		if err != nil {
			return errors.Wrapf(err, "patchlog: acquiring log block %s", id)
		}
		l.bufs[i] = buf

		if inUse {
			if !logblockCheckMagic(buf.ReadBytes(), l.magic) {
				l.opts.Logger.Fatalf("patchlog: log block %s is missing its magic prefix; log range is misconfigured or storage is damaged", id)
				return errors.AssertionFailedf("patchlog: missing MAGIC at block %s", id)
			}
			l.empty[i] = allPatchesAbsent(buf.ReadBytes(), l.magic)
		} else {
			logblockInitialize(buf.WriteBytes(), l.magic)
			l.empty[i] = true
		}
	}

	if count > 0 {
		l.setActiveLocked(0)
	}
	return nil
}

// Shutdown releases every held log-block buffer and clears internal state.
// empty[] is intentionally not persisted: on restart a fresh Init re-derives
// it by scanning each log block.
func (l *Log) Shutdown() {
	l.enter()
	defer l.exit()

	for _, buf := range l.bufs {
		if buf != nil {
			buf.Release()
		}
	}
	l.bufs = nil
	l.empty = nil
	l.active = 0
	l.nextOffset = 0
	l.count = 0
}
