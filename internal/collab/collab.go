// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package collab holds the collaborator interfaces the patch log is handed
// at construction time (the serializer, the buffer cache, the in-core patch
// index). They live here, rather than in the root patchlog package, so that
// internal/bufcache (the in-memory fakes used by tests) can implement them
// without importing the root package and creating an import cycle with the
// root package's own internal (same-package) tests.
package collab

import (
	"context"

	"github.com/riftdb/patchlog/internal/base"
	"github.com/riftdb/patchlog/patch"
)

// AccessMode selects how a log block buffer is acquired from the BufferCache.
type AccessMode int

const (
	// NonLocking acquires a handle the log reads and writes directly without
	// holding the cache's lock for the duration; the log serializes its own
	// access by running on a single home goroutine (see the patchlog
	// package doc comment).
	NonLocking AccessMode = iota
)

// Serializer answers questions about which data blocks currently exist. It
// runs on its own goroutine; BlockInUse may suspend.
type Serializer interface {
	// BlockInUse reports whether id names a data (or log) block the
	// serializer currently considers live.
	BlockInUse(ctx context.Context, id base.BlockID) (bool, error)

	// BlockSize returns the fixed size, in bytes, of every block the
	// serializer manages.
	BlockSize() int
}

// BufHandle is a non-locking handle to one block's bytes, obtained from a
// BufferCache and held for the lifetime of the log (for log blocks) or for
// the duration of a single flush step (for data blocks).
type BufHandle interface {
	// ReadBytes returns the full backing buffer for reading. Callers must
	// not retain the slice past the next WriteBytes or Release call.
	ReadBytes() []byte

	// WriteBytes returns the full backing buffer for writing and marks the
	// block dirty (the cache's "major write" path, per the source's
	// get_data_major_write).
	WriteBytes() []byte

	// EnsureFlush requests that the next cache flush cycle writes this
	// block's current contents to storage.
	EnsureFlush()

	// Release returns the handle to the cache.
	Release()
}

// BufferCache acquires and releases block buffers.
type BufferCache interface {
	// Acquire obtains a handle to id's backing buffer. For log blocks the
	// log acquires once in Init and holds the handle until Shutdown; for
	// data blocks during a flush, Acquire is called, the handle inspected,
	// and released before the next block is considered. Acquire may
	// suspend.
	Acquire(ctx context.Context, id base.BlockID, mode AccessMode) (BufHandle, error)
}

// PatchIndex is the in-core mirror of which patches are still live, keyed by
// the data block they amend. The log treats it as read-only except for the
// one load-time call that seeds it.
type PatchIndex interface {
	// Patches returns the patches currently tracked for data block id, or
	// ok == false if the index has nothing for id (either it was never
	// populated, or every prior patch for id has since been superseded).
	Patches(id base.BlockID) (list []patch.Patch, ok bool)

	// LoadBlockPatchList seeds the index with sorted, a list already sorted
	// under patch.Compare. Called only by LoadPatches, once per data block
	// discovered during the boot scan.
	LoadBlockPatchList(id base.BlockID, sorted []patch.Patch)
}
