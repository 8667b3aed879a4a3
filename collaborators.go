// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package patchlog

import (
	"github.com/riftdb/patchlog/internal/collab"
)

// AccessMode selects how a log block buffer is acquired from the BufferCache.
type AccessMode = collab.AccessMode

const (
	// NonLocking acquires a handle the log reads and writes directly without
	// holding the cache's lock for the duration; the log serializes its own
	// access by running on a single home goroutine (see the package doc
	// comment).
	NonLocking = collab.NonLocking
)

// Serializer answers questions about which data blocks currently exist. It
// runs on its own goroutine; BlockInUse may suspend.
type Serializer = collab.Serializer

// BufHandle is a non-locking handle to one block's bytes, obtained from a
// BufferCache and held for the lifetime of the log (for log blocks) or for
// the duration of a single flush step (for data blocks).
type BufHandle = collab.BufHandle

// BufferCache acquires and releases block buffers.
type BufferCache = collab.BufferCache

// PatchIndex is the in-core mirror of which patches are still live, keyed by
// the data block they amend. The log treats it as read-only except for the
// one load-time call that seeds it.
type PatchIndex = collab.PatchIndex
