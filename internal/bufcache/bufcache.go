// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package bufcache provides in-memory fakes for the three collaborators
// patchlog treats as external: the serializer, the buffer cache, and the
// in-core patch index. Real implementations live outside this module's
// boundary; these stand in for them in tests, the same way a storage
// engine's own tests fake a filesystem rather than touching a real disk.
package bufcache

import (
	"context"
	"sync"

	"github.com/riftdb/patchlog/internal/base"
	"github.com/riftdb/patchlog/internal/collab"
	"github.com/riftdb/patchlog/patch"
)

// Serializer is an in-memory fake of patchlog.Serializer: a fixed block
// size and a settable "in use" bit per block id.
type Serializer struct {
	mu        sync.Mutex
	blockSize int
	inUse     map[base.BlockID]bool
}

// NewSerializer returns a fake with the given block size. Every id is
// initially considered not in use.
func NewSerializer(blockSize int) *Serializer {
	return &Serializer{blockSize: blockSize, inUse: make(map[base.BlockID]bool)}
}

// SetInUse marks id's liveness for subsequent BlockInUse calls.
func (s *Serializer) SetInUse(id base.BlockID, inUse bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inUse[id] = inUse
}

// BlockInUse implements patchlog.Serializer. Unqueried ids default to not in
// use, matching a brand-new range that has never been allocated; tests mark
// an id in use with SetInUse to simulate a block that already exists, e.g.
// a log block being reopened after a restart, or a data block a stored
// patch amends.
func (s *Serializer) BlockInUse(_ context.Context, id base.BlockID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inUse[id], nil
}

// BlockSize implements patchlog.Serializer.
func (s *Serializer) BlockSize() int { return s.blockSize }

// Cache is an in-memory fake of patchlog.BufferCache: each block id maps to
// a fixed-size byte slice that persists across Acquire calls, simulating a
// disk that survives a Log's Shutdown and a fresh New/Init.
type Cache struct {
	mu sync.Mutex

	blockSize int
	blocks    map[base.BlockID][]byte
	flushes   map[base.BlockID]int

	// AcquireHook, if set, is invoked synchronously from Acquire after the
	// handle is constructed but before it is returned, for every id. Tests
	// use it to simulate the in-core index evicting a data block's patches
	// as a side effect of the block being brought back into memory:
	// acquisition itself may trigger eviction.
	AcquireHook func(id base.BlockID)
}

// NewCache returns a fake cache whose blocks are blockSize bytes, all
// zero-filled until first acquired.
func NewCache(blockSize int) *Cache {
	return &Cache{
		blockSize: blockSize,
		blocks:    make(map[base.BlockID][]byte),
		flushes:   make(map[base.BlockID]int),
	}
}

// Acquire implements patchlog.BufferCache.
func (c *Cache) Acquire(_ context.Context, id base.BlockID, _ collab.AccessMode) (collab.BufHandle, error) {
	c.mu.Lock()
	data, ok := c.blocks[id]
	if !ok {
		data = make([]byte, c.blockSize)
		c.blocks[id] = data
	}
	c.mu.Unlock()

	h := &Handle{cache: c, id: id, data: data}
	if c.AcquireHook != nil {
		c.AcquireHook(id)
	}
	return h, nil
}

// Contents returns a copy of id's current backing bytes, for assertions.
func (c *Cache) Contents(id base.BlockID) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.blocks[id]...)
}

// FlushCount returns the number of times EnsureFlush has been called for
// id across every handle ever acquired for it.
func (c *Cache) FlushCount(id base.BlockID) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes[id]
}

// Handle is an in-memory fake of collab.BufHandle.
type Handle struct {
	cache *Cache
	id    base.BlockID
	data  []byte
}

// ReadBytes implements collab.BufHandle.
func (h *Handle) ReadBytes() []byte { return h.data }

// WriteBytes implements collab.BufHandle.
func (h *Handle) WriteBytes() []byte { return h.data }

// EnsureFlush implements collab.BufHandle.
func (h *Handle) EnsureFlush() {
	h.cache.mu.Lock()
	defer h.cache.mu.Unlock()
	h.cache.flushes[h.id]++
}

// Release implements collab.BufHandle.
func (h *Handle) Release() {
	h.cache.mu.Lock()
	defer h.cache.mu.Unlock()
	h.cache.blocks[h.id] = h.data
}

// Index is an in-memory fake of patchlog.PatchIndex.
type Index struct {
	mu      sync.Mutex
	byBlock map[base.BlockID][]patch.Patch

	// evicted, when set for a block id by Evict (typically from a
	// bufcache.Cache.AcquireHook in tests), causes every Patches lookup for
	// that id to report nothing until Set installs a new list, simulating
	// the data block being brought in-memory and absorbing its outstanding
	// patches.
	evicted map[base.BlockID]bool
}

// NewIndex returns an empty fake index.
func NewIndex() *Index {
	return &Index{byBlock: make(map[base.BlockID][]patch.Patch), evicted: make(map[base.BlockID]bool)}
}

// Patches implements patchlog.PatchIndex.
func (ix *Index) Patches(id base.BlockID) ([]patch.Patch, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.evicted[id] {
		return nil, false
	}
	list, ok := ix.byBlock[id]
	if !ok || len(list) == 0 {
		return nil, false
	}
	return append([]patch.Patch(nil), list...), true
}

// LoadBlockPatchList implements patchlog.PatchIndex.
func (ix *Index) LoadBlockPatchList(id base.BlockID, sorted []patch.Patch) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byBlock[id] = append([]patch.Patch(nil), sorted...)
}

// Set directly installs list as the tracked patches for id, for test setup
// that bypasses LoadBlockPatchList.
func (ix *Index) Set(id base.BlockID, list []patch.Patch) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byBlock[id] = append([]patch.Patch(nil), list...)
	delete(ix.evicted, id)
}

// Evict marks id as having no live patches, as if a recent acquisition
// absorbed them.
func (ix *Index) Evict(id base.BlockID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.evicted[id] = true
}
