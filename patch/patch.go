// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package patch implements the wire format for a single patch record: the
// small delta the out-of-core log persists in place of rewriting a whole data
// block. A Patch is opaque to everything above this package beyond the four
// properties the log depends on: a serialized size known before writing, a
// BlockID identifying the data block it amends, a strict total order used for
// replay, and a minimum serialized size used to stop a block scan safely.
package patch

import (
	"bytes"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/riftdb/patchlog/internal/base"
)

// headerSize is the fixed-size prefix written before the payload:
//
//	offset 0  (8B): BlockID, little-endian
//	offset 8  (8B): Seq, little-endian
//	offset 16 (4B): payload length, little-endian
//	offset 20 (8B): xxhash64 checksum over bytes [0, 20) and the payload
const headerSize = 8 + 8 + 4 + 8

// Patch is a single delta targeting one data block.
type Patch struct {
	// BlockID is the data block this patch amends.
	BlockID base.BlockID
	// Seq orders patches for replay. It must be assigned by the caller so
	// that patches targeting the same block are strictly ordered; the log
	// never assigns or interprets Seq beyond comparing it.
	Seq uint64
	// Payload is the opaque delta content.
	Payload []byte
}

// TargetBlock returns the BlockID the patch amends.
func (p Patch) TargetBlock() base.BlockID { return p.BlockID }

// SerializedSize returns the number of bytes Serialize will write for p.
func SerializedSize(p Patch) int { return headerSize + len(p.Payload) }

// MinSerializedSize is the smallest possible serialized size of any patch
// (an empty payload). Scans use it to know when the remaining space in a
// block cannot possibly hold another record.
func MinSerializedSize() int { return headerSize }

// Serialize writes p to dst, which must have length >= SerializedSize(p), and
// returns the number of bytes written.
func Serialize(p Patch, dst []byte) int {
	n := SerializedSize(p)
	_ = dst[:n] // bounds check hint
	binary.LittleEndian.PutUint64(dst[0:8], uint64(p.BlockID))
	binary.LittleEndian.PutUint64(dst[8:16], p.Seq)
	binary.LittleEndian.PutUint32(dst[16:20], uint32(len(p.Payload)))
	h := xxhash.New()
	h.Write(dst[0:20])
	h.Write(p.Payload)
	binary.LittleEndian.PutUint64(dst[20:headerSize], h.Sum64())
	copy(dst[headerSize:n], p.Payload)
	return n
}

// Load deserializes a Patch from the front of src. It returns ok == false
// when src cannot represent a valid record: too short for a header, a
// declared payload length that would run past src, or a checksum mismatch
// (including the case where the remaining block is free space wiped to zero:
// its declared length is 0 and its stored checksum of 0 does not match).
// Load never reads past the record it returns.
func Load(src []byte) (p Patch, ok bool) {
	if len(src) < headerSize {
		return Patch{}, false
	}
	payloadLen := binary.LittleEndian.Uint32(src[16:20])
	total := headerSize + int(payloadLen)
	if total > len(src) {
		return Patch{}, false
	}
	wantChecksum := binary.LittleEndian.Uint64(src[20:headerSize])
	payload := src[headerSize:total]
	h := xxhash.New()
	h.Write(src[0:20])
	h.Write(payload)
	if h.Sum64() != wantChecksum {
		return Patch{}, false
	}
	return Patch{
		BlockID: base.BlockID(binary.LittleEndian.Uint64(src[0:8])),
		Seq:     binary.LittleEndian.Uint64(src[8:16]),
		Payload: append([]byte(nil), payload...),
	}, true
}

// Compare imposes the strict total order the log uses to decide which
// patches are "older" for compaction and to sort replay lists. Patches are
// ordered primarily by Seq; BlockID and payload bytes break ties so that
// Compare is a true total order even if Seq were ever to collide.
func Compare(a, b Patch) int {
	switch {
	case a.Seq < b.Seq:
		return -1
	case a.Seq > b.Seq:
		return 1
	}
	if a.BlockID != b.BlockID {
		if a.BlockID < b.BlockID {
			return -1
		}
		return 1
	}
	return bytes.Compare(a.Payload, b.Payload)
}

// Less reports whether a sorts strictly before b under Compare.
func Less(a, b Patch) bool { return Compare(a, b) < 0 }
