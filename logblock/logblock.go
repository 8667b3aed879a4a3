// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package logblock imposes the magic-prefixed, append-only patch layout on a
// fixed-size block and provides a scan over the records it holds. It plays
// the role record.Reader/record.Writer play for a WAL, simplified for a
// format where a single patch never spans two blocks and the sole framing
// signal is a successful patch.Load.
package logblock

import (
	"bytes"

	"github.com/riftdb/patchlog/patch"
)

// CheckMagic reports whether data begins with magic.
func CheckMagic(data, magic []byte) bool {
	return len(data) >= len(magic) && bytes.Equal(data[:len(magic)], magic)
}

// Initialize writes magic at offset 0 and zeroes the remainder of data. It is
// called whenever a block is wiped: by the compactor when at least one patch
// was evicted, and by the flusher once a block has been fully evacuated.
func Initialize(data, magic []byte) {
	copy(data, magic)
	for i := len(magic); i < len(data); i++ {
		data[i] = 0
	}
}

// Record is one patch found during a scan, together with the byte range it
// occupied.
type Record struct {
	Patch  patch.Patch
	Offset int
	Length int
}

// Scanner iterates the records of a log block starting just past the magic
// prefix. It stops at the first offset whose deserialization fails or whose
// remaining space is no larger than a minimal record (offset+minRec is not
// below the block size) — the same rule the block layout relies on to find
// its own end without a length field.
type Scanner struct {
	data   []byte
	minRec int
	offset int
}

// NewScanner returns a Scanner positioned at the start of the record region
// (just past magic).
func NewScanner(data []byte, magicLen, minRec int) *Scanner {
	return &Scanner{data: data, minRec: minRec, offset: magicLen}
}

// Next advances the scanner and reports the next record, or ok == false once
// the scan has reached its stopping condition.
func (s *Scanner) Next() (rec Record, ok bool) {
	if s.offset+s.minRec >= len(s.data) {
		return Record{}, false
	}
	p, loaded := patch.Load(s.data[s.offset:])
	if !loaded {
		return Record{}, false
	}
	n := patch.SerializedSize(p)
	rec = Record{Patch: p, Offset: s.offset, Length: n}
	s.offset += n
	return rec, true
}

// Offset returns the scanner's current position, i.e. the offset one past
// the last successfully loaded record (or magicLen if none were loaded).
func (s *Scanner) Offset() int { return s.offset }

// ScanAll materializes every record in data, in on-disk order.
func ScanAll(data []byte, magicLen, minRec int) []Record {
	s := NewScanner(data, magicLen, minRec)
	var recs []Record
	for {
		rec, ok := s.Next()
		if !ok {
			break
		}
		recs = append(recs, rec)
	}
	return recs
}

// ScanOffset returns the offset one past the last record in data, without
// materializing the patches themselves. setActiveLocked uses this to
// recompute nextOffset cheaply when making a block active.
func ScanOffset(data []byte, magicLen, minRec int) int {
	s := NewScanner(data, magicLen, minRec)
	for {
		if _, ok := s.Next(); !ok {
			break
		}
	}
	return s.Offset()
}
