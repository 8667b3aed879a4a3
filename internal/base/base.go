// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package base holds the small types that are shared by the
// patch log and the collaborators it is handed at construction time (the
// serializer, the buffer cache, the in-core patch index).
package base

import (
	"fmt"

	"github.com/cockroachdb/redact"
)

// BlockID names a block of the storage engine. The same id space is shared by
// data blocks and log blocks; a BlockID is only ever meaningful in the
// context of a particular serializer instance.
type BlockID uint64

// String returns a string representation of the block id.
func (b BlockID) String() string { return fmt.Sprintf("b%06d", uint64(b)) }

// SafeFormat implements redact.SafeFormatter.
func (b BlockID) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("b%06d", redact.SafeUint(b))
}
