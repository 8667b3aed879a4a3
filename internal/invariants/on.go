// Copyright 2020 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build invariants

package invariants

import "fmt"

// Enabled is true if we were built with the "invariants" build tag.
const Enabled = true

// SafeSub returns a - b. If a < b, it panics (an offset/size computation that
// underflows indicates the ring allocator's bookkeeping has drifted from the
// on-disk state).
func SafeSub[T Integer](a, b T) T {
	if a < b {
		panic(fmt.Sprintf("underflow: %d - %d", a, b))
	}
	return a - b
}

// Integer is a constraint that permits any integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}
