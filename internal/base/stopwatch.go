// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"time"

	"github.com/cockroachdb/crlib/crtime"
)

// Stopwatch measures the wall time of a single operation, for reporting into
// a duration metric. A zero Stopwatch is not usable; construct one with
// MakeStopwatch.
type Stopwatch struct {
	startTime crtime.Mono
}

// MakeStopwatch starts a Stopwatch.
func MakeStopwatch() Stopwatch {
	return Stopwatch{startTime: crtime.NowMono()}
}

// Stop reports the elapsed time since the Stopwatch was made.
func (w Stopwatch) Stop() time.Duration {
	return w.startTime.Elapsed()
}
