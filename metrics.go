// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package patchlog

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and histograms this package reports. It is
// constructed and registered by the caller, the same way wal.Options takes
// a caller-supplied prometheus.Histogram rather than owning a registry.
type Metrics struct {
	// PatchesStored counts successful StorePatch calls.
	PatchesStored prometheus.Counter
	// PatchesDiscarded counts patches dropped by compaction because they
	// were no longer live.
	PatchesDiscarded prometheus.Counter
	// PatchesReplayed counts patches handed to the in-core index by
	// LoadPatches.
	PatchesReplayed prometheus.Counter
	// FlushesCompleted counts log blocks fully evacuated by flushBlock.
	FlushesCompleted prometheus.Counter
	// CompactionDuration observes the wall time of a single compress call.
	CompactionDuration prometheus.Histogram
	// FlushDuration observes the wall time of a single flushBlock call.
	FlushDuration prometheus.Histogram
}

// NewMetrics constructs a Metrics with the given namespace/subsystem
// prefix. The caller is responsible for registering the returned value
// with a prometheus.Registerer.
func NewMetrics(namespace, subsystem string) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}
	histogram := func(name, help string) prometheus.Histogram {
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
			Buckets:   prometheus.DefBuckets,
		})
	}
	return &Metrics{
		PatchesStored:       counter("patches_stored_total", "Patches appended to a log block."),
		PatchesDiscarded:    counter("patches_discarded_total", "Patches dropped during compaction."),
		PatchesReplayed:     counter("patches_replayed_total", "Patches handed to the in-core index at load time."),
		FlushesCompleted:    counter("flushes_completed_total", "Log blocks fully evacuated."),
		CompactionDuration:  histogram("compaction_duration_seconds", "Wall time of a single compress call."),
		FlushDuration:       histogram("flush_duration_seconds", "Wall time of a single flushBlock call."),
	}
}

// Collectors returns every metric for registration, e.g.
// reg.MustRegister(m.Collectors()...).
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PatchesStored,
		m.PatchesDiscarded,
		m.PatchesReplayed,
		m.FlushesCompleted,
		m.CompactionDuration,
		m.FlushDuration,
	}
}
