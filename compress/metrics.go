// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts frames passing through readers and writers. A nil *Metrics
// records nothing.
type Metrics struct {
	Frames          prometheus.Counter
	RawBytes        prometheus.Counter
	CompressedBytes prometheus.Counter
	CorruptFrames   prometheus.Counter
}

// NewMetrics returns counters named chwire_<subsystem>_*. Register them with
// Collectors.
func NewMetrics(subsystem string) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chwire",
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}
	return &Metrics{
		Frames:          counter("frames_total", "Compressed frames processed."),
		RawBytes:        counter("raw_bytes_total", "Uncompressed bytes carried by frames."),
		CompressedBytes: counter("compressed_bytes_total", "Frame bytes including headers."),
		CorruptFrames:   counter("corrupt_frames_total", "Frames rejected as corrupt."),
	}
}

// Collectors returns the counters for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Frames, m.RawBytes, m.CompressedBytes, m.CorruptFrames}
}

func (m *Metrics) frameDone(raw, compressed int) {
	if m == nil {
		return
	}
	m.Frames.Inc()
	m.RawBytes.Add(float64(raw))
	m.CompressedBytes.Add(float64(compressed))
}

func (m *Metrics) corruptFrame() {
	if m == nil {
		return
	}
	m.CorruptFrames.Inc()
}
