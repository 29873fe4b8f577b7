// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package chwire

import (
	"github.com/chwire/chwire/compress"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors fed by the streams created with an Options
// that references it.
type Metrics struct {
	// PipeWait observes the seconds a pipe end spent waiting on its queue.
	PipeWait prometheus.Histogram
	// Input counts frames decoded by NewInput.
	Input *compress.Metrics
	// Output counts frames encoded by NewOutput.
	Output *compress.Metrics
}

// NewMetrics creates the collectors and registers them with reg, if reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		PipeWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chwire",
			Subsystem: "pipe",
			Name:      "wait_seconds",
			Help:      "Time a pipe end spent waiting on its queue.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		Input:  compress.NewMetrics("input"),
		Output: compress.NewMetrics("output"),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	cs := []prometheus.Collector{m.PipeWait}
	cs = append(cs, m.Input.Collectors()...)
	return append(cs, m.Output.Collectors()...)
}
