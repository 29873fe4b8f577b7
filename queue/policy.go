// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package queue

import (
	"fmt"

	"github.com/cockroachdb/redact"
)

// CapacityPolicy decides whether a queue holding current elements may accept
// one more. Implementations are not safe for concurrent use; Adaptive calls
// them under its own lock.
type CapacityPolicy interface {
	// EnsureCapacity returns true if one more element fits. It is the only
	// place a policy may change its state.
	EnsureCapacity(current int) bool
}

// LinearPolicy starts with a small capacity and grows it by one after
// threshold consecutive calls observed the queue at capacity, up to maxSize.
// The capacity never decreases.
type LinearPolicy struct {
	capacity  int
	count     int
	maxSize   int
	threshold int
}

var _ CapacityPolicy = (*LinearPolicy)(nil)

// Linear returns a LinearPolicy. The initial capacity is at least one. A
// maxSize of zero or less means the capacity may grow without bound, and a
// maxSize below the initial capacity is raised to it. A threshold below one
// is treated as one.
func Linear(initialSize, maxSize, threshold int) *LinearPolicy {
	p := &LinearPolicy{
		capacity:  max(1, initialSize),
		maxSize:   maxSize,
		threshold: max(1, threshold),
	}
	if p.maxSize <= 0 {
		p.maxSize = int(^uint(0) >> 1)
	} else if p.maxSize < p.capacity {
		p.maxSize = p.capacity
	}
	return p
}

// EnsureCapacity implements CapacityPolicy.
func (p *LinearPolicy) EnsureCapacity(current int) bool {
	if current < p.capacity {
		p.count = 0
		return true
	}
	if p.capacity < p.maxSize {
		p.count++
		if p.count >= p.threshold {
			p.count = 0
			p.capacity++
			return true
		}
	}
	return false
}

// Capacity returns the current allowed queue depth.
func (p *LinearPolicy) Capacity() int { return p.capacity }

// MaxSize returns the capacity limit.
func (p *LinearPolicy) MaxSize() int { return p.maxSize }

// String implements fmt.Stringer.
func (p *LinearPolicy) String() string {
	return redact.StringWithoutMarkers(p)
}

// SafeFormat implements redact.SafeFormatter.
func (p *LinearPolicy) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("linear(capacity=%d count=%d max=%d threshold=%d)",
		p.capacity, p.count, p.maxSize, p.threshold)
}

// FixedPolicy admits an element while the queue holds fewer than its size.
type FixedPolicy int

var _ CapacityPolicy = FixedPolicy(0)

// Fixed returns a FixedPolicy of at least one element.
func Fixed(size int) FixedPolicy {
	return FixedPolicy(max(1, size))
}

// EnsureCapacity implements CapacityPolicy.
func (p FixedPolicy) EnsureCapacity(current int) bool {
	return current < int(p)
}

// String implements fmt.Stringer.
func (p FixedPolicy) String() string {
	return fmt.Sprintf("fixed(%d)", int(p))
}
