// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package queue implements a FIFO whose admission is decided by a pluggable
// capacity policy, used to decouple the two ends of a non-blocking pipe.
package queue

import (
	"sync"

	"github.com/cockroachdb/crlib/fifo"
)

// Adaptive is a mutex-guarded FIFO gated by a CapacityPolicy. Offer respects
// the policy; Add never does, so terminal elements such as an end-of-stream
// marker cannot be rejected by backpressure.
//
// An Adaptive must not be copied after first use.
type Adaptive[T any] struct {
	mu struct {
		sync.Mutex
		policy CapacityPolicy
		pool   fifo.QueueBackingPool[T]
		items  fifo.Queue[T]
	}
}

// NewAdaptive returns an empty queue. A nil policy means unbounded.
func NewAdaptive[T any](policy CapacityPolicy) *Adaptive[T] {
	q := &Adaptive[T]{}
	q.mu.policy = policy
	q.mu.pool = fifo.MakeQueueBackingPool[T]()
	q.mu.items = fifo.MakeQueue(&q.mu.pool)
	return q
}

// Add appends v unconditionally and tells the policy the queue is below
// capacity, which resets its growth counter.
func (q *Adaptive[T]) Add(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.mu.items.PushBack(v)
	if q.mu.policy != nil {
		q.mu.policy.EnsureCapacity(0)
	}
}

// Offer appends v if the policy admits one more element, and reports whether
// it did. The queue is unchanged when Offer returns false.
func (q *Adaptive[T]) Offer(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.mu.policy != nil && !q.mu.policy.EnsureCapacity(q.mu.items.Len()) {
		return false
	}
	q.mu.items.PushBack(v)
	return true
}

// Poll removes and returns the head of the queue. The boolean is false if
// the queue was empty. Poll never blocks.
func (q *Adaptive[T]) Poll() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.mu.items.Len() == 0 {
		var zero T
		return zero, false
	}
	v := *q.mu.items.PeekFront()
	q.mu.items.PopFront()
	return v, true
}

// Peek returns the head of the queue without removing it.
func (q *Adaptive[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.mu.items.Len() == 0 {
		var zero T
		return zero, false
	}
	return *q.mu.items.PeekFront(), true
}

// Clear empties the queue and resets the policy's notion of size.
func (q *Adaptive[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.mu.items.Len() > 0 {
		q.mu.items.PopFront()
	}
	if q.mu.policy != nil {
		q.mu.policy.EnsureCapacity(0)
	}
}

// Len returns the number of queued elements.
func (q *Adaptive[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.mu.items.Len()
}
