// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package pipe

// ring hands out window buffers to the writer of a non-blocking pipe in a
// fixed rotation. Windows are flushed in the order they were handed out and
// the queue is drained in the same order, so the buffers still referenced by
// the reader are always the most recently handed out ones. With n buffers,
// queued chunks occupying queued of them and the reader holding one more,
// the least recently handed out buffer is free whenever n-queued > 1.
type ring struct {
	size    int
	buckets [][]byte
	next    int
	// fresh counts windows allocated because no bucket was free.
	fresh int
}

func makeRing(n, size int) ring {
	return ring{size: size, buckets: make([][]byte, n)}
}

// window returns an empty window for the writer given the number of chunks
// currently queued.
func (r *ring) window(queued int) []byte {
	if len(r.buckets)-queued <= 1 {
		r.fresh++
		return make([]byte, 0, r.size)
	}
	b := r.buckets[r.next]
	if b == nil {
		b = make([]byte, 0, r.size)
		r.buckets[r.next] = b
	}
	r.next = (r.next + 1) % len(r.buckets)
	return b[:0]
}
