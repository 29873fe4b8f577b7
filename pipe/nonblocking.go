// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package pipe

import (
	"io"

	"github.com/chwire/chwire/internal/invariants"
	"github.com/chwire/chwire/queue"
	"github.com/chwire/chwire/window"
	"github.com/cockroachdb/crlib/crtime"
)

// NewNonBlocking returns the two ends of a pipe backed by a queue.Adaptive
// gated by opts.Policy. Neither end blocks in the scheduler: a writer whose
// chunk is rejected and a reader facing an empty queue retry, calling
// opts.Wait between attempts, until they succeed or opts.Timeout elapses.
//
// Windows are recycled from a ring of opts.QueueLength buffers, so a window
// returned by the reader is overwritten once the reader moves past it.
func NewNonBlocking(opts *Options) (*window.Reader, *window.Writer) {
	opts = opts.EnsureDefaults()
	s := newState(opts)
	q := queue.NewAdaptive[[]byte](opts.Policy)
	sink := &nonBlockingSink{state: s, q: q, ring: makeRing(opts.QueueLength, opts.BufferSize)}
	r := window.NewReader(&nonBlockingSource{state: s, q: q})
	w := window.NewWriter(sink, sink.ring.window(0))
	return r, w
}

type nonBlockingSink struct {
	*state
	q      *queue.Adaptive[[]byte]
	ring   ring
	closer invariants.CloseChecker
}

// offer enqueues a non-empty chunk, retrying while the policy rejects it.
func (s *nonBlockingSink) offer(chunk []byte) error {
	s.closer.AssertNotClosed()
	if err := s.stopped(); err != nil {
		return err
	}
	if s.q.Offer(chunk) {
		return nil
	}
	start := crtime.NowMono()
	defer s.observeWait(start)
	for attempt := 0; ; attempt++ {
		if err := s.stopped(); err != nil {
			return err
		}
		if s.opts.Timeout > 0 && start.Elapsed() >= s.opts.Timeout {
			return s.timeoutError("write")
		}
		s.opts.Wait(attempt)
		if s.q.Offer(chunk) {
			return nil
		}
	}
}

func (s *nonBlockingSink) FlushWindow(w []byte) ([]byte, error) {
	if err := s.offer(w); err != nil {
		return nil, err
	}
	return s.ring.window(s.q.Len()), nil
}

func (s *nonBlockingSink) Transfer(p []byte) error {
	return s.offer(p)
}

// Close enqueues the end-of-stream marker, an empty chunk, bypassing the
// capacity policy.
func (s *nonBlockingSink) Close() error {
	s.closer.Close()
	if err := s.stopped(); err != nil {
		return err
	}
	s.q.Add([]byte{})
	return nil
}

func (s *nonBlockingSink) Abort(err error) {
	s.opts.Logger.Infof("chwire/pipe: aborting writer: %v", err)
	s.shutdown(errWriterAborted)
}

type nonBlockingSource struct {
	*state
	q   *queue.Adaptive[[]byte]
	eof bool
}

func (s *nonBlockingSource) poll() ([]byte, bool, error) {
	b, ok := s.q.Poll()
	if !ok {
		return nil, false, nil
	}
	if len(b) == 0 {
		s.eof = true
		return nil, true, io.EOF
	}
	return b, true, nil
}

func (s *nonBlockingSource) Refill() ([]byte, error) {
	if s.eof {
		return nil, io.EOF
	}
	if b, ok, err := s.poll(); ok {
		return b, err
	}
	start := crtime.NowMono()
	defer s.observeWait(start)
	for attempt := 0; ; attempt++ {
		if err := s.stopped(); err != nil {
			// Drain what the writer queued before it stopped.
			if b, ok, perr := s.poll(); ok {
				return b, perr
			}
			return nil, err
		}
		if s.opts.Timeout > 0 && start.Elapsed() >= s.opts.Timeout {
			return nil, s.timeoutError("read")
		}
		s.opts.Wait(attempt)
		if b, ok, err := s.poll(); ok {
			return b, err
		}
	}
}

// ReusesWindows reports that chunks are recycled by the writer's ring.
func (s *nonBlockingSource) ReusesWindows() bool { return true }

func (s *nonBlockingSource) Close() error {
	s.shutdown(errReaderClosed)
	return nil
}
