// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package pipe

import (
	"bytes"
	"io"
	"time"

	"github.com/chwire/chwire/internal/invariants"
	"github.com/chwire/chwire/window"
	"github.com/cockroachdb/crlib/crtime"
)

// NewBlocking returns the two ends of a pipe backed by a channel holding at
// most opts.QueueLength chunks. The writer blocks while the channel is full
// and the reader blocks while it is empty, each for at most opts.Timeout.
// Every flushed window is copied into an exact-size chunk, so the writer
// keeps reusing a single window.
func NewBlocking(opts *Options) (*window.Reader, *window.Writer) {
	opts = opts.EnsureDefaults()
	s := newState(opts)
	ch := make(chan []byte, opts.QueueLength)
	r := window.NewReader(&blockingSource{state: s, ch: ch})
	w := window.NewWriter(&blockingSink{state: s, ch: ch}, make([]byte, 0, opts.BufferSize))
	return r, w
}

type blockingSink struct {
	*state
	ch     chan<- []byte
	closer invariants.CloseChecker
}

func (s *blockingSink) send(chunk []byte) error {
	s.closer.AssertNotClosed()
	if err := s.stopped(); err != nil {
		return err
	}
	select {
	case s.ch <- chunk:
		return nil
	default:
	}

	start := crtime.NowMono()
	defer s.observeWait(start)
	var timeout <-chan time.Time
	if s.opts.Timeout > 0 {
		t := time.NewTimer(s.opts.Timeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case s.ch <- chunk:
		return nil
	case <-s.done:
		return s.err
	case <-timeout:
		return s.timeoutError("write")
	}
}

func (s *blockingSink) FlushWindow(w []byte) ([]byte, error) {
	if err := s.send(bytes.Clone(w)); err != nil {
		return nil, err
	}
	return w[:0], nil
}

func (s *blockingSink) Transfer(p []byte) error {
	return s.send(p)
}

// Close marks the end of the stream. Closing the channel never blocks, so a
// full queue cannot delay shutdown.
func (s *blockingSink) Close() error {
	s.closer.Close()
	if err := s.stopped(); err != nil {
		return err
	}
	close(s.ch)
	return nil
}

func (s *blockingSink) Abort(err error) {
	s.opts.Logger.Infof("chwire/pipe: aborting writer: %v", err)
	s.shutdown(errWriterAborted)
}

type blockingSource struct {
	*state
	ch <-chan []byte
}

func (s *blockingSource) Refill() ([]byte, error) {
	// Chunks queued before an abort are still delivered.
	select {
	case b, ok := <-s.ch:
		return chunkOrEOF(b, ok)
	default:
	}
	if err := s.stopped(); err != nil {
		return nil, err
	}

	start := crtime.NowMono()
	defer s.observeWait(start)
	var timeout <-chan time.Time
	if s.opts.Timeout > 0 {
		t := time.NewTimer(s.opts.Timeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case b, ok := <-s.ch:
		return chunkOrEOF(b, ok)
	case <-s.done:
		return nil, s.err
	case <-timeout:
		return nil, s.timeoutError("read")
	}
}

func chunkOrEOF(b []byte, ok bool) ([]byte, error) {
	if !ok {
		return nil, io.EOF
	}
	return b, nil
}

func (s *blockingSource) Close() error {
	s.shutdown(errReaderClosed)
	return nil
}
