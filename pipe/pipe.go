// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package pipe connects a window.Writer used by one goroutine to a
// window.Reader used by another. Whole chunks move between the two ends
// through a queue; the ends never share a window that is still being
// written.
//
// The writer and the reader must run on different goroutines. With the
// blocking variant a goroutine that fills the queue and then tries to drain
// it deadlocks.
package pipe

import (
	"runtime"
	"sync"
	"time"

	"github.com/chwire/chwire/internal/base"
	"github.com/chwire/chwire/queue"
	"github.com/cockroachdb/crlib/crtime"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Options configure a pipe.
type Options struct {
	// BufferSize is the size of the writer's window, and so the maximum size
	// of a chunk. Zero selects the default.
	BufferSize int
	// QueueLength bounds the blocking queue. For the non-blocking pipe it is
	// the number of recycled window buffers. Zero selects the default.
	QueueLength int
	// Timeout bounds every wait on the queue. Zero or less waits forever.
	Timeout time.Duration
	// Policy gates the non-blocking pipe's queue. Nil means unbounded.
	Policy queue.CapacityPolicy
	// Wait is called between failed attempts of the non-blocking pipe.
	Wait WaitStrategy
	// Logger receives abort and timeout messages.
	Logger base.Logger
	// WaitLatency, if set, observes the seconds either end spent waiting on
	// the queue.
	WaitLatency prometheus.Histogram
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified. Returns the new options.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	o.BufferSize = base.BufferSize(o.BufferSize, base.DefaultBufferSize, base.DefaultMaxBufferSize)
	if o.QueueLength <= 0 {
		o.QueueLength = base.DefaultMaxQueuedBuffers
	}
	if o.Wait == nil {
		o.Wait = Spin
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	return o
}

// WaitStrategy is called by the non-blocking pipe after the attempt-th
// consecutive failure to enqueue or dequeue a chunk.
type WaitStrategy func(attempt int)

// Spin yields the processor between attempts.
func Spin(int) {
	runtime.Gosched()
}

// Backoff returns a WaitStrategy that spins for a few attempts and then
// sleeps, doubling the sleep up to maxSleep.
func Backoff(maxSleep time.Duration) WaitStrategy {
	return func(attempt int) {
		const spins = 64
		if attempt < spins {
			runtime.Gosched()
			return
		}
		d := time.Microsecond << min(attempt-spins, 20)
		time.Sleep(min(d, maxSleep))
	}
}

var errReaderClosed = errors.Mark(errors.New("chwire/pipe: reader closed"), base.ErrClosed)
var errWriterAborted = errors.Mark(errors.New("chwire/pipe: writer aborted"), base.ErrClosed)

// state is shared by both ends of a pipe. done is closed, once, when either
// end gives up; err records why.
type state struct {
	opts *Options
	done chan struct{}
	once sync.Once
	err  error
}

func newState(opts *Options) *state {
	return &state{opts: opts, done: make(chan struct{})}
}

func (s *state) shutdown(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// stopped returns the shutdown error, or nil if the pipe is still open.
func (s *state) stopped() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *state) observeWait(start crtime.Mono) {
	if s.opts.WaitLatency != nil {
		s.opts.WaitLatency.Observe(start.Elapsed().Seconds())
	}
}

func (s *state) timeoutError(op string) error {
	err := base.TimeoutErrorf("chwire/pipe: %s timed out after %s", errors.Safe(op), s.opts.Timeout)
	s.opts.Logger.Infof("%v", err)
	return err
}
