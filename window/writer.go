// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package window

import (
	"encoding/binary"
	"io"
	"sync/atomic"

	"github.com/chwire/chwire/internal/base"
	"github.com/chwire/chwire/internal/invariants"
	"github.com/cockroachdb/errors"
)

// Sink consumes the windows a Writer fills.
//
// FlushWindow takes ownership of window, which holds the bytes written since
// the last flush, and returns an empty window (len 0, cap > 0) to continue
// writing into. It must either accept the whole window or fail; on failure
// ownership stays with the writer, which keeps the bytes for a retry.
//
// A Sink may also implement any of:
//
//	Flush() error         // forwarded by Writer.Flush after the window
//	Close() error         // called once by a graceful Writer.Close
//	Abort(err error)      // called instead of Close when a write is in flight
//	Transfer(p []byte) error // takes ownership of p without copying
type Sink interface {
	FlushWindow(window []byte) (next []byte, err error)
}

type flusher interface {
	Flush() error
}

type aborter interface {
	Abort(err error)
}

type transferer interface {
	Transfer(p []byte) error
}

// Writer accumulates bytes into a window and hands full windows to a Sink. A
// Writer is not safe for concurrent use, except that Close may be called
// from any goroutine.
type Writer struct {
	sink Sink
	buf  []byte
	// busy and closed implement the handshake between an in-flight operation
	// and a concurrent Close. An operation stores busy before loading closed,
	// and Close stores closed before loading busy, so at least one of them
	// observes the other. Close only touches the window when no operation
	// holds it.
	busy   atomic.Bool
	closed atomic.Bool
}

var _ io.Writer = (*Writer)(nil)
var _ io.ByteWriter = (*Writer)(nil)
var _ io.ReaderFrom = (*Writer)(nil)
var _ io.Closer = (*Writer)(nil)

// NewWriter returns a Writer that fills window (from its length up to its
// capacity) before flushing it to sink.
func NewWriter(sink Sink, window []byte) *Writer {
	if cap(window) == 0 {
		window = make([]byte, 0, base.DefaultBufferSize)
	}
	return &Writer{sink: sink, buf: window}
}

func (w *Writer) enter() error {
	w.busy.Store(true)
	if w.closed.Load() {
		w.busy.Store(false)
		return base.ErrClosed
	}
	return nil
}

func (w *Writer) exit() {
	w.busy.Store(false)
}

// flushWindow hands the window to the sink. On error the window is kept.
func (w *Writer) flushWindow() error {
	if len(w.buf) == 0 {
		return nil
	}
	next, err := w.sink.FlushWindow(w.buf)
	if err != nil {
		return err
	}
	if cap(next) == 0 {
		return errors.AssertionFailedf("sink returned a window without capacity")
	}
	w.buf = next[:0]
	invariants.CheckWindow(0, len(w.buf), cap(w.buf))
	return nil
}

// flushIfFull flushes eagerly, so that a full window reaches the sink as
// soon as it is complete rather than on the next write.
func (w *Writer) flushIfFull() error {
	if len(w.buf) == cap(w.buf) {
		return w.flushWindow()
	}
	return nil
}

// WriteByte implements io.ByteWriter.
func (w *Writer) WriteByte(c byte) error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.exit()
	if err := w.flushIfFull(); err != nil {
		return err
	}
	w.buf = append(w.buf, c)
	return w.flushIfFull()
}

// Write implements io.Writer. It copies p into the window, flushing every
// time the window fills.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.enter(); err != nil {
		return 0, err
	}
	defer w.exit()
	return w.write(p)
}

func (w *Writer) write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		if err := w.flushIfFull(); err != nil {
			return written, err
		}
		n := copy(w.buf[len(w.buf):cap(w.buf)], p)
		w.buf = w.buf[:len(w.buf)+n]
		written += n
		p = p[n:]
	}
	return written, w.flushIfFull()
}

// WriteCustom lets f produce bytes directly into the free space of the
// window. Each NeedMore means f filled the space it was given; the window is
// then flushed and f is called again with fresh space.
func (w *Writer) WriteCustom(f Producer) error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.exit()
	for {
		if err := w.flushIfFull(); err != nil {
			return err
		}
		space := w.buf[len(w.buf):cap(w.buf)]
		step := f(space)
		if step.more {
			w.buf = w.buf[:cap(w.buf)]
			continue
		}
		if step.n < 0 || step.n > len(space) {
			return errors.AssertionFailedf("producer returned %d for %d bytes of space",
				errors.Safe(step.n), errors.Safe(len(space)))
		}
		w.buf = w.buf[:len(w.buf)+step.n]
		return w.flushIfFull()
	}
}

// ReadFrom implements io.ReaderFrom by reading directly into the window.
func (w *Writer) ReadFrom(r io.Reader) (int64, error) {
	if err := w.enter(); err != nil {
		return 0, err
	}
	defer w.exit()
	var total int64
	for {
		if err := w.flushIfFull(); err != nil {
			return total, err
		}
		n, err := r.Read(w.buf[len(w.buf):cap(w.buf)])
		w.buf = w.buf[:len(w.buf)+n]
		total += int64(n)
		if err == io.EOF {
			return total, w.flushIfFull()
		}
		if err != nil {
			return total, err
		}
	}
}

// Transfer writes p, handing it to the sink without a copy when the sink
// supports it. The caller must not modify p afterwards in that case.
func (w *Writer) Transfer(p []byte) error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.exit()
	t, ok := w.sink.(transferer)
	if !ok || len(p) == 0 {
		_, err := w.write(p)
		return err
	}
	if err := w.flushWindow(); err != nil {
		return err
	}
	return t.Transfer(p)
}

// WriteUvarint writes v as an unsigned LEB128 integer. It fails like
// WriteString.
func (w *Writer) WriteUvarint(v uint64) error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.exit()
	var tmp [binary.MaxVarintLen64]byte
	enc := binary.AppendUvarint(tmp[:0], v)
	n, err := w.write(enc)
	return w.failPartial(n, len(enc), err)
}

// WriteString writes s prefixed by its uvarint length.
//
// Unlike Write, WriteString does not report how much was written. If it
// fails after accepting only part of the encoding, the value is torn and
// cannot be resumed, so the writer is closed and its sink aborted. A failure
// before any byte was accepted leaves the writer usable, as does a failure
// of the final flush once the whole encoding is in the window; in that case
// the caller retries Flush, not WriteString.
func (w *Writer) WriteString(s string) error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.exit()
	var tmp [binary.MaxVarintLen64]byte
	prefix := binary.AppendUvarint(tmp[:0], uint64(len(s)))
	total := len(prefix) + len(s)
	n, err := w.write(prefix)
	if err != nil {
		return w.failPartial(n, total, err)
	}
	for len(s) > 0 {
		if err := w.flushIfFull(); err != nil {
			return w.failPartial(n, total, err)
		}
		k := copy(w.buf[len(w.buf):cap(w.buf)], s)
		w.buf = w.buf[:len(w.buf)+k]
		s = s[k:]
		n += k
	}
	return w.flushIfFull()
}

// failPartial closes the writer if an operation failed after accepting n of
// total bytes, 0 < n < total, and returns err.
func (w *Writer) failPartial(n, total int, err error) error {
	if err == nil || n == 0 || n == total {
		return err
	}
	if w.closed.CompareAndSwap(false, true) {
		if a, ok := w.sink.(aborter); ok {
			a.Abort(err)
		}
	}
	return err
}

// Buffered returns the number of bytes waiting in the window.
func (w *Writer) Buffered() int {
	return len(w.buf)
}

// Flush hands a partial window to the sink and then flushes the sink itself
// if it supports that.
func (w *Writer) Flush() error {
	if err := w.enter(); err != nil {
		return err
	}
	defer w.exit()
	if err := w.flushWindow(); err != nil {
		return err
	}
	if f, ok := w.sink.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// IsClosed reports whether Close was called.
func (w *Writer) IsClosed() bool {
	return w.closed.Load()
}

// Close flushes the pending window and closes the sink. If another goroutine
// is in the middle of an operation, Close does not wait for it: the sink is
// aborted instead, which fails the pending operation with base.ErrClosed.
// Close is idempotent.
func (w *Writer) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	if w.busy.Load() {
		if a, ok := w.sink.(aborter); ok {
			a.Abort(base.ErrClosed)
			return nil
		}
		if c, ok := w.sink.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}
	if err := w.flushWindow(); err != nil {
		if a, ok := w.sink.(aborter); ok {
			a.Abort(err)
		}
		return err
	}
	if c, ok := w.sink.(io.Closer); ok {
		return c.Close()
	}
	if f, ok := w.sink.(flusher); ok {
		return f.Flush()
	}
	return nil
}
