// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package window implements byte streams that read from a refillable window
// and write into a flushable one. Reads satisfied by a single window are
// zero-copy; the window hooks (Source and Sink) are where decompression,
// pipes and network I/O plug in.
package window

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"

	"github.com/chwire/chwire/internal/base"
	"github.com/chwire/chwire/internal/invariants"
	"github.com/cockroachdb/errors"
)

// Source produces the windows a Reader serves bytes from.
//
// Refill returns the next window. It returns io.EOF once the source is
// exhausted; an empty window with a nil error is treated the same way. Any
// other error is returned to the reader's caller. Errors marked with
// base.ErrCorruption close the reader, while timeouts leave it usable: a
// multi-window read that times out consumes nothing.
//
// A Source may also implement io.Closer, which the Reader calls once when it
// is closed (possibly from another goroutine, to unblock a pending Refill),
// and
//
//	ReusesWindows() bool
//
// returning true if a window's memory may be overwritten by a later Refill.
// The reader then copies bytes it must hold on to across refills.
type Source interface {
	Refill() ([]byte, error)
}

type windowReuser interface {
	ReusesWindows() bool
}

// Reader serves logical reads from the windows of a Source. A Reader is not
// safe for concurrent use, except that Close, IsClosed and IsExhausted may
// be called from any goroutine.
type Reader struct {
	src    Source
	reuses bool
	buf    []byte
	pos    int
	// eof is set once the source reported exhaustion. The reader is then in
	// a terminal, always-empty state and reads return io.EOF.
	eof    atomic.Bool
	closed atomic.Bool
	closer io.Closer

	mu struct {
		sync.Mutex
		released bool
		onClose  []func()
	}
	copyTo io.Writer
}

var _ io.Reader = (*Reader)(nil)
var _ io.ByteReader = (*Reader)(nil)
var _ io.WriterTo = (*Reader)(nil)
var _ io.Closer = (*Reader)(nil)

// NewReader returns a Reader over src.
func NewReader(src Source) *Reader {
	r := &Reader{src: src}
	if ru, ok := src.(windowReuser); ok {
		r.reuses = ru.ReusesWindows()
	}
	c, _ := src.(io.Closer)
	r.closer = base.CloseHelper(c)
	return r
}

// fill makes sure the current window has unread bytes, refilling it when
// necessary. It returns io.EOF when the source is exhausted.
func (r *Reader) fill() error {
	if r.closed.Load() {
		return base.ErrClosed
	}
	if r.pos < len(r.buf) {
		return nil
	}
	if r.eof.Load() {
		return io.EOF
	}
	buf, err := r.src.Refill()
	if err == nil && len(buf) == 0 {
		err = io.EOF
	}
	if err != nil {
		switch {
		case err == io.EOF:
			r.exhaust()
		case r.closed.Load():
			// Close raced with the refill. Whatever the source reported, the
			// caller sees a closed stream.
			return base.ErrClosed
		case base.IsCorruptionError(err):
			_ = r.Close()
		}
		return err
	}
	r.buf, r.pos = buf, 0
	invariants.CheckWindow(r.pos, len(r.buf), cap(r.buf))
	if r.copyTo != nil {
		if _, err := r.copyTo.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// unread puts prefix back in front of the unread part of the window, so that
// a read failing part way with a retryable error, such as a timeout, leaves
// the stream where it was before the read began. It is a no-op once the
// reader is closed.
func (r *Reader) unread(prefix ...[]byte) {
	if r.closed.Load() || r.eof.Load() {
		return
	}
	var n int
	for _, p := range prefix {
		n += len(p)
	}
	if n == 0 {
		return
	}
	buf := make([]byte, 0, n+len(r.buf)-r.pos)
	for _, p := range prefix {
		buf = append(buf, p...)
	}
	r.buf, r.pos = append(buf, r.buf[r.pos:]...), 0
	invariants.CheckWindow(r.pos, len(r.buf), cap(r.buf))
}

// exhaust moves the reader into its terminal state and releases the source.
func (r *Reader) exhaust() {
	r.eof.Store(true)
	r.buf, r.pos = nil, 0
	_ = r.release()
}

// release closes the source and runs the OnClose actions, once.
func (r *Reader) release() error {
	r.mu.Lock()
	if r.mu.released {
		r.mu.Unlock()
		return nil
	}
	r.mu.released = true
	fns := r.mu.onClose
	r.mu.onClose = nil
	r.mu.Unlock()

	err := r.closer.Close()
	for _, fn := range fns {
		fn()
	}
	return err
}

// Available returns the number of bytes that can be read before the next
// refill. If the current window is consumed it refills once, so it may block
// on sources that do. It returns 0 once the reader is closed or exhausted.
func (r *Reader) Available() (int, error) {
	if r.closed.Load() {
		return 0, nil
	}
	if err := r.fill(); err != nil {
		if err == io.EOF || errors.Is(err, base.ErrClosed) {
			return 0, nil
		}
		return 0, err
	}
	return len(r.buf) - r.pos, nil
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.fill(); err != nil {
		return 0, err
	}
	c := r.buf[r.pos]
	r.pos++
	return c, nil
}

// Peek returns the next byte without consuming it.
func (r *Reader) Peek() (byte, error) {
	if err := r.fill(); err != nil {
		return 0, err
	}
	return r.buf[r.pos], nil
}

// Read implements io.Reader. It copies at most one window's worth of bytes
// and only refills when the current window is empty.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		if r.closed.Load() {
			return 0, base.ErrClosed
		}
		return 0, nil
	}
	if err := r.fill(); err != nil {
		return 0, err
	}
	n := copy(p, r.buf[r.pos:])
	r.pos += n
	return n, nil
}

// Skip discards up to n bytes and returns how many were discarded. It returns
// io.EOF if the stream ended first.
func (r *Reader) Skip(n int64) (int64, error) {
	var skipped int64
	for skipped < n {
		if err := r.fill(); err != nil {
			return skipped, err
		}
		k := int(min(int64(len(r.buf)-r.pos), n-skipped))
		r.pos += k
		skipped += int64(k)
	}
	return skipped, nil
}

// ReadExact reads exactly n bytes. When the current window holds all of them
// the result aliases the window and is only valid until the next read;
// otherwise the bytes are assembled into a new slice. If the stream ends
// before any byte was read the error is io.EOF; if it ends part way the
// error is marked with base.ErrIncompleteRead and the reader is closed. Any
// other error, such as a timeout, puts back the bytes already consumed, so
// the read can be retried.
func (r *Reader) ReadExact(n int) ([]byte, error) {
	b, _, err := r.readExact(n)
	return b, err
}

// ReadBytes reads exactly n bytes into a new slice owned by the caller. It
// fails the same way as ReadExact.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, aliased, err := r.readExact(n)
	if aliased {
		b = bytes.Clone(b)
	}
	return b, err
}

func (r *Reader) readExact(n int) (b []byte, aliased bool, err error) {
	if n < 0 {
		return nil, false, errors.AssertionFailedf("negative read length %d", errors.Safe(n))
	}
	if n == 0 {
		return []byte{}, false, nil
	}
	if err := r.fill(); err != nil {
		return nil, false, err
	}
	if len(r.buf)-r.pos >= n {
		b = r.buf[r.pos : r.pos+n : r.pos+n]
		r.pos += n
		return b, true, nil
	}
	b = make([]byte, n)
	if err := r.readFull(b); err != nil {
		return nil, false, err
	}
	return b, false, nil
}

// ReadFull fills p completely. It fails the same way as ReadExact.
func (r *Reader) ReadFull(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	return r.readFull(p)
}

func (r *Reader) readFull(p []byte) error {
	orig, want := p, len(p)
	for len(p) > 0 {
		if err := r.fill(); err != nil {
			if err != io.EOF || len(p) == want {
				r.unread(orig[:want-len(p)])
				return err
			}
			_ = r.Close()
			return base.IncompleteReadErrorf("reached end of stream after reading %d of %d bytes",
				errors.Safe(want-len(p)), errors.Safe(want))
		}
		n := copy(p, r.buf[r.pos:])
		r.pos += n
		p = p[n:]
	}
	return nil
}

// ReadCustom feeds the unread bytes of the current window to f until f
// reports how many bytes it consumed. Every window f asks to move past with
// NeedMore is consumed whole and becomes part of the result. If the stream
// ends before f is done, the bytes consumed so far are returned, or io.EOF if
// there are none.
func (r *Reader) ReadCustom(f Consumer) (View, error) {
	var v View
	for {
		if err := r.fill(); err != nil {
			if err == io.EOF && v.Len() > 0 {
				return v, nil
			}
			r.unread(v.Fragments()...)
			return View{}, err
		}
		window := r.buf[r.pos:]
		step := f(window)
		if !step.more {
			if step.n < 0 || step.n > len(window) {
				return v, errors.AssertionFailedf("consumer returned %d for a %d byte window",
					errors.Safe(step.n), errors.Safe(len(window)))
			}
			v.append(window[:step.n:step.n])
			r.pos += step.n
			return v, nil
		}
		if r.reuses {
			window = bytes.Clone(window)
		}
		v.append(window)
		r.pos = len(r.buf)
	}
}

// ReadUntil reads up to and including the first occurrence of sep, which may
// straddle windows. If the stream ends first, everything remaining is
// returned.
func (r *Reader) ReadUntil(sep []byte) (View, error) {
	if len(sep) == 0 {
		return View{}, nil
	}
	m := newMatcher(sep)
	return r.ReadCustom(func(window []byte) Step {
		if i := m.feed(window); i >= 0 {
			return Done(i)
		}
		return NeedMore
	})
}

// ReadUvarint reads an unsigned LEB128 integer.
func (r *Reader) ReadUvarint() (uint64, error) {
	var tmp [binary.MaxVarintLen64]byte
	v, n, err := r.readUvarint(&tmp)
	if err != nil {
		r.unread(tmp[:n])
	}
	return v, err
}

// readUvarint decodes a uvarint, leaving its n encoded bytes in tmp.
func (r *Reader) readUvarint(tmp *[binary.MaxVarintLen64]byte) (v uint64, n int, err error) {
	for {
		c, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && n > 0 {
				_ = r.Close()
				return 0, n, base.IncompleteReadErrorf("reached end of stream inside a varint")
			}
			return 0, n, err
		}
		tmp[n] = c
		n++
		if c < 0x80 {
			v, k := binary.Uvarint(tmp[:n])
			if k <= 0 {
				return 0, n, base.CorruptionErrorf("varint overflows 64 bits")
			}
			return v, n, nil
		}
		if n == len(tmp) {
			return 0, n, base.CorruptionErrorf("varint overflows 64 bits")
		}
	}
}

// ReadString reads a string prefixed by its uvarint length.
func (r *Reader) ReadString() (string, error) {
	var tmp [binary.MaxVarintLen64]byte
	n, k, err := r.readUvarint(&tmp)
	if err != nil {
		r.unread(tmp[:k])
		return "", err
	}
	if n > math.MaxInt32 {
		return "", base.CorruptionErrorf("string length %d too large", errors.Safe(n))
	}
	b, err := r.ReadExact(int(n))
	if err != nil {
		if err == io.EOF {
			_ = r.Close()
			err = base.IncompleteReadErrorf("reached end of stream before a %d byte string", errors.Safe(n))
		}
		// A partial body was already put back by ReadExact.
		r.unread(tmp[:k])
		return "", err
	}
	return string(b), nil
}

// NextWindow returns the unread rest of the current window, or the next
// window whole, and marks it consumed. The result is only valid until the
// next read.
func (r *Reader) NextWindow() ([]byte, error) {
	if err := r.fill(); err != nil {
		return nil, err
	}
	b := r.buf[r.pos:]
	r.pos = len(r.buf)
	return b, nil
}

// WriteTo forwards every remaining window to w without going through the
// logical read API, then closes the reader. It implements io.WriterTo.
func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for {
		b, err := r.NextWindow()
		if err == io.EOF {
			return total, r.Close()
		}
		if err != nil {
			return total, err
		}
		n, err := w.Write(b)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
}

// SetCopyTo makes the reader write every window it refills to w. The unread
// part of the current window is written immediately when a target is first
// set. A previous target that implements Flush() error is flushed.
func (r *Reader) SetCopyTo(w io.Writer) error {
	if r.copyTo != nil {
		if f, ok := r.copyTo.(interface{ Flush() error }); ok {
			if err := f.Flush(); err != nil {
				return err
			}
		}
	} else if w != nil && r.pos < len(r.buf) {
		if _, err := w.Write(r.buf[r.pos:]); err != nil {
			return err
		}
	}
	r.copyTo = w
	return nil
}

// OnClose registers fn to run once when the reader is closed or reaches the
// end of its source. If that already happened, fn runs immediately.
func (r *Reader) OnClose(fn func()) {
	r.mu.Lock()
	if !r.mu.released {
		r.mu.onClose = append(r.mu.onClose, fn)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	fn()
}

// IsClosed reports whether Close was called.
func (r *Reader) IsClosed() bool {
	return r.closed.Load()
}

// IsExhausted reports whether the source has reported its end. Like
// IsClosed, it may be called from any goroutine.
func (r *Reader) IsExhausted() bool {
	return r.eof.Load()
}

// Close closes the reader and its source. Subsequent reads fail with
// base.ErrClosed. Close is idempotent and may be called concurrently with a
// read in another goroutine; it never touches the window.
func (r *Reader) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.release()
}
