// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"bytes"
	"io"
	"slices"
	"sync"

	"github.com/chwire/chwire/internal/base"
	"github.com/chwire/chwire/window"
	"github.com/cockroachdb/errors"
	"github.com/go-faster/city"
)

// AppendFrame appends a complete frame holding raw, compressed by c with
// method m, to dst.
func AppendFrame(dst []byte, m Method, c Compressor, raw []byte) []byte {
	start := len(dst)
	dst = append(dst, make([]byte, headerSize)...)
	dst = c.Compress(dst, raw)
	frame := dst[start:]
	frame[hMethod] = byte(m)
	bin.PutUint32(frame[hDataSize:], uint32(len(frame)-checksumSize))
	bin.PutUint32(frame[hRawSize:], uint32(len(raw)))
	putChecksum(frame)
	return dst
}

func putChecksum(frame []byte) {
	h := city.CH128(frame[checksumSize:])
	bin.PutUint64(frame[0:8], h.Low)
	bin.PutUint64(frame[8:16], h.High)
}

func validChecksum(frame []byte) bool {
	h := city.CH128(frame[checksumSize:])
	return bin.Uint64(frame[0:8]) == h.Low && bin.Uint64(frame[8:16]) == h.High
}

// WriterOptions configure a frame Writer.
type WriterOptions struct {
	// Method compresses every frame. Zero selects LZ4.
	Method Method
	// Level is passed to the compressor; zero selects its default.
	Level int
	// BlockSize is the raw size of a full frame, at most MaxBlockSize. Zero
	// selects the default window size.
	BlockSize int
	// Metrics, if set, counts the frames written.
	Metrics *Metrics
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified. Returns the new options.
func (o *WriterOptions) EnsureDefaults() *WriterOptions {
	if o == nil {
		o = &WriterOptions{}
	}
	if o.Method == 0 {
		o.Method = LZ4
	}
	o.BlockSize = base.BufferSize(o.BlockSize, base.DefaultBufferSize, MaxBlockSize)
	return o
}

type frameSink struct {
	w       io.Writer
	method  Method
	frame   []byte
	metrics *Metrics
	// mu guards the compressor, which Abort may release from another
	// goroutine while a flush is in progress.
	mu struct {
		sync.Mutex
		c        Compressor
		released bool
	}
}

func (s *frameSink) FlushWindow(raw []byte) ([]byte, error) {
	s.mu.Lock()
	if s.mu.released {
		s.mu.Unlock()
		return nil, base.ErrClosed
	}
	s.frame = AppendFrame(s.frame[:0], s.method, s.mu.c, raw)
	s.mu.Unlock()
	if _, err := s.w.Write(s.frame); err != nil {
		return nil, err
	}
	s.metrics.frameDone(len(raw), len(s.frame))
	return raw[:0], nil
}

func (s *frameSink) Flush() error {
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// release returns the compressor, once. It waits for a compression in
// progress but not for the write that follows it.
func (s *frameSink) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mu.released {
		s.mu.released = true
		s.mu.c.Close()
	}
}

func (s *frameSink) Close() error {
	s.release()
	return s.Flush()
}

// Abort is called by a Close racing with a write. Later flushes fail with
// base.ErrClosed.
func (s *frameSink) Abort(error) {
	s.release()
}

// NewWriter returns a window.Writer that compresses each full window into a
// frame written to w. Flush writes a partial window as a shorter frame.
// Closing the Writer flushes it and releases the compressor; w is not
// closed.
func NewWriter(w io.Writer, opts *WriterOptions) (*window.Writer, error) {
	opts = opts.EnsureDefaults()
	c, err := GetCompressor(opts.Method, opts.Level)
	if err != nil {
		return nil, err
	}
	s := &frameSink{w: w, method: opts.Method, metrics: opts.Metrics}
	s.mu.c = c
	return window.NewWriter(s, make([]byte, 0, opts.BlockSize)), nil
}

// ReaderOptions configure a frame Reader.
type ReaderOptions struct {
	// Method is the only method accepted in a frame header. Zero selects
	// LZ4.
	Method Method
	// Logger receives corrupt frame reports.
	Logger base.Logger
	// Metrics, if set, counts the frames read.
	Metrics *Metrics
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified. Returns the new options.
func (o *ReaderOptions) EnsureDefaults() *ReaderOptions {
	if o == nil {
		o = &ReaderOptions{}
	}
	if o.Method == 0 {
		o.Method = LZ4
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	return o
}

type frameSource struct {
	r       io.Reader
	opts    *ReaderOptions
	d       Decompressor
	frame   []byte
	raw     []byte
	offset  int64
	corrupt bool
}

func (s *frameSource) corruption(format string, args ...interface{}) error {
	err := base.CorruptionErrorf(format, args...)
	err = errors.Wrapf(err, "chwire/compress: frame at offset %d", errors.Safe(s.offset))
	s.corrupt = true
	s.opts.Metrics.corruptFrame()
	s.opts.Logger.Errorf("%v", err)
	return err
}

func (s *frameSource) Refill() ([]byte, error) {
	for {
		raw, err := s.next()
		if err != nil || len(raw) > 0 {
			return raw, err
		}
	}
}

// next reads and decodes one frame.
func (s *frameSource) next() ([]byte, error) {
	if s.corrupt {
		return nil, base.CorruptionErrorf("chwire/compress: stream is corrupt")
	}
	s.frame = slices.Grow(s.frame[:0], headerSize)[:headerSize]
	if n, err := io.ReadFull(s.r, s.frame); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, s.corruption("truncated header: read %d of %d bytes", errors.Safe(n), errors.Safe(headerSize))
		}
		return nil, err
	}
	if m := Method(s.frame[hMethod]); m != s.opts.Method {
		return nil, s.corruption("unexpected method %s, expected %s", m, s.opts.Method)
	}
	dataSize := int(bin.Uint32(s.frame[hDataSize:]))
	rawSize := int(bin.Uint32(s.frame[hRawSize:]))
	if dataSize < compressHeaderSize || dataSize > maxDataSize {
		return nil, s.corruption("invalid compressed size %d", errors.Safe(dataSize))
	}
	if rawSize > maxDataSize {
		return nil, s.corruption("invalid raw size %d", errors.Safe(rawSize))
	}

	s.frame = slices.Grow(s.frame, dataSize-compressHeaderSize)[:checksumSize+dataSize]
	if n, err := io.ReadFull(s.r, s.frame[headerSize:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, s.corruption("truncated payload: read %d of %d bytes",
				errors.Safe(n), errors.Safe(dataSize-compressHeaderSize))
		}
		return nil, err
	}
	if !validChecksum(s.frame) {
		return nil, s.corruption("checksum mismatch")
	}

	s.raw = slices.Grow(s.raw[:0], rawSize)[:rawSize]
	// An empty frame carries nothing to decode; Refill skips it.
	if rawSize > 0 {
		if err := s.d.DecompressInto(s.raw, s.frame[headerSize:]); err != nil {
			return nil, s.corruption("%s payload: %v", s.opts.Method, err)
		}
	}
	s.offset += int64(len(s.frame))
	s.opts.Metrics.frameDone(rawSize, len(s.frame))
	return s.raw, nil
}

// ReusesWindows reports that the decompression buffer is reused.
func (s *frameSource) ReusesWindows() bool { return true }

func (s *frameSource) Close() error {
	s.d.Close()
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewReader returns a window.Reader over the frames read from r. Each frame
// is verified against its checksum and decompressed into the reader's
// window. A corrupt frame fails the read with an error marked
// base.ErrCorruption and closes the reader. Closing the reader closes r if it
// is an io.Closer.
func NewReader(r io.Reader, opts *ReaderOptions) (*window.Reader, error) {
	opts = opts.EnsureDefaults()
	d, err := GetDecompressor(opts.Method)
	if err != nil {
		return nil, err
	}
	return window.NewReader(&frameSource{r: r, opts: opts, d: d}), nil
}

// Compress returns src encoded as frames of at most blockSize raw bytes.
func Compress(m Method, level, blockSize int, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, &WriterOptions{Method: m, Level: level, BlockSize: blockSize})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress decodes a complete sequence of frames.
func Decompress(m Method, src []byte) ([]byte, error) {
	r, err := NewReader(bytes.NewReader(src), &ReaderOptions{Method: m, Logger: base.NoopLogger{}})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
