// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package window

import (
	"io"

	"github.com/chwire/chwire/internal/base"
)

type emptySource struct{}

func (emptySource) Refill() ([]byte, error) { return nil, io.EOF }

// Empty returns a Reader that is already at the end of its stream.
func Empty() *Reader {
	r := NewReader(emptySource{})
	r.exhaust()
	return r
}

type bytesSource struct {
	chunks [][]byte
}

func (s *bytesSource) Refill() ([]byte, error) {
	for len(s.chunks) > 0 {
		c := s.chunks[0]
		s.chunks = s.chunks[1:]
		if len(c) > 0 {
			return c, nil
		}
	}
	return nil, io.EOF
}

// FromBytes returns a Reader whose windows are the given chunks, in order.
// Empty chunks are skipped. The chunks are not copied.
func FromBytes(chunks ...[]byte) *Reader {
	return NewReader(&bytesSource{chunks: chunks})
}

// maxConsecutiveEmptyReads bounds the number of (0, nil) results tolerated
// from an io.Reader before giving up.
const maxConsecutiveEmptyReads = 100

type readerSource struct {
	r   io.Reader
	buf []byte
	err error
}

func (s *readerSource) Refill() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := 0; i < maxConsecutiveEmptyReads; i++ {
		n, err := s.r.Read(s.buf)
		if err != nil {
			s.err = err
		}
		if n > 0 {
			return s.buf[:n], nil
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, io.ErrNoProgress
}

func (s *readerSource) ReusesWindows() bool { return true }

func (s *readerSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// FromReader returns a Reader that refills a window of the given size from
// r. A size of zero or less selects the default. Closing the Reader closes r
// if it is an io.Closer.
func FromReader(r io.Reader, size int) *Reader {
	size = base.BufferSize(size, base.DefaultBufferSize, base.DefaultMaxBufferSize)
	return NewReader(&readerSource{r: r, buf: make([]byte, size)})
}
