// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package window

import (
	"io"

	"github.com/chwire/chwire/internal/base"
)

type writerSink struct {
	w io.Writer
}

func (s writerSink) FlushWindow(window []byte) ([]byte, error) {
	n, err := s.w.Write(window)
	if err == nil && n < len(window) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return nil, err
	}
	return window[:0], nil
}

func (s writerSink) Flush() error {
	if f, ok := s.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// ToWriter returns a Writer that flushes windows of the given size to w. A
// size of zero or less selects the default. Closing the Writer flushes it
// but does not close w.
func ToWriter(w io.Writer, size int) *Writer {
	size = base.BufferSize(size, base.DefaultBufferSize, base.DefaultMaxBufferSize)
	return NewWriter(writerSink{w: w}, make([]byte, 0, size))
}

type discardSink struct{}

func (discardSink) FlushWindow(window []byte) ([]byte, error) {
	return window[:0], nil
}

// Discard returns a Writer that drops everything written to it.
func Discard() *Writer {
	return NewWriter(discardSink{}, make([]byte, 0, base.DefaultBufferSize))
}
