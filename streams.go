// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package chwire

import (
	"io"

	"github.com/chwire/chwire/compress"
	"github.com/chwire/chwire/pipe"
	"github.com/chwire/chwire/queue"
	"github.com/chwire/chwire/window"
)

// NewPipe returns the two ends of an in-process pipe. The writer must be used
// from a different goroutine than the reader.
//
// With UseBlockingQueue the pipe queues up to MaxQueuedBuffers chunks on a
// channel. Otherwise it is non-blocking: its queue starts at one chunk and
// grows by one every BufferQueueVariation rejected enqueues up to
// MaxQueuedBuffers, or is fixed at MaxQueuedBuffers when
// BufferQueueVariation is negative.
func NewPipe(opts *Options) (*window.Reader, *window.Writer) {
	opts = opts.Clone().EnsureDefaults()
	po := &pipe.Options{
		BufferSize:  opts.BufferSize,
		QueueLength: opts.MaxQueuedBuffers,
		Timeout:     opts.Timeout,
		Logger:      opts.Logger,
	}
	if opts.Metrics != nil {
		po.WaitLatency = opts.Metrics.PipeWait
	}
	if opts.UseBlockingQueue {
		return pipe.NewBlocking(po)
	}
	if opts.BufferQueueVariation < 1 {
		po.Policy = queue.Fixed(opts.MaxQueuedBuffers)
	} else {
		po.Policy = queue.Linear(1, opts.MaxQueuedBuffers, opts.BufferQueueVariation)
	}
	return pipe.NewNonBlocking(po)
}

// NewInput returns a reader that decompresses r with opts.Compression.
// Closing the reader closes r if it is an io.Closer.
func NewInput(r io.Reader, opts *Options) (*window.Reader, error) {
	opts = opts.Clone().EnsureDefaults()
	if opts.Compression == compress.LZ4Algorithm {
		ro := &compress.ReaderOptions{Method: compress.LZ4, Logger: opts.Logger}
		if opts.Metrics != nil {
			ro.Metrics = opts.Metrics.Input
		}
		return compress.NewReader(r, ro)
	}
	return compress.WrapReader(r, opts.Compression, opts.BufferSize)
}

// NewOutput returns a writer that compresses into w with opts.Compression.
// Closing the writer finishes the compressed stream but leaves w open.
func NewOutput(w io.Writer, opts *Options) (*window.Writer, error) {
	opts = opts.Clone().EnsureDefaults()
	if opts.Compression == compress.LZ4Algorithm {
		wo := &compress.WriterOptions{
			Method:    compress.LZ4,
			Level:     opts.CompressLevel,
			BlockSize: opts.BufferSize,
		}
		if opts.Metrics != nil {
			wo.Metrics = opts.Metrics.Output
		}
		return compress.NewWriter(w, wo)
	}
	return compress.WrapWriter(w, opts.Compression, opts.CompressLevel, opts.BufferSize)
}
