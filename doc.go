// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package chwire provides the buffered stream layer of a ClickHouse native
// protocol client: windowed readers and writers, in-process pipes between a
// producer and a consumer goroutine, and the compressed block framing used on
// the wire.
//
// The building blocks live in subpackages:
//
//   - window: Reader and Writer over a reusable window, fed by a Source and
//     drained into a Sink.
//   - queue: capacity policies and the adaptive queue used by pipes.
//   - pipe: blocking and non-blocking pipes.
//   - compress: the checksummed LZ4/ZSTD frame format and whole-stream
//     algorithms such as gzip.
//
// This package ties them together behind a single Options struct:
//
//	opts := &chwire.Options{Compression: compress.LZ4Algorithm}
//	out, err := chwire.NewOutput(conn, opts)
//	if err != nil {
//		return err
//	}
//	if _, err := out.Write(block); err != nil {
//		return err
//	}
//	return out.Close()
package chwire
