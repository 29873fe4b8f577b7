// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "time"

const (
	// DefaultBufferSize is the window size used when none is configured.
	DefaultBufferSize = 8192
	// DefaultMaxBufferSize caps every configured window size.
	DefaultMaxBufferSize = 128 * DefaultBufferSize
	// DefaultMaxQueuedBuffers is the pipe queue length used when none is
	// configured.
	DefaultMaxQueuedBuffers = 512
	// DefaultBufferQueueVariation is the number of consecutive rejected
	// enqueues after which a linear capacity policy grows by one.
	DefaultBufferQueueVariation = 100
	// DefaultTimeout bounds blocking pipe operations.
	DefaultTimeout = 30 * time.Second
)

// BufferSize clamps a suggested window size. A zero or negative size maps to
// defaultSize, a zero or negative defaultSize maps to DefaultBufferSize, and
// maxSize (itself capped at DefaultMaxBufferSize) bounds the result.
func BufferSize(size, defaultSize, maxSize int) int {
	if maxSize < 1 || maxSize > DefaultMaxBufferSize {
		maxSize = DefaultMaxBufferSize
	}
	if defaultSize < 1 {
		defaultSize = DefaultBufferSize
	} else if defaultSize > maxSize {
		defaultSize = maxSize
	}
	if size < 1 {
		return defaultSize
	}
	return min(size, maxSize)
}
