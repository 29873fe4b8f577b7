// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package chwire

import "github.com/chwire/chwire/internal/base"

var (
	// ErrCorruption marks errors caused by malformed input, such as a frame
	// whose checksum does not match.
	ErrCorruption = base.ErrCorruption
	// ErrTimeout marks a pipe operation that waited longer than
	// Options.Timeout.
	ErrTimeout = base.ErrTimeout
	// ErrClosed is returned by operations on a closed stream, and by the
	// other end of a pipe once one end has been closed or aborted.
	ErrClosed = base.ErrClosed
	// ErrIncompleteRead marks an exact-length read that hit the end of the
	// stream first.
	ErrIncompleteRead = base.ErrIncompleteRead
)

// IsCorruptionError returns true if the given error indicates corruption.
func IsCorruptionError(err error) bool {
	return base.IsCorruptionError(err)
}

// IsTimeoutError returns true if the given error is a pipe timeout.
func IsTimeoutError(err error) bool {
	return base.IsTimeoutError(err)
}
