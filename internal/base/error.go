// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "github.com/cockroachdb/errors"

// ErrCorruption is a marker to indicate that a compressed frame isn't in the
// expected format: a bad method byte, a checksum mismatch or a truncated
// frame. It is never retried.
var ErrCorruption = errors.New("chwire: corruption")

// ErrTimeout is a marker for a blocking or spinning operation that exceeded
// its deadline. The stream remains usable and the operation may be retried.
var ErrTimeout = errors.New("chwire: timed out")

// ErrClosed is returned by operations attempted on a closed stream, and by
// operations blocked on a pipe whose other end was closed.
var ErrClosed = errors.New("chwire: stream closed")

// ErrIncompleteRead is a marker for an exact-length read that hit the end of
// the stream after consuming some, but not all, of the requested bytes. A
// read that could not consume anything returns io.EOF instead.
var ErrIncompleteRead = errors.New("chwire: incomplete read")

// MarkCorruptionError marks given error as a corruption error.
func MarkCorruptionError(err error) error {
	if errors.Is(err, ErrCorruption) {
		return err
	}
	return errors.Mark(err, ErrCorruption)
}

// IsCorruptionError returns true if the given error indicates corruption.
func IsCorruptionError(err error) bool {
	return errors.Is(err, ErrCorruption)
}

// CorruptionErrorf formats according to a format specifier and returns
// the string as an error value that is marked as a corruption error.
func CorruptionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

// TimeoutErrorf returns an error marked with ErrTimeout.
func TimeoutErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrTimeout)
}

// IsTimeoutError returns true if the given error is a timeout.
func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IncompleteReadErrorf returns an error marked with ErrIncompleteRead.
func IncompleteReadErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrIncompleteRead)
}
