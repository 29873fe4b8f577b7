// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build invariants || race

package invariants

import (
	"fmt"
	"sync/atomic"
)

// CloseChecker is used to check that a stream end is closed exactly once.
// Pipe ends may be closed from a goroutine other than the one using them, so
// the flag is atomic.
type CloseChecker struct {
	closed atomic.Bool
}

// Close panics if called twice on the same object.
func (d *CloseChecker) Close() {
	if d.closed.Swap(true) {
		panic("double close")
	}
}

// AssertNotClosed panics if Close was called.
func (d *CloseChecker) AssertNotClosed() {
	if d.closed.Load() {
		panic("closed")
	}
}

// CheckWindow panics if 0 <= pos <= limit <= capacity does not hold.
func CheckWindow(pos, limit, capacity int) {
	if pos < 0 || pos > limit || limit > capacity {
		panic(fmt.Sprintf("invalid window: pos=%d limit=%d cap=%d", pos, limit, capacity))
	}
}
