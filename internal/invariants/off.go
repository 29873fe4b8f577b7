// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build !invariants && !race

package invariants

// CloseChecker is used to check that a stream end is closed exactly once. It
// is empty and does nothing in non-invariant builds.
type CloseChecker struct{}

// Close panics if called twice on the same object (if we were built with the
// "invariants" or "race" build tags).
func (d *CloseChecker) Close() {}

// AssertNotClosed panics in invariant builds if Close was called.
func (d *CloseChecker) AssertNotClosed() {}

// CheckWindow panics if 0 <= pos <= limit <= capacity does not hold. No-op in
// non-invariant builds.
func CheckWindow(pos, limit, capacity int) {}
