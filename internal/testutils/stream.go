// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package testutils

import (
	"runtime"
	"testing"
	"time"

	"github.com/chwire/chwire/internal/base"
	"github.com/stretchr/testify/require"
)

// Pattern returns n bytes whose values depend on their offset, so that a
// reordered or dropped chunk is visible in a comparison.
func Pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/251)
	}
	return b
}

// RequireTimeout verifies that err is a timeout and that the operation
// waited for at least minValue.
func RequireTimeout(t testing.TB, err error, elapsed, minValue time.Duration) {
	t.Helper()
	require.Error(t, err)
	require.True(t, base.IsTimeoutError(err), "expected timeout, got %v", err)
	if runtime.GOOS == "windows" && minValue < 10*time.Millisecond {
		// Windows timer precision is coarse.
		return
	}
	require.GreaterOrEqual(t, elapsed, minValue)
}
