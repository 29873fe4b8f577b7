// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"io"
	"sync"
)

// CloseHelper wraps an io.Closer in a wrapper that ignores extra calls to
// Close, including concurrent ones. A nil closer yields a no-op.
func CloseHelper(closer io.Closer) io.Closer {
	return &closeHelper{closer: closer}
}

type closeHelper struct {
	once   sync.Once
	closer io.Closer
	err    error
}

// Close the underlying Closer, unless it was already closed. Every call
// returns the error of the first one.
func (h *closeHelper) Close() error {
	h.once.Do(func() {
		if h.closer != nil {
			h.err = h.closer.Close()
			h.closer = nil
		}
	})
	return h.err
}
