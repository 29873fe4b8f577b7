// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package window

import (
	"bytes"
	"io"
	"strings"
)

// Step is the result of a Consumer or Producer invocation: either a definite
// number of bytes (Done) or a request for another window (NeedMore).
type Step struct {
	n    int
	more bool
}

// NeedMore reports that every byte offered was consumed (or, for a producer,
// that the offered space was filled) and the caller should continue with the
// next window.
var NeedMore = Step{more: true}

// Done reports that n bytes of the offered window were consumed or produced
// and the operation is complete.
func Done(n int) Step {
	return Step{n: n}
}

// Consumer inspects the unread bytes of the current window. It must not
// retain the slice.
type Consumer func(window []byte) Step

// Producer fills the free space of the current window.
type Producer func(space []byte) Step

// View is a read-only sequence of byte fragments returned by Reader.ReadCustom
// and Reader.ReadUntil. The last fragment may alias the reader's window and
// is only valid until the next read.
type View struct {
	frags [][]byte
	n     int
}

func (v *View) append(p []byte) {
	if len(p) == 0 {
		return
	}
	v.frags = append(v.frags, p)
	v.n += len(p)
}

// Len returns the total number of bytes in the view.
func (v View) Len() int { return v.n }

// Fragments returns the underlying fragments in order.
func (v View) Fragments() [][]byte { return v.frags }

// Bytes returns the contents as one slice. A single-fragment view returns the
// fragment itself; otherwise the fragments are compacted into a new slice.
func (v View) Bytes() []byte {
	switch len(v.frags) {
	case 0:
		return nil
	case 1:
		return v.frags[0]
	}
	b := make([]byte, 0, v.n)
	for _, f := range v.frags {
		b = append(b, f...)
	}
	return b
}

// Match reports whether the view holds exactly the bytes of p.
func (v View) Match(p []byte) bool {
	if len(p) != v.n {
		return false
	}
	for _, f := range v.frags {
		if !bytes.Equal(f, p[:len(f)]) {
			return false
		}
		p = p[len(f):]
	}
	return true
}

// WriteTo implements io.WriterTo.
func (v View) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, f := range v.frags {
		n, err := w.Write(f)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the contents as a string.
func (v View) String() string {
	var sb strings.Builder
	sb.Grow(v.n)
	for _, f := range v.frags {
		sb.Write(f)
	}
	return sb.String()
}
