// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package window

// matcher finds a separator in a stream fed one window at a time, so a match
// may begin in one window and end in a later one.
type matcher struct {
	sep  []byte
	fail []int
	// matched is the length of the longest prefix of sep that is a suffix of
	// the bytes fed so far.
	matched int
}

func newMatcher(sep []byte) *matcher {
	fail := make([]int, len(sep))
	for i, k := 1, 0; i < len(sep); i++ {
		for k > 0 && sep[i] != sep[k] {
			k = fail[k-1]
		}
		if sep[i] == sep[k] {
			k++
		}
		fail[i] = k
	}
	return &matcher{sep: sep, fail: fail}
}

// feed returns the number of bytes of b up to and including the end of the
// first match, or -1 if b does not complete a match.
func (m *matcher) feed(b []byte) int {
	for i, c := range b {
		for m.matched > 0 && c != m.sep[m.matched] {
			m.matched = m.fail[m.matched-1]
		}
		if c == m.sep[m.matched] {
			m.matched++
		}
		if m.matched == len(m.sep) {
			m.matched = m.fail[m.matched-1]
			return i + 1
		}
	}
	return -1
}
