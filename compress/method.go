// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package compress implements the compressed block framing used on the
// native ClickHouse wire, along with whole-stream compression algorithms.
//
// A compressed stream is a sequence of frames:
//
//	+----------------+--------+-----------------+----------+---------+
//	| checksum (16B) | method | compressed size | raw size | payload |
//	|                | (1B)   | (4B, LE)        | (4B, LE) |         |
//	+----------------+--------+-----------------+----------+---------+
//
// The compressed size counts the method byte, both sizes and the payload.
// The checksum is CityHash128 (v1.0.2) over those same bytes, stored as the
// low then the high 64-bit half, little-endian.
package compress

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/redact"
)

// Method identifies the codec of a frame's payload.
type Method byte

const (
	// None stores the payload uncompressed.
	None Method = 0x02
	// LZ4 compresses the payload as a raw LZ4 block.
	LZ4 Method = 0x82
	// ZSTD compresses the payload as a single zstd frame.
	ZSTD Method = 0x90
)

const (
	checksumSize       = 16
	compressHeaderSize = 1 + 4 + 4
	headerSize         = checksumSize + compressHeaderSize
	// MaxBlockSize is the largest raw block a Writer produces.
	MaxBlockSize = 1024 * 1024
	// maxDataSize bounds the sizes a Reader accepts from a frame header.
	maxDataSize = 128 * 1024 * 1024

	hMethod   = 16
	hDataSize = 17
	hRawSize  = 21
)

var bin = binary.LittleEndian

// String implements fmt.Stringer.
func (m Method) String() string {
	switch m {
	case None:
		return "None"
	case LZ4:
		return "LZ4"
	case ZSTD:
		return "ZSTD"
	}
	return fmt.Sprintf("Method(0x%02x)", byte(m))
}

// SafeFormat implements redact.SafeFormatter.
func (m Method) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Print(redact.SafeString(m.String()))
}

// ParseMethod returns the method with the given case-sensitive name.
func ParseMethod(s string) (Method, bool) {
	for _, m := range []Method{None, LZ4, ZSTD} {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}
