// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"github.com/cockroachdb/errors"
)

// Compressor compresses a block for one Method.
type Compressor interface {
	// Compress appends the compressed form of src to dst and returns the
	// extended slice.
	Compress(dst, src []byte) []byte

	// Close must be called when the Compressor is no longer needed.
	// After Close is called, the Compressor must not be used again.
	Close()
}

// Decompressor decompresses a block for one Method.
type Decompressor interface {
	// DecompressInto decompresses src into dst, which must have exactly the
	// decompressed length. An empty dst is a no-op.
	DecompressInto(dst, src []byte) error

	// Close must be called when the Decompressor is no longer needed.
	// After Close is called, the Decompressor must not be used again.
	Close()
}

// GetCompressor returns a Compressor for m. Level zero selects the codec's
// default; LZ4 levels 1 through 9 select the high-compression encoder.
func GetCompressor(m Method, level int) (Compressor, error) {
	switch m {
	case None:
		return noopCompressor{}, nil
	case LZ4:
		return newLZ4Compressor(level), nil
	case ZSTD:
		return getZstdCompressor(level), nil
	}
	return nil, errors.Errorf("chwire/compress: unknown method %s", m)
}

// GetDecompressor returns a Decompressor for m.
func GetDecompressor(m Method) (Decompressor, error) {
	switch m {
	case None:
		return noopDecompressor{}, nil
	case LZ4:
		return lz4Decompressor{}, nil
	case ZSTD:
		return getZstdDecompressor(), nil
	}
	return nil, errors.Errorf("chwire/compress: unknown method %s", m)
}

type noopCompressor struct{}

var _ Compressor = noopCompressor{}

func (noopCompressor) Compress(dst, src []byte) []byte {
	return append(dst, src...)
}

func (noopCompressor) Close() {}

type noopDecompressor struct{}

var _ Decompressor = noopDecompressor{}

func (noopDecompressor) DecompressInto(dst, src []byte) error {
	if len(dst) == 0 {
		return nil
	}
	if len(dst) != len(src) {
		return errors.Errorf("stored block is %d bytes, expected %d", errors.Safe(len(src)), errors.Safe(len(dst)))
	}
	copy(dst, src)
	return nil
}

func (noopDecompressor) Close() {}
