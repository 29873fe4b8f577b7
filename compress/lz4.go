// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4/v4"
)

type blockCompressor interface {
	CompressBlock(src, dst []byte) (int, error)
}

type lz4Compressor struct {
	c blockCompressor
}

var _ Compressor = (*lz4Compressor)(nil)

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4, lz4.Level5,
	lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func newLZ4Compressor(level int) *lz4Compressor {
	if level >= 1 {
		return &lz4Compressor{c: &lz4.CompressorHC{Level: lz4Levels[min(level, len(lz4Levels))-1]}}
	}
	return &lz4Compressor{c: &lz4.Compressor{}}
}

func (z *lz4Compressor) Compress(dst, src []byte) []byte {
	n0 := len(dst)
	bound := lz4.CompressBlockBound(len(src))
	dst = slices.Grow(dst, bound)[:n0+bound]
	n, err := z.c.CompressBlock(src, dst[n0:])
	if err != nil {
		panic(errors.AssertionFailedf("lz4: compressing %d bytes into a %d byte buffer: %v",
			errors.Safe(len(src)), errors.Safe(bound), err))
	}
	if n == 0 {
		// The encoder declined; store the block as a single literal run,
		// which is still a valid LZ4 block.
		return appendLiterals(dst[:n0], src)
	}
	return dst[:n0+n]
}

func (z *lz4Compressor) Close() {}

// appendLiterals appends an LZ4 block made of one sequence without a match.
func appendLiterals(dst, src []byte) []byte {
	n := len(src)
	if n < 15 {
		dst = append(dst, byte(n<<4))
	} else {
		dst = append(dst, 0xf0)
		for n -= 15; n >= 255; n -= 255 {
			dst = append(dst, 0xff)
		}
		dst = append(dst, byte(n))
	}
	return append(dst, src...)
}

type lz4Decompressor struct{}

var _ Decompressor = lz4Decompressor{}

func (lz4Decompressor) DecompressInto(dst, src []byte) error {
	if len(dst) == 0 {
		return nil
	}
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return errors.Errorf("lz4: decompressed %d bytes, expected %d", errors.Safe(n), errors.Safe(len(dst)))
	}
	return nil
}

func (lz4Decompressor) Close() {}
