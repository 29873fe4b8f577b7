// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build cgo

package compress

import (
	"slices"
	"sync"

	"github.com/DataDog/zstd"
	"github.com/cockroachdb/errors"
)

type zstdCompressor struct {
	level int
	ctx   zstd.Ctx
}

var _ Compressor = (*zstdCompressor)(nil)

var zstdCompressorPool = sync.Pool{
	New: func() any {
		return &zstdCompressor{ctx: zstd.NewCtx()}
	},
}

func (z *zstdCompressor) Compress(dst, src []byte) []byte {
	n0 := len(dst)
	// Size the buffer to the bound so that DataDog/zstd compresses in place.
	bound := zstd.CompressBound(len(src))
	dst = slices.Grow(dst, bound)[:n0+bound]
	result, err := z.ctx.CompressLevel(dst[n0:], src, z.level)
	if err != nil {
		panic(errors.AssertionFailedf("zstd: %v", err))
	}
	if len(result) > 0 && &result[0] != &dst[n0] {
		panic(errors.AssertionFailedf("zstd: allocated a new buffer despite checking CompressBound"))
	}
	return dst[:n0+len(result)]
}

func (z *zstdCompressor) Close() {
	zstdCompressorPool.Put(z)
}

func getZstdCompressor(level int) *zstdCompressor {
	z := zstdCompressorPool.Get().(*zstdCompressor)
	if level <= 0 {
		level = zstd.DefaultCompression
	}
	z.level = level
	return z
}

type zstdDecompressor struct {
	ctx zstd.Ctx
}

var _ Decompressor = (*zstdDecompressor)(nil)

func (z *zstdDecompressor) DecompressInto(dst, src []byte) error {
	if len(dst) == 0 {
		return nil
	}
	if len(src) == 0 {
		return errors.Errorf("zstd: empty src buffer")
	}
	n, err := z.ctx.DecompressInto(dst, src)
	if err != nil {
		return err
	}
	if n != len(dst) {
		return errors.Errorf("zstd: decompressed %d bytes, expected %d", errors.Safe(n), errors.Safe(len(dst)))
	}
	return nil
}

func (z *zstdDecompressor) Close() {
	zstdDecompressorPool.Put(z)
}

var zstdDecompressorPool = sync.Pool{
	New: func() any {
		return &zstdDecompressor{ctx: zstd.NewCtx()}
	},
}

func getZstdDecompressor() *zstdDecompressor {
	return zstdDecompressorPool.Get().(*zstdDecompressor)
}
