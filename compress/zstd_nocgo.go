// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build !cgo

package compress

import (
	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
)

type zstdCompressor struct {
	enc *zstd.Encoder
}

var _ Compressor = (*zstdCompressor)(nil)

func getZstdCompressor(level int) *zstdCompressor {
	opts := []zstd.EOption{zstd.WithEncoderConcurrency(1)}
	if level > 0 {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		panic(errors.AssertionFailedf("zstd: %v", err))
	}
	return &zstdCompressor{enc: enc}
}

func (z *zstdCompressor) Compress(dst, src []byte) []byte {
	return z.enc.EncodeAll(src, dst)
}

func (z *zstdCompressor) Close() {
	if err := z.enc.Close(); err != nil {
		panic(err)
	}
}

type zstdDecompressor struct {
	dec *zstd.Decoder
}

var _ Decompressor = zstdDecompressor{}

func getZstdDecompressor() zstdDecompressor {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		panic(errors.AssertionFailedf("zstd: %v", err))
	}
	return zstdDecompressor{dec: dec}
}

func (z zstdDecompressor) DecompressInto(dst, src []byte) error {
	if len(dst) == 0 {
		return nil
	}
	result, err := z.dec.DecodeAll(src, dst[:0])
	if err != nil {
		return err
	}
	if len(result) != len(dst) || (len(result) > 0 && &result[0] != &dst[0]) {
		return errors.Errorf("zstd: decompressed %d bytes, expected %d", errors.Safe(len(result)), errors.Safe(len(dst)))
	}
	return nil
}

func (z zstdDecompressor) Close() {
	z.dec.Close()
}
