// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"io"
	"strings"
	"sync/atomic"

	"github.com/andybalholm/brotli"
	"github.com/chwire/chwire/internal/base"
	"github.com/chwire/chwire/window"
	"github.com/cockroachdb/errors"
	"github.com/dsnet/compress/bzip2"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Algorithm is a whole-stream compression algorithm, as negotiated for
// HTTP bodies.
type Algorithm int8

const (
	NoAlgorithm Algorithm = iota
	// LZ4Algorithm is the framed block format of this package.
	LZ4Algorithm
	ZSTDAlgorithm
	GzipAlgorithm
	// DeflateAlgorithm is zlib-wrapped deflate.
	DeflateAlgorithm
	// SnappyAlgorithm is the snappy framing format.
	SnappyAlgorithm
	BrotliAlgorithm
	BZ2Algorithm
	XZAlgorithm
	numAlgorithms
)

var algorithmNames = [numAlgorithms]string{
	NoAlgorithm:      "none",
	LZ4Algorithm:     "lz4",
	ZSTDAlgorithm:    "zstd",
	GzipAlgorithm:    "gzip",
	DeflateAlgorithm: "deflate",
	SnappyAlgorithm:  "snappy",
	BrotliAlgorithm:  "br",
	BZ2Algorithm:     "bz2",
	XZAlgorithm:      "xz",
}

// ErrUnsupportedAlgorithm is returned for algorithm values outside the known
// range.
var ErrUnsupportedAlgorithm = errors.New("chwire/compress: unsupported algorithm")

func (a Algorithm) String() string {
	if a >= 0 && a < numAlgorithms {
		return algorithmNames[a]
	}
	return "unknown"
}

// ParseAlgorithm returns the algorithm with the given name, ignoring case.
func ParseAlgorithm(s string) (Algorithm, error) {
	for a, name := range algorithmNames {
		if strings.EqualFold(s, name) {
			return Algorithm(a), nil
		}
	}
	return 0, errors.Errorf("chwire/compress: unknown algorithm %q", s)
}

// WrapReader returns a window.Reader that decompresses r with a. size is the
// window size for algorithms that decode into a caller-sized buffer.
func WrapReader(r io.Reader, a Algorithm, size int) (*window.Reader, error) {
	switch a {
	case NoAlgorithm:
		return window.FromReader(r, size), nil
	case LZ4Algorithm:
		return NewReader(r, &ReaderOptions{Method: LZ4})
	case ZSTDAlgorithm:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return window.FromReader(dec.IOReadCloser(), size), nil
	case GzipAlgorithm:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, base.MarkCorruptionError(err)
		}
		return window.FromReader(zr, size), nil
	case DeflateAlgorithm:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, base.MarkCorruptionError(err)
		}
		return window.FromReader(zr, size), nil
	case SnappyAlgorithm:
		return window.FromReader(snappy.NewReader(r), size), nil
	case BrotliAlgorithm:
		return window.FromReader(brotli.NewReader(r), size), nil
	case BZ2Algorithm:
		br, err := bzip2.NewReader(r, nil)
		if err != nil {
			return nil, base.MarkCorruptionError(err)
		}
		return window.FromReader(br, size), nil
	case XZAlgorithm:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, base.MarkCorruptionError(err)
		}
		return window.FromReader(xr, size), nil
	}
	return nil, errors.Mark(errors.Newf("chwire/compress: cannot decompress %s", errors.Safe(a.String())), ErrUnsupportedAlgorithm)
}

type streamSink struct {
	wc io.WriteCloser
	// aborted is set by a Close that raced with a write. The encoder is left
	// to the writing goroutine and is never finished.
	aborted atomic.Bool
}

func (s *streamSink) FlushWindow(w []byte) ([]byte, error) {
	if s.aborted.Load() {
		return nil, base.ErrClosed
	}
	if _, err := s.wc.Write(w); err != nil {
		return nil, err
	}
	return w[:0], nil
}

func (s *streamSink) Flush() error {
	if s.aborted.Load() {
		return base.ErrClosed
	}
	if f, ok := s.wc.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Close finishes the compressed stream without closing the underlying
// writer.
func (s *streamSink) Close() error {
	if s.aborted.Load() {
		return nil
	}
	return s.wc.Close()
}

func (s *streamSink) Abort(error) {
	s.aborted.Store(true)
}

// WrapWriter returns a window.Writer that compresses into w with a at the
// given level (zero for the default). Closing the Writer finishes the
// compressed stream but does not close w.
func WrapWriter(w io.Writer, a Algorithm, level, size int) (*window.Writer, error) {
	size = base.BufferSize(size, base.DefaultBufferSize, base.DefaultMaxBufferSize)
	var wc io.WriteCloser
	switch a {
	case NoAlgorithm:
		return window.ToWriter(w, size), nil
	case LZ4Algorithm:
		return NewWriter(w, &WriterOptions{Method: LZ4, Level: level, BlockSize: size})
	case ZSTDAlgorithm:
		opts := []zstd.EOption{zstd.WithEncoderConcurrency(1)}
		if level > 0 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		enc, err := zstd.NewWriter(w, opts...)
		if err != nil {
			return nil, err
		}
		wc = enc
	case GzipAlgorithm:
		zw, err := gzip.NewWriterLevel(w, gzipLevel(level))
		if err != nil {
			return nil, err
		}
		wc = zw
	case DeflateAlgorithm:
		zw, err := zlib.NewWriterLevel(w, gzipLevel(level))
		if err != nil {
			return nil, err
		}
		wc = zw
	case SnappyAlgorithm:
		wc = snappy.NewBufferedWriter(w)
	case BrotliAlgorithm:
		wc = brotli.NewWriterLevel(w, brotliQuality(level))
	case BZ2Algorithm:
		bw, err := bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2Level(level)})
		if err != nil {
			return nil, err
		}
		wc = bw
	case XZAlgorithm:
		cfg := xz.WriterConfig{DictCap: xzDictCap(level)}
		xw, err := cfg.NewWriter(w)
		if err != nil {
			return nil, err
		}
		wc = xw
	default:
		return nil, errors.Mark(errors.Newf("chwire/compress: cannot compress with %s", errors.Safe(a.String())), ErrUnsupportedAlgorithm)
	}
	return window.NewWriter(&streamSink{wc: wc}, make([]byte, 0, size)), nil
}

func gzipLevel(level int) int {
	if level <= 0 {
		return gzip.DefaultCompression
	}
	return min(level, gzip.BestCompression)
}

func brotliQuality(level int) int {
	if level <= 0 {
		return 4
	}
	return min(level, brotli.BestCompression)
}

func bzip2Level(level int) int {
	if level <= 0 {
		return bzip2.DefaultCompression
	}
	return min(level, bzip2.BestCompression)
}

// xzDictCaps are the dictionary sizes of the xz presets 0 through 9.
var xzDictCaps = [10]int{
	256 << 10, 1 << 20, 2 << 20, 4 << 20, 4 << 20,
	8 << 20, 8 << 20, 16 << 20, 32 << 20, 64 << 20,
}

// xzDictCap maps a preset to its dictionary size. Zero selects preset 6.
func xzDictCap(level int) int {
	if level <= 0 {
		level = 6
	}
	return xzDictCaps[min(level, 9)]
}
