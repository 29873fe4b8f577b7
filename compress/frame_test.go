// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compress

import (
	"bytes"
	"fmt"
	"io"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/chwire/chwire/internal/base"
	"github.com/chwire/chwire/internal/testutils"
	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Frames produced by the reference client for the bytes 1, 2, 3 written
// through a two-byte block.
var goldenFrames = [][]byte{
	{
		0xdc, 0xaa, 0x1f, 0x71, 0x96, 0x2c, 0x63, 0x60, 0x70, 0xf9, 0x2f, 0x0f, 0xc1, 0x27, 0xb7, 0x98,
		0x82, 0x0c, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00,
		0x20, 0x01, 0x02,
	},
	{
		0x40, 0xd9, 0x15, 0x32, 0xb3, 0x84, 0x19, 0x49, 0xc5, 0x09, 0x70, 0xda, 0x0c, 0x63, 0x47, 0x4a,
		0x82, 0x0b, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00,
		0x10, 0x03,
	},
}

func TestGoldenFrames(t *testing.T) {
	var buf bytes.Buffer
	m := NewMetrics("test")
	w, err := NewWriter(&buf, &WriterOptions{Method: LZ4, BlockSize: 2, Metrics: m})
	require.NoError(t, err)
	_, err = w.Write([]byte{1, 2})
	require.NoError(t, err)
	require.Equal(t, goldenFrames[0], buf.Bytes())
	require.NoError(t, w.WriteByte(3))
	require.NoError(t, w.Flush())
	require.Equal(t, bytes.Join(goldenFrames, nil), buf.Bytes())
	require.NoError(t, w.Close())
	require.Equal(t, 2.0, testutil.ToFloat64(m.Frames))
	require.Equal(t, 3.0, testutil.ToFloat64(m.RawBytes))
	require.Equal(t, 55.0, testutil.ToFloat64(m.CompressedBytes))

	r, err := NewReader(bytes.NewReader(buf.Bytes()), &ReaderOptions{Logger: testutils.Logger{T: t}})
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)
}

func TestSingleFrame(t *testing.T) {
	frame, err := Compress(LZ4, 0, 3, []byte{13, 13, 13})
	require.NoError(t, err)
	require.Equal(t, byte(0x82), frame[16])
	require.Equal(t, uint32(len(frame)-checksumSize), bin.Uint32(frame[hDataSize:]))
	require.Equal(t, uint32(3), bin.Uint32(frame[hRawSize:]))

	got, err := Decompress(LZ4, frame)
	require.NoError(t, err)
	require.Equal(t, []byte{13, 13, 13}, got)
}

func TestRoundTrip(t *testing.T) {
	defer leaktest.AfterTest(t)()

	for _, m := range []Method{LZ4, ZSTD, None} {
		t.Run(m.String(), func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				var data []byte
				if rapid.Bool().Draw(t, "compressible") {
					data = bytes.Repeat([]byte("clickhouse"), rapid.IntRange(0, 500).Draw(t, "reps"))
				} else {
					data = rapid.SliceOfN(rapid.Byte(), 0, 5000).Draw(t, "data")
				}
				blockSize := rapid.IntRange(1, 2048).Draw(t, "block")
				level := rapid.IntRange(0, 3).Draw(t, "level")
				frames, err := Compress(m, level, blockSize, data)
				require.NoError(t, err)
				got, err := Decompress(m, frames)
				require.NoError(t, err)
				require.True(t, bytes.Equal(data, got))
			})
		})
	}
}

func TestLargeBlock(t *testing.T) {
	data := testutils.Pattern(3*MaxBlockSize + 17)
	frames, err := Compress(LZ4, 0, MaxBlockSize*2, data)
	require.NoError(t, err)
	// The block size is capped, so the data spans four frames.
	r, err := NewReader(bytes.NewReader(frames), nil)
	require.NoError(t, err)
	n := 0
	for {
		b, err := r.NextWindow()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.LessOrEqual(t, len(b), MaxBlockSize)
		n++
	}
	require.Equal(t, 4, n)
}

func TestIncompressible(t *testing.T) {
	rng := rand.New(rand.NewPCG(0, uint64(time.Now().UnixNano())))
	data := make([]byte, 70000)
	for i := range data {
		data[i] = byte(rng.Uint32())
	}
	c, err := GetCompressor(LZ4, 0)
	require.NoError(t, err)
	defer c.Close()
	frame := AppendFrame(nil, LZ4, c, data)
	got, err := Decompress(LZ4, frame)
	require.NoError(t, err)
	require.Equal(t, data, got)

	literals := appendLiterals([]byte{0xaa}, data)
	d, err := GetDecompressor(LZ4)
	require.NoError(t, err)
	out := make([]byte, len(data))
	require.NoError(t, d.DecompressInto(out, literals[1:]))
	require.Equal(t, data, out)
}

// TestBitFlips verifies that flipping any single bit of a frame is detected.
func TestBitFlips(t *testing.T) {
	for _, m := range []Method{LZ4, ZSTD, None} {
		t.Run(m.String(), func(t *testing.T) {
			frame, err := Compress(m, 0, 64, []byte("the quick brown fox"))
			require.NoError(t, err)
			for i := range frame {
				for bit := 0; bit < 8; bit++ {
					corrupt := bytes.Clone(frame)
					corrupt[i] ^= 1 << bit
					_, err := Decompress(m, corrupt)
					require.True(t, base.IsCorruptionError(err), "byte %d bit %d: %v", i, bit, err)
				}
			}
		})
	}
}

func TestCorruptStreams(t *testing.T) {
	frame := goldenFrames[0]
	testCases := []struct {
		name string
		data []byte
		want string
	}{
		{"truncated header", frame[:10], "truncated header"},
		{"truncated payload", frame[:len(frame)-1], "truncated payload"},
		{"method", append(bytes.Clone(frame[:16]), append([]byte{byte(ZSTD)}, frame[17:]...)...), "unexpected method ZSTD, expected LZ4"},
		{"checksum", append([]byte{frame[0] ^ 0xff}, frame[1:]...), "checksum mismatch"},
		{"second frame", append(bytes.Clone(frame), frame[:20]...), "truncated header"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMetrics("test")
			r, err := NewReader(bytes.NewReader(tc.data), &ReaderOptions{Logger: testutils.Logger{T: t}, Metrics: m})
			require.NoError(t, err)
			_, err = io.ReadAll(r)
			require.True(t, base.IsCorruptionError(err), "%v", err)
			require.Contains(t, err.Error(), tc.want)
			require.True(t, r.IsClosed())
			require.Equal(t, 1.0, testutil.ToFloat64(m.CorruptFrames))

			_, err = r.ReadByte()
			require.True(t, errors.Is(err, base.ErrClosed))
		})
	}
}

func TestEmptyRawFrameSkipped(t *testing.T) {
	for _, m := range []Method{LZ4, ZSTD, None} {
		t.Run(m.String(), func(t *testing.T) {
			c, err := GetCompressor(m, 0)
			require.NoError(t, err)
			defer c.Close()
			var frames []byte
			frames = AppendFrame(frames, m, c, nil)
			frames = AppendFrame(frames, m, c, []byte("x"))
			frames = AppendFrame(frames, m, c, nil)
			got, err := Decompress(m, frames)
			require.NoError(t, err)
			require.Equal(t, "x", string(got))

			d, err := GetDecompressor(m)
			require.NoError(t, err)
			defer d.Close()
			require.NoError(t, d.DecompressInto(nil, nil))
		})
	}
}

// stallingWriter blocks every Write until release is closed.
type stallingWriter struct {
	bytes.Buffer
	entered chan struct{}
	release chan struct{}
}

func (w *stallingWriter) Write(p []byte) (int, error) {
	w.entered <- struct{}{}
	<-w.release
	return w.Buffer.Write(p)
}

func TestCloseDuringWrite(t *testing.T) {
	defer leaktest.AfterTest(t)()

	for _, m := range []Method{LZ4, ZSTD} {
		t.Run(m.String(), func(t *testing.T) {
			sw := &stallingWriter{entered: make(chan struct{}, 1), release: make(chan struct{})}
			w, err := NewWriter(sw, &WriterOptions{Method: m, BlockSize: 4})
			require.NoError(t, err)

			done := make(chan error, 1)
			go func() {
				_, err := w.Write([]byte{1, 2, 3, 4})
				done <- err
			}()
			<-sw.entered
			// The frame is already compressed; Close must not hand the
			// compressor back while the write is still in flight.
			require.NoError(t, w.Close())
			require.True(t, w.IsClosed())
			close(sw.release)
			require.NoError(t, <-done)

			_, err = w.Write([]byte{5})
			require.True(t, errors.Is(err, base.ErrClosed), "%v", err)
			got, err := Decompress(m, sw.Bytes())
			require.NoError(t, err)
			require.Equal(t, []byte{1, 2, 3, 4}, got)
		})
	}
}

func TestFrameSinkAbort(t *testing.T) {
	c, err := GetCompressor(ZSTD, 0)
	require.NoError(t, err)
	var buf bytes.Buffer
	s := &frameSink{w: &buf, method: ZSTD}
	s.mu.c = c

	_, err = s.FlushWindow([]byte("ab"))
	require.NoError(t, err)
	n := buf.Len()

	s.Abort(base.ErrClosed)
	require.True(t, s.mu.released)
	_, err = s.FlushWindow([]byte("cd"))
	require.True(t, errors.Is(err, base.ErrClosed), "%v", err)
	require.Equal(t, n, buf.Len())
	// A second release is a no-op.
	require.NoError(t, s.Close())
}

func TestMethod(t *testing.T) {
	for _, m := range []Method{None, LZ4, ZSTD} {
		parsed, ok := ParseMethod(m.String())
		require.True(t, ok)
		require.Equal(t, m, parsed)
	}
	_, ok := ParseMethod("lzma")
	require.False(t, ok)
	require.Equal(t, "Method(0x07)", Method(7).String())
	require.Equal(t, "LZ4", fmt.Sprint(LZ4))

	_, err := GetCompressor(Method(7), 0)
	require.Error(t, err)
	_, err = NewReader(bytes.NewReader(nil), &ReaderOptions{Method: Method(7)})
	require.Error(t, err)
}
