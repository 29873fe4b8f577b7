// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package pipe

import (
	"bytes"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/chwire/chwire/internal/base"
	"github.com/chwire/chwire/internal/testutils"
	"github.com/chwire/chwire/queue"
	"github.com/chwire/chwire/window"
	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type constructor func(*Options) (*window.Reader, *window.Writer)

var variants = []struct {
	name string
	ctor constructor
}{
	{"blocking", NewBlocking},
	{"non-blocking", NewNonBlocking},
}

func TestEndToEnd(t *testing.T) {
	defer leaktest.AfterTest(t)()

	for _, v := range variants {
		for _, bufferSize := range []int{1, 7, 64} {
			t.Run(fmt.Sprintf("%s/buffer=%d", v.name, bufferSize), func(t *testing.T) {
				data := testutils.Pattern(10000)
				r, w := v.ctor(&Options{
					BufferSize:  bufferSize,
					QueueLength: 2,
					Policy:      queue.Linear(1, 2, 3),
					Timeout:     10 * time.Second,
					Logger:      testutils.Logger{T: t},
				})
				rng := rand.New(rand.NewPCG(1, uint64(bufferSize)))
				var g errgroup.Group
				g.Go(func() error {
					for rest := data; len(rest) > 0; {
						n := min(len(rest), 1+rng.IntN(100))
						var err error
						if n%5 == 0 {
							err = w.Transfer(bytes.Clone(rest[:n]))
						} else {
							_, err = w.Write(rest[:n])
						}
						if err != nil {
							return err
						}
						rest = rest[n:]
					}
					return w.Close()
				})
				var got []byte
				g.Go(func() error {
					var err error
					got, err = io.ReadAll(r)
					return err
				})
				require.NoError(t, g.Wait())
				require.Equal(t, data, got)

				_, err := r.ReadByte()
				require.Equal(t, io.EOF, err)
				n, err := r.Available()
				require.NoError(t, err)
				require.Equal(t, 0, n)
			})
		}
	}
}

func TestLargeTransfer(t *testing.T) {
	defer leaktest.AfterTest(t)()

	const total = 1000000
	const writeSize = 4 << 10
	const readSize = 64 << 10
	data := testutils.Pattern(total)

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			r, w := v.ctor(&Options{
				QueueLength: 4,
				Policy:      queue.Fixed(4),
				Timeout:     30 * time.Second,
				Logger:      testutils.Logger{T: t},
			})
			var g errgroup.Group
			g.Go(func() error {
				for off := 0; off < total; off += writeSize {
					if _, err := w.Write(data[off:min(off+writeSize, total)]); err != nil {
						return err
					}
				}
				return w.Close()
			})
			g.Go(func() error {
				off := 0
				for off < total {
					b, err := r.ReadExact(min(readSize, total-off))
					if err != nil {
						return err
					}
					if !bytes.Equal(data[off:off+len(b)], b) {
						return errors.Newf("mismatch at offset %d", off)
					}
					off += len(b)
				}
				if _, err := r.ReadByte(); err != io.EOF {
					return errors.Newf("expected EOF, got %v", err)
				}
				return nil
			})
			require.NoError(t, g.Wait())
		})
	}
}

func TestReadTimeout(t *testing.T) {
	defer leaktest.AfterTest(t)()

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			const timeout = 5 * time.Millisecond
			r, w := v.ctor(&Options{BufferSize: 4, QueueLength: 3, Timeout: timeout, Logger: testutils.Logger{T: t}})

			start := time.Now()
			_, err := r.ReadByte()
			testutils.RequireTimeout(t, err, time.Since(start), timeout)
			require.False(t, r.IsClosed())

			require.NoError(t, w.WriteByte(3))
			require.NoError(t, w.Flush())
			c, err := r.ReadByte()
			require.NoError(t, err)
			require.Equal(t, byte(3), c)

			require.NoError(t, w.Close())
			_, err = r.ReadByte()
			require.Equal(t, io.EOF, err)
		})
	}
}

func TestReadRetryAfterTimeout(t *testing.T) {
	defer leaktest.AfterTest(t)()

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			const timeout = 20 * time.Millisecond
			r, w := v.ctor(&Options{
				BufferSize:  4,
				QueueLength: 4,
				Policy:      queue.Fixed(4),
				Timeout:     timeout,
				Logger:      testutils.Logger{T: t},
			})
			requireTimeout := func(err error) {
				t.Helper()
				require.True(t, base.IsTimeoutError(err), "%v", err)
				require.False(t, r.IsClosed())
			}

			// A value spanning two windows, the second of which is late.
			_, err := w.Write([]byte{0, 1, 2, 3})
			require.NoError(t, err)
			_, err = r.ReadExact(8)
			requireTimeout(err)
			_, err = w.Write([]byte{4, 5, 6, 7})
			require.NoError(t, err)
			b, err := r.ReadExact(8)
			require.NoError(t, err)
			require.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7}, b)

			_, err = w.Write([]byte{5, 'h', 'e'})
			require.NoError(t, err)
			require.NoError(t, w.Flush())
			_, err = r.ReadString()
			requireTimeout(err)
			_, err = w.Write([]byte("llo"))
			require.NoError(t, err)
			require.NoError(t, w.Flush())
			str, err := r.ReadString()
			require.NoError(t, err)
			require.Equal(t, "hello", str)

			_, err = w.Write([]byte("ab"))
			require.NoError(t, err)
			require.NoError(t, w.Flush())
			_, err = r.ReadUntil([]byte(";"))
			requireTimeout(err)
			_, err = w.Write([]byte("c;"))
			require.NoError(t, err)
			require.NoError(t, w.Flush())
			line, err := r.ReadUntil([]byte(";"))
			require.NoError(t, err)
			require.Equal(t, "abc;", line.String())

			require.NoError(t, w.Close())
			_, err = r.ReadByte()
			require.Equal(t, io.EOF, err)
		})
	}
}

func TestCloseUnblocksReader(t *testing.T) {
	defer leaktest.AfterTest(t)()

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			// No timeout: only Close can end the wait.
			r, w := v.ctor(&Options{BufferSize: 4, QueueLength: 2, Policy: queue.Fixed(2), Logger: testutils.Logger{T: t}})
			errCh := make(chan error, 1)
			go func() {
				_, err := r.ReadByte()
				errCh <- err
			}()
			time.Sleep(10 * time.Millisecond)
			require.False(t, r.IsExhausted())
			require.NoError(t, r.Close())

			select {
			case err := <-errCh:
				require.True(t, errors.Is(err, base.ErrClosed), "%v", err)
			case <-time.After(10 * time.Second):
				t.Fatal("ReadByte still blocked after Close")
			}
			require.True(t, r.IsClosed())
			err := w.WriteByte(1)
			if err == nil {
				err = w.Flush()
			}
			require.True(t, errors.Is(err, base.ErrClosed), "%v", err)
		})
	}
}

func TestWriteTimeout(t *testing.T) {
	defer leaktest.AfterTest(t)()

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			const timeout = 5 * time.Millisecond
			r, w := v.ctor(&Options{
				BufferSize:  1,
				QueueLength: 1,
				Policy:      queue.Fixed(1),
				Timeout:     timeout,
				Logger:      testutils.Logger{T: t},
			})
			require.NoError(t, w.WriteByte(1))

			start := time.Now()
			err := w.WriteByte(2)
			testutils.RequireTimeout(t, err, time.Since(start), timeout)
			require.Equal(t, 1, w.Buffered())

			c, err := r.ReadByte()
			require.NoError(t, err)
			require.Equal(t, byte(1), c)

			require.NoError(t, w.Flush())
			c, err = r.ReadByte()
			require.NoError(t, err)
			require.Equal(t, byte(2), c)
			require.NoError(t, w.Close())
			require.NoError(t, r.Close())
		})
	}
}

func TestReaderCloseUnblocksWriter(t *testing.T) {
	defer leaktest.AfterTest(t)()

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			r, w := v.ctor(&Options{
				BufferSize:  1,
				QueueLength: 1,
				Policy:      queue.Fixed(1),
				Logger:      testutils.Logger{T: t},
			})
			errCh := make(chan error, 1)
			go func() {
				_, err := w.Write([]byte{1, 2, 3})
				errCh <- err
			}()
			require.NoError(t, r.Close())
			err := <-errCh
			require.True(t, errors.Is(err, base.ErrClosed), "%v", err)

			err = w.WriteByte(4)
			require.True(t, errors.Is(err, base.ErrClosed), "%v", err)
			_, err = r.ReadByte()
			require.True(t, errors.Is(err, base.ErrClosed), "%v", err)
		})
	}
}

func TestWriterCloseWhileBlocked(t *testing.T) {
	defer leaktest.AfterTest(t)()

	waiting := make(chan struct{})
	var once sync.Once
	r, w := NewNonBlocking(&Options{
		BufferSize:  1,
		QueueLength: 2,
		Policy:      queue.Fixed(1),
		Wait: func(attempt int) {
			once.Do(func() { close(waiting) })
			Spin(attempt)
		},
		Logger: testutils.Logger{T: t},
	})
	errCh := make(chan error, 1)
	go func() {
		_, err := w.Write([]byte{1, 2})
		errCh <- err
	}()
	<-waiting
	require.NoError(t, w.Close())
	err := <-errCh
	require.True(t, errors.Is(err, base.ErrClosed), "%v", err)

	// The chunk queued before the abort is delivered, then the reader learns
	// that the stream was cut short.
	c, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(1), c)
	_, err = r.ReadByte()
	require.True(t, errors.Is(err, base.ErrClosed), "%v", err)
}

func TestEmptyStream(t *testing.T) {
	defer leaktest.AfterTest(t)()

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			r, w := v.ctor(&Options{Timeout: time.Second, Logger: testutils.Logger{T: t}})
			require.NoError(t, w.Close())
			require.NoError(t, w.Close())
			_, err := r.ReadByte()
			require.Equal(t, io.EOF, err)
			_, err = r.ReadByte()
			require.Equal(t, io.EOF, err)
		})
	}
}

func TestPipeToWriter(t *testing.T) {
	defer leaktest.AfterTest(t)()

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			data := testutils.Pattern(5000)
			r, w := v.ctor(&Options{BufferSize: 100, QueueLength: 3, Policy: queue.Fixed(3), Timeout: 10 * time.Second})
			var g errgroup.Group
			g.Go(func() error {
				if _, err := w.Write(data); err != nil {
					return err
				}
				return w.Close()
			})
			var buf bytes.Buffer
			g.Go(func() error {
				_, err := r.WriteTo(&buf)
				return err
			})
			require.NoError(t, g.Wait())
			require.Equal(t, data, buf.Bytes())
			require.True(t, r.IsClosed())
		})
	}
}

func TestReadUntilAcrossRecycledWindows(t *testing.T) {
	defer leaktest.AfterTest(t)()

	r, w := NewNonBlocking(&Options{BufferSize: 3, QueueLength: 3, Policy: queue.Fixed(2), Timeout: 10 * time.Second})
	var g errgroup.Group
	g.Go(func() error {
		for i := 0; i < 50; i++ {
			if err := w.WriteString(fmt.Sprintf("line %d;", i)); err != nil {
				return err
			}
		}
		return w.Close()
	})
	var lines []string
	g.Go(func() error {
		for {
			v, err := r.ReadUntil([]byte(";"))
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			lines = append(lines, v.String())
		}
	})
	require.NoError(t, g.Wait())
	require.Len(t, lines, 50)
	require.Equal(t, "\x07line 0;", lines[0])
	require.Equal(t, "\x08line 49;", lines[49])
}

func TestRing(t *testing.T) {
	r := makeRing(3, 4)
	a := r.window(0)
	b := r.window(1)
	require.Equal(t, 4, cap(a))
	// Two chunks queued and one held by the reader: nothing is free.
	c := r.window(2)
	require.Equal(t, 1, r.fresh)
	d := r.window(1)
	a2 := r.window(0)
	require.Same(t, &a[:1][0], &a2[:1][0])
	require.NotSame(t, &b[:1][0], &c[:1][0])
	require.Equal(t, 0, len(d))
}
