// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package chwire

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chwire/chwire/compress"
	"github.com/chwire/chwire/internal/base"
	"github.com/cockroachdb/errors"
)

// Options holds the optional parameters for the streams created by this
// package. The zero value is usable; EnsureDefaults fills in the rest.
type Options struct {
	// BufferSize is the window size of readers and writers, and the raw block
	// size of compressed output. It is clamped to MaxBufferSize.
	//
	// The default value is 8192.
	BufferSize int

	// MaxBufferSize caps BufferSize. It cannot exceed 1 MiB.
	//
	// The default value is 1 MiB.
	MaxBufferSize int

	// MaxQueuedBuffers bounds the number of chunks a pipe holds between its
	// writer and its reader.
	//
	// The default value is 512.
	MaxQueuedBuffers int

	// BufferQueueVariation is the number of consecutive rejected enqueues
	// after which a non-blocking pipe grows its queue by one, up to
	// MaxQueuedBuffers. A negative value selects a queue fixed at
	// MaxQueuedBuffers.
	//
	// The default value is 100.
	BufferQueueVariation int

	// Timeout bounds every wait of a pipe. A negative value waits forever.
	//
	// The default value is 30s.
	Timeout time.Duration

	// UseBlockingQueue selects the blocking pipe, which parks waiting
	// goroutines instead of spinning.
	UseBlockingQueue bool

	// Compression is the whole-stream algorithm of NewInput and NewOutput.
	Compression compress.Algorithm

	// CompressLevel is passed to the compressor. Zero selects the
	// algorithm's default.
	CompressLevel int

	// Logger used to write log messages.
	//
	// The default logger uses the Go standard library log package.
	Logger base.Logger

	// Metrics, if set, receives pipe wait latencies and frame counts.
	Metrics *Metrics
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified. Returns the new options.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.MaxBufferSize <= 0 || o.MaxBufferSize > base.DefaultMaxBufferSize {
		o.MaxBufferSize = base.DefaultMaxBufferSize
	}
	o.BufferSize = base.BufferSize(o.BufferSize, base.DefaultBufferSize, o.MaxBufferSize)
	if o.MaxQueuedBuffers <= 0 {
		o.MaxQueuedBuffers = base.DefaultMaxQueuedBuffers
	}
	if o.BufferQueueVariation == 0 {
		o.BufferQueueVariation = base.DefaultBufferQueueVariation
	}
	if o.Timeout == 0 {
		o.Timeout = base.DefaultTimeout
	}
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	return o
}

// Clone creates a shallow-copy of the supplied options.
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}
	n := *o
	return &n
}

// String implements fmt.Stringer. The output can be read back with Parse.
// Logger and Metrics are not serialized.
func (o *Options) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[Options]\n")
	fmt.Fprintf(&buf, "  buffer_queue_variation=%d\n", o.BufferQueueVariation)
	fmt.Fprintf(&buf, "  buffer_size=%d\n", o.BufferSize)
	fmt.Fprintf(&buf, "  compress_level=%d\n", o.CompressLevel)
	fmt.Fprintf(&buf, "  compression=%s\n", o.Compression)
	fmt.Fprintf(&buf, "  max_buffer_size=%d\n", o.MaxBufferSize)
	fmt.Fprintf(&buf, "  max_queued_buffers=%d\n", o.MaxQueuedBuffers)
	fmt.Fprintf(&buf, "  timeout=%s\n", o.Timeout)
	fmt.Fprintf(&buf, "  use_blocking_queue=%t\n", o.UseBlockingQueue)
	return buf.String()
}

// parseOptions walks an INI-style document, calling visit for every key in
// a section. Blank lines and lines starting with ';' or '#' are skipped.
func parseOptions(s string, visit func(section, key, value string) error) error {
	var section string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || line[0] == ';' || line[0] == '#' {
			continue
		}
		n := len(line)
		if line[0] == '[' && line[n-1] == ']' {
			section = line[1 : n-1]
			continue
		}

		pos := strings.Index(line, "=")
		if pos < 0 {
			const maxLen = 50
			if len(line) > maxLen {
				line = line[:maxLen-3] + "..."
			}
			return base.CorruptionErrorf("invalid key=value syntax: %q", errors.Safe(line))
		}
		key := strings.TrimSpace(line[:pos])
		value := strings.TrimSpace(line[pos+1:])
		if err := visit(section, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Parse parses the options from the specified string, as produced by
// String. Keys that are not present keep their current values.
func (o *Options) Parse(s string) error {
	return parseOptions(s, func(section, key, value string) error {
		if section != "Options" {
			return errors.Errorf("chwire: unknown section %q or key %q", errors.Safe(section), errors.Safe(key))
		}
		var err error
		switch key {
		case "buffer_queue_variation":
			o.BufferQueueVariation, err = strconv.Atoi(value)
		case "buffer_size":
			o.BufferSize, err = strconv.Atoi(value)
		case "compress_level":
			o.CompressLevel, err = strconv.Atoi(value)
		case "compression":
			o.Compression, err = compress.ParseAlgorithm(value)
		case "max_buffer_size":
			o.MaxBufferSize, err = strconv.Atoi(value)
		case "max_queued_buffers":
			o.MaxQueuedBuffers, err = strconv.Atoi(value)
		case "timeout":
			o.Timeout, err = time.ParseDuration(value)
		case "use_blocking_queue":
			o.UseBlockingQueue, err = strconv.ParseBool(value)
		default:
			return errors.Errorf("chwire: unknown option: %s.%s", errors.Safe(section), errors.Safe(key))
		}
		if err != nil {
			return errors.Wrapf(err, "chwire: invalid value for %s", errors.Safe(key))
		}
		return nil
	})
}
