// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package base defines the error kinds, logger interface and buffer sizing
// rules shared by the windowed streams, the pipes and the block codec.
package base
