// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package checkpoint opens tensor-checkpoint archives and exposes their
// hierarchical entry table without materializing tensor data upfront.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/dreadnode/tensor-man/header"
)

const maxHeaderSize = 100_000_000

var (
	// ErrFormat reports that the file bytes are not a recognizable
	// checkpoint container.
	ErrFormat = errors.New("unrecognized checkpoint container")

	// ErrNotIndexed reports that the archive predates, or simply lacks,
	// the indexed container layout required for lazy opening. It is an
	// expected condition, not corruption: such archives can still be
	// opened eagerly.
	ErrNotIndexed = errors.New("archive lacks the indexed container layout")
)

// Checkpoint is an open handle on a checkpoint archive's entry table.
//
// When lazily opened, tensor buffers remain file-backed: the underlying
// file handle stays open until Close is called, and must outlive any
// traversal of the entries.
type Checkpoint struct {
	header header.Header
	// file is non-nil when the archive was lazily opened.
	file *os.File
	// data holds the byte-buffer when the archive was eagerly opened in
	// the indexed layout. It is nil for legacy documents, which store
	// their data inline within the entry table.
	data []byte
}

// Open opens the archive at the given path.
//
// It first attempts a lazy open, which indexes entries while leaving tensor
// buffers file-backed. If that fails because the archive lacks the indexed
// container layout (a distinguishable, expected condition), it retries with
// an eager open that fully materializes the archive in memory. Any other
// failure propagates: a corrupt or truncated archive is not silently
// retried.
func Open(path string) (*Checkpoint, error) {
	c, err := OpenLazy(path)
	if errors.Is(err, ErrNotIndexed) {
		log.WithField("path", path).Debug("archive is not indexed, falling back to eager open")
		return OpenEager(path)
	}
	return c, err
}

// Entries returns the archive's entry table, in stored order.
func (c *Checkpoint) Entries() header.Entries {
	return c.header.Entries
}

// Metadata returns the archive's metadata namespace.
func (c *Checkpoint) Metadata() header.Metadata {
	return c.header.Metadata
}

// Lazy reports whether tensor buffers are file-backed views rather than
// in-memory copies.
func (c *Checkpoint) Lazy() bool {
	return c.file != nil
}

// TensorData returns the raw bytes of a stored tensor.
//
// For lazily opened archives the data is read from the backing file; for
// eagerly opened ones a view of the in-memory byte-buffer is returned,
// without copy.
func (c *Checkpoint) TensorData(ti header.TensorInfo) ([]byte, error) {
	begin, end := ti.DataOffsets.Begin, ti.DataOffsets.End
	if end < begin {
		return nil, fmt.Errorf("invalid data offsets [%d, %d)", begin, end)
	}
	switch {
	case c.file != nil:
		return c.readFileBacked(begin, end)
	case c.data != nil:
		if end > uint64(len(c.data)) {
			return nil, fmt.Errorf("data offsets [%d, %d) exceed byte-buffer size %d", begin, end, len(c.data))
		}
		return c.data[begin:end], nil
	}
	return nil, errors.New("archive has no byte-buffer: entries are stored inline")
}

func (c *Checkpoint) readFileBacked(begin, end uint64) ([]byte, error) {
	if end == begin {
		return nil, nil
	}
	offset, err := checkedAddNonNegInt64(int64(c.header.ByteBufferOffset), int64(begin))
	if err != nil {
		return nil, fmt.Errorf("failed to calculate tensor data offset: %w", err)
	}
	if _, err = c.file.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to tensor data offset: %w", err)
	}
	data := make([]byte, end-begin)
	if _, err = io.ReadFull(c.file, data); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	return data, nil
}

// Close releases the backing file handle, if any. It is safe to call on
// every exit path, including archives that were eagerly opened.
func (c *Checkpoint) Close() error {
	if c.file == nil {
		return nil
	}
	f := c.file
	c.file = nil
	return f.Close()
}

func formatErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

var errInt64SumOverflow = errors.New("int64 sum overflow")

func checkedAddNonNegInt64(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("unexpected negative number")
	}
	if a == 0 || b == 0 {
		return a + b, nil
	}
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 || sum > math.MaxInt64 {
		return 0, errInt64SumOverflow
	}
	return int64(sum), nil
}
