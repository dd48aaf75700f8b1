// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/dreadnode/tensor-man/header"
)

// OpenLazy opens an archive in the indexed container layout: the entry
// table is parsed and validated, while tensor buffers stay file-backed.
//
// The returned Checkpoint owns the file handle; the caller must not close
// it (other than through Close) for as long as tensor data may be read.
//
// If the archive is a legacy bare document rather than an indexed
// container, OpenLazy fails with ErrNotIndexed.
func OpenLazy(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	c, err := newLazy(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return c, nil
}

func newLazy(f *os.File) (*Checkpoint, error) {
	c, err := readIndexed(f)
	if err == nil {
		return c, nil
	}
	// Distinguish the expected "legacy layout" condition from corruption:
	// only a file that plainly starts as a JSON document is reported as
	// not indexed. Anything else propagates as-is.
	if errors.Is(err, ErrFormat) && sniffDocument(f) {
		return nil, ErrNotIndexed
	}
	return nil, err
}

func readIndexed(f *os.File) (*Checkpoint, error) {
	var prefix [8]byte
	if _, err := io.ReadFull(f, prefix[:]); err != nil {
		return nil, formatErrorf("file too small to hold a header length: %v", err)
	}
	size := binary.LittleEndian.Uint64(prefix[:])
	if size > maxHeaderSize {
		return nil, formatErrorf("header too large: max %d, actual %d", maxHeaderSize, size)
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	fileSize := uint64(fi.Size())
	if size+8 > fileSize {
		return nil, formatErrorf("header length %d exceeds file size %d", size, fileSize)
	}

	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	h, err := header.Read(f)
	if err != nil {
		return nil, formatErrorf("%v", err)
	}
	bufferEnd, err := h.Validate()
	if err != nil {
		return nil, formatErrorf("invalid header: %v", err)
	}
	if uint64(h.ByteBufferOffset)+bufferEnd != fileSize {
		return nil, formatErrorf("byte-buffer size mismatch: header describes %d data bytes, file holds %d",
			bufferEnd, fileSize-uint64(h.ByteBufferOffset))
	}

	return &Checkpoint{header: h, file: f}, nil
}

// sniffDocument reports whether the file begins like a bare JSON document:
// optional whitespace, an opening brace, then the start of a key or an
// immediate closing brace. It runs only after an indexed parse has already
// failed, to cheaply separate legacy archives from garbage.
func sniffDocument(f *os.File) bool {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return false
	}
	var buf [512]byte
	n, err := f.Read(buf[:])
	if n == 0 && err != nil {
		return false
	}
	return sniffDocumentBytes(buf[:n])
}

func sniffDocumentBytes(data []byte) bool {
	open := false
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			if open {
				return false
			}
			open = true
		case '"', '}':
			return open
		default:
			return false
		}
	}
	return false
}
