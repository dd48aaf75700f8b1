// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"

	"github.com/dreadnode/tensor-man/header"
)

// OpenEager opens an archive by fully materializing it into memory.
//
// Both container layouts are handled: the indexed layout (header length
// prefix, JSON header, byte-buffer) and the legacy layout (a bare JSON
// document with inline data). An archive readable by OpenLazy yields an
// identical entry table when opened eagerly.
func OpenEager(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Deserialize(data)
}

// Deserialize parses a byte-buffer representing a whole checkpoint archive
// and returns the fully materialized form (no tensor data is copied; views
// reference the given buffer).
func Deserialize(data []byte) (*Checkpoint, error) {
	c, err := deserializeIndexed(data)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, ErrFormat) && sniffDocumentBytes(data) {
		h, derr := header.ReadDocument(data)
		if derr != nil {
			return nil, formatErrorf("%v", derr)
		}
		return &Checkpoint{header: h}, nil
	}
	return nil, err
}

func deserializeIndexed(data []byte) (*Checkpoint, error) {
	if len(data) < 8 {
		return nil, formatErrorf("file too small to hold a header length: %d bytes", len(data))
	}
	size := binary.LittleEndian.Uint64(data[:8])
	if size > maxHeaderSize {
		return nil, formatErrorf("header too large: max %d, actual %d", maxHeaderSize, size)
	}
	if size+8 > uint64(len(data)) {
		return nil, formatErrorf("header length %d exceeds file size %d", size, len(data))
	}

	h, err := header.Read(bytes.NewReader(data))
	if err != nil {
		return nil, formatErrorf("%v", err)
	}
	bufferEnd, err := h.Validate()
	if err != nil {
		return nil, formatErrorf("invalid header: %v", err)
	}
	if uint64(h.ByteBufferOffset)+bufferEnd != uint64(len(data)) {
		return nil, formatErrorf("byte-buffer size mismatch: header describes %d data bytes, file holds %d",
			bufferEnd, uint64(len(data))-uint64(h.ByteBufferOffset))
	}

	return &Checkpoint{header: h, data: data[h.ByteBufferOffset:]}, nil
}
