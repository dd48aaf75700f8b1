// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package header reads the index/metadata section of a tensor-checkpoint
// archive into a hierarchical entry table.
//
// Unlike a strict format reader, entries that do not describe a stored
// tensor are preserved as-is (see Raw and Table) so that callers can decide
// how to interpret, coerce, or skip them.
package header

import (
	"github.com/dreadnode/tensor-man/dtype"
)

// Header is the decoded index/metadata section of a checkpoint archive.
type Header struct {
	// Entries is the hierarchical entry table, in stored order.
	Entries Entries
	// Metadata is the archive's metadata namespace.
	Metadata Metadata
	// ByteBufferOffset indicates the byte index position where the
	// byte-buffer is expected to start, relative to the beginning of the
	// whole archive. It is zero for documents without a byte-buffer.
	ByteBufferOffset int
}

// Entry is a named value of the entry table.
type Entry struct {
	Name  string
	Value Value
}

// Entries is an ordered list of entries. The order is the archive's stored
// order and is preserved through decoding.
type Entries []Entry

// Lookup returns the value mapped to the given name, and whether it
// was found.
func (e Entries) Lookup(name string) (Value, bool) {
	for _, entry := range e {
		if entry.Name == name {
			return entry.Value, true
		}
	}
	return nil, false
}

// Value is a stored entry value: one of TensorInfo, Table or Raw.
type Value interface {
	isValue()
}

// TensorInfo describes a stored tensor: the only entry kind that
// references the archive's byte-buffer.
// Endianness is assumed to be little-endian. Ordering is assumed to be 'C'.
type TensorInfo struct {
	DType       dtype.DType
	Shape       Shape
	DataOffsets DataOffsets
}

// Table is a nested entry table.
type Table struct {
	Entries Entries
}

// Raw is any other stored value, decoded but not interpreted. It holds
// strings, booleans, json.Number values, []any arrays, or nil.
type Raw struct {
	Value any
}

func (TensorInfo) isValue() {}
func (Table) isValue()      {}
func (Raw) isValue()        {}

// ByteSize returns the storage size of the tensor: the product of all
// shape dimensions times the element width. An empty shape describes a
// scalar, which still holds one element.
func (ti TensorInfo) ByteSize() (uint64, error) {
	n := uint64(1)
	var err error
	for _, d := range ti.Shape {
		if n, err = checkedMul(n, d); err != nil {
			return 0, err
		}
	}
	return checkedMul(n, ti.DType.Size())
}

// DataOffsets describes the "[Begin, End)" byte range of the tensor's data
// within the archive's byte-buffer.
type DataOffsets struct {
	// Begin is the lower bound byte index (included).
	Begin uint64
	// End is the upper bound byte index (excluded).
	End uint64
}

// Less reports whether DataOffsets "a" is ordered before DataOffsets "b".
func (a DataOffsets) Less(b DataOffsets) bool {
	return a.Begin < b.Begin || (a.Begin == b.Begin && a.End < b.End)
}
