// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"fmt"
	"sort"
)

// Validate checks whether the tensor entries of a Header are valid for
// lazy, file-backed access, returning the expected size of the byte-buffer
// in case of success.
//
// Entries that are not tensor descriptors (Raw and Table leaves) take no
// part in validation: they live within the header document itself and never
// reference the byte-buffer. Tensor entries, including those found in
// nested tables, are checked against the following rules:
//
//   - the union of DataOffsets of all tensors must cover an entire
//     contiguous area of the byte-buffer, starting from offset 0
//   - DataOffsets of any pair of tensors must not overlap
//   - for each tensor, its DataOffsets.Begin must be <= DataOffsets.End
//   - for each tensor, its explicit byte size described by DataOffsets
//     (End - Begin) must coincide with the implicit byte size computed
//     from Shape and DType (an empty shape counts as 1 scalar value)
//   - no overflow must occur during calculations at any step
func (h Header) Validate() (uint64, error) {
	infos := collectTensorInfos(nil, "", h.Entries)
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].info.DataOffsets.Less(infos[j].info.DataOffsets)
	})

	expectedBegin := uint64(0)
	for _, ni := range infos {
		if err := validateTensorInfo(ni.info, expectedBegin); err != nil {
			return 0, fmt.Errorf("invalid tensor %q: %w", ni.name, err)
		}
		expectedBegin = ni.info.DataOffsets.End
	}
	return expectedBegin, nil
}

type namedTensorInfo struct {
	name string
	info TensorInfo
}

func collectTensorInfos(dst []namedTensorInfo, prefix string, entries Entries) []namedTensorInfo {
	for _, e := range entries {
		name := e.Name
		if prefix != "" {
			name = prefix + "." + e.Name
		}
		switch v := e.Value.(type) {
		case TensorInfo:
			dst = append(dst, namedTensorInfo{name: name, info: v})
		case Table:
			dst = collectTensorInfos(dst, name, v.Entries)
		}
	}
	return dst
}

func validateTensorInfo(ti TensorInfo, expectedBegin uint64) error {
	if ti.DataOffsets.Begin != expectedBegin {
		return fmt.Errorf("expected data-offsets begin %d, actual %d", expectedBegin, ti.DataOffsets.Begin)
	}
	if ti.DataOffsets.End < ti.DataOffsets.Begin {
		return fmt.Errorf("expected data-offsets end >= %d (begin), actual %d", ti.DataOffsets.Begin, ti.DataOffsets.End)
	}
	if err := ti.DType.Validate(); err != nil {
		return err
	}
	byteSize, err := ti.ByteSize()
	if err != nil {
		return err
	}
	if offSize := ti.DataOffsets.End - ti.DataOffsets.Begin; offSize != byteSize {
		return fmt.Errorf("byte size computed from shape (%d) differs from data-offsets size (%d)", byteSize, offSize)
	}
	return nil
}
