// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package inspect produces structural summaries of serialized model files:
// tensor counts, shapes, element types, byte sizes and header overhead,
// without loading the model into a training or inference runtime.
package inspect

import (
	"github.com/dreadnode/tensor-man/header"
)

// Shape is a tensor shape as it appears in a Report.
type Shape = header.Shape

// Report is the result of inspecting a single model file.
//
// A Report is assembled once, after all aggregates are known, and is not
// modified afterwards. Field order matches the JSON output contract.
type Report struct {
	FilePath     string             `json:"file_path"`
	FileType     string             `json:"file_type"`
	FileSize     uint64             `json:"file_size"`
	Version      string             `json:"version"`
	NumTensors   int                `json:"num_tensors"`
	DataSize     uint64             `json:"data_size"`
	UniqueShapes []Shape            `json:"unique_shapes"`
	UniqueDTypes []string           `json:"unique_dtypes"`
	Metadata     map[string]string  `json:"metadata"`
	Tensors      []TensorDescriptor `json:"tensors"`
	HeaderSize   uint64             `json:"header_size"`
}

// TensorDescriptor is the per-tensor detail record, present in a Report
// only when detail mode is requested.
type TensorDescriptor struct {
	ID       string            `json:"id"`
	Shape    Shape             `json:"shape"`
	DType    string            `json:"dtype"`
	Size     uint64            `json:"size"`
	Metadata map[string]string `json:"metadata"`
}

// AverageTensorSize returns the mean tensor data size, or 0 for an
// archive with no tensors.
func (r *Report) AverageTensorSize() uint64 {
	if r.NumTensors == 0 {
		return 0
	}
	return r.DataSize / uint64(r.NumTensors)
}

// headerSize derives the header overhead from the file and data sizes.
// Compressed or storage-sharing archives can hold less bytes than the sum
// of their tensor sizes; the result is clamped to zero rather than
// reported negative.
func headerSize(fileSize, dataSize uint64) uint64 {
	if dataSize >= fileSize {
		return 0
	}
	return fileSize - dataSize
}
