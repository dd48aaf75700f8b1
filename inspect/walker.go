// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inspect

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/dreadnode/tensor-man/dtype"
	"github.com/dreadnode/tensor-man/header"
)

// Config controls per-tensor detail output. It is passed explicitly to the
// catalog walker; nothing is read from ambient state.
type Config struct {
	// Detailed enables per-tensor detail records.
	Detailed bool
	// Filter restricts which detail records are emitted to entries whose
	// name contains the substring. It is a display concern only:
	// aggregates are unaffected.
	Filter string
}

// catalog holds the walker's running aggregates.
type catalog struct {
	numTensors int
	dataSize   uint64
	shapes     []header.Shape
	dtypes     []string
	tensors    []TensorDescriptor
}

// walkEntries iterates the entry table in stored order, coercing each entry
// into a tensor descriptor when possible. Entries that cannot be coerced
// are skipped silently: they count toward nothing and raise no error.
func walkEntries(entries header.Entries, md header.Metadata, cfg Config) catalog {
	cat := catalog{
		shapes: []header.Shape{},
		dtypes: []string{},
	}
	if cfg.Detailed {
		cat.tensors = []TensorDescriptor{}
	}

	for _, e := range unwrapModel(entries) {
		ti, ok := coerceValue(e.Value)
		if !ok {
			continue
		}
		size, err := ti.ByteSize()
		if err != nil {
			continue
		}

		cat.numTensors++
		cat.dataSize += size
		if len(ti.Shape) > 0 && !containsShape(cat.shapes, ti.Shape) {
			cat.shapes = append(cat.shapes, ti.Shape)
		}
		dtypeName := ti.DType.String()
		if !containsString(cat.dtypes, dtypeName) {
			cat.dtypes = append(cat.dtypes, dtypeName)
		}

		if !cfg.Detailed {
			continue
		}
		if cfg.Filter != "" && !strings.Contains(e.Name, cfg.Filter) {
			continue
		}
		group, _, _ := strings.Cut(e.Name, ".")
		cat.tensors = append(cat.tensors, TensorDescriptor{
			ID:       e.Name,
			Shape:    ti.Shape,
			DType:    dtypeName,
			Size:     size,
			Metadata: md.GroupRecord(group),
		})
	}
	return cat
}

// unwrapModel descends into a single wrapping "model" entry, once and only
// once. Some producers nest the whole tensor dictionary under that key.
func unwrapModel(entries header.Entries) header.Entries {
	if len(entries) != 1 || entries[0].Name != "model" {
		return entries
	}
	if table, ok := entries[0].Value.(header.Table); ok {
		return table.Entries
	}
	return entries
}

// coerceValue reinterprets a stored entry value as a tensor descriptor.
// Tensor entries are used directly; raw values are coerced when they hold
// a scalar or a well-formed nested numeric array. Everything else reports
// ok=false, which the walker treats as a skip.
func coerceValue(v header.Value) (header.TensorInfo, bool) {
	switch t := v.(type) {
	case header.TensorInfo:
		return t, true
	case header.Raw:
		shape, dt, ok := inferTensor(t.Value)
		if !ok {
			return header.TensorInfo{}, false
		}
		return header.TensorInfo{DType: dt, Shape: shape}, true
	}
	return header.TensorInfo{}, false
}

// inferTensor derives shape and element type from an inline stored value:
// a scalar, or nested arrays with uniform dimensions. All-integer content
// infers int64, any float infers float32, all-boolean content infers bool.
// Ragged or mixed-kind nests cannot be coerced.
func inferTensor(v any) (header.Shape, dtype.DType, bool) {
	switch t := v.(type) {
	case bool:
		return header.Shape{}, dtype.Bool, true
	case json.Number:
		return header.Shape{}, numberDType(t), true
	case []any:
		if len(t) == 0 {
			return header.Shape{0}, dtype.Float32, true
		}
		subShape, dt, ok := inferTensor(t[0])
		if !ok {
			return nil, 0, false
		}
		for _, item := range t[1:] {
			itemShape, itemDT, ok := inferTensor(item)
			if !ok || !itemShape.Equal(subShape) {
				return nil, 0, false
			}
			if dt, ok = promoteDType(dt, itemDT); !ok {
				return nil, 0, false
			}
		}
		shape := make(header.Shape, 0, len(subShape)+1)
		shape = append(shape, uint64(len(t)))
		shape = append(shape, subShape...)
		return shape, dt, true
	}
	return nil, 0, false
}

func numberDType(n json.Number) dtype.DType {
	if _, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return dtype.Int64
	}
	return dtype.Float32
}

// promoteDType merges the element types of two sibling sub-tensors.
// Integers promote to float when mixed; booleans never mix with numbers.
func promoteDType(a, b dtype.DType) (dtype.DType, bool) {
	if a == b {
		return a, true
	}
	if (a == dtype.Int64 && b == dtype.Float32) || (a == dtype.Float32 && b == dtype.Int64) {
		return dtype.Float32, true
	}
	return 0, false
}

func containsShape(shapes []header.Shape, s header.Shape) bool {
	for _, other := range shapes {
		if other.Equal(s) {
			return true
		}
	}
	return false
}

func containsString(values []string, s string) bool {
	for _, other := range values {
		if other == s {
			return true
		}
	}
	return false
}
