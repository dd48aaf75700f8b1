// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inspect

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	parser "github.com/gpustack/gguf-parser-go"
	"github.com/pkg/errors"

	"github.com/dreadnode/tensor-man/header"
)

// FileTypeGGUF labels reports of GGUF model files.
const FileTypeGGUF = "GGUF"

// Metadata arrays beyond this length (tokenizer vocabularies, merge lists)
// are omitted from the report.
const maxMetadataArrayLen = 50

// GGUF inspects a GGUF model file and assembles its report. GGUF carries a
// single flat metadata namespace, so group metadata records are always
// empty.
func GGUF(path string, cfg Config) (*Report, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve path %s", path)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	gf, err := parser.ParseGGUFFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse GGUF file %s", path)
	}

	metadata := make(map[string]string, len(gf.Header.MetadataKV))
	for _, kv := range gf.Header.MetadataKV {
		if value, ok := ggufMetadataValue(kv); ok {
			metadata[kv.Key] = value
		}
	}

	cat := catalog{
		shapes: []header.Shape{},
		dtypes: []string{},
	}
	if cfg.Detailed {
		cat.tensors = []TensorDescriptor{}
	}
	for _, ti := range gf.TensorInfos {
		shape := header.Shape(ti.Dimensions)
		size := ti.Bytes()

		cat.numTensors++
		cat.dataSize += size
		if len(shape) > 0 && !containsShape(cat.shapes, shape) {
			cat.shapes = append(cat.shapes, shape)
		}
		dtypeName := ti.Type.String()
		if !containsString(cat.dtypes, dtypeName) {
			cat.dtypes = append(cat.dtypes, dtypeName)
		}

		if !cfg.Detailed {
			continue
		}
		if cfg.Filter != "" && !strings.Contains(ti.Name, cfg.Filter) {
			continue
		}
		cat.tensors = append(cat.tensors, TensorDescriptor{
			ID:       ti.Name,
			Shape:    shape,
			DType:    dtypeName,
			Size:     size,
			Metadata: map[string]string{},
		})
	}

	fileSize := uint64(fi.Size())
	return &Report{
		FilePath:     absPath,
		FileType:     FileTypeGGUF,
		FileSize:     fileSize,
		Version:      strconv.FormatUint(uint64(gf.Header.Version), 10),
		NumTensors:   cat.numTensors,
		DataSize:     cat.dataSize,
		UniqueShapes: cat.shapes,
		UniqueDTypes: cat.dtypes,
		Metadata:     metadata,
		Tensors:      cat.tensors,
		HeaderSize:   headerSize(fileSize, cat.dataSize),
	}, nil
}

// ggufMetadataValue renders a GGUF header key/value pair as text. The
// second result is false when the value is deliberately omitted.
func ggufMetadataValue(kv parser.GGUFMetadataKV) (string, bool) {
	switch kv.ValueType {
	case parser.GGUFMetadataValueTypeUint8:
		return strconv.FormatUint(uint64(kv.ValueUint8()), 10), true
	case parser.GGUFMetadataValueTypeInt8:
		return strconv.FormatInt(int64(kv.ValueInt8()), 10), true
	case parser.GGUFMetadataValueTypeUint16:
		return strconv.FormatUint(uint64(kv.ValueUint16()), 10), true
	case parser.GGUFMetadataValueTypeInt16:
		return strconv.FormatInt(int64(kv.ValueInt16()), 10), true
	case parser.GGUFMetadataValueTypeUint32:
		return strconv.FormatUint(uint64(kv.ValueUint32()), 10), true
	case parser.GGUFMetadataValueTypeInt32:
		return strconv.FormatInt(int64(kv.ValueInt32()), 10), true
	case parser.GGUFMetadataValueTypeUint64:
		return strconv.FormatUint(kv.ValueUint64(), 10), true
	case parser.GGUFMetadataValueTypeInt64:
		return strconv.FormatInt(kv.ValueInt64(), 10), true
	case parser.GGUFMetadataValueTypeFloat32:
		return fmt.Sprintf("%f", kv.ValueFloat32()), true
	case parser.GGUFMetadataValueTypeFloat64:
		return fmt.Sprintf("%f", kv.ValueFloat64()), true
	case parser.GGUFMetadataValueTypeBool:
		return strconv.FormatBool(kv.ValueBool()), true
	case parser.GGUFMetadataValueTypeString:
		return kv.ValueString(), true
	case parser.GGUFMetadataValueTypeArray:
		arr := kv.ValueArray()
		if arr.Len > maxMetadataArrayLen {
			return "", false
		}
		return ggufArrayString(arr), true
	}
	return fmt.Sprintf("[unknown type %d]", kv.ValueType), true
}

func ggufArrayString(arr parser.GGUFMetadataKVArrayValue) string {
	parts := make([]string, 0, len(arr.Array))
	for _, v := range arr.Array {
		switch t := v.(type) {
		case string:
			parts = append(parts, t)
		case bool:
			parts = append(parts, strconv.FormatBool(t))
		case float32:
			parts = append(parts, fmt.Sprintf("%f", t))
		case float64:
			parts = append(parts, fmt.Sprintf("%f", t))
		case uint8, int8, uint16, int16, uint32, int32, uint64, int64:
			parts = append(parts, fmt.Sprintf("%d", t))
		default:
			// nested arrays are not rendered
		}
	}
	return strings.Join(parts, ", ")
}
