// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dtype defines the closed vocabulary of tensor element types
// recognized by checkpoint inspection.
package dtype

import (
	"fmt"
	"strings"
)

// DType represents a tensor element data type.
type DType uint8

const (
	// Bool represents an 8-bit boolean data type.
	Bool DType = iota + 1
	// Uint8 represents an 8-bit unsigned integer data type.
	Uint8
	// Int8 represents an 8-bit signed integer data type.
	Int8
	// Uint16 represents a 16-bit unsigned integer data type.
	Uint16
	// Int16 represents a 16-bit signed integer data type.
	Int16
	// Float16 represents a 16-bit half-precision floating point data type.
	Float16
	// BFloat16 represents a 16-bit brain floating point data type.
	BFloat16
	// Uint32 represents a 32-bit unsigned integer data type.
	Uint32
	// Int32 represents a 32-bit signed integer data type.
	Int32
	// Float32 represents a 32-bit floating point data type.
	Float32
	// Uint64 represents a 64-bit unsigned integer data type.
	Uint64
	// Int64 represents a 64-bit signed integer data type.
	Int64
	// Float64 represents a 64-bit floating point data type.
	Float64
)

var (
	// dTypeToString holds the canonical names: bare, lowercase, with no
	// framework namespace prefix.
	dTypeToString = [...]string{
		Bool:     "bool",
		Uint8:    "uint8",
		Int8:     "int8",
		Uint16:   "uint16",
		Int16:    "int16",
		Float16:  "float16",
		BFloat16: "bfloat16",
		Uint32:   "uint32",
		Int32:    "int32",
		Float32:  "float32",
		Uint64:   "uint64",
		Int64:    "int64",
		Float64:  "float64",
	}
	dTypeToSize = [...]uint64{
		Bool:     1,
		Uint8:    1,
		Int8:     1,
		Uint16:   2,
		Int16:    2,
		Float16:  2,
		BFloat16: 2,
		Uint32:   4,
		Int32:    4,
		Float32:  4,
		Uint64:   8,
		Int64:    8,
		Float64:  8,
	}
	// wireToDType maps the short uppercase tags used by the container
	// header format.
	wireToDType = map[string]DType{
		"BOOL": Bool,
		"U8":   Uint8,
		"I8":   Int8,
		"U16":  Uint16,
		"I16":  Int16,
		"F16":  Float16,
		"BF16": BFloat16,
		"U32":  Uint32,
		"I32":  Int32,
		"F32":  Float32,
		"U64":  Uint64,
		"I64":  Int64,
		"F64":  Float64,
	}
	stringToDType = map[string]DType{
		"bool":     Bool,
		"uint8":    Uint8,
		"int8":     Int8,
		"uint16":   Uint16,
		"int16":    Int16,
		"float16":  Float16,
		"half":     Float16,
		"bfloat16": BFloat16,
		"uint32":   Uint32,
		"int32":    Int32,
		"float32":  Float32,
		"float":    Float32,
		"uint64":   Uint64,
		"int64":    Int64,
		"long":     Int64,
		"float64":  Float64,
		"double":   Float64,
	}
)

// Validate returns an error if the DType is not valid, otherwise nil.
func (dt DType) Validate() error {
	if dt == 0 || dt > Float64 {
		return fmt.Errorf("invalid DType(%d)", dt)
	}
	return nil
}

// String returns the canonical name of a DType.
func (dt DType) String() string {
	if err := dt.Validate(); err != nil {
		return err.Error()
	}
	return dTypeToString[dt]
}

// Size returns the size in bytes of one element of this data type,
// or 0 if the DType value is invalid.
func (dt DType) Size() uint64 {
	if err := dt.Validate(); err != nil {
		return 0
	}
	return dTypeToSize[dt]
}

// Parse attempts to interpret a string as a DType.
//
// It accepts the short uppercase tags found in container headers ("F32",
// "BF16", ...), the canonical lowercase names ("float32", "bfloat16", ...),
// and canonical names carrying a framework namespace prefix
// ("torch.float32"), which is stripped.
func Parse(s string) (DType, error) {
	if dt, ok := wireToDType[s]; ok {
		return dt, nil
	}
	name := s
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if dt, ok := stringToDType[strings.ToLower(name)]; ok {
		return dt, nil
	}
	return 0, fmt.Errorf("invalid DType string value %q", s)
}

// MarshalText satisfies encoding.TextMarshaler interface.
func (dt DType) MarshalText() ([]byte, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	return []byte(dTypeToString[dt]), nil
}

// UnmarshalText satisfies encoding.TextUnmarshaler interface.
func (dt *DType) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// MarshalJSON satisfies json.Marshaler interface, rendering the
// canonical name as a JSON string.
func (dt DType) MarshalJSON() ([]byte, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	return []byte(`"` + dTypeToString[dt] + `"`), nil
}

// UnmarshalJSON satisfies json.Unmarshaler interface.
func (dt *DType) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("failed to JSON-unmarshal DType from value %q", s)
	}
	return dt.UnmarshalText([]byte(s[1 : len(s)-1]))
}
