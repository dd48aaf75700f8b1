// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/dreadnode/tensor-man/dtype"
)

const metadataKey = "__metadata__"

// Read reads and parses from "r" the initial part of an archive in the
// indexed container layout: an 8-byte little-endian header length followed
// by the JSON header document.
//
// Note that after successfully reading and parsing, NO validation is
// performed on the obtained Header.
//
// This function will fail to read header data larger than math.MaxInt.
// The caller is responsible for guarding against reading data up to a lower
// limit, for example for protection against bad/corrupted data or specific
// attacks. This can be done by providing a reader implementation with a
// limiting mechanism in place. For example, see io.LimitedReader.
func Read(r io.Reader) (Header, error) {
	size, err := readHeaderSize(r)
	switch {
	case err != nil:
		return Header{}, err
	case size < 2: // a bare minimum header is "{}"
		return Header{}, fmt.Errorf("header size too small: %d", size)
	case size > math.MaxInt-8: // 8 bytes are the uint64 "size", already read
		return Header{}, fmt.Errorf("header size too large: %d", size)
	}

	dec := json.NewDecoder(&io.LimitedReader{R: r, N: int64(size)})
	dec.UseNumber()

	root, err := decodeDocument(dec)
	if err != nil {
		return Header{}, fmt.Errorf("failed to JSON-decode header: %w", err)
	}
	// take care of possible padding spaces after the JSON object
	if off := dec.InputOffset(); off != int64(size) {
		if _, err = dec.Token(); err == nil {
			return Header{}, fmt.Errorf("unexpected data at byte offset %d", off)
		} else if err != io.EOF {
			return Header{}, fmt.Errorf("failed to JSON-decode header: %w", err)
		}
	}

	h := convertDocument(root)
	h.ByteBufferOffset = 8 + int(size) // take into account "size" uint64 bytes
	return h, nil
}

// ReadDocument parses a whole archive in the legacy layout: a bare JSON
// document with no byte-buffer, produced before the indexed container
// layout existed. Tensor data, if any, is stored inline within the
// document itself.
func ReadDocument(data []byte) (Header, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := decodeDocument(dec)
	if err != nil {
		return Header{}, fmt.Errorf("failed to JSON-decode document: %w", err)
	}
	if _, err = dec.Token(); err == nil {
		return Header{}, fmt.Errorf("unexpected data after JSON document")
	} else if err != io.EOF {
		return Header{}, fmt.Errorf("failed to JSON-decode document: %w", err)
	}
	return convertDocument(root), nil
}

func readHeaderSize(r io.Reader) (uint64, error) {
	var arr [8]byte
	b := arr[:]
	if _, err := io.ReadFull(r, b); err != nil {
		return 0, fmt.Errorf("failed to read header size: %w", err)
	}
	return binary.LittleEndian.Uint64(b), nil
}

// object is a decoded JSON object with its keys in stored order.
type object struct {
	keys   []string
	values []any
}

func (o *object) get(key string) (any, bool) {
	for i, k := range o.keys {
		if k == key {
			return o.values[i], true
		}
	}
	return nil, false
}

// MarshalJSON renders the object as compact JSON, preserving the stored
// key order. Stringify depends on this for stable output.
func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeDocument(dec *json.Decoder) (*object, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, found %v", tok)
	}
	return decodeObject(dec)
}

// decodeObject decodes the members of a JSON object, the opening brace
// having already been consumed.
func decodeObject(dec *json.Decoder) (*object, error) {
	obj := &object{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected JSON object key, found %v", keyTok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		obj.keys = append(obj.keys, key)
		obj.values = append(obj.values, value)
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return nil, err
	}
	return obj, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil // string, json.Number, bool or nil
	}
	switch d {
	case '{':
		return decodeObject(dec)
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil { // consume ']'
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected JSON delimiter %v", d)
}

// convertDocument projects a decoded document onto the entry table and the
// metadata namespace. Values that do not describe a stored tensor are kept
// as Table or Raw entries rather than rejected: archives in the wild carry
// heterogeneous entries, and deciding what to do with them is up to the
// caller.
func convertDocument(root *object) Header {
	var h Header
	for i, key := range root.keys {
		if key == metadataKey {
			if obj, ok := root.values[i].(*object); ok {
				h.Metadata = convertMetadata(obj)
			}
			continue
		}
		h.Entries = append(h.Entries, Entry{
			Name:  key,
			Value: convertValue(root.values[i]),
		})
	}
	return h
}

func convertValue(value any) Value {
	obj, ok := value.(*object)
	if !ok {
		return Raw{Value: value}
	}
	if ti, ok := tensorInfoFromObject(obj); ok {
		return ti
	}
	table := Table{Entries: make(Entries, 0, len(obj.keys))}
	for i, key := range obj.keys {
		table.Entries = append(table.Entries, Entry{
			Name:  key,
			Value: convertValue(obj.values[i]),
		})
	}
	return table
}

// tensorInfoFromObject reports whether the object is a well-formed tensor
// descriptor: exactly the three keys "dtype", "shape" and "data_offsets",
// each holding a valid value.
func tensorInfoFromObject(obj *object) (TensorInfo, bool) {
	if len(obj.keys) != 3 {
		return TensorInfo{}, false
	}

	rawDType, ok := obj.get("dtype")
	if !ok {
		return TensorInfo{}, false
	}
	strDType, ok := rawDType.(string)
	if !ok {
		return TensorInfo{}, false
	}
	dt, err := dtype.Parse(strDType)
	if err != nil {
		return TensorInfo{}, false
	}

	shape, ok := uintSliceFromValue(obj, "shape")
	if !ok {
		return TensorInfo{}, false
	}

	offsets, ok := uintSliceFromValue(obj, "data_offsets")
	if !ok || len(offsets) != 2 {
		return TensorInfo{}, false
	}

	return TensorInfo{
		DType:       dt,
		Shape:       shape,
		DataOffsets: DataOffsets{Begin: offsets[0], End: offsets[1]},
	}, true
}

func uintSliceFromValue(obj *object, key string) ([]uint64, bool) {
	raw, ok := obj.get(key)
	if !ok {
		return nil, false
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]uint64, len(arr))
	for i, item := range arr {
		jn, ok := item.(json.Number)
		if !ok {
			return nil, false
		}
		n, err := strconv.ParseUint(jn.String(), 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}
