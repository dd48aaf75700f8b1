// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import (
	"encoding/json"
	"strconv"
)

// Metadata is the archive's metadata namespace.
//
// The root record holds whole-file provenance pairs. Group records are
// keyed by the first dot-delimited segment of tensor names ("layer"
// grouping). All values are text-normalized at decoding time.
type Metadata struct {
	Root   map[string]string
	Groups map[string]map[string]string
}

// RootRecord returns a copy of the root metadata record.
// A missing record yields an empty mapping, never nil.
func (m Metadata) RootRecord() map[string]string {
	out := make(map[string]string, len(m.Root))
	for k, v := range m.Root {
		out[k] = v
	}
	return out
}

// GroupRecord returns a copy of the metadata record of the given group.
// A missing record yields an empty mapping, never nil.
func (m Metadata) GroupRecord(group string) map[string]string {
	rec := m.Groups[group]
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// convertMetadata interprets the value of the metadata namespace key.
//
// Object-valued members are metadata records: the empty-string key holds
// the root record, any other key holds the record of the group by that
// name. Members of any other kind are plain root-record pairs, which keeps
// compatibility with archives carrying flat string metadata only.
func convertMetadata(obj *object) Metadata {
	md := Metadata{
		Root:   make(map[string]string),
		Groups: make(map[string]map[string]string),
	}
	for i, key := range obj.keys {
		switch v := obj.values[i].(type) {
		case *object:
			rec := make(map[string]string, len(v.keys))
			for j, rk := range v.keys {
				rec[rk] = Stringify(v.values[j])
			}
			if key == "" {
				for rk, rv := range rec {
					md.Root[rk] = rv
				}
			} else {
				md.Groups[key] = rec
			}
		default:
			md.Root[key] = Stringify(obj.values[i])
		}
	}
	return md
}

// Stringify renders any decoded metadata value as text.
//
// The rendering is total (it never fails) and stable: the same value always
// produces the same string, so that repeated inspections of one file are
// byte-identical. Strings pass through unchanged; numbers keep their
// original literal form; composite values are rendered as compact JSON with
// object keys in stored order.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			// Unreachable for values produced by the decoder, but
			// Stringify must stay total.
			return ""
		}
		return string(b)
	}
}
