// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package header

import "encoding/json"

// The Shape of a tensor. It may be empty: an empty shape describes a scalar.
type Shape []uint64

// Equal reports whether two shapes hold the same dimensions in the
// same order.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i, v := range s {
		if v != other[i] {
			return false
		}
	}
	return true
}

// MarshalJSON prevents a nil Shape to be serialized as "null",
// preferring an empty array "[]" instead.
func (s Shape) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]uint64(s))
}
