// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package checkpoint

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreadnode/tensor-man/dtype"
	"github.com/dreadnode/tensor-man/header"
)

const twoTensorHeader = `{"a":{"dtype":"F32","shape":[2],"data_offsets":[0,8]},` +
	`"b":{"dtype":"U8","shape":[4],"data_offsets":[8,12]},` +
	`"__metadata__":{"":{"version":"1.0"}}}`

var twoTensorData = []byte{
	1, 2, 3, 4, 5, 6, 7, 8, // a
	9, 10, 11, 12, // b
}

func indexedBytes(headerJSON string, data []byte) []byte {
	var buf bytes.Buffer
	var prefix [8]byte
	binary.LittleEndian.PutUint64(prefix[:], uint64(len(headerJSON)))
	buf.Write(prefix[:])
	buf.WriteString(headerJSON)
	buf.Write(data)
	return buf.Bytes()
}

func writeArchive(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func lookupTensor(t *testing.T, c *Checkpoint, name string) header.TensorInfo {
	t.Helper()
	v, ok := c.Entries().Lookup(name)
	require.True(t, ok, name)
	ti, ok := v.(header.TensorInfo)
	require.True(t, ok, name)
	return ti
}

func TestOpenLazy(t *testing.T) {
	path := writeArchive(t, indexedBytes(twoTensorHeader, twoTensorData))

	c, err := OpenLazy(path)
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.Lazy())
	require.Len(t, c.Entries(), 2)
	assert.Equal(t, "a", c.Entries()[0].Name)
	assert.Equal(t, "b", c.Entries()[1].Name)
	assert.Equal(t, map[string]string{"version": "1.0"}, c.Metadata().RootRecord())

	a := lookupTensor(t, c, "a")
	assert.Equal(t, dtype.Float32, a.DType)
	assert.Equal(t, header.Shape{2}, a.Shape)

	data, err := c.TensorData(a)
	require.NoError(t, err)
	assert.Equal(t, twoTensorData[:8], data)

	data, err = c.TensorData(lookupTensor(t, c, "b"))
	require.NoError(t, err)
	assert.Equal(t, twoTensorData[8:], data)
}

func TestOpenLazy_NotIndexed(t *testing.T) {
	path := writeArchive(t, []byte(`{"a": [[1.0, 2.0], [3.0, 4.0]]}`))

	_, err := OpenLazy(path)
	assert.ErrorIs(t, err, ErrNotIndexed)
}

func TestOpen(t *testing.T) {
	t.Run("indexed archives open lazily", func(t *testing.T) {
		path := writeArchive(t, indexedBytes(twoTensorHeader, twoTensorData))

		c, err := Open(path)
		require.NoError(t, err)
		defer c.Close()
		assert.True(t, c.Lazy())
	})

	t.Run("legacy documents fall back to eager", func(t *testing.T) {
		path := writeArchive(t, []byte(`{"a": [[1.0, 2.0], [3.0, 4.0]], "__metadata__": {"": {"version": "0.9"}}}`))

		c, err := Open(path)
		require.NoError(t, err)
		defer c.Close()

		assert.False(t, c.Lazy())
		require.Len(t, c.Entries(), 1)
		assert.Equal(t, "a", c.Entries()[0].Name)
		assert.Equal(t, map[string]string{"version": "0.9"}, c.Metadata().RootRecord())
	})

	t.Run("corruption does not trigger the fallback", func(t *testing.T) {
		// Plausible-looking length prefix, but the file is too short to
		// hold the header it announces.
		raw := []byte{0xAA, 0, 0, 0, 0, 0, 0, 0, 0xAA, 0xAA}
		path := writeArchive(t, raw)

		_, err := Open(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrFormat)
		assert.NotErrorIs(t, err, ErrNotIndexed)
	})

	t.Run("invalid data offsets are rejected", func(t *testing.T) {
		gapped := `{"a":{"dtype":"U8","shape":[2],"data_offsets":[2,4]}}`
		path := writeArchive(t, indexedBytes(gapped, []byte{1, 2, 3, 4}))

		_, err := Open(path)
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("byte-buffer size mismatch is rejected", func(t *testing.T) {
		short := `{"a":{"dtype":"U8","shape":[4],"data_offsets":[0,4]}}`
		path := writeArchive(t, indexedBytes(short, []byte{1, 2}))

		_, err := Open(path)
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "absent"))
		assert.Error(t, err)
	})
}

func TestOpenEager(t *testing.T) {
	raw := indexedBytes(twoTensorHeader, twoTensorData)
	path := writeArchive(t, raw)

	lazy, err := OpenLazy(path)
	require.NoError(t, err)
	defer lazy.Close()

	eager, err := OpenEager(path)
	require.NoError(t, err)
	defer eager.Close()

	assert.False(t, eager.Lazy())
	assert.Equal(t, lazy.Entries(), eager.Entries())
	assert.Equal(t, lazy.Metadata(), eager.Metadata())

	// Both open modes must serve identical tensor bytes.
	for _, name := range []string{"a", "b"} {
		ti := lookupTensor(t, eager, name)
		want, err := lazy.TensorData(ti)
		require.NoError(t, err)
		got, err := eager.TensorData(ti)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestDeserialize(t *testing.T) {
	t.Run("indexed layout", func(t *testing.T) {
		c, err := Deserialize(indexedBytes(twoTensorHeader, twoTensorData))
		require.NoError(t, err)
		require.Len(t, c.Entries(), 2)

		data, err := c.TensorData(lookupTensor(t, c, "b"))
		require.NoError(t, err)
		assert.Equal(t, twoTensorData[8:], data)
	})

	t.Run("legacy document with inline data has no byte-buffer", func(t *testing.T) {
		c, err := Deserialize([]byte(`{"a": [1, 2]}`))
		require.NoError(t, err)
		require.Len(t, c.Entries(), 1)

		_, err = c.TensorData(header.TensorInfo{})
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Deserialize([]byte("\xAA\xAA\xAA\xAA"))
		assert.ErrorIs(t, err, ErrFormat)
	})

	t.Run("offsets beyond the byte-buffer are rejected", func(t *testing.T) {
		c, err := Deserialize(indexedBytes(twoTensorHeader, twoTensorData))
		require.NoError(t, err)

		_, err = c.TensorData(header.TensorInfo{
			DataOffsets: header.DataOffsets{Begin: 0, End: 1 << 20},
		})
		assert.Error(t, err)

		_, err = c.TensorData(header.TensorInfo{
			DataOffsets: header.DataOffsets{Begin: 4, End: 2},
		})
		assert.Error(t, err)
	})
}

func TestClose(t *testing.T) {
	path := writeArchive(t, indexedBytes(twoTensorHeader, twoTensorData))

	c, err := OpenLazy(path)
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.False(t, c.Lazy())
	assert.NoError(t, c.Close())

	// Eagerly opened archives have nothing to release.
	e, err := OpenEager(path)
	require.NoError(t, err)
	assert.NoError(t, e.Close())
}
