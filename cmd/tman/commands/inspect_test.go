// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreadnode/tensor-man/inspect"
)

func writeTestArchive(t *testing.T) string {
	t.Helper()
	headerJSON := `{"a.weight":{"dtype":"F32","shape":[4,4],"data_offsets":[0,64]},` +
		`"a.bias":{"dtype":"F32","shape":[4],"data_offsets":[64,80]},` +
		`"__metadata__":{"":{"version":"1.0"},"a":{"note":"x"}}}`

	var buf bytes.Buffer
	var prefix [8]byte
	binary.LittleEndian.PutUint64(prefix[:], uint64(len(headerJSON)))
	buf.Write(prefix[:])
	buf.WriteString(headerJSON)
	buf.Write(make([]byte, 80))

	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func runInspect(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := inspectCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInspectCommand(t *testing.T) {
	path := writeTestArchive(t)

	t.Run("json report", func(t *testing.T) {
		out, err := runInspect(t, path)
		require.NoError(t, err)

		var r inspect.Report
		require.NoError(t, json.Unmarshal([]byte(out), &r))
		assert.Equal(t, "SafeTensors", r.FileType)
		assert.Equal(t, 2, r.NumTensors)
		assert.Equal(t, uint64(80), r.DataSize)
		assert.Nil(t, r.Tensors)
	})

	t.Run("detailed with filter", func(t *testing.T) {
		out, err := runInspect(t, path, "--detailed", "--filter", "bias")
		require.NoError(t, err)

		var r inspect.Report
		require.NoError(t, json.Unmarshal([]byte(out), &r))
		assert.Equal(t, 2, r.NumTensors)
		require.Len(t, r.Tensors, 1)
		assert.Equal(t, "a.bias", r.Tensors[0].ID)
	})

	t.Run("human summary", func(t *testing.T) {
		out, err := runInspect(t, path, "--human", "-d")
		require.NoError(t, err)

		assert.Contains(t, out, "file type:     SafeTensors")
		assert.Contains(t, out, "version:       1.0")
		assert.Contains(t, out, "total tensors: 2")
		assert.Contains(t, out, "a.weight")
		assert.Contains(t, out, "4x4")
	})

	t.Run("forced format", func(t *testing.T) {
		out, err := runInspect(t, path, "--format", "safetensors")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, `{"file_path":`))
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := runInspect(t, path, "--format", "onnx")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := runInspect(t, filepath.Join(t.TempDir(), "absent.safetensors"))
		assert.Error(t, err)
	})
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "scalar", shapeString(inspect.Shape{}))
	assert.Equal(t, "4", shapeString(inspect.Shape{4}))
	assert.Equal(t, "4x4", shapeString(inspect.Shape{4, 4}))
	assert.Equal(t, "4x4, 4", shapesString([]inspect.Shape{{4, 4}, {4}}))
}

func TestVersionCommand(t *testing.T) {
	cmd := versionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "tman version "+Version+"\n", out.String())
}
