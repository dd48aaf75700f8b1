// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inspect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	testCases := []struct {
		s    string
		want Format
	}{
		{"", FormatUnknown},
		{"safetensors", FormatSafeTensors},
		{"SafeTensors", FormatSafeTensors},
		{"gguf", FormatGGUF},
		{"GGUF", FormatGGUF},
	}
	for _, tc := range testCases {
		f, err := ParseFormat(tc.s)
		require.NoError(t, err, tc.s)
		assert.Equal(t, tc.want, f, tc.s)
	}

	for _, s := range []string{"onnx", "pt", "safetensor"} {
		_, err := ParseFormat(s)
		assert.Error(t, err, s)
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "safetensors", FormatSafeTensors.String())
	assert.Equal(t, "gguf", FormatGGUF.String())
	assert.Equal(t, "unknown", FormatUnknown.String())
}

func writeNamed(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDetect(t *testing.T) {
	t.Run("by extension", func(t *testing.T) {
		testCases := []struct {
			name string
			want Format
		}{
			{"model.safetensors", FormatSafeTensors},
			{"model.ST", FormatSafeTensors},
			{"model.ckpt", FormatSafeTensors},
			{"model.gguf", FormatGGUF},
			{"model.GGUF", FormatGGUF},
		}
		for _, tc := range testCases {
			// Extension matching never touches the file.
			f, err := Detect(filepath.Join(t.TempDir(), tc.name))
			require.NoError(t, err, tc.name)
			assert.Equal(t, tc.want, f, tc.name)
		}
	})

	t.Run("by content", func(t *testing.T) {
		testCases := []struct {
			name string
			data []byte
			want Format
		}{
			{"gguf magic", []byte("GGUF\x03\x00\x00\x00rest"), FormatGGUF},
			{"bare document", []byte(`{"a": [1, 2]}`), FormatSafeTensors},
			{"document after whitespace", []byte("  \n{}"), FormatSafeTensors},
			{"plausible header length", []byte("\x40\x00\x00\x00\x00\x00\x00\x00{}"), FormatSafeTensors},
			{"implausible header length", []byte("\xff\xff\xff\xff\xff\xff\xff\xffxx"), FormatUnknown},
			{"zero header length", []byte("\x00\x00\x00\x00\x00\x00\x00\x00"), FormatUnknown},
			{"too short to sniff", []byte("ab"), FormatUnknown},
			{"empty file", nil, FormatUnknown},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				f, err := Detect(writeNamed(t, "model.bin", tc.data))
				require.NoError(t, err)
				assert.Equal(t, tc.want, f)
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Detect(filepath.Join(t.TempDir(), "absent.bin"))
		assert.Error(t, err)
	})
}

func TestFile(t *testing.T) {
	t.Run("auto-detected archive", func(t *testing.T) {
		path := writeIndexed(t, archiveHeader, 80)

		r, err := File(path, FormatUnknown, Config{})
		require.NoError(t, err)
		assert.Equal(t, FileTypeSafeTensors, r.FileType)
		assert.Equal(t, 2, r.NumTensors)
	})

	t.Run("forced format skips detection", func(t *testing.T) {
		var buf []byte
		buf = append(buf, []byte(`{"a": [1.5]}`)...)
		path := writeNamed(t, "model.weirdext", buf)

		r, err := File(path, FormatSafeTensors, Config{})
		require.NoError(t, err)
		assert.Equal(t, 1, r.NumTensors)
	})

	t.Run("unrecognizable content", func(t *testing.T) {
		path := writeNamed(t, "model.bin", []byte("\xff\xff\xff\xff\xff\xff\xff\xffxx"))
		_, err := File(path, FormatUnknown, Config{})
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := File(filepath.Join(t.TempDir(), "absent.bin"), FormatUnknown, Config{})
		assert.Error(t, err)
	})
}
