// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inspect

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Format identifies a supported model file format.
type Format int

const (
	// FormatUnknown requests auto-detection.
	FormatUnknown Format = iota
	// FormatSafeTensors is the tensor-checkpoint archive format.
	FormatSafeTensors
	// FormatGGUF is the GGUF model file format.
	FormatGGUF
)

// String returns the flag-friendly name of the format.
func (f Format) String() string {
	switch f {
	case FormatSafeTensors:
		return "safetensors"
	case FormatGGUF:
		return "gguf"
	}
	return "unknown"
}

// ParseFormat interprets a format name as given on the command line.
// The empty string requests auto-detection.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "":
		return FormatUnknown, nil
	case "safetensors":
		return FormatSafeTensors, nil
	case "gguf":
		return FormatGGUF, nil
	}
	return FormatUnknown, errors.Errorf("unsupported file format %q", s)
}

// File inspects the model file at the given path, routing it to the
// handler for the forced format, or to the detected one when the format
// is FormatUnknown.
func File(path string, format Format, cfg Config) (*Report, error) {
	if format == FormatUnknown {
		var err error
		if format, err = Detect(path); err != nil {
			return nil, err
		}
	}
	switch format {
	case FormatSafeTensors:
		return SafeTensors(path, cfg)
	case FormatGGUF:
		return GGUF(path, cfg)
	}
	return nil, errors.Errorf("unsupported file format: %s", path)
}

// Detect determines the format of a model file, first by extension, then
// by content sniffing. Files of no recognizable format yield
// FormatUnknown with a nil error; only filesystem failures are reported.
func Detect(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".safetensors", ".st", ".ckpt":
		return FormatSafeTensors, nil
	case ".gguf":
		return FormatGGUF, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	var prefix [8]byte
	n, err := f.Read(prefix[:])
	if n < 4 {
		if err != nil && err != io.EOF {
			return FormatUnknown, err
		}
		return FormatUnknown, nil
	}

	if string(prefix[:4]) == "GGUF" {
		return FormatGGUF, nil
	}
	// A tensor-checkpoint archive starts with either a plausible
	// little-endian header length or a bare JSON document.
	switch prefix[0] {
	case '{', ' ', '\t', '\n', '\r':
		return FormatSafeTensors, nil
	}
	if n == 8 {
		if size := binary.LittleEndian.Uint64(prefix[:]); size > 0 && size <= 100_000_000 {
			return FormatSafeTensors, nil
		}
	}
	return FormatUnknown, nil
}
