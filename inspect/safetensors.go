// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inspect

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dreadnode/tensor-man/checkpoint"
)

// FileTypeSafeTensors labels reports of tensor-checkpoint archives.
const FileTypeSafeTensors = "SafeTensors"

// SafeTensors inspects a tensor-checkpoint archive and assembles its
// report. Tensor data is never materialized when the archive supports
// lazy opening.
func SafeTensors(path string, cfg Config) (*Report, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve path %s", path)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	c, err := checkpoint.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer c.Close()

	entries := c.Entries()
	md := c.Metadata()

	// The metadata projection and the catalog walk are independent reads
	// of the same entry table; run them side by side. Large archives hold
	// thousands of entries.
	var (
		root map[string]string
		cat  catalog
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		root = md.RootRecord()
		return nil
	})
	g.Go(func() error {
		cat = walkEntries(entries, md, cfg)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fileSize := uint64(fi.Size())
	return &Report{
		FilePath:     absPath,
		FileType:     FileTypeSafeTensors,
		FileSize:     fileSize,
		Version:      root["version"],
		NumTensors:   cat.numTensors,
		DataSize:     cat.dataSize,
		UniqueShapes: cat.shapes,
		UniqueDTypes: cat.dtypes,
		Metadata:     root,
		Tensors:      cat.tensors,
		HeaderSize:   headerSize(fileSize, cat.dataSize),
	}, nil
}
