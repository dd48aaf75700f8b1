// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/dreadnode/tensor-man/inspect"
)

func inspectCmd() *cobra.Command {
	var (
		detailed   bool
		filter     string
		formatName string
		human      bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print a structural summary of a model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := inspect.ParseFormat(formatName)
			if err != nil {
				return err
			}
			report, err := inspect.File(args[0], format, inspect.Config{
				Detailed: detailed,
				Filter:   filter,
			})
			if err != nil {
				return err
			}
			if human {
				printHuman(cmd.OutOrStdout(), report)
				return nil
			}
			out, err := json.Marshal(report)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&detailed, "detailed", "d", false, "include per-tensor detail records")
	cmd.Flags().StringVar(&filter, "filter", "", "only list tensors whose name contains this substring")
	cmd.Flags().StringVar(&formatName, "format", "", "force the file format (safetensors, gguf)")
	cmd.Flags().BoolVar(&human, "human", false, "print a human-readable summary instead of JSON")
	return cmd
}

func printHuman(w io.Writer, r *inspect.Report) {
	fmt.Fprintf(w, "file path:     %s\n", r.FilePath)
	fmt.Fprintf(w, "file type:     %s\n", r.FileType)
	if r.Version != "" {
		fmt.Fprintf(w, "version:       %s\n", r.Version)
	}
	fmt.Fprintf(w, "file size:     %s (%d)\n", units.HumanSize(float64(r.FileSize)), r.FileSize)
	if r.HeaderSize > 0 {
		fmt.Fprintf(w, "header size:   %s (%d)\n", units.HumanSize(float64(r.HeaderSize)), r.HeaderSize)
	}
	fmt.Fprintf(w, "total tensors: %d\n", r.NumTensors)
	fmt.Fprintf(w, "data size:     %s (%d)\n", units.HumanSize(float64(r.DataSize)), r.DataSize)
	fmt.Fprintf(w, "average size:  %s\n", units.HumanSize(float64(r.AverageTensorSize())))
	fmt.Fprintf(w, "data types:    %s\n", strings.Join(r.UniqueDTypes, ", "))
	fmt.Fprintf(w, "shapes:        %s\n", shapesString(r.UniqueShapes))

	if r.Tensors == nil {
		return
	}
	fmt.Fprintln(w, "tensors:")
	for _, t := range r.Tensors {
		fmt.Fprintf(w, "  %-48s %-10s %-16s %s\n",
			t.ID, t.DType, shapeString(t.Shape), units.HumanSize(float64(t.Size)))
	}
}

func shapesString(shapes []inspect.Shape) string {
	parts := make([]string, len(shapes))
	for i, s := range shapes {
		parts[i] = shapeString(s)
	}
	return strings.Join(parts, ", ")
}

func shapeString(s inspect.Shape) string {
	if len(s) == 0 {
		return "scalar"
	}
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.FormatUint(d, 10)
	}
	return strings.Join(parts, "x")
}
