// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package commands implements the tman CLI commands.
package commands

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	logJSON bool
)

// rootCmd is the root command for tman.
var rootCmd = &cobra.Command{
	Use:   "tman",
	Short: "Inspect serialized model files",
	Long: `tman inspects serialized model files (tensor-checkpoint archives, GGUF)
and prints a structural summary: tensor count, shapes, element types, byte
sizes and header overhead. It never loads the model into a runtime.

Example:
  tman inspect model.safetensors --detailed --filter attention`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// stdout is reserved for reports; all logging goes to stderr.
		logrus.SetOutput(os.Stderr)
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}
		if logJSON {
			logrus.SetFormatter(&logrus.JSONFormatter{})
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	rootCmd.AddCommand(inspectCmd(), versionCmd())
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
