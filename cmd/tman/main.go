// Copyright 2025 The Tensor-Man Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "github.com/dreadnode/tensor-man/cmd/tman/commands"

func main() {
	commands.Execute()
}
