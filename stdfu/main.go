// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Stdfu programs STM32 microcontrollers through the USB DFU bootloader.
package main

import (
	"github.com/embeddedgo/stdfu/stdfu/internal/cmd"
)

var version = "v0.1.0"

func main() {
	cmd.Execute(cmd.RootCmd(version))
}
