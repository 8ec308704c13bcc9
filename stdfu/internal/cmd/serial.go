// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embeddedgo/stdfu/stdfu/internal/dfu"
)

func serialCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serial ST_SERIAL...",
		Short: "Convert the application serial number to the DFU one",
		Long: "The application exposes the 96-bit unique ID of the chip as a 24 digit\n" +
			"hexadecimal serial number. The bootloader derives a different, 12 digit\n" +
			"serial number from the same ID. This command prints the latter.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, st := range args {
				s, err := dfu.DFUSerial(st)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}
