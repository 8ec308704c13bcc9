// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embeddedgo/stdfu/stdfu/internal/dfu"
)

func listCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the DFU serial numbers of the attached STM32 bootloaders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bus, err := e.openBus(e.cfg.USB)
			if err != nil {
				return err
			}
			defer bus.Close()
			serials, err := dfu.List(bus, e.log)
			if err != nil {
				return err
			}
			for _, s := range serials {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}
