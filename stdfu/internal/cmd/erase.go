// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/embeddedgo/stdfu/stdfu/internal/config"
)

func parseAddrs(args []string) ([]uint32, error) {
	addrs := make([]uint32, len(args))
	for i, a := range args {
		u, err := strconv.ParseUint(a, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("bad address '%s': %w", a, err)
		}
		addrs[i] = uint32(u)
	}
	return addrs, nil
}

func eraseCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "erase [ADDR...]",
		Short: "Erase the flash sectors that contain the given addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs, err := parseAddrs(args)
			if err != nil {
				return err
			}
			if len(addrs) == 0 && !e.cfg.MassErase {
				return fmt.Errorf("nothing to erase, give an address or --%s", config.MassErase)
			}
			conn, closeAll, err := e.open()
			if err != nil {
				return err
			}
			defer closeAll()
			if err = conn.ClearStatus(); err != nil {
				return err
			}
			if e.cfg.MassErase {
				return conn.MassErase()
			}
			for _, a := range addrs {
				if err = conn.Erase(a); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool(config.MassErase, false, "erase the whole flash")
	return cmd
}
