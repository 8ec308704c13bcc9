// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embeddedgo/stdfu/stdfu/internal/dfu"
)

func statusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the bootloader status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, closeAll, err := e.open()
			if err != nil {
				return err
			}
			defer closeAll()
			s, err := conn.GetStatus()
			if err != nil {
				return err
			}
			fmt.Fprintf(
				cmd.OutOrStdout(), "status: %d (%s)\nstate:  %d (%s)\npoll:   %v\n",
				s.Status, dfu.StatusString(s.Status),
				s.State, dfu.StateString(s.State),
				s.PollTimeout,
			)
			return nil
		},
	}
}

func clearCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Bring the bootloader back to the idle state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, closeAll, err := e.open()
			if err != nil {
				return err
			}
			defer closeAll()
			return conn.ClearStatus()
		},
	}
}

func resetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Leave the DFU mode and start the application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, closeAll, err := e.open()
			if err != nil {
				return err
			}
			defer closeAll()
			if err = conn.ClearStatus(); err != nil {
				return err
			}
			return conn.Reset()
		},
	}
}
