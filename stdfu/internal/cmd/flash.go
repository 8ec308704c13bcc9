// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/embeddedgo/stdfu/stdfu/internal/config"
	"github.com/embeddedgo/stdfu/stdfu/internal/dfu"
	"github.com/embeddedgo/stdfu/stdfu/internal/image"
)

func flashCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flash IMAGE",
		Short: "Write the program to the flash",
		Long: "Write the program to the flash and start it.\n\n" +
			"IMAGE can be an ELF file (.elf), an Intel HEX file (.hex) or a raw binary\n" +
			"(any other extension) that is written at --address. The gaps between the\n" +
			"loadable sections are filled with 0xff. The flash must be erased before.\n" +
			"Use --erase, --erase-auto or --mass-erase to do it in the same step.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.flash(cmd, args[0])
		},
	}
	fs := cmd.Flags()
	fs.Uint32(config.Address, dfu.AppBase, "load address of a raw binary image")
	fs.Int(config.BlockSize, 2048, "DNLOAD block size in bytes")
	fs.StringSlice(config.Erase, nil, "erase the sectors at `ADDR1,ADDR2,...` before programming")
	fs.Bool(config.EraseAuto, false, "erase the STM32F4 sectors covered by the image")
	fs.Bool(config.MassErase, false, "erase the whole flash before programming")
	fs.Bool(config.Reset, true, "start the application after programming")
	return cmd
}

func (e *env) flash(cmd *cobra.Command, name string) error {
	cfg := e.cfg
	img, err := image.Load(name, cfg.Address, e.log)
	if err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{
		"file": name,
		"addr": img.Addr,
		"size": len(img.Data),
	}).Debug("image loaded")

	var bar *pb.ProgressBar
	var opts []dfu.Option
	if !cfg.Quiet {
		bar = pb.New(len(img.Data))
		bar.Set(pb.Bytes, true)
		bar.SetWriter(cmd.ErrOrStderr())
		opts = append(opts, dfu.WithProgress(func(done, total int) {
			bar.SetTotal(int64(total))
			bar.SetCurrent(int64(done))
		}))
	}
	conn, closeAll, err := e.open(opts...)
	if err != nil {
		return err
	}
	defer closeAll()

	if err = conn.ClearStatus(); err != nil {
		return err
	}
	if cfg.MassErase {
		if err = conn.MassErase(); err != nil {
			return err
		}
	}
	sectors := cfg.Erase
	if cfg.EraseAuto {
		sectors = append(sectors, dfu.SectorsF4(img.Addr, len(img.Data))...)
	}
	for _, a := range sectors {
		if err = conn.Erase(a); err != nil {
			return err
		}
	}
	if bar != nil {
		bar.Start()
	}
	err = conn.Program(img.Addr, img.Data, cfg.BlockSize)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}
	if !cfg.Reset {
		return nil
	}
	return conn.Reset()
}
