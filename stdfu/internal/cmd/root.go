// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cmd implements the stdfu command tree.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/embeddedgo/stdfu/stdfu/internal/config"
	"github.com/embeddedgo/stdfu/stdfu/internal/dfu"
	"github.com/embeddedgo/stdfu/stdfu/internal/hostusb"
)

// Bus is a dfu.Bus that must be closed after use.
type Bus interface {
	dfu.Bus
	Close() error
}

type env struct {
	cfg     *config.Config
	log     *logrus.Logger
	openBus func(busAddr string) (Bus, error)
}

func openHostBus(busAddr string) (Bus, error) {
	b, err := hostusb.NewBus(busAddr)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// RootCmd returns the stdfu command.
func RootCmd(version string) *cobra.Command {
	return rootCmd(version, openHostBus)
}

func rootCmd(version string, openBus func(string) (Bus, error)) *cobra.Command {
	e := &env{openBus: openBus}
	cmd := &cobra.Command{
		Use:   "stdfu",
		Short: "Program STM32 microcontrollers through the USB DFU bootloader",
		Long: "stdfu talks to the STM32 system bootloader in the DFU mode (USB 0483:df11).\n" +
			"It can list the attached bootloaders, erase and program the flash and\n" +
			"start the freshly programmed application.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load(cmd)
		},
	}
	pf := cmd.PersistentFlags()
	pf.String("config", "", "read the configuration from `FILE` (default ~/.config/stdfu/config.yaml)")
	pf.StringP(config.Serial, "s", "", "select the bootloader by its DFU `SERIAL` number")
	pf.String(config.USB, "", "select the USB device by `BUS:ADDR`")
	pf.Duration(config.PollTimeout, dfu.DefaultPollTimeout, "maximum time to wait for a single command (0 = forever)")
	pf.Uint(config.PollSpeed, 1, "divide the poll interval advised by the device")
	pf.String(config.LogLevel, "info", "log level (debug, info, warn, error)")
	pf.BoolP("verbose", "v", false, "same as --log-level=debug")
	pf.BoolP(config.Quiet, "q", false, "do not print the progress")

	cmd.AddCommand(
		listCmd(e),
		serialCmd(),
		statusCmd(e),
		clearCmd(e),
		eraseCmd(e),
		flashCmd(e),
		resetCmd(e),
	)
	return cmd
}

func (e *env) load(cmd *cobra.Command) error {
	v, err := config.New(cmd.Flags())
	if err != nil {
		return err
	}
	if err = config.ReadFile(v, v.GetString("config")); err != nil {
		return err
	}
	if e.cfg, err = config.Load(v); err != nil {
		return err
	}
	e.log = logrus.New()
	e.log.SetOutput(cmd.ErrOrStderr())
	level, err := logrus.ParseLevel(e.cfg.LogLevel)
	if err != nil {
		return err
	}
	if v.GetBool("verbose") {
		level = logrus.DebugLevel
	}
	e.log.SetLevel(level)
	return nil
}

// open opens the bootloader selected by the configuration. If no serial number
// is configured there must be exactly one bootloader on the bus.
func (e *env) open(opts ...dfu.Option) (conn *dfu.Conn, closeAll func(), err error) {
	bus, err := e.openBus(e.cfg.USB)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			bus.Close()
		}
	}()
	serial := e.cfg.Serial
	if serial == "" {
		var serials []string
		serials, err = dfu.List(bus, e.log)
		if err != nil {
			return
		}
		switch len(serials) {
		case 0:
			err = errors.New("no STM32 bootloader in the DFU mode was found")
			return
		case 1:
			serial = serials[0]
		default:
			err = fmt.Errorf("found %d bootloaders, select one using --serial", len(serials))
			return
		}
	}
	opts = append([]dfu.Option{
		dfu.WithLogger(e.log),
		dfu.WithPollTimeout(e.cfg.PollTimeout),
		dfu.WithPollSpeed(e.cfg.PollSpeed),
	}, opts...)
	conn, err = dfu.Open(bus, serial, opts...)
	if err != nil {
		return
	}
	e.log.WithField("serial", serial).Info("connected")
	closeAll = func() {
		if err := conn.Close(); err != nil {
			e.log.WithError(err).Warn("close")
		}
		bus.Close()
	}
	return
}

// exitErr prints err and terminates the program.
func exitErr(err error) {
	logrus.New().Error(err)
	os.Exit(1)
}

// Execute runs the command and exits with a non-zero status on failure.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		exitErr(err)
	}
}
