// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hostusb provides the dfu.Bus backed by libusb (through gousb).
package hostusb

import (
	"errors"
	"strconv"
	"strings"

	"github.com/embeddedgo/stdfu/stdfu/internal/dfu"
	usb "github.com/google/gousb"
)

var _ dfu.Device = (*usb.Device)(nil)

// ParseBusAddr parses the BUS:ADDR string where both BUS and ADDR are decimal
// unsigned integers. It returns -1, -1 if busAddr is malformed.
func ParseBusAddr(busAddr string) (int, int) {
	s := strings.Split(busAddr, ":")
	if len(s) != 2 {
		return -1, -1
	}
	bus, err := strconv.ParseUint(s[0], 10, 8)
	if err != nil {
		return -1, -1
	}
	dev, err := strconv.ParseUint(s[1], 10, 8)
	if err != nil {
		return -1, -1
	}
	return int(bus), int(dev)
}

// Bus gives access to the USB devices attached to the host. If created with a
// non-empty BUS:ADDR only the device at this address is ever opened.
type Bus struct {
	ctx  *usb.Context
	bus  int
	addr int
}

func NewBus(busAddr string) (*Bus, error) {
	bus, addr := ParseBusAddr(busAddr)
	if busAddr != "" && bus < 0 {
		return nil, errors.New("bad USB device address: " + busAddr)
	}
	return &Bus{ctx: usb.NewContext(), bus: bus, addr: addr}, nil
}

// Close releases the libusb context. All devices opened using b must be
// closed before.
func (b *Bus) Close() error {
	return b.ctx.Close()
}

func (b *Bus) match(desc *usb.DeviceDesc, vendor, product uint16) bool {
	if b.bus >= 0 && (desc.Bus != b.bus || desc.Address != b.addr) {
		return false
	}
	return desc.Vendor == usb.ID(vendor) && desc.Product == usb.ID(product)
}

// OpenDevices implements dfu.Bus. As gousb does, it may return some opened
// devices together with an error that prevented opening the others.
func (b *Bus) OpenDevices(vendor, product uint16) ([]dfu.Device, error) {
	devs, err := b.ctx.OpenDevices(func(desc *usb.DeviceDesc) bool {
		return b.match(desc, vendor, product)
	})
	ds := make([]dfu.Device, len(devs))
	for i, d := range devs {
		ds[i] = d
	}
	return ds, err
}
