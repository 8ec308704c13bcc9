// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dfu

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

func openBootloaders(bus Bus, log logrus.FieldLogger) ([]Device, error) {
	devs, err := bus.OpenDevices(VendorST, ProductDFU)
	if err != nil {
		if len(devs) == 0 {
			return nil, err
		}
		// Some devices could not be opened (permissions, busy). Use the rest.
		log.WithError(err).Debug("open devices")
	}
	return devs, nil
}

// List returns the DFU serial numbers of all STM32 bootloaders attached to the
// bus, in the bus enumeration order. Devices whose serial number cannot be
// read are skipped.
func List(bus Bus, log logrus.FieldLogger) (serials []string, err error) {
	defer wrapErr("List", &err)
	if log == nil {
		log = discardLogger()
	}
	devs, err := openBootloaders(bus, log)
	if err != nil {
		return
	}
	for _, d := range devs {
		s, err := d.GetStringDescriptor(serialIndex)
		if err != nil {
			log.WithError(err).Debug("skipping device: no serial number")
		} else {
			serials = append(serials, s)
		}
		d.Close()
	}
	return
}

// Open opens the STM32 bootloader with the given DFU serial number. The
// comparison is exact. The returned error wraps ErrNotFound if there is no
// such device on the bus.
func Open(bus Bus, serial string, opts ...Option) (conn *Conn, err error) {
	defer wrapErr("Open", &err)
	conn = NewConn(nil, opts...)
	devs, err := openBootloaders(bus, conn.log)
	if err != nil {
		return nil, err
	}
	for _, d := range devs {
		if conn.dev != nil {
			d.Close()
			continue
		}
		s, err := d.GetStringDescriptor(serialIndex)
		if err == nil && s == serial {
			conn.dev = d
			continue
		}
		if err != nil {
			conn.log.WithError(err).Debug("skipping device: no serial number")
		}
		d.Close()
	}
	if conn.dev == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, serial)
	}
	conn.log.WithField("serial", serial).Debug("opened")
	return conn, nil
}
