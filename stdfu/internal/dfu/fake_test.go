// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dfu

import (
	"errors"
	"fmt"
)

// transfer records one control transfer seen by fakeDevice.
type transfer struct {
	rType   uint8
	request uint8
	value   uint16
	data    []byte
}

func (t transfer) String() string {
	return fmt.Sprintf("%#02x/%d/%d/% x", t.rType, t.request, t.value, t.data)
}

// fakeDevice is a scripted bootloader. GETSTATUS replies are taken from
// statuses in order; when exhausted, idle is returned.
type fakeDevice struct {
	serial    string
	serialErr error
	statuses  [][6]byte
	idle      [6]byte
	log       []transfer
	closed    bool

	// errAt makes the n-th transfer (1-based) fail with err.
	errAt int
	err   error
}

var errTransport = errors.New("LIBUSB_ERROR_NO_DEVICE")

func status(st, state uint8) [6]byte {
	return [6]byte{st, 0, 0, 0, state, 0}
}

func newFakeDevice(statuses ...[6]byte) *fakeDevice {
	return &fakeDevice{
		statuses: statuses,
		idle:     status(StatusOK, StateDnloadIdle),
	}
}

func (d *fakeDevice) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	t := transfer{rType: rType, request: request, value: val}
	if rType == rtOut && data != nil {
		t.data = append([]byte{}, data...)
	}
	d.log = append(d.log, t)
	if d.errAt == len(d.log) {
		return 0, d.err
	}
	if request != reqGetStatus {
		return len(data), nil
	}
	reply := d.idle
	if len(d.statuses) > 0 {
		reply = d.statuses[0]
		d.statuses = d.statuses[1:]
	}
	return copy(data, reply[:]), nil
}

func (d *fakeDevice) GetStringDescriptor(descIndex int) (string, error) {
	if descIndex != serialIndex {
		return "", fmt.Errorf("unexpected descriptor index %d", descIndex)
	}
	return d.serial, d.serialErr
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

// requests returns the request codes of all recorded transfers.
func (d *fakeDevice) requests() []uint8 {
	rs := make([]uint8, len(d.log))
	for i, t := range d.log {
		rs[i] = t.request
	}
	return rs
}

// dnloads returns the DNLOAD transfers only.
func (d *fakeDevice) dnloads() []transfer {
	var ts []transfer
	for _, t := range d.log {
		if t.request == reqDnload {
			ts = append(ts, t)
		}
	}
	return ts
}

type fakeBus struct {
	devs []*fakeDevice
	err  error
}

func (b *fakeBus) OpenDevices(vendor, product uint16) ([]Device, error) {
	if vendor != VendorST || product != ProductDFU {
		return nil, fmt.Errorf("unexpected %04x:%04x", vendor, product)
	}
	devs := make([]Device, len(b.devs))
	for i, d := range b.devs {
		devs[i] = d
	}
	return devs, b.err
}
