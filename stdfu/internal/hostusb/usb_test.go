// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostusb

import (
	"testing"

	usb "github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embeddedgo/stdfu/stdfu/internal/dfu"
)

func TestParseBusAddr(t *testing.T) {
	tests := []struct {
		in        string
		bus, addr int
	}{
		{"1:5", 1, 5},
		{"003:017", 3, 17},
		{"", -1, -1},
		{"1", -1, -1},
		{"1:2:3", -1, -1},
		{"a:1", -1, -1},
		{"1:256", -1, -1},
		{"-1:2", -1, -1},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			bus, addr := ParseBusAddr(test.in)
			assert.Equal(t, test.bus, bus)
			assert.Equal(t, test.addr, addr)
		})
	}
}

func TestMatch(t *testing.T) {
	desc := &usb.DeviceDesc{Bus: 1, Address: 7, Vendor: 0x0483, Product: 0xdf11}

	b := &Bus{bus: -1, addr: -1}
	assert.True(t, b.match(desc, dfu.VendorST, dfu.ProductDFU))
	assert.False(t, b.match(desc, dfu.VendorST, 0x5740))

	b = &Bus{bus: 1, addr: 7}
	assert.True(t, b.match(desc, dfu.VendorST, dfu.ProductDFU))
	b = &Bus{bus: 1, addr: 8}
	assert.False(t, b.match(desc, dfu.VendorST, dfu.ProductDFU))
}

func TestNewBusBadAddr(t *testing.T) {
	_, err := NewBus("usb1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usb1")
}
