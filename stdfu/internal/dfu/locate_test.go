// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dfu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBus() *fakeBus {
	return &fakeBus{devs: []*fakeDevice{
		{serial: "3662367B3036"},
		{serialErr: errors.New("LIBUSB_ERROR_PIPE")},
		{serial: "0E0C0A120706"},
	}}
}

func TestList(t *testing.T) {
	bus := testBus()
	serials, err := List(bus, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"3662367B3036", "0E0C0A120706"}, serials)
	for i, d := range bus.devs {
		assert.True(t, d.closed, "device %d left open", i)
	}
}

func TestListBusError(t *testing.T) {
	_, err := List(&fakeBus{err: errTransport}, nil)
	assert.ErrorIs(t, err, errTransport)

	bus := testBus()
	bus.err = errors.New("LIBUSB_ERROR_ACCESS")
	serials, err := List(bus, nil)
	require.NoError(t, err)
	assert.Len(t, serials, 2)
}

func TestListEmpty(t *testing.T) {
	serials, err := List(&fakeBus{}, nil)
	require.NoError(t, err)
	assert.Empty(t, serials)
}

func TestOpen(t *testing.T) {
	bus := testBus()
	conn, err := Open(bus, "0E0C0A120706")
	require.NoError(t, err)
	assert.True(t, bus.devs[0].closed)
	assert.True(t, bus.devs[1].closed)
	assert.False(t, bus.devs[2].closed)

	require.NoError(t, conn.ClearStatus())
	assert.NotEmpty(t, bus.devs[2].log)

	require.NoError(t, conn.Close())
	assert.True(t, bus.devs[2].closed)
}

func TestOpenFirstMatch(t *testing.T) {
	bus := &fakeBus{devs: []*fakeDevice{
		{serial: "0E0C0A120706"},
		{serial: "0E0C0A120706"},
	}}
	conn, err := Open(bus, "0E0C0A120706")
	require.NoError(t, err)
	assert.Same(t, bus.devs[0], conn.dev)
	assert.True(t, bus.devs[1].closed)
}

func TestOpenNotFound(t *testing.T) {
	bus := testBus()
	for _, serial := range []string{"0e0c0a120706", "", "000000000000"} {
		_, err := Open(bus, serial)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "dfu: Open: device not found")
	}
	for _, d := range bus.devs {
		assert.True(t, d.closed)
	}
}
