// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dfu implements the host side of the USB DFU protocol as spoken by
// the STM32 system bootloader (DfuSe). A Conn drives one bootloader through
// the GETSTATUS/CLRSTATUS state machine and exposes the erase, program and
// reset command sequences.
package dfu

import (
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Identity of the STM32 system bootloader in DFU mode.
const (
	VendorST   uint16 = 0x0483
	ProductDFU uint16 = 0xdf11

	serialIndex = 3 // string descriptor index of the DFU serial
)

// Device is an opened USB device that can perform control transfers. It is
// satisfied by *gousb.Device (see package hostusb).
type Device interface {
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
	GetStringDescriptor(descIndex int) (string, error)
	Close() error
}

// Bus opens all attached USB devices with the given identifiers.
type Bus interface {
	OpenDevices(vendor, product uint16) ([]Device, error)
}

var (
	ErrNotFound      = errors.New("device not found")
	ErrTimeout       = errors.New("timeout waiting for the device")
	ErrShortStatus   = errors.New("short GETSTATUS reply")
	ErrBadSerial     = errors.New("bad serial number")
	ErrNoData        = errors.New("no data to program")
	ErrTooManyBlocks = errors.New("too many blocks")
)

type Error struct {
	Op  string
	Err error
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	return "dfu: " + e.Op + ": " + e.Err.Error()
}

func wrapErr(op string, err *error) {
	if *err != nil {
		*err = &Error{op, *err}
	}
}

// DFU requests
const (
	reqDetach    uint8 = 0x00
	reqDnload    uint8 = 0x01
	reqUpload    uint8 = 0x02
	reqGetStatus uint8 = 0x03
	reqClrStatus uint8 = 0x04
	reqGetState  uint8 = 0x05
	reqAbort     uint8 = 0x06
)

// bmRequestType: class request to interface
const (
	rtOut uint8 = 0x21 // host to device
	rtIn  uint8 = 0xa1 // device to host
)

// Conn is a session with one bootloader. It owns the underlying device and
// must not be used from more than one goroutine.
type Conn struct {
	dev         Device
	iid         uint16
	statusBuf   [6]byte
	log         logrus.FieldLogger
	pollTimeout time.Duration
	pollSpeed   uint
	progress    func(done, total int)
}

// NewConn returns a Conn that talks to the already opened dev.
func NewConn(dev Device, opts ...Option) *Conn {
	c := &Conn{
		dev:         dev,
		log:         discardLogger(),
		pollTimeout: DefaultPollTimeout,
		pollSpeed:   1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Conn) Close() (err error) {
	err = c.dev.Close()
	wrapErr("Close", &err)
	return
}

func (c *Conn) dnload(blockNum uint16, p []byte) error {
	c.log.WithFields(logrus.Fields{"block": blockNum, "len": len(p)}).Debug("DNLOAD")
	_, err := c.dev.Control(rtOut, reqDnload, blockNum, c.iid, p)
	return err
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
