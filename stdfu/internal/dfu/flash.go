// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dfu

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
)

// DfuSe commands sent in the DNLOAD block 0.
const (
	cmdSetAddress byte = 0x21
	cmdErase      byte = 0x41
)

// AppBase is the address the bootloader jumps to on Reset.
const AppBase uint32 = 0x0800_0000

// First block number that carries data. Block 0 carries commands and block 1
// is reserved.
const firstDataBlock = 2

// command sends a DfuSe command and waits until the bootloader executes it.
func (c *Conn) command(cmd byte, addr uint32, withAddr bool) error {
	buf := make([]byte, 1, 5)
	buf[0] = cmd
	if withAddr {
		buf = binary.LittleEndian.AppendUint32(buf, addr)
	}
	if err := c.dnload(0, buf); err != nil {
		return err
	}
	_, err := c.pollUntilOK()
	return err
}

// SetAddress sets the address pointer used by the subsequent data blocks.
func (c *Conn) SetAddress(addr uint32) (err error) {
	defer wrapErr(fmt.Sprintf("SetAddress %#x", addr), &err)
	return c.command(cmdSetAddress, addr, true)
}

// Erase erases the flash page/sector that contains addr. After a failure the
// bootloader stays in the error state until ClearStatus is called.
func (c *Conn) Erase(addr uint32) (err error) {
	defer wrapErr(fmt.Sprintf("Erase %#x", addr), &err)
	c.log.WithField("addr", fmt.Sprintf("%#x", addr)).Info("erasing")
	return c.command(cmdErase, addr, true)
}

// MassErase erases the whole flash.
func (c *Conn) MassErase() (err error) {
	defer wrapErr("MassErase", &err)
	c.log.Info("mass erasing")
	return c.command(cmdErase, 0, false)
}

// Program writes data to the flash starting at addr. The data is sent in
// blockSize chunks, the last one padded with 0xff. If blockSize <= 0 the whole
// data is sent in one block. The data slice is not modified.
func (c *Conn) Program(addr uint32, data []byte, blockSize int) (err error) {
	defer wrapErr(fmt.Sprintf("Program %#x", addr), &err)
	if len(data) == 0 {
		return ErrNoData
	}
	if blockSize <= 0 {
		blockSize = len(data)
	}
	nblk := (len(data) + blockSize - 1) / blockSize
	if nblk > 0xffff-firstDataBlock+1 {
		return fmt.Errorf("%w: %d blocks of %d bytes", ErrTooManyBlocks, nblk, blockSize)
	}
	if err = c.command(cmdSetAddress, addr, true); err != nil {
		return
	}
	img := make([]byte, nblk*blockSize)
	n := copy(img, data)
	for i := n; i < len(img); i++ {
		img[i] = 0xff
	}
	c.log.WithFields(logrus.Fields{
		"addr":   fmt.Sprintf("%#x", addr),
		"len":    len(data),
		"blocks": nblk,
	}).Info("programming")
	for i := 0; i < nblk; i++ {
		blk := img[i*blockSize : (i+1)*blockSize]
		if err = c.dnload(uint16(firstDataBlock+i), blk); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if _, err = c.pollUntilOK(); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		if c.progress != nil {
			c.progress((i+1)*blockSize, len(img))
		}
	}
	return
}

// Reset makes the bootloader leave the DFU mode and jump to the application
// at AppBase. The device disconnects in the process, so the transfers that
// trigger the jump are allowed to fail.
func (c *Conn) Reset() (err error) {
	defer wrapErr("Reset", &err)
	if err = c.command(cmdSetAddress, AppBase, true); err != nil {
		return
	}
	c.log.Info("jumping to the application")
	if err := c.dnload(firstDataBlock, nil); err != nil {
		c.log.WithError(err).Debug("reset: DNLOAD")
		return nil
	}
	if _, err := c.getStatus(); err != nil {
		c.log.WithError(err).Debug("reset: GETSTATUS")
	}
	return nil
}
