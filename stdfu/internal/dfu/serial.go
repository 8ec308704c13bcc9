// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dfu

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// DFUSerialFromUID returns the serial number the STM32 bootloader reports in
// the DFU mode for the chip with the given 96-bit unique ID.
func DFUSerialFromUID(uid [12]byte) string {
	var w [6]uint16
	for i := range w {
		w[i] = binary.LittleEndian.Uint16(uid[2*i:])
	}
	var out [6]byte
	binary.BigEndian.PutUint16(out[0:], w[1]+w[5])
	binary.BigEndian.PutUint16(out[2:], w[0]+w[4]+0x000a)
	binary.BigEndian.PutUint16(out[4:], w[3])
	return strings.ToUpper(hex.EncodeToString(out[:]))
}

// DFUSerial converts the serial number reported by the application (the
// unique ID as 24 hex digits) to the one reported by the bootloader.
func DFUSerial(stSerial string) (string, error) {
	var uid [12]byte
	if len(stSerial) != 2*len(uid) {
		return "", fmt.Errorf(
			"%w: %q: want %d hex digits", ErrBadSerial, stSerial, 2*len(uid),
		)
	}
	if _, err := hex.Decode(uid[:], []byte(stSerial)); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrBadSerial, stSerial, err)
	}
	return DFUSerialFromUID(uid), nil
}
