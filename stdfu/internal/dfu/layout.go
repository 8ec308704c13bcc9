// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dfu

// SectorsF4 returns the base addresses of the STM32F4 flash sectors that
// intersect the range [addr, addr+size). The flash starts at AppBase with four
// 16 KiB sectors followed by one 64 KiB sector and 128 KiB sectors up to the
// end of the 4 GiB address space covered by uint32.
func SectorsF4(addr uint32, size int) []uint32 {
	if size <= 0 {
		return nil
	}
	end := uint64(addr) + uint64(size)
	var sectors []uint32
	base := uint64(AppBase)
	for i := 0; base < end && base <= 0xffff_ffff; i++ {
		var ssize uint64
		switch {
		case i < 4:
			ssize = 16 << 10
		case i == 4:
			ssize = 64 << 10
		default:
			ssize = 128 << 10
		}
		if base+ssize > uint64(addr) {
			sectors = append(sectors, uint32(base))
		}
		base += ssize
	}
	return sectors
}
