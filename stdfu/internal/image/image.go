// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package image reads the program to be written to the flash. ELF, Intel HEX
// and raw binary files are supported.
package image

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marcinbor85/gohex"
	"github.com/sirupsen/logrus"
)

// Pad is the value of the erased flash, used to fill the gaps between
// sections.
const Pad = 0xff

type Section struct {
	Paddr uint64 // phisical location of the section in the Flash/ROM
	Data  []byte // section data
}

type Sections []*Section

// Image is a flat memory range.
type Image struct {
	Addr uint32
	Data []byte
}

// ReadELF reads the loadable sections of the program and returns them as
// a slice. The order of the returned sections is unspecified.
func ReadELF(name string, log logrus.FieldLogger) (Sections, error) {
	r, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ss := make(Sections, 0, 16)
	for i, s := range f.Sections {
		if s.Type != elf.SHT_PROGBITS || s.Flags&elf.SHF_ALLOC == 0 {
			if k := i + 1; k < len(f.Sections) && len(ss) != 0 && log != nil {
				ns := f.Sections[k]
				if ns.Type == elf.SHT_PROGBITS && ns.Flags&elf.SHF_ALLOC != 0 {
					log.Warnf("readelf: skipping section '%s' (%d bytes)", s.Name, ns.Size)
				}
			}
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		paddr := ^uint64(0)
		for _, p := range f.Progs {
			if p.Type != elf.PT_LOAD {
				continue
			}
			if p.Off <= s.Offset && s.Offset < p.Off+p.Filesz {
				paddr = p.Paddr + s.Offset - p.Off
				break
			}
		}
		if paddr == ^uint64(0) {
			return nil, fmt.Errorf("readelf: section '%s' is not in a loadable segment", s.Name)
		}
		ss = append(ss, &Section{paddr, data})
	}
	return ss, nil
}

// ReadHex reads the Intel HEX file and returns its data segments.
func ReadHex(r io.Reader) (Sections, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, err
	}
	segs := mem.GetDataSegments()
	ss := make(Sections, len(segs))
	for i, seg := range segs {
		ss[i] = &Section{uint64(seg.Address), seg.Data}
	}
	return ss, nil
}

// SortByPaddr sorts sections according to the Paddr field.
func (ss Sections) SortByPaddr() {
	sort.Slice(
		ss,
		func(i, j int) bool {
			return ss[i].Paddr < ss[j].Paddr
		},
	)
}

// Flatten flattens sections by writting their data to the provided io.Writer
// according to the Paddr field (before writting the sections are sorted using
// SortPaddr method). The gaps between sections are filled using the pad byte.
func (ss Sections) Flatten(w io.Writer, pad byte) (n int, err error) {
	if len(ss) == 0 {
		return
	}
	ss.SortByPaddr()
	pa := ss[0].Paddr
	n, err = w.Write(ss[0].Data)
	if err != nil {
		return
	}
	pa += uint64(n)
	var padCache []byte
	for _, s := range ss[1:] {
		if s.Paddr < pa {
			err = errors.New("flatten: overlaping sections")
			return
		}
		m := int(s.Paddr - pa)
		if m != 0 {
			m, err = w.Write(PadBytes(&padCache, m, pad))
			n += m
			if err != nil {
				return
			}
			pa += uint64(m)
		}
		m, err = w.Write(s.Data)
		n += m
		if err != nil {
			return
		}
		pa += uint64(m)
	}
	return
}

// PadBytes returns the slice containing n byte equal b.
func PadBytes(cache *[]byte, n int, b byte) []byte {
	if len(*cache) < n {
		*cache = make([]byte, n)
		for i := range *cache {
			(*cache)[i] = b
		}
	}
	return (*cache)[:n]
}

// Flat returns the sections as one contiguous image.
func (ss Sections) Flat() (*Image, error) {
	if len(ss) == 0 {
		return nil, errors.New("empty image")
	}
	var buf bytes.Buffer
	if _, err := ss.Flatten(&buf, Pad); err != nil {
		return nil, err
	}
	addr := ss[0].Paddr
	if addr+uint64(buf.Len()) > 1<<32 {
		return nil, fmt.Errorf("image at %#x does not fit in 32-bit address space", addr)
	}
	return &Image{uint32(addr), buf.Bytes()}, nil
}

// Load reads the file and returns its content as a flat image. The format is
// determined by the file extension: .elf, .hex/.ihex, anything else is a raw
// binary that will be placed at the addr.
func Load(name string, addr uint32, log logrus.FieldLogger) (*Image, error) {
	var (
		ss  Sections
		err error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".elf":
		ss, err = ReadELF(name, log)
	case ".hex", ".ihex":
		var f *os.File
		if f, err = os.Open(name); err != nil {
			break
		}
		ss, err = ReadHex(f)
		f.Close()
	default:
		var data []byte
		if data, err = os.ReadFile(name); err != nil {
			break
		}
		ss = Sections{{uint64(addr), data}}
	}
	if err != nil {
		return nil, err
	}
	img, err := ss.Flat()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return img, nil
}
