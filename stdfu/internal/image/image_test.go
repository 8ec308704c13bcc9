// Copyright 2025 The Embedded Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package image

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/marcinbor85/gohex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	ss := Sections{
		{0x0800_0010, []byte{5, 6}},
		{0x0800_0000, []byte{1, 2, 3}},
		{0x0800_0008, []byte{4}},
	}
	var buf bytes.Buffer
	n, err := ss.Flatten(&buf, Pad)
	require.NoError(t, err)
	assert.Equal(t, 18, n)
	assert.Equal(t, []byte{
		1, 2, 3, 0xff, 0xff, 0xff, 0xff, 0xff,
		4, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		5, 6,
	}, buf.Bytes())
}

func TestFlattenOverlap(t *testing.T) {
	ss := Sections{
		{0x100, []byte{1, 2, 3, 4}},
		{0x102, []byte{5}},
	}
	_, err := ss.Flatten(new(bytes.Buffer), Pad)
	assert.Error(t, err)
}

func TestFlat(t *testing.T) {
	img, err := Sections{{0x0800_4000, []byte("ABC")}}.Flat()
	require.NoError(t, err)
	assert.Equal(t, &Image{0x0800_4000, []byte("ABC")}, img)

	_, err = Sections{}.Flat()
	assert.Error(t, err)

	_, err = Sections{{0xffff_fffe, []byte("ABC")}}.Flat()
	assert.Error(t, err)
}

func TestLoadHex(t *testing.T) {
	mem := gohex.NewMemory()
	require.NoError(t, mem.AddBinary(0x0800_4000, []byte{1, 2, 3, 4}))
	require.NoError(t, mem.AddBinary(0x0800_4010, []byte{5, 6}))
	name := filepath.Join(t.TempDir(), "app.hex")
	f, err := os.Create(name)
	require.NoError(t, err)
	require.NoError(t, mem.DumpIntelHex(f, 16))
	require.NoError(t, f.Close())

	img, err := Load(name, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0800_4000), img.Addr)
	want := append([]byte{1, 2, 3, 4}, bytes.Repeat([]byte{Pad}, 12)...)
	want = append(want, 5, 6)
	assert.Equal(t, want, img.Data)
}

func TestLoadELF(t *testing.T) {
	// .text at 0x08000000, .data loaded at 0x08000010 and run at 0x20000000.
	img, err := Load(filepath.Join("testdata", "app.elf"), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0800_0000), img.Addr)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	want = append(want, bytes.Repeat([]byte{Pad}, 8)...)
	want = append(want, 0xaa, 0xbb, 0xcc, 0xdd)
	assert.Equal(t, want, img.Data)
}

func TestLoadELFNotLoadable(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "noload.elf"), 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'.data' is not in a loadable segment")
}

func TestLoadBin(t *testing.T) {
	name := filepath.Join(t.TempDir(), "panda.bin")
	require.NoError(t, os.WriteFile(name, []byte("firmware"), 0o644))
	img, err := Load(name, 0x0800_4000, nil)
	require.NoError(t, err)
	assert.Equal(t, &Image{0x0800_4000, []byte("firmware")}, img)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "missing.bin"), 0, nil)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.hex")
	require.NoError(t, os.WriteFile(bad, []byte(":zz\n"), 0o644))
	_, err = Load(bad, 0, nil)
	assert.Error(t, err)

	notElf := filepath.Join(dir, "bad.elf")
	require.NoError(t, os.WriteFile(notElf, []byte("not an elf"), 0o644))
	_, err = Load(notElf, 0, nil)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	img, err := Load(empty, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, img.Data)
}
