/*
Copyright (c) 2019-2021 Andreas T Jonsson

This software is provided 'as-is', without any express or implied
warranty. In no event will the authors be held liable for any damages
arising from the use of this software.

Permission is granted to anyone to use this software for any purpose,
including commercial applications, and to alter it and redistribute it
freely, subject to the following restrictions:

1. The origin of this software must not be misrepresented; you must not
   claim that you wrote the original software. If you use this software
   in a product, an acknowledgment in the product documentation would be
   appreciated but is not required.
2. Altered source versions must be plainly marked as such, and must not be
   misrepresented as being the original software.
3. This notice may not be removed or altered from any source distribution.
*/

package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatBus is 1MB of linear memory behind the segmented interface.
type flatBus struct {
	mem   [0x100000]byte
	ports map[uint16]byte
}

func (b *flatBus) ReadByte(seg, offset uint16) byte {
	return b.mem[NewPointer(seg, offset)]
}

func (b *flatBus) WriteByte(seg, offset uint16, data byte) {
	b.mem[NewPointer(seg, offset)] = data
}

func (b *flatBus) IsExecutableSelector(uint16) bool {
	return true
}

func (b *flatBus) In(port uint16) byte {
	return b.ports[port]
}

func (b *flatBus) Out(port uint16, data byte) {
	b.ports[port] = data
}

func TestAddress(t *testing.T) {
	a := NewAddress(0x1234, 0xFFFF)
	assert.Equal(t, uint16(0x1234), a.Segment())
	assert.Equal(t, uint16(0xFFFF), a.Offset())
	assert.Equal(t, "1234:FFFF", a.String())
	assert.Equal(t, Pointer(0x2233F), a.Pointer())
	assert.Equal(t, NewAddress(0x1234, 1), a.AddInt(2))

	assert.Equal(t, Pointer(0xFFEF), NewPointer(0xFFFF, 0xFFFF), "wraps at 1MB")
	assert.Equal(t, "0x00010", NewPointer(1, 0).String())
}

func TestWordWrapsInSegment(t *testing.T) {
	b := &flatBus{}
	WriteWord(b, 0x1000, 0xFFFF, 0xBEEF)

	assert.Equal(t, byte(0xEF), b.ReadByte(0x1000, 0xFFFF))
	assert.Equal(t, byte(0xBE), b.ReadByte(0x1000, 0))
	assert.Equal(t, byte(0), b.mem[NewPointer(0x1000, 0xFFFF)+1])
	assert.Equal(t, uint16(0xBEEF), ReadWord(b, 0x1000, 0xFFFF))
}

func TestDWordAndAddress(t *testing.T) {
	b := &flatBus{}
	WriteDWord(b, 0, 0x20, 0xF000FF53)

	assert.Equal(t, uint32(0xF000FF53), ReadDWord(b, 0, 0x20))
	assert.Equal(t, NewAddress(0xF000, 0xFF53), ReadAddress(b, 0, 0x20))
}

func TestBytes(t *testing.T) {
	b := &flatBus{}
	WriteBytes(b, 0x2000, 0xFFFE, []byte{1, 2, 3, 4})

	assert.Equal(t, []byte{1, 2, 3, 4}, ReadBytes(b, 0x2000, 0xFFFE, 4))
	assert.Equal(t, byte(3), b.ReadByte(0x2000, 0))
}

func TestStrings(t *testing.T) {
	b := &flatBus{}

	n := WriteString(b, 0x3000, 0x10, "Smörgås €5", 64)
	assert.Equal(t, 10, n)
	assert.Equal(t, byte(0xF6), b.ReadByte(0x3000, 0x12), "ö in Windows-1252")
	assert.Equal(t, byte(0x80), b.ReadByte(0x3000, 0x18), "€ in Windows-1252")
	assert.Equal(t, byte(0), b.ReadByte(0x3000, 0x10+10))
	assert.Equal(t, "Smörgås €5", ReadString(b, 0x3000, 0x10))

	assert.Equal(t, "Smö", ReadStringN(b, 0x3000, 0x10, 4))
	assert.Equal(t, "", ReadString(b, 0, 0), "null pointer")

	assert.Equal(t, 3, WriteString(b, 0x3000, 0x100, "abcdef", 4))
	assert.Equal(t, "abc", ReadString(b, 0x3000, 0x100))
	assert.Equal(t, 0, WriteString(b, 0x3000, 0x100, "abc", 0))
}

func TestStruct(t *testing.T) {
	type header struct {
		Magic  uint16
		Length uint32
		Flags  [2]byte
	}

	b := &flatBus{}
	in := header{Magic: 0x5A4D, Length: 0x12345678, Flags: [2]byte{1, 2}}
	require.NoError(t, WriteStruct(b, 0x4000, 0, &in))
	assert.Equal(t, []byte{0x4D, 0x5A, 0x78, 0x56, 0x34, 0x12, 1, 2}, ReadBytes(b, 0x4000, 0, 8))

	var out header
	require.NoError(t, ReadStruct(b, 0x4000, 0, &out))
	assert.Equal(t, in, out)

	var s []int
	assert.ErrorIs(t, ReadStruct(b, 0x4000, 0, &s), ErrInvalidValue)
}

func TestPortWords(t *testing.T) {
	b := &flatBus{ports: make(map[uint16]byte)}
	OutWord(b, 0x1F0, 0xA55A)

	assert.Equal(t, byte(0x5A), b.ports[0x1F0])
	assert.Equal(t, byte(0xA5), b.ports[0x1F1])
	assert.Equal(t, uint16(0xA55A), InWord(b, 0x1F0))
}

func TestDummyDevices(t *testing.T) {
	assert.Equal(t, byte(0xFF), (&DummyIO{}).In(0x80))
	assert.Equal(t, byte(0xFF), (&DummyMemory{}).ReadByte(0xA0000))
}
