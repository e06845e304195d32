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
	"bytes"
	"encoding/binary"
	"errors"

	"golang.org/x/text/encoding/charmap"
)

var ErrInvalidValue = errors.New("value has no fixed size")

func ReadWord(b Bus, seg, offset uint16) uint16 {
	return uint16(b.ReadByte(seg, offset)) | uint16(b.ReadByte(seg, offset+1))<<8
}

func WriteWord(b Bus, seg, offset, data uint16) {
	b.WriteByte(seg, offset, byte(data&0xFF))
	b.WriteByte(seg, offset+1, byte(data>>8))
}

func ReadDWord(b Bus, seg, offset uint16) uint32 {
	return uint32(ReadWord(b, seg, offset)) | uint32(ReadWord(b, seg, offset+2))<<16
}

func WriteDWord(b Bus, seg, offset uint16, data uint32) {
	WriteWord(b, seg, offset, uint16(data))
	WriteWord(b, seg, offset+2, uint16(data>>16))
}

// ReadAddress reads a far pointer stored as offset followed by segment.
func ReadAddress(b Bus, seg, offset uint16) Address {
	return NewAddress(ReadWord(b, seg, offset+2), ReadWord(b, seg, offset))
}

func ReadBytes(b Bus, seg, offset uint16, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b.ReadByte(seg, offset)
		offset++
	}
	return buf
}

func WriteBytes(b Bus, seg, offset uint16, data []byte) {
	for _, v := range data {
		b.WriteByte(seg, offset, v)
		offset++
	}
}

// ReadString reads a zero terminated Windows-1252 string. A null far pointer yields an empty string.
func ReadString(b Bus, seg, offset uint16) string {
	return ReadStringN(b, seg, offset, 0x10000)
}

// ReadStringN is like ReadString but reads at most size-1 characters.
func ReadStringN(b Bus, seg, offset uint16, size int) string {
	if seg == 0 && offset == 0 {
		return ""
	}

	var raw []byte
	for len(raw) < size-1 {
		c := b.ReadByte(seg, offset)
		if c == 0 {
			break
		}
		raw = append(raw, c)
		offset++
	}

	s, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}

// WriteString writes at most size-1 encoded characters followed by a terminator.
// It returns the number of characters written.
func WriteString(b Bus, seg, offset uint16, s string, size int) int {
	raw, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		raw = []byte(s)
	}
	if size <= 0 {
		return 0
	}
	if len(raw) > size-1 {
		raw = raw[:size-1]
	}
	WriteBytes(b, seg, offset, raw)
	b.WriteByte(seg, offset+uint16(len(raw)), 0)
	return len(raw)
}

// ReadStruct decodes a little-endian fixed size value from guest memory.
func ReadStruct(b Bus, seg, offset uint16, v interface{}) error {
	size := binary.Size(v)
	if size < 0 {
		return ErrInvalidValue
	}
	return binary.Read(bytes.NewReader(ReadBytes(b, seg, offset, size)), binary.LittleEndian, v)
}

// WriteStruct encodes a little-endian fixed size value into guest memory.
func WriteStruct(b Bus, seg, offset uint16, v interface{}) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return err
	}
	WriteBytes(b, seg, offset, buf.Bytes())
	return nil
}

func InWord(p PortBus, port uint16) uint16 {
	return uint16(p.In(port)) | uint16(p.In(port+1))<<8
}

func OutWord(p PortBus, port, data uint16) {
	p.Out(port, byte(data&0xFF))
	p.Out(port+1, byte(data>>8))
}
