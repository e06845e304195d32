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

package processor

import (
	"fmt"
	"log"
)

const (
	Carry           Flags = 0x001
	Parity          Flags = 0x004
	Adjust          Flags = 0x010
	Zero            Flags = 0x040
	Sign            Flags = 0x080
	Trap            Flags = 0x100
	InterruptEnable Flags = 0x200
	Direction       Flags = 0x400
	Overflow        Flags = 0x800
)

const (
	AllFlags   = Carry | Parity | Adjust | Zero | Sign | Trap | InterruptEnable | Direction | Overflow
	FixedFlags = Flags(0x2)
)

type Flags uint16

func (f Flags) Has(m Flags) bool {
	return f&m != 0
}

func (f Flags) String() string {
	s := [9]byte{'-', '-', '-', '-', '-', '-', '-', '-', '-'}
	for i, c := range []struct {
		f Flags
		r byte
	}{
		{Carry, 'C'}, {Parity, 'P'}, {Adjust, 'A'}, {Zero, 'Z'}, {Sign, 'S'},
		{Trap, 'T'}, {InterruptEnable, 'I'}, {Direction, 'D'}, {Overflow, 'O'},
	} {
		if f.Has(c.f) {
			s[i] = c.r
		}
	}
	return string(s[:])
}

// Register numbering as encoded in the reg and r/m fields.
const (
	AL = iota
	CL
	DL
	BL
	AH
	CH
	DH
	BH
)

const (
	AX = iota
	CX
	DX
	BX
	SP
	BP
	SI
	DI
)

const (
	ES = iota
	CS
	SS
	DS
)

// Registers is the general purpose and segment register file.
// Flags are owned by the ALU and the code segment is written through the CPU.
type Registers struct {
	AX, CX, DX, BX,
	SP, BP, SI, DI uint16

	// CS is exported for inspection. Host code must load it through (*cpu.CPU).SetCS,
	// which rejects selectors the memory bus reports as non-executable.
	ES, CS, SS, DS uint16

	IP uint16
}

func (r *Registers) Reset() {
	*r = Registers{}
}

func (r *Registers) AL() byte {
	return byte(r.AX & 0xFF)
}

func (r *Registers) AH() byte {
	return byte(r.AX >> 8)
}

func (r *Registers) SetAL(v byte) {
	r.AX = r.AX&0xFF00 | uint16(v)
}

func (r *Registers) SetAH(v byte) {
	r.AX = r.AX&0xFF | uint16(v)<<8
}

func (r *Registers) BL() byte {
	return byte(r.BX & 0xFF)
}

func (r *Registers) BH() byte {
	return byte(r.BX >> 8)
}

func (r *Registers) SetBL(v byte) {
	r.BX = r.BX&0xFF00 | uint16(v)
}

func (r *Registers) SetBH(v byte) {
	r.BX = r.BX&0xFF | uint16(v)<<8
}

func (r *Registers) CL() byte {
	return byte(r.CX & 0xFF)
}

func (r *Registers) CH() byte {
	return byte(r.CX >> 8)
}

func (r *Registers) SetCL(v byte) {
	r.CX = r.CX&0xFF00 | uint16(v)
}

func (r *Registers) SetCH(v byte) {
	r.CX = r.CX&0xFF | uint16(v)<<8
}

func (r *Registers) DL() byte {
	return byte(r.DX & 0xFF)
}

func (r *Registers) DH() byte {
	return byte(r.DX >> 8)
}

func (r *Registers) SetDL(v byte) {
	r.DX = r.DX&0xFF00 | uint16(v)
}

func (r *Registers) SetDH(v byte) {
	r.DX = r.DX&0xFF | uint16(v)<<8
}

func (r *Registers) DXAX() uint32 {
	return uint32(r.DX)<<16 | uint32(r.AX)
}

func (r *Registers) SetDXAX(v uint32) {
	r.DX = uint16(v >> 16)
	r.AX = uint16(v & 0xFFFF)
}

func (r *Registers) reg16(i int) *uint16 {
	switch i & 7 {
	case AX:
		return &r.AX
	case CX:
		return &r.CX
	case DX:
		return &r.DX
	case BX:
		return &r.BX
	case SP:
		return &r.SP
	case BP:
		return &r.BP
	case SI:
		return &r.SI
	default:
		return &r.DI
	}
}

func (r *Registers) Reg8(i int) byte {
	if i&4 != 0 {
		return byte(*r.reg16(i & 3) >> 8)
	}
	return byte(*r.reg16(i & 3))
}

func (r *Registers) SetReg8(i int, v byte) {
	p := r.reg16(i & 3)
	if i&4 != 0 {
		*p = *p&0xFF | uint16(v)<<8
		return
	}
	*p = *p&0xFF00 | uint16(v)
}

func (r *Registers) Reg16(i int) uint16 {
	return *r.reg16(i)
}

func (r *Registers) SetReg16(i int, v uint16) {
	*r.reg16(i) = v
}

// Seg reads a segment register. Indices outside ES..DS are a decoder bug.
func (r *Registers) Seg(i int) uint16 {
	switch i {
	case ES:
		return r.ES
	case CS:
		return r.CS
	case SS:
		return r.SS
	case DS:
		return r.DS
	}
	log.Panic("invalid segment register: ", i)
	return 0
}

func (r *Registers) GetValues() [13]uint16 {
	return [13]uint16{
		r.AX, r.CX, r.DX, r.BX,
		r.SP, r.BP, r.SI, r.DI,
		r.ES, r.CS, r.SS, r.DS,
		r.IP,
	}
}

func (r *Registers) String() string {
	return fmt.Sprintf(
		"AX=%04X BX=%04X CX=%04X DX=%04X SP=%04X BP=%04X SI=%04X DI=%04X\nDS=%04X ES=%04X SS=%04X CS=%04X IP=%04X",
		r.AX, r.BX, r.CX, r.DX, r.SP, r.BP, r.SI, r.DI,
		r.DS, r.ES, r.SS, r.CS, r.IP,
	)
}
