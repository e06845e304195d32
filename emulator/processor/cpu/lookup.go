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

package cpu

import (
	"github.com/andreas-jonsson/i8086-core/emulator/memory"
)

const registerLocation = 1 << 63

// dataLocation is either a register number tagged with registerLocation or a
// segment:offset memory address.
type dataLocation uint64

func (addr dataLocation) isRegister() bool {
	return addr&registerLocation != 0
}

func (addr dataLocation) getAddress() memory.Address {
	return memory.Address(addr & 0xFFFFFFFF)
}

func (addr dataLocation) register() int {
	return int(addr & 7)
}

func (addr dataLocation) readByte(p *CPU) byte {
	if addr.isRegister() {
		return p.Reg8(addr.register())
	}
	a := addr.getAddress()
	return p.readByte(a.Segment(), a.Offset())
}

func (addr dataLocation) writeByte(p *CPU, data byte) {
	if addr.isRegister() {
		p.SetReg8(addr.register(), data)
		return
	}
	a := addr.getAddress()
	p.writeByte(a.Segment(), a.Offset(), data)
}

func (addr dataLocation) readWord(p *CPU) uint16 {
	if addr.isRegister() {
		return p.Reg16(addr.register())
	}
	a := addr.getAddress()
	return p.readWord(a.Segment(), a.Offset())
}

func (addr dataLocation) writeWord(p *CPU, data uint16) {
	if addr.isRegister() {
		p.SetReg16(addr.register(), data)
		return
	}
	a := addr.getAddress()
	p.writeWord(a.Segment(), a.Offset(), data)
}

func registerOperand(i byte) dataLocation {
	return dataLocation(i&7) | registerLocation
}

func (p *CPU) memoryOperand(seg, offset uint16) dataLocation {
	return dataLocation(memory.NewAddress(p.getSeg(seg), offset))
}

// Effective address calculation for mod 0-2. Displacement bytes are consumed from
// the instruction stream before the base registers are read.
func (p *CPU) effectiveAddress(mod, rm byte) dataLocation {
	var disp uint16
	switch mod {
	case 0:
		if rm == 6 {
			// DS:[a16]
			return p.memoryOperand(p.DS, p.readOpcodeImm16())
		}
	case 1:
		disp = uint16(int8(p.readOpcodeStream()))
	case 2:
		disp = p.readOpcodeImm16()
	}

	switch rm {
	case 0: // DS:[BX+SI+disp]
		return p.memoryOperand(p.DS, p.BX+p.SI+disp)
	case 1: // DS:[BX+DI+disp]
		return p.memoryOperand(p.DS, p.BX+p.DI+disp)
	case 2: // SS:[BP+SI+disp]
		return p.memoryOperand(p.SS, p.BP+p.SI+disp)
	case 3: // SS:[BP+DI+disp]
		return p.memoryOperand(p.SS, p.BP+p.DI+disp)
	case 4: // DS:[SI+disp]
		return p.memoryOperand(p.DS, p.SI+disp)
	case 5: // DS:[DI+disp]
		return p.memoryOperand(p.DS, p.DI+disp)
	case 6: // SS:[BP+disp]
		return p.memoryOperand(p.SS, p.BP+disp)
	default: // DS:[BX+disp]
		return p.memoryOperand(p.DS, p.BX+disp)
	}
}

// readModRegRM decodes the addressing byte once per instruction. Later calls
// return without touching the instruction stream.
func (p *CPU) readModRegRM() {
	if p.haveReadModRM {
		return
	}
	p.haveReadModRM = true
	p.modRegRM = p.readOpcodeStream()

	if mod, rm := p.modRegRM>>6, p.modRegRM&7; mod == 3 {
		p.rm = registerOperand(rm)
	} else {
		p.rm = p.effectiveAddress(mod, rm)
	}
}

func (p *CPU) getReg() byte {
	return (p.modRegRM >> 3) & 7
}

func (p *CPU) regLocation() dataLocation {
	p.readModRegRM()
	return registerOperand(p.getReg())
}

func (p *CPU) rmLocation() dataLocation {
	p.readModRegRM()
	return p.rm
}

// rmIsMemory reports if the r/m operand is a memory reference.
func (p *CPU) rmIsMemory() bool {
	p.readModRegRM()
	return !p.rm.isRegister()
}

// parseOperands returns destination and source following the direction bit of the opcode.
func (p *CPU) parseOperands() (dataLocation, dataLocation) {
	reg, rm := p.regLocation(), p.rmLocation()
	if p.opcode&2 != 0 {
		return reg, rm
	}
	return rm, reg
}

func (p *CPU) getSeg(seg uint16) uint16 {
	if p.segOverride != nil {
		return *p.segOverride
	}
	return seg
}
