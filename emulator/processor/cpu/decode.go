/*
Copyright (C) 2019-2020 Andreas T Jonsson

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <http://www.gnu.org/licenses/>.
*/

package cpu

import (
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
	"github.com/andreas-jonsson/i8086-core/emulator/processor/alu"
	"github.com/andreas-jonsson/i8086-core/emulator/processor/validator"
)

type instructionState struct {
	opcode, modRegRM byte
	haveReadModRM    bool
	rm               dataLocation

	repeat, repeatNE bool
	segOverride      *uint16

	ipInstruction uint16
	didReturn, m1 bool

	// Set by STI, MOV SS and POP SS to hold interrupts for one more instruction.
	interruptShadow bool
}

func (p *CPU) peakOpcodeStream() byte {
	return p.readByte(p.CS, p.IP)
}

func (p *CPU) readOpcodeStream() byte {
	v := p.peakOpcodeStream()
	p.IP++
	return v
}

func (p *CPU) readOpcodeImm16() uint16 {
	v := p.readWord(p.CS, p.IP)
	p.IP += 2
	return v
}

// decode consumes prefixes and runs one instruction.
func (p *CPU) decode() (err error) {
	defer catch(&err)

	p.didReturn = false
	p.interruptShadow = false
	p.ipInstruction = p.IP

	p.repeat, p.repeatNE = false, false
	p.segOverride = nil
	p.haveReadModRM = false

	var op byte
loop:
	for {
		p.m1 = true
		op = p.readOpcodeStream()
		p.m1 = false

		switch op {
		case 0x26: // ES:
			p.segOverride = &p.ES
		case 0x2E: // CS:
			p.segOverride = &p.CS
		case 0x36: // SS:
			p.segOverride = &p.SS
		case 0x3E: // DS:
			p.segOverride = &p.DS
		case 0xF0: // LOCK
		case 0xF2: // REPNE/REPNZ
			p.repeat, p.repeatNE = true, true
		case 0xF3: // REP/REPE/REPZ
			p.repeat, p.repeatNE = true, false
		default:
			break loop
		}
	}

	p.opcode = op

	validator.Begin(op, p.Registers, uint16(p.GetFlags()))
	if err = p.execute(op); err != nil {
		validator.Discard()
		return err
	}
	validator.End(p.Registers, uint16(p.GetFlags()))
	return nil
}

func (p *CPU) execute(op byte) error {
	switch op {
	case 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, // ADD
		0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, // OR
		0x10, 0x11, 0x12, 0x13, 0x14, 0x15, // ADC
		0x18, 0x19, 0x1A, 0x1B, 0x1C, 0x1D, // SBB
		0x20, 0x21, 0x22, 0x23, 0x24, 0x25, // AND
		0x28, 0x29, 0x2A, 0x2B, 0x2C, 0x2D, // SUB
		0x30, 0x31, 0x32, 0x33, 0x34, 0x35, // XOR
		0x38, 0x39, 0x3A, 0x3B, 0x3C, 0x3D: // CMP
		p.arithmetic(op)
	case 0x06: // PUSH ES
		p.push16(p.ES)
	case 0x07: // POP ES
		p.ES = p.pop16()
	case 0x0E: // PUSH CS
		p.push16(p.CS)
	case 0x16: // PUSH SS
		p.push16(p.SS)
	case 0x17: // POP SS
		p.SS = p.pop16()
		p.interruptShadow = true
	case 0x1E: // PUSH DS
		p.push16(p.DS)
	case 0x1F: // POP DS
		p.DS = p.pop16()
	case 0x27: // DAA
		p.SetAL(p.Daa(p.AL()))
	case 0x2F: // DAS
		p.SetAL(p.Das(p.AL()))
	case 0x37: // AAA
		p.AX = p.Aaa(p.AX)
	case 0x3F: // AAS
		p.AX = p.Aas(p.AX)

	// 0x4x

	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47: // INC AX/CX/DX/BX/SP/BP/SI/DI
		reg := int(op - 0x40)
		p.SetReg16(reg, p.Inc16(p.Reg16(reg)))
	case 0x48, 0x49, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F: // DEC AX/CX/DX/BX/SP/BP/SI/DI
		reg := int(op - 0x48)
		p.SetReg16(reg, p.Dec16(p.Reg16(reg)))

	// 0x5x

	case 0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57: // PUSH AX/CX/DX/BX/SP/BP/SI/DI
		p.push16(p.Reg16(int(op - 0x50)))
	case 0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F: // POP AX/CX/DX/BX/SP/BP/SI/DI
		p.SetReg16(int(op-0x58), p.pop16())

	// 0x6x

	case 0x60: // PUSHA
		sp := p.SP
		for i, v := range [8]uint16{p.AX, p.CX, p.DX, p.BX, sp, p.BP, p.SI, p.DI} {
			p.writeWord(p.SS, sp-uint16(i+1)*2, v)
		}
		p.SP = sp - 16
	case 0x61: // POPA
		sp := p.SP + 16
		p.DI = p.readWord(p.SS, sp-16)
		p.SI = p.readWord(p.SS, sp-14)
		p.BP = p.readWord(p.SS, sp-12)
		p.BX = p.readWord(p.SS, sp-8)
		p.DX = p.readWord(p.SS, sp-6)
		p.CX = p.readWord(p.SS, sp-4)
		p.AX = p.readWord(p.SS, sp-2)
		p.SP = sp
	case 0x62: // BOUND r16,m16&16
		if !p.rmIsMemory() {
			return processor.InvalidOpcodeFault()
		}
		addr := p.rm.getAddress()
		lower := int16(p.readWord(addr.Segment(), addr.Offset()))
		upper := int16(p.readWord(addr.Segment(), addr.Offset()+2))
		if idx := int16(p.regLocation().readWord(p)); idx < lower || idx > upper {
			p.IP = p.ipInstruction
			return p.softwareInterrupt(processor.VectorBound)
		}
	case 0x68: // PUSH d16
		p.push16(p.readOpcodeImm16())
	case 0x69: // IMUL r16,r/m16,d16
		a := p.rmLocation().readWord(p)
		p.regLocation().writeWord(p, uint16(p.IMul16(a, p.readOpcodeImm16())))
	case 0x6A: // PUSH d8
		p.push16(alu.Cbw(p.readOpcodeStream()))
	case 0x6B: // IMUL r16,r/m16,d8
		a := p.rmLocation().readWord(p)
		p.regLocation().writeWord(p, uint16(p.IMul16(a, alu.Cbw(p.readOpcodeStream()))))
	case 0x6C: // INSB
		p.insb()
	case 0x6D: // INSW
		p.insw()
	case 0x6E: // OUTSB
		p.outsb()
	case 0x6F: // OUTSW
		p.outsw()

	// 0x7x

	case 0x70: // JO rel8
		p.jmpRel8Cond(p.OF())
	case 0x71: // JNO rel8
		p.jmpRel8Cond(!p.OF())
	case 0x72: // JB/JNAE rel8
		p.jmpRel8Cond(p.CF())
	case 0x73: // JNB/JAE rel8
		p.jmpRel8Cond(!p.CF())
	case 0x74: // JE/JZ rel8
		p.jmpRel8Cond(p.ZF())
	case 0x75: // JNE/JNZ rel8
		p.jmpRel8Cond(!p.ZF())
	case 0x76: // JBE/JNA rel8
		p.jmpRel8Cond(p.CF() || p.ZF())
	case 0x77: // JNBE/JA rel8
		p.jmpRel8Cond(!p.CF() && !p.ZF())
	case 0x78: // JS rel8
		p.jmpRel8Cond(p.SF())
	case 0x79: // JNS rel8
		p.jmpRel8Cond(!p.SF())
	case 0x7A: // JP/JPE rel8
		p.jmpRel8Cond(p.PF())
	case 0x7B: // JNP/JPO rel8
		p.jmpRel8Cond(!p.PF())
	case 0x7C: // JL/JNGE rel8
		p.jmpRel8Cond(p.SF() != p.OF())
	case 0x7D: // JNL/JGE rel8
		p.jmpRel8Cond(p.SF() == p.OF())
	case 0x7E: // JLE/JNG rel8
		p.jmpRel8Cond(p.ZF() || p.SF() != p.OF())
	case 0x7F: // JNLE/JG rel8
		p.jmpRel8Cond(!p.ZF() && p.SF() == p.OF())

	// 0x8x

	case 0x80, 0x82: // _ALU1 r/m8,d8
		p.grp1()
	case 0x81, 0x83: // _ALU1 r/m16,d16
		p.grp1w()
	case 0x84: // TEST r/m8,r8
		p.And8(p.rmLocation().readByte(p), p.regLocation().readByte(p))
	case 0x85: // TEST r/m16,r16
		p.And16(p.rmLocation().readWord(p), p.regLocation().readWord(p))
	case 0x86: // XCHG r8,r/m8
		dst, src := p.regLocation(), p.rmLocation()
		d, s := dst.readByte(p), src.readByte(p)
		dst.writeByte(p, s)
		src.writeByte(p, d)
	case 0x87: // XCHG r16,r/m16
		dst, src := p.regLocation(), p.rmLocation()
		d, s := dst.readWord(p), src.readWord(p)
		dst.writeWord(p, s)
		src.writeWord(p, d)
	case 0x88, 0x8A: // MOV r/m8,r8
		dest, src := p.parseOperands()
		dest.writeByte(p, src.readByte(p))
	case 0x89, 0x8B: // MOV r/m16,r16
		dest, src := p.parseOperands()
		dest.writeWord(p, src.readWord(p))
	case 0x8C: // MOV r/m16,sr
		p.readModRegRM()
		p.rmLocation().writeWord(p, p.Seg(int(p.getReg()&3)))
	case 0x8D: // LEA r16,m
		if !p.rmIsMemory() {
			return processor.InvalidOpcodeFault()
		}
		p.regLocation().writeWord(p, p.rm.getAddress().Offset())
	case 0x8E: // MOV sr,r/m16
		v := p.rmLocation().readWord(p)
		if p.getReg()&3 == processor.SS {
			p.interruptShadow = true
		}
		return p.setSeg(p.getReg(), v)
	case 0x8F: // POP r/m16
		v := p.readWord(p.SS, p.SP)
		p.rmLocation().writeWord(p, v)
		p.SP += 2

	// 0x9x

	case 0x90: // NOP
	case 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97: // XCHG AX,CX/DX/BX/SP/BP/SI/DI
		reg := int(op - 0x90)
		v := p.Reg16(reg)
		p.SetReg16(reg, p.AX)
		p.AX = v
	case 0x98: // CBW
		p.AX = alu.Cbw(p.AL())
	case 0x99: // CWD
		p.SetDXAX(alu.Cwd(p.AX))
	case 0x9A: // CALL seg:a16
		ip := p.readOpcodeImm16()
		cs := p.readOpcodeImm16()
		return p.callFar(cs, ip)
	case 0x9B: // WAIT
	case 0x9C: // PUSHF
		p.push16(uint16(p.GetFlags()))
	case 0x9D: // POPF
		p.SetFlags(processor.Flags(p.pop16()))
	case 0x9E: // SAHF
		p.SetFlags8(p.AH())
	case 0x9F: // LAHF
		p.SetAH(p.Flags8())

	// 0xAx

	case 0xA0: // MOV AL,[addr]
		offset := p.readOpcodeImm16()
		p.SetAL(p.readByte(p.getSeg(p.DS), offset))
	case 0xA1: // MOV AX,[addr]
		offset := p.readOpcodeImm16()
		p.AX = p.readWord(p.getSeg(p.DS), offset)
	case 0xA2: // MOV [addr],AL
		p.writeByte(p.getSeg(p.DS), p.readOpcodeImm16(), p.AL())
	case 0xA3: // MOV [addr],AX
		p.writeWord(p.getSeg(p.DS), p.readOpcodeImm16(), p.AX)
	case 0xA4: // MOVSB
		p.movsb()
	case 0xA5: // MOVSW
		p.movsw()
	case 0xA6: // CMPSB
		p.cmpsb()
	case 0xA7: // CMPSW
		p.cmpsw()
	case 0xA8: // TEST AL,d8
		p.And8(p.AL(), p.readOpcodeStream())
	case 0xA9: // TEST AX,d16
		p.And16(p.AX, p.readOpcodeImm16())
	case 0xAA: // STOSB
		p.stosb()
	case 0xAB: // STOSW
		p.stosw()
	case 0xAC: // LODSB
		p.lodsb()
	case 0xAD: // LODSW
		p.lodsw()
	case 0xAE: // SCASB
		p.scasb()
	case 0xAF: // SCASW
		p.scasw()

	// 0xBx

	case 0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7: // MOV AL/CL/DL/BL/AH/CH/DH/BH,d8
		p.SetReg8(int(op-0xB0), p.readOpcodeStream())
	case 0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBE, 0xBF: // MOV AX/CX/DX/BX/SP/BP/SI/DI,d16
		p.SetReg16(int(op-0xB8), p.readOpcodeImm16())

	// 0xCx

	case 0xC0: // _ROT r/m8,d8
		dest := p.rmLocation()
		v := dest.readByte(p)
		return p.shiftOrRotate8(dest, v, p.readOpcodeStream())
	case 0xC1: // _ROT r/m16,d8
		dest := p.rmLocation()
		v := dest.readWord(p)
		return p.shiftOrRotate16(dest, v, p.readOpcodeStream())
	case 0xC2: // RET d16
		n := p.readOpcodeImm16()
		p.IP = p.pop16()
		p.SP += n
		p.didReturn = true
	case 0xC3: // RET
		p.IP = p.pop16()
		p.didReturn = true
	case 0xC4: // LES r16,m32
		return p.loadFarPointer(&p.ES)
	case 0xC5: // LDS r16,m32
		return p.loadFarPointer(&p.DS)
	case 0xC6: // MOV r/m8,d8
		dest := p.rmLocation()
		dest.writeByte(p, p.readOpcodeStream())
	case 0xC7: // MOV r/m16,d16
		dest := p.rmLocation()
		dest.writeWord(p, p.readOpcodeImm16())
	case 0xC8: // ENTER d16,d8
		p.enter(p.readOpcodeImm16(), p.readOpcodeStream()%32)
	case 0xC9: // LEAVE
		p.SP = p.BP
		p.BP = p.pop16()
	case 0xCA: // RETF d16
		n := p.readOpcodeImm16()
		p.didReturn = true
		return p.retFar(4 + n)
	case 0xCB: // RETF
		p.didReturn = true
		return p.retFar(4)
	case 0xCC: // INT 3
		return p.softwareInterrupt(3)
	case 0xCD: // INT d8
		return p.softwareInterrupt(p.readOpcodeStream())
	case 0xCE: // INTO
		if p.OF() {
			return p.softwareInterrupt(4)
		}
	case 0xCF: // IRET
		flags := p.readWord(p.SS, p.SP+4)
		p.didReturn = true
		if err := p.retFar(6); err != nil {
			return err
		}
		p.SetFlags(processor.Flags(flags))

	// 0xDx

	case 0xD0: // _ROT r/m8,1
		dest := p.rmLocation()
		return p.shiftOrRotate8(dest, dest.readByte(p), 1)
	case 0xD1: // _ROT r/m16,1
		dest := p.rmLocation()
		return p.shiftOrRotate16(dest, dest.readWord(p), 1)
	case 0xD2: // _ROT r/m8,CL
		dest := p.rmLocation()
		return p.shiftOrRotate8(dest, dest.readByte(p), p.CL())
	case 0xD3: // _ROT r/m16,CL
		dest := p.rmLocation()
		return p.shiftOrRotate16(dest, dest.readWord(p), p.CL())
	case 0xD4: // AAM d8
		v, err := p.Aam(p.AL(), p.readOpcodeStream())
		if err != nil {
			return err
		}
		p.AX = v
	case 0xD5: // AAD d8
		p.AX = p.Aad(p.AX, p.readOpcodeStream())
	case 0xD7: // XLAT
		p.SetAL(p.readByte(p.getSeg(p.DS), p.BX+uint16(p.AL())))

	// 0xEx

	case 0xE0: // LOOPNZ/NE rel8
		p.CX--
		p.jmpRel8Cond(p.CX != 0 && !p.ZF())
	case 0xE1: // LOOPZ/E rel8
		p.CX--
		p.jmpRel8Cond(p.CX != 0 && p.ZF())
	case 0xE2: // LOOP rel8
		p.CX--
		p.jmpRel8Cond(p.CX != 0)
	case 0xE3: // JCXZ rel8
		p.jmpRel8Cond(p.CX == 0)
	case 0xE4: // IN AL,[d8]
		p.SetAL(p.inByte(uint16(p.readOpcodeStream())))
	case 0xE5: // IN AX,[d8]
		p.AX = p.inWord(uint16(p.readOpcodeStream()))
	case 0xE6: // OUT [d8],AL
		p.outByte(uint16(p.readOpcodeStream()), p.AL())
	case 0xE7: // OUT [d8],AX
		p.outWord(uint16(p.readOpcodeStream()), p.AX)
	case 0xE8: // CALL rel16
		p.push16(p.jmpRel16())
	case 0xE9: // JMP rel16
		p.jmpRel16()
	case 0xEA: // JMP seg:a16
		ip := p.readOpcodeImm16()
		cs := p.readOpcodeImm16()
		return p.jmpFar(cs, ip)
	case 0xEB: // JMP rel8
		p.jmpRel8()
	case 0xEC: // IN AL,[DX]
		p.SetAL(p.inByte(p.DX))
	case 0xED: // IN AX,[DX]
		p.AX = p.inWord(p.DX)
	case 0xEE: // OUT [DX],AL
		p.outByte(p.DX, p.AL())
	case 0xEF: // OUT [DX],AX
		p.outWord(p.DX, p.AX)

	// 0xFx

	case 0xF4: // HLT
		p.SetHalted(true)
	case 0xF5: // CMC
		p.SetCF(!p.CF())
	case 0xF6: // _ALU2 r/m8,d8
		return p.grp3a()
	case 0xF7: // _ALU2 r/m16,d16
		return p.grp3b()
	case 0xF8: // CLC
		p.SetCF(false)
	case 0xF9: // STC
		p.SetCF(true)
	case 0xFA: // CLI
		p.SetIF(false)
	case 0xFB: // STI
		p.interruptShadow = !p.IF()
		p.SetIF(true)
	case 0xFC: // CLD
		p.SetDF(false)
	case 0xFD: // STD
		p.SetDF(true)
	case 0xFE: // _MISC r/m8
		return p.grp4()
	case 0xFF: // _MISC r/m16
		return p.grp5()

	// 0x0F, 0x63-0x67, 0xD6, 0xD8-0xDF and 0xF1
	default:
		return processor.InvalidOpcodeFault()
	}
	return nil
}

// arithmetic covers the eight two-operand ALU instructions in the 0x00-0x3D block.
// The low three opcode bits select the operand form.
func (p *CPU) arithmetic(op byte) {
	fn := (op >> 3) & 7

	switch op & 7 {
	case 0, 2: // r/m8,r8 and r8,r/m8
		dest, src := p.parseOperands()
		if res, store := p.alu8(fn, dest.readByte(p), src.readByte(p)); store {
			dest.writeByte(p, res)
		}
	case 1, 3: // r/m16,r16 and r16,r/m16
		dest, src := p.parseOperands()
		if res, store := p.alu16(fn, dest.readWord(p), src.readWord(p)); store {
			dest.writeWord(p, res)
		}
	case 4: // AL,d8
		if res, store := p.alu8(fn, p.AL(), p.readOpcodeStream()); store {
			p.SetAL(res)
		}
	case 5: // AX,d16
		if res, store := p.alu16(fn, p.AX, p.readOpcodeImm16()); store {
			p.AX = res
		}
	}
}

// alu8 runs ADD OR ADC SBB AND SUB XOR CMP by index. CMP reports that nothing is stored.
func (p *CPU) alu8(fn, a, b byte) (byte, bool) {
	switch fn {
	case 0:
		return p.Add8(a, b), true
	case 1:
		return p.Or8(a, b), true
	case 2:
		return p.Adc8(a, b), true
	case 3:
		return p.Sbb8(a, b), true
	case 4:
		return p.And8(a, b), true
	case 5:
		return p.Sub8(a, b), true
	case 6:
		return p.Xor8(a, b), true
	default:
		p.Sub8(a, b)
		return 0, false
	}
}

func (p *CPU) alu16(fn byte, a, b uint16) (uint16, bool) {
	switch fn {
	case 0:
		return p.Add16(a, b), true
	case 1:
		return p.Or16(a, b), true
	case 2:
		return p.Adc16(a, b), true
	case 3:
		return p.Sbb16(a, b), true
	case 4:
		return p.And16(a, b), true
	case 5:
		return p.Sub16(a, b), true
	case 6:
		return p.Xor16(a, b), true
	default:
		p.Sub16(a, b)
		return 0, false
	}
}

func (p *CPU) jmpRel8() {
	diff := uint16(int8(p.readOpcodeStream()))
	p.IP += diff
}

// jmpRel16 jumps and returns the address of the next instruction.
func (p *CPU) jmpRel16() uint16 {
	diff := p.readOpcodeImm16()
	ip := p.IP
	p.IP += diff
	return ip
}

func (p *CPU) jmpRel8Cond(cond bool) {
	if cond {
		p.jmpRel8()
	} else {
		p.IP++
	}
}

func (p *CPU) jmpFar(cs, ip uint16) error {
	if err := p.SetCS(cs); err != nil {
		return err
	}
	p.IP = ip
	return nil
}

// retFar loads CS:IP from the top of the stack. SP is released by n bytes only
// once the new code segment is accepted.
func (p *CPU) retFar(n uint16) error {
	ip, cs := p.readWord(p.SS, p.SP), p.readWord(p.SS, p.SP+2)
	if err := p.jmpFar(cs, ip); err != nil {
		return err
	}
	p.SP += n
	return nil
}

// callFar validates the target and writes the return address before any register
// is committed.
func (p *CPU) callFar(cs, ip uint16) error {
	if !p.active.IsExecutableSelector(cs) {
		return processor.NonExecutableSegmentFault(cs)
	}
	sp := p.SP - 4
	p.writeWord(p.SS, sp+2, p.CS)
	p.writeWord(p.SS, sp, p.IP)

	if err := p.SetCS(cs); err != nil {
		return err
	}
	p.SP, p.IP = sp, ip
	return nil
}

func (p *CPU) loadFarPointer(seg *uint16) error {
	if !p.rmIsMemory() {
		return processor.InvalidOpcodeFault()
	}
	addr := p.rm.getAddress()
	offset := p.readWord(addr.Segment(), addr.Offset())
	*seg = p.readWord(addr.Segment(), addr.Offset()+2)
	p.regLocation().writeWord(p, offset)
	return nil
}

func (p *CPU) enter(storage uint16, level byte) {
	p.push16(p.BP)

	if level == 0 {
		p.BP = p.SP
	} else {
		frame := p.SP
		for i := byte(1); i < level; i++ {
			p.BP -= 2
			p.push16(p.readWord(p.SS, p.BP))
		}
		p.push16(frame)
		p.BP = frame
	}
	p.SP -= storage
}
