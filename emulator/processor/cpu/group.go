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
)

func (p *CPU) grp1() {
	dest := p.rmLocation()
	a := dest.readByte(p)
	if res, store := p.alu8(p.getReg(), a, p.readOpcodeStream()); store {
		dest.writeByte(p, res)
	}
}

func (p *CPU) grp1w() {
	dest := p.rmLocation()
	a := dest.readWord(p)

	var b uint16
	if p.opcode == 0x83 {
		b = alu.Cbw(p.readOpcodeStream())
	} else {
		b = p.readOpcodeImm16()
	}

	if res, store := p.alu16(p.getReg(), a, b); store {
		dest.writeWord(p, res)
	}
}

func (p *CPU) shiftOrRotate8(dest dataLocation, v, count byte) error {
	var res byte
	switch p.getReg() {
	case 0:
		res = p.Rol8(v, count)
	case 1:
		res = p.Ror8(v, count)
	case 2:
		res = p.Rcl8(v, count)
	case 3:
		res = p.Rcr8(v, count)
	case 4:
		res = p.Shl8(v, count)
	case 5:
		res = p.Shr8(v, count)
	case 7:
		res = p.Sar8(v, count)
	default:
		return processor.InvalidOpcodeFault()
	}
	dest.writeByte(p, res)
	return nil
}

func (p *CPU) shiftOrRotate16(dest dataLocation, v uint16, count byte) error {
	var res uint16
	switch p.getReg() {
	case 0:
		res = p.Rol16(v, count)
	case 1:
		res = p.Ror16(v, count)
	case 2:
		res = p.Rcl16(v, count)
	case 3:
		res = p.Rcr16(v, count)
	case 4:
		res = p.Shl16(v, count)
	case 5:
		res = p.Shr16(v, count)
	case 7:
		res = p.Sar16(v, count)
	default:
		return processor.InvalidOpcodeFault()
	}
	dest.writeWord(p, res)
	return nil
}

func (p *CPU) grp3a() error {
	operand := p.rmLocation()

	switch p.getReg() {
	case 0, 1: // TEST r/m8,d8
		a := operand.readByte(p)
		p.And8(a, p.readOpcodeStream())
	case 2: // NOT
		operand.writeByte(p, alu.Not8(operand.readByte(p)))
	case 3: // NEG
		operand.writeByte(p, p.Neg8(operand.readByte(p)))
	case 4: // MUL
		p.AX = p.Mul8(p.AL(), operand.readByte(p))
	case 5: // IMUL
		p.AX = p.IMul8(p.AL(), operand.readByte(p))
	case 6: // DIV
		v, err := alu.Div8(p.AX, operand.readByte(p))
		if err != nil {
			return err
		}
		p.AX = v
	case 7: // IDIV
		v, err := alu.IDiv8(p.AX, operand.readByte(p))
		if err != nil {
			return err
		}
		p.AX = v
	}
	return nil
}

func (p *CPU) grp3b() error {
	operand := p.rmLocation()

	switch p.getReg() {
	case 0, 1: // TEST r/m16,d16
		a := operand.readWord(p)
		p.And16(a, p.readOpcodeImm16())
	case 2: // NOT
		operand.writeWord(p, alu.Not16(operand.readWord(p)))
	case 3: // NEG
		operand.writeWord(p, p.Neg16(operand.readWord(p)))
	case 4: // MUL
		p.SetDXAX(p.Mul16(p.AX, operand.readWord(p)))
	case 5: // IMUL
		p.SetDXAX(p.IMul16(p.AX, operand.readWord(p)))
	case 6: // DIV
		v, err := alu.Div16(p.DXAX(), operand.readWord(p))
		if err != nil {
			return err
		}
		p.SetDXAX(v)
	case 7: // IDIV
		v, err := alu.IDiv16(p.DXAX(), operand.readWord(p))
		if err != nil {
			return err
		}
		p.SetDXAX(v)
	}
	return nil
}

func (p *CPU) grp4() error {
	dest := p.rmLocation()

	switch p.getReg() {
	case 0: // INC
		dest.writeByte(p, p.Inc8(dest.readByte(p)))
	case 1: // DEC
		dest.writeByte(p, p.Dec8(dest.readByte(p)))
	default:
		return processor.InvalidOpcodeFault()
	}
	return nil
}

func (p *CPU) grp5() error {
	dest := p.rmLocation()

	switch p.getReg() {
	case 0: // INC
		dest.writeWord(p, p.Inc16(dest.readWord(p)))
	case 1: // DEC
		dest.writeWord(p, p.Dec16(dest.readWord(p)))
	case 2: // CALL r/m16
		ip := dest.readWord(p)
		p.push16(p.IP)
		p.IP = ip
	case 3: // CALL m16:16
		cs, ip, err := p.farOperand()
		if err != nil {
			return err
		}
		return p.callFar(cs, ip)
	case 4: // JMP r/m16
		p.IP = dest.readWord(p)
	case 5: // JMP m16:16
		cs, ip, err := p.farOperand()
		if err != nil {
			return err
		}
		return p.jmpFar(cs, ip)
	case 6: // PUSH r/m16
		p.push16(dest.readWord(p))
	default:
		return processor.InvalidOpcodeFault()
	}
	return nil
}

// farOperand reads a far pointer from the memory operand, offset first.
func (p *CPU) farOperand() (uint16, uint16, error) {
	if !p.rmIsMemory() {
		return 0, 0, processor.InvalidOpcodeFault()
	}
	addr := p.rm.getAddress()
	ip := p.readWord(addr.Segment(), addr.Offset())
	cs := p.readWord(addr.Segment(), addr.Offset()+2)
	return cs, ip, nil
}
