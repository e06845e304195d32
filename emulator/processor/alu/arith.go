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

package alu

import (
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

const (
	arithFlags = processor.Carry | processor.Parity | processor.Adjust | processor.Zero | processor.Sign | processor.Overflow
	logicFlags = processor.Parity | processor.Zero | processor.Sign
	incFlags   = processor.Parity | processor.Adjust | processor.Zero | processor.Sign | processor.Overflow
)

func (u *ALU) carryIn() uint32 {
	if u.CF() {
		return 1
	}
	return 0
}

func (u *ALU) Add8(a, b byte) byte {
	res := uint32(a) + uint32(b)
	u.record(uint32(a), uint32(b), res, true, arithFlags, 0, overflowAdd)
	return byte(res)
}

func (u *ALU) Add16(a, b uint16) uint16 {
	res := uint32(a) + uint32(b)
	u.record(uint32(a), uint32(b), res, false, arithFlags, 0, overflowAdd)
	return uint16(res)
}

func (u *ALU) Adc8(a, b byte) byte {
	res := uint32(a) + uint32(b) + u.carryIn()
	u.record(uint32(a), uint32(b), res, true, arithFlags, 0, overflowAdd)
	return byte(res)
}

func (u *ALU) Adc16(a, b uint16) uint16 {
	res := uint32(a) + uint32(b) + u.carryIn()
	u.record(uint32(a), uint32(b), res, false, arithFlags, 0, overflowAdd)
	return uint16(res)
}

// Subtraction keeps 17 bits of the result so a borrow shows up in the carry position.

func (u *ALU) Sub8(a, b byte) byte {
	res := (uint32(a) - uint32(b)) & 0x1FFFF
	u.record(uint32(a), uint32(b), res, true, arithFlags, 0, overflowSub)
	return byte(res)
}

func (u *ALU) Sub16(a, b uint16) uint16 {
	res := (uint32(a) - uint32(b)) & 0x1FFFF
	u.record(uint32(a), uint32(b), res, false, arithFlags, 0, overflowSub)
	return uint16(res)
}

func (u *ALU) Sbb8(a, b byte) byte {
	res := (uint32(a) - (uint32(b) + u.carryIn())) & 0x1FFFF
	u.record(uint32(a), uint32(b), res, true, arithFlags, 0, overflowSub)
	return byte(res)
}

func (u *ALU) Sbb16(a, b uint16) uint16 {
	res := (uint32(a) - (uint32(b) + u.carryIn())) & 0x1FFFF
	u.record(uint32(a), uint32(b), res, false, arithFlags, 0, overflowSub)
	return uint16(res)
}

func (u *ALU) Neg8(b byte) byte {
	res := (0 - uint32(b)) & 0x1FFFF
	u.record(0, uint32(b), res, true, arithFlags, 0, overflowSub)
	return byte(res)
}

func (u *ALU) Neg16(b uint16) uint16 {
	res := (0 - uint32(b)) & 0x1FFFF
	u.record(0, uint32(b), res, false, arithFlags, 0, overflowSub)
	return uint16(res)
}

func (u *ALU) keepCarry() processor.Flags {
	if u.CF() {
		return processor.Carry
	}
	return 0
}

func (u *ALU) Inc8(a byte) byte {
	res := uint32(a) + 1
	u.record(uint32(a), 1, res, true, incFlags, u.keepCarry(), overflowAdd)
	return byte(res)
}

func (u *ALU) Inc16(a uint16) uint16 {
	res := uint32(a) + 1
	u.record(uint32(a), 1, res, false, incFlags, u.keepCarry(), overflowAdd)
	return uint16(res)
}

func (u *ALU) Dec8(a byte) byte {
	res := uint32(a) - 1
	u.record(uint32(a), 1, res, true, incFlags, u.keepCarry(), overflowSub)
	return byte(res)
}

func (u *ALU) Dec16(a uint16) uint16 {
	res := uint32(a) - 1
	u.record(uint32(a), 1, res, false, incFlags, u.keepCarry(), overflowSub)
	return uint16(res)
}

// Logic operations clear carry, overflow and adjust.

func (u *ALU) And8(a, b byte) byte {
	res := uint32(a & b)
	u.record(uint32(a), uint32(b), res, true, logicFlags, 0, overflowExplicit)
	return byte(res)
}

func (u *ALU) And16(a, b uint16) uint16 {
	res := uint32(a & b)
	u.record(uint32(a), uint32(b), res, false, logicFlags, 0, overflowExplicit)
	return uint16(res)
}

func (u *ALU) Or8(a, b byte) byte {
	res := uint32(a | b)
	u.record(uint32(a), uint32(b), res, true, logicFlags, 0, overflowExplicit)
	return byte(res)
}

func (u *ALU) Or16(a, b uint16) uint16 {
	res := uint32(a | b)
	u.record(uint32(a), uint32(b), res, false, logicFlags, 0, overflowExplicit)
	return uint16(res)
}

func (u *ALU) Xor8(a, b byte) byte {
	res := uint32(a ^ b)
	u.record(uint32(a), uint32(b), res, true, logicFlags, 0, overflowExplicit)
	return byte(res)
}

func (u *ALU) Xor16(a, b uint16) uint16 {
	res := uint32(a ^ b)
	u.record(uint32(a), uint32(b), res, false, logicFlags, 0, overflowExplicit)
	return uint16(res)
}

func Not8(a byte) byte {
	return ^a
}

func Not16(a uint16) uint16 {
	return ^a
}

func Cbw(a byte) uint16 {
	return uint16(int16(int8(a)))
}

func Cwd(a uint16) uint32 {
	return uint32(int32(int16(a)))
}
