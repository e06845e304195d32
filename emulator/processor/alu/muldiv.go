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

// Multiplication sets carry and overflow when the upper half of the product is
// significant. Sign, zero and parity follow the low half, adjust is cleared.

const mulFlags = processor.Parity | processor.Zero | processor.Sign

func (u *ALU) Mul8(a, b byte) uint16 {
	res := uint32(a) * uint32(b)
	u.record(0, 0, res, true, mulFlags, boolFlag(res&0xFF00 != 0, processor.Carry|processor.Overflow), overflowExplicit)
	return uint16(res)
}

func (u *ALU) Mul16(a, b uint16) uint32 {
	res := uint32(a) * uint32(b)
	u.record(0, 0, res, false, mulFlags, boolFlag(res&0xFFFF0000 != 0, processor.Carry|processor.Overflow), overflowExplicit)
	return res
}

func (u *ALU) IMul8(a, b byte) uint16 {
	res := int32(int8(a)) * int32(int8(b))
	u.record(0, 0, uint32(res), true, mulFlags, boolFlag(int32(int8(res)) != res, processor.Carry|processor.Overflow), overflowExplicit)
	return uint16(res)
}

func (u *ALU) IMul16(a, b uint16) uint32 {
	res := int32(int16(a)) * int32(int16(b))
	u.record(0, 0, uint32(res), false, mulFlags, boolFlag(int32(int16(res)) != res, processor.Carry|processor.Overflow), overflowExplicit)
	return uint32(res)
}

// Division leaves the flags untouched. The quotient is returned in the low half and the
// remainder in the high half. A zero divisor or a quotient that does not fit is a divide fault.

func Div8(a uint16, b byte) (uint16, error) {
	if b == 0 {
		return 0, processor.DivideFault()
	}
	q, r := a/uint16(b), a%uint16(b)
	if q > 0xFF {
		return 0, processor.DivideFault()
	}
	return q | r<<8, nil
}

func Div16(a uint32, b uint16) (uint32, error) {
	if b == 0 {
		return 0, processor.DivideFault()
	}
	q, r := a/uint32(b), a%uint32(b)
	if q > 0xFFFF {
		return 0, processor.DivideFault()
	}
	return q | r<<16, nil
}

func IDiv8(a uint16, b byte) (uint16, error) {
	if b == 0 {
		return 0, processor.DivideFault()
	}
	n, d := int32(int16(a)), int32(int8(b))
	q, r := n/d, n%d
	if q < -0x80 || q > 0x7F {
		return 0, processor.DivideFault()
	}
	return uint16(byte(q)) | uint16(byte(r))<<8, nil
}

func IDiv16(a uint32, b uint16) (uint32, error) {
	if b == 0 {
		return 0, processor.DivideFault()
	}
	n, d := int64(int32(a)), int64(int16(b))
	q, r := n/d, n%d
	if q < -0x8000 || q > 0x7FFF {
		return 0, processor.DivideFault()
	}
	return uint32(uint16(q)) | uint32(uint16(r))<<16, nil
}
