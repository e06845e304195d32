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

// Aaa adjusts AX after an unpacked BCD addition. Only adjust and carry are changed.
func (u *ALU) Aaa(ax uint16) uint16 {
	if ax&0xF > 9 || u.AF() {
		u.SetAF(true)
		u.SetCF(true)
		return (ax + 0x106) & 0xFF0F
	}
	u.SetAF(false)
	u.SetCF(false)
	return ax & 0xFF0F
}

// Aas adjusts AX after an unpacked BCD subtraction.
func (u *ALU) Aas(ax uint16) uint16 {
	al, ah := byte(ax), byte(ax>>8)
	adjust := al&0xF > 9 || u.AF()
	if adjust {
		al -= 6
		ah--
	}
	al &= 0xF

	u.setResult(uint32(al), true)
	u.SetAF(adjust)
	u.SetCF(adjust)
	return uint16(ah)<<8 | uint16(al)
}

func (u *ALU) Daa(a byte) byte {
	carry := a > 0x99 || u.CF()

	adjust := a&0xF > 9 || u.AF()
	if adjust {
		a += 6
	}
	if carry {
		a += 0x60
	}

	u.setResult(uint32(a), true)
	u.SetAF(adjust)
	u.SetCF(carry)
	return a
}

func (u *ALU) Das(a byte) byte {
	carry := a > 0x99 || u.CF()

	var adjust, c bool
	if a&0xF > 9 || u.AF() {
		adjust = true
		c = u.CF() || a < 6
		a -= 6
	}
	if carry {
		a -= 0x60
		c = true
	}

	u.setResult(uint32(a), true)
	u.SetAF(adjust)
	u.SetCF(c)
	return a
}

// Aad folds AH into AL using base b. The returned word has AH cleared.
func (u *ALU) Aad(ax uint16, b byte) uint16 {
	al := byte(ax) + byte(ax>>8)*b
	u.setResult(uint32(al), true)
	return uint16(al)
}

// Aam splits AL into AH = AL / b and AL = AL % b. A zero base is a divide fault.
func (u *ALU) Aam(al, b byte) (uint16, error) {
	if b == 0 {
		return 0, processor.DivideFault()
	}
	h, l := al/b, al%b
	u.setResult(uint32(l), true)
	return uint16(h)<<8 | uint16(l), nil
}
