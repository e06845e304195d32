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

// Package alu implements the arithmetic and logic primitives of the 8086 together
// with a deferred flag record. Flag values are derived on demand from the operands
// and the unmasked result of the last flag producing operation.
package alu

import (
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

type overflowSource byte

const (
	overflowExplicit overflowSource = iota
	overflowAdd
	overflowSub
)

// Flags that can be derived from the record. Trap, interrupt and direction are always explicit.
const resultFlags = processor.Carry | processor.Parity | processor.Adjust | processor.Zero | processor.Sign | processor.Overflow

const controlFlags = processor.Trap | processor.InterruptEnable | processor.Direction

// ALU holds the deferred flag record. The zero value has every flag cleared.
//
// A flag is either derived from the record (bit set in derived) or taken from
// explicit. The two masks never overlap.
type ALU struct {
	a, b, res uint32
	bit8      bool
	overflow  overflowSource

	derived  processor.Flags
	explicit processor.Flags
}

// Reset sets the power-on flag state, only interrupts enabled.
func (u *ALU) Reset() {
	*u = ALU{explicit: processor.InterruptEnable}
}

func (u *ALU) signBit() uint32 {
	if u.bit8 {
		return 0x80
	}
	return 0x8000
}

func (u *ALU) get(f processor.Flags) bool {
	if u.derived&f == 0 {
		return u.explicit&f != 0
	}

	switch f {
	case processor.Carry:
		if u.bit8 {
			return u.res&0x100 != 0
		}
		return u.res&0x10000 != 0
	case processor.Parity:
		return parityLookup[u.res&0xFF]
	case processor.Adjust:
		return (u.a^u.b^u.res)&0x10 != 0
	case processor.Zero:
		if u.bit8 {
			return u.res&0xFF == 0
		}
		return u.res&0xFFFF == 0
	case processor.Sign:
		return u.res&u.signBit() != 0
	case processor.Overflow:
		switch u.overflow {
		case overflowAdd:
			return (u.res^u.a)&(u.res^u.b)&u.signBit() != 0
		case overflowSub:
			return (u.res^u.a)&(u.a^u.b)&u.signBit() != 0
		}
	}
	return false
}

func (u *ALU) set(f processor.Flags, v bool) {
	u.derived &^= f
	if v {
		u.explicit |= f
	} else {
		u.explicit &^= f
	}
}

// snapshot returns the current value of the flags in mask as explicit bits.
func (u *ALU) snapshot(mask processor.Flags) processor.Flags {
	var v processor.Flags
	for f := processor.Flags(1); f <= processor.Overflow; f <<= 1 {
		if mask&f != 0 && u.get(f) {
			v |= f
		}
	}
	return v
}

// record replaces the deferred state after an operation. Flags outside derived and
// explicit are cleared, the control flags are kept.
func (u *ALU) record(a, b, res uint32, bit8 bool, derived processor.Flags, explicit processor.Flags, overflow overflowSource) {
	u.a, u.b, u.res = a, b, res
	u.bit8 = bit8
	u.overflow = overflow
	u.derived = derived & resultFlags
	u.explicit = (u.explicit & controlFlags) | (explicit &^ u.derived)
}

// setResult derives sign, zero and parity from v and freezes every other flag at its current value.
func (u *ALU) setResult(v uint32, bit8 bool) {
	const szp = processor.Sign | processor.Zero | processor.Parity
	keep := u.snapshot(resultFlags &^ szp)
	u.record(0, 0, v, bit8, szp, keep, overflowExplicit)
}

func (u *ALU) CF() bool { return u.get(processor.Carry) }
func (u *ALU) PF() bool { return u.get(processor.Parity) }
func (u *ALU) AF() bool { return u.get(processor.Adjust) }
func (u *ALU) ZF() bool { return u.get(processor.Zero) }
func (u *ALU) SF() bool { return u.get(processor.Sign) }
func (u *ALU) OF() bool { return u.get(processor.Overflow) }
func (u *ALU) TF() bool { return u.explicit&processor.Trap != 0 }
func (u *ALU) IF() bool { return u.explicit&processor.InterruptEnable != 0 }
func (u *ALU) DF() bool { return u.explicit&processor.Direction != 0 }

func (u *ALU) SetCF(v bool) { u.set(processor.Carry, v) }
func (u *ALU) SetPF(v bool) { u.set(processor.Parity, v) }
func (u *ALU) SetAF(v bool) { u.set(processor.Adjust, v) }
func (u *ALU) SetZF(v bool) { u.set(processor.Zero, v) }
func (u *ALU) SetSF(v bool) { u.set(processor.Sign, v) }
func (u *ALU) SetOF(v bool) { u.set(processor.Overflow, v) }
func (u *ALU) SetTF(v bool) { u.set(processor.Trap, v) }
func (u *ALU) SetIF(v bool) { u.set(processor.InterruptEnable, v) }
func (u *ALU) SetDF(v bool) { u.set(processor.Direction, v) }

// Flags packs the 16-bit flags register, including the fixed bit.
func (u *ALU) Flags() processor.Flags {
	return u.snapshot(processor.AllFlags) | processor.FixedFlags
}

func (u *ALU) SetFlags(v processor.Flags) {
	u.derived = 0
	u.explicit = v & processor.AllFlags
}

// Flags8 is the low byte view used by LAHF.
func (u *ALU) Flags8() byte {
	return byte(u.snapshot(processor.Carry|processor.Parity|processor.Adjust|processor.Zero|processor.Sign) | processor.FixedFlags)
}

// SetFlags8 loads carry, parity, adjust, zero and sign from v.
func (u *ALU) SetFlags8(v byte) {
	const mask = processor.Carry | processor.Parity | processor.Adjust | processor.Zero | processor.Sign
	keep := u.snapshot(processor.Overflow)
	u.derived = 0
	u.explicit = (u.explicit & controlFlags) | keep | (processor.Flags(v) & mask)
}
