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

package alu

import (
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

// Rotates only touch carry and overflow. Counts are masked to five bits and a masked
// count of zero leaves every flag untouched. For counts above one, ROL and RCL compare
// bits 6 and 7 of the source, ROR compares bits 0 and 7 and RCR toggles the previous
// overflow when the source sign bit is set.

const rotateKeep = processor.Parity | processor.Adjust | processor.Zero | processor.Sign

func boolFlag(b bool, f processor.Flags) processor.Flags {
	if b {
		return f
	}
	return 0
}

func (u *ALU) rotated(res uint32, bit8 bool, carry, overflow bool) {
	keep := u.snapshot(rotateKeep)
	u.record(0, 0, res, bit8, 0, keep|boolFlag(carry, processor.Carry)|boolFlag(overflow, processor.Overflow), overflowExplicit)
}

func (u *ALU) rotatedThroughCarry(res uint32, bit8 bool, overflow bool) {
	keep := u.snapshot(rotateKeep)
	u.record(0, 0, res, bit8, processor.Carry, keep|boolFlag(overflow, processor.Overflow), overflowExplicit)
}

func (u *ALU) Rol8(a, b byte) byte {
	if b &= 0x1F; b == 0 {
		return a
	}
	b %= 8
	v := uint32(a)
	res := v<<b | v>>(8-b)

	var o bool
	if b == 1 {
		o = (res^(res<<1))&0x100 != 0
	} else {
		o = (v>>1)&0x40 != v&0x40
	}
	u.rotated(res, true, res&1 != 0, o)
	return byte(res)
}

func (u *ALU) Rol16(a uint16, b byte) uint16 {
	if b &= 0x1F; b == 0 {
		return a
	}
	b %= 16
	v := uint32(a)
	res := v<<b | v>>(16-b)

	var o bool
	if b == 1 {
		o = (res^(res<<1))&0x10000 != 0
	} else {
		o = (v>>1)&0x4000 != v&0x4000
	}
	u.rotated(res, false, res&1 != 0, o)
	return uint16(res)
}

func (u *ALU) Ror8(a, b byte) byte {
	if b &= 0x1F; b == 0 {
		return a
	}
	b %= 8
	v := uint32(a)
	res := v>>b | v<<(8-b)

	var o bool
	if b == 1 {
		o = (res^(res>>1))&0x40 != 0
	} else {
		o = v&1 != (v>>7)&1
	}
	u.rotated(res, true, res&0x80 != 0, o)
	return byte(res)
}

func (u *ALU) Ror16(a uint16, b byte) uint16 {
	if b &= 0x1F; b == 0 {
		return a
	}
	b %= 16
	v := uint32(a)
	res := v>>b | v<<(16-b)

	var o bool
	if b == 1 {
		o = (res^(res>>1))&0x4000 != 0
	} else {
		o = v&1 != (v>>15)&1
	}
	u.rotated(res, false, res&0x8000 != 0, o)
	return uint16(res)
}

func (u *ALU) Rcl8(a, b byte) byte {
	if b &= 0x1F; b == 0 {
		return a
	}
	b %= 9
	v := uint32(a)
	r := u.carryIn()<<8 | v
	res := r<<b | r>>(9-b)

	var o bool
	if b == 1 {
		o = (res^(res<<1))&0x100 != 0
	} else {
		o = (v>>1)&0x40 != v&0x40
	}
	u.rotatedThroughCarry(res, true, o)
	return byte(res)
}

func (u *ALU) Rcl16(a uint16, b byte) uint16 {
	if b &= 0x1F; b == 0 {
		return a
	}
	b %= 17
	v := uint32(a)
	r := u.carryIn()<<16 | v
	res := r<<b | r>>(17-b)

	var o bool
	if b == 1 {
		o = (res^(res<<1))&0x10000 != 0
	} else {
		o = (v>>1)&0x4000 != v&0x4000
	}
	u.rotatedThroughCarry(res, false, o)
	return uint16(res)
}

func (u *ALU) Rcr8(a, b byte) byte {
	if b &= 0x1F; b == 0 {
		return a
	}
	b %= 9
	v := uint32(a)
	r := u.carryIn()<<8 | v
	res := r>>b | r<<(9-b)

	var o bool
	if b == 1 {
		o = (res^(res>>1))&0x40 != 0
	} else if v&0x80 == 0 {
		o = u.OF()
	} else {
		o = !u.OF()
	}
	u.rotatedThroughCarry(res, true, o)
	return byte(res)
}

func (u *ALU) Rcr16(a uint16, b byte) uint16 {
	if b &= 0x1F; b == 0 {
		return a
	}
	b %= 17
	v := uint32(a)
	r := u.carryIn()<<16 | v
	res := r>>b | r<<(17-b)

	var o bool
	if b == 1 {
		o = (res^(res>>1))&0x4000 != 0
	} else if v&0x8000 == 0 {
		o = u.OF()
	} else {
		o = !u.OF()
	}
	u.rotatedThroughCarry(res, false, o)
	return uint16(res)
}

// Shift counts are masked to five bits. A masked count of zero leaves every flag untouched.

const shiftFlags = processor.Parity | processor.Zero | processor.Sign

func (u *ALU) Shl8(a, b byte) byte {
	if b &= 0x1F; b == 0 {
		return a
	}
	res := uint32(a) << b

	var o bool
	if b == 1 {
		o = (res^(res<<1))&0x100 != 0
	} else {
		o = (res^(res<<1))&(0x80<<b) != 0
	}
	u.record(uint32(a), uint32(b), res, true, processor.Carry|shiftFlags, boolFlag(o, processor.Overflow), overflowExplicit)
	return byte(res)
}

func (u *ALU) Shl16(a uint16, b byte) uint16 {
	if b &= 0x1F; b == 0 {
		return a
	}
	res := uint32(a) << b

	var o bool
	if b == 1 {
		o = (res^(res<<1))&0x10000 != 0
	} else {
		o = (res^(res<<1))&(0x8000<<b) != 0
	}
	u.record(uint32(a), uint32(b), res, false, processor.Carry|shiftFlags, boolFlag(o, processor.Overflow), overflowExplicit)
	return uint16(res)
}

func (u *ALU) Shr8(a, b byte) byte {
	if b &= 0x1F; b == 0 {
		return a
	}
	v := uint32(a)
	res := v >> b
	c := (v>>(b-1))&1 != 0
	o := (res^v)&0x80 != 0
	u.record(v, uint32(b), res, true, shiftFlags, boolFlag(c, processor.Carry)|boolFlag(o, processor.Overflow), overflowExplicit)
	return byte(res)
}

func (u *ALU) Shr16(a uint16, b byte) uint16 {
	if b &= 0x1F; b == 0 {
		return a
	}
	v := uint32(a)
	res := v >> b
	c := (v>>(b-1))&1 != 0
	o := (res^v)&0x8000 != 0
	u.record(v, uint32(b), res, false, shiftFlags, boolFlag(c, processor.Carry)|boolFlag(o, processor.Overflow), overflowExplicit)
	return uint16(res)
}

func (u *ALU) Sar8(a, b byte) byte {
	if b &= 0x1F; b == 0 {
		return a
	}
	s := int32(int8(a))
	res := uint32(s >> b)
	c := (s>>(b-1))&1 != 0
	o := (res^uint32(a))&0x80 != 0
	u.record(uint32(a), uint32(b), res, true, shiftFlags, boolFlag(c, processor.Carry)|boolFlag(o, processor.Overflow), overflowExplicit)
	return byte(res)
}

func (u *ALU) Sar16(a uint16, b byte) uint16 {
	if b &= 0x1F; b == 0 {
		return a
	}
	s := int32(int16(a))
	res := uint32(s >> b)
	c := (s>>(b-1))&1 != 0
	o := (res^uint32(a))&0x8000 != 0
	u.record(uint32(a), uint32(b), res, false, shiftFlags, boolFlag(c, processor.Carry)|boolFlag(o, processor.Overflow), overflowExplicit)
	return uint16(res)
}
