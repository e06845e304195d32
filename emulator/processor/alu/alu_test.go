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

package alu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/andreas-jonsson/i8086-core/emulator/processor"
	"github.com/andreas-jonsson/i8086-core/emulator/processor/alu"
)

var _ = Describe("ALU", func() {
	var u *alu.ALU

	BeforeEach(func() {
		u = &alu.ALU{}
		u.Reset()
	})

	Describe("flag record", func() {
		It("starts with only interrupts enabled", func() {
			Expect(u.Flags()).To(Equal(processor.InterruptEnable | processor.FixedFlags))
		})

		It("lets an explicit write override a derived flag", func() {
			Expect(u.Add8(0xFF, 1)).To(Equal(byte(0)))
			Expect(u.CF()).To(BeTrue())

			u.SetCF(false)
			Expect(u.CF()).To(BeFalse())
			Expect(u.ZF()).To(BeTrue())
		})

		It("keeps overflow when loading the low flag byte", func() {
			u.SetOF(true)
			u.SetFlags8(0xFF)
			Expect(u.OF()).To(BeTrue())
			Expect(u.CF()).To(BeTrue())
			Expect(u.Flags8()).To(Equal(byte(0xD7)))
		})

		It("round trips the flags register", func() {
			u.SetFlags(processor.Carry | processor.Zero | processor.Direction)
			Expect(u.Flags()).To(Equal(processor.Carry | processor.Zero | processor.Direction | processor.FixedFlags))
			Expect(u.IF()).To(BeFalse())
			Expect(u.DF()).To(BeTrue())
		})
	})

	Describe("parity", func() {
		It("is set for an even number of bits", func() {
			Expect(alu.Parity(0x03)).To(BeTrue())
			Expect(alu.Parity(0x07)).To(BeFalse())
			Expect(alu.Parity(0x00)).To(BeTrue())
		})
	})

	Describe("addition and subtraction", func() {
		It("signals signed overflow on 0x7F + 1", func() {
			Expect(u.Add8(0x7F, 1)).To(Equal(byte(0x80)))
			Expect(u.CF()).To(BeFalse())
			Expect(u.OF()).To(BeTrue())
			Expect(u.SF()).To(BeTrue())
			Expect(u.ZF()).To(BeFalse())
			Expect(u.AF()).To(BeTrue())
			Expect(u.PF()).To(BeFalse())
		})

		It("borrows on 0 - 1", func() {
			Expect(u.Sub8(0, 1)).To(Equal(byte(0xFF)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.OF()).To(BeFalse())
			Expect(u.SF()).To(BeTrue())
			Expect(u.AF()).To(BeTrue())
			Expect(u.PF()).To(BeTrue())
		})

		It("adds the carry in ADC and SBB", func() {
			u.SetCF(true)
			Expect(u.Adc16(0x1234, 0x0001)).To(Equal(uint16(0x1236)))
			u.SetCF(true)
			Expect(u.Sbb16(0x1234, 0x0001)).To(Equal(uint16(0x1232)))
			Expect(u.CF()).To(BeFalse())
		})

		It("sets carry when negating a non-zero value", func() {
			Expect(u.Neg8(1)).To(Equal(byte(0xFF)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.Neg16(0)).To(Equal(uint16(0)))
			Expect(u.CF()).To(BeFalse())
			Expect(u.ZF()).To(BeTrue())
		})

		It("preserves carry through INC and DEC", func() {
			u.SetCF(true)
			Expect(u.Inc16(0xFFFF)).To(Equal(uint16(0)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.ZF()).To(BeTrue())
			Expect(u.OF()).To(BeFalse())

			u.SetCF(false)
			Expect(u.Dec8(0x80)).To(Equal(byte(0x7F)))
			Expect(u.CF()).To(BeFalse())
			Expect(u.OF()).To(BeTrue())
		})
	})

	Describe("logic", func() {
		It("clears carry, overflow and adjust", func() {
			u.SetCF(true)
			u.SetOF(true)
			u.SetAF(true)
			Expect(u.And8(0xF0, 0x0F)).To(Equal(byte(0)))
			Expect(u.CF()).To(BeFalse())
			Expect(u.OF()).To(BeFalse())
			Expect(u.AF()).To(BeFalse())
			Expect(u.ZF()).To(BeTrue())

			Expect(u.Xor16(0x8000, 0x0001)).To(Equal(uint16(0x8001)))
			Expect(u.SF()).To(BeTrue())
		})

		It("does not touch flags for NOT", func() {
			u.SetCF(true)
			Expect(alu.Not8(0x0F)).To(Equal(byte(0xF0)))
			Expect(u.CF()).To(BeTrue())
		})

		It("sign extends", func() {
			Expect(alu.Cbw(0x80)).To(Equal(uint16(0xFF80)))
			Expect(alu.Cwd(0x7FFF)).To(Equal(uint32(0x00007FFF)))
			Expect(alu.Cwd(0x8000)).To(Equal(uint32(0xFFFF8000)))
		})
	})

	Describe("rotates", func() {
		It("rotates the sign bit into carry on ROL", func() {
			Expect(u.Rol8(0x80, 1)).To(Equal(byte(0x01)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.OF()).To(BeTrue())
		})

		It("rotates bit zero into carry on ROR", func() {
			Expect(u.Ror16(0x0001, 1)).To(Equal(uint16(0x8000)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.OF()).To(BeTrue())
		})

		It("rotates through carry", func() {
			Expect(u.Rcl8(0x80, 1)).To(Equal(byte(0)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.OF()).To(BeTrue())

			Expect(u.Rcr8(0x01, 1)).To(Equal(byte(0x80)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.OF()).To(BeTrue())
		})

		It("leaves sign, zero and parity alone", func() {
			u.Sub8(0, 0)
			Expect(u.ZF()).To(BeTrue())
			u.Rol8(0x81, 4)
			Expect(u.ZF()).To(BeTrue())
			Expect(u.PF()).To(BeTrue())
		})

		It("is a no-op for a zero count", func() {
			u.SetCF(true)
			Expect(u.Ror8(0x12, 0)).To(Equal(byte(0x12)))
			Expect(u.CF()).To(BeTrue())
		})

		It("masks rotate counts to five bits", func() {
			u.SetCF(false)
			u.SetOF(false)
			Expect(u.Rol8(0x01, 0x20)).To(Equal(byte(0x01)))
			Expect(u.CF()).To(BeFalse())
			Expect(u.OF()).To(BeFalse())

			Expect(u.Rcr16(0x0001, 0x40)).To(Equal(uint16(0x0001)))
			Expect(u.CF()).To(BeFalse())

			Expect(u.Rcl8(0x01, 0x21)).To(Equal(byte(0x02)))
		})

		DescribeTable("multi-bit overflow from the source operand",
			func(rotate func(*alu.ALU) uint16, of bool, want uint16, wantOF bool) {
				u.SetCF(false)
				u.SetOF(of)
				Expect(rotate(u)).To(Equal(want))
				Expect(u.OF()).To(Equal(wantOF))
			},
			Entry("ROL bits 6 and 7 differ", func(u *alu.ALU) uint16 { return uint16(u.Rol8(0x40, 2)) }, false, uint16(0x01), true),
			Entry("ROL ignores previous OF", func(u *alu.ALU) uint16 { return uint16(u.Rol8(0x40, 2)) }, true, uint16(0x01), true),
			Entry("ROL bits 6 and 7 equal", func(u *alu.ALU) uint16 { return uint16(u.Rol8(0xC0, 2)) }, true, uint16(0x03), false),
			Entry("ROL word", func(u *alu.ALU) uint16 { return u.Rol16(0x4000, 3) }, false, uint16(0x0002), true),
			Entry("RCL bits 6 and 7 differ", func(u *alu.ALU) uint16 { return uint16(u.Rcl8(0x40, 2)) }, false, uint16(0x00), true),
			Entry("RCL bits 6 and 7 equal", func(u *alu.ALU) uint16 { return uint16(u.Rcl8(0x00, 3)) }, true, uint16(0x00), false),
			Entry("ROR bits 0 and 7 differ", func(u *alu.ALU) uint16 { return uint16(u.Ror8(0x01, 3)) }, false, uint16(0x20), true),
			Entry("ROR bits 0 and 7 equal", func(u *alu.ALU) uint16 { return uint16(u.Ror8(0x81, 3)) }, true, uint16(0x30), false),
			Entry("ROR word", func(u *alu.ALU) uint16 { return u.Ror16(0x0001, 4) }, false, uint16(0x1000), true),
			Entry("RCR sign set toggles OF", func(u *alu.ALU) uint16 { return uint16(u.Rcr8(0x80, 2)) }, false, uint16(0x20), true),
			Entry("RCR sign set toggles OF back", func(u *alu.ALU) uint16 { return uint16(u.Rcr8(0x80, 2)) }, true, uint16(0x20), false),
			Entry("RCR sign clear keeps OF", func(u *alu.ALU) uint16 { return uint16(u.Rcr8(0x40, 2)) }, true, uint16(0x10), true),
			Entry("RCR sign clear keeps OF clear", func(u *alu.ALU) uint16 { return uint16(u.Rcr8(0x40, 2)) }, false, uint16(0x10), false),
			Entry("RCR word", func(u *alu.ALU) uint16 { return u.Rcr16(0x8000, 2) }, false, uint16(0x2000), true),
		)
	})

	Describe("shifts", func() {
		It("shifts out the high bit on SHL", func() {
			Expect(u.Shl8(0x81, 1)).To(Equal(byte(0x02)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.OF()).To(BeTrue())
		})

		It("shifts out the low bit on SHR", func() {
			Expect(u.Shr8(0x81, 1)).To(Equal(byte(0x40)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.OF()).To(BeTrue())
		})

		It("keeps the sign on SAR", func() {
			Expect(u.Sar8(0x81, 1)).To(Equal(byte(0xC0)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.OF()).To(BeFalse())
			Expect(u.SF()).To(BeTrue())

			Expect(u.Sar16(0x8000, 15)).To(Equal(uint16(0xFFFF)))
		})

		It("masks the count to five bits", func() {
			u.SetCF(true)
			Expect(u.Shl8(0x05, 32)).To(Equal(byte(0x05)))
			Expect(u.CF()).To(BeTrue())

			Expect(u.Shr16(0x8000, 33)).To(Equal(uint16(0x4000)))
			Expect(u.CF()).To(BeFalse())
		})
	})

	Describe("multiplication", func() {
		It("flags a significant upper half", func() {
			Expect(u.Mul8(0x10, 0x10)).To(Equal(uint16(0x0100)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.OF()).To(BeTrue())

			Expect(u.Mul16(2, 3)).To(Equal(uint32(6)))
			Expect(u.CF()).To(BeFalse())
		})

		It("multiplies signed values", func() {
			Expect(u.IMul8(0xFF, 0xFF)).To(Equal(uint16(1)))
			Expect(u.CF()).To(BeFalse())

			Expect(u.IMul8(0x80, 0xFF)).To(Equal(uint16(0x0080)))
			Expect(u.CF()).To(BeTrue())

			Expect(u.IMul16(0xFFFE, 0x0003)).To(Equal(uint32(0xFFFFFFFA)))
			Expect(u.OF()).To(BeFalse())
		})
	})

	Describe("division", func() {
		It("returns quotient and remainder", func() {
			Expect(alu.Div8(0x0107, 2)).To(Equal(uint16(0x0183)))
			Expect(alu.Div16(0x00010001, 0x0002)).To(Equal(uint32(0x00018000)))
			Expect(alu.IDiv8(0xFFF9, 2)).To(Equal(uint16(0xFFFD)))
		})

		It("faults on a zero divisor", func() {
			_, err := alu.Div8(5, 0)
			Expect(err).To(MatchError(processor.ErrDivide))
		})

		It("faults when the quotient does not fit", func() {
			_, err := alu.Div8(0x0200, 2)
			Expect(err).To(MatchError(processor.ErrDivide))

			_, err = alu.IDiv8(0x0080, 1)
			Expect(err).To(MatchError(processor.ErrDivide))

			_, err = alu.IDiv16(0x00008000, 1)
			Expect(err).To(MatchError(processor.ErrDivide))
		})

		It("reports the divide vector", func() {
			_, err := alu.Div16(1, 0)
			var fault *processor.Fault
			Expect(err).To(BeAssignableToTypeOf(fault))
			Expect(err.(*processor.Fault).Vector).To(Equal(byte(processor.VectorDivide)))
			Expect(err.(*processor.Fault).RestoreIP).To(BeTrue())
		})
	})

	Describe("decimal adjust", func() {
		It("adjusts after unpacked addition", func() {
			Expect(u.Aaa(0x000B)).To(Equal(uint16(0x0101)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.AF()).To(BeTrue())

			u.SetAF(false)
			Expect(u.Aaa(0x0005)).To(Equal(uint16(0x0005)))
			Expect(u.CF()).To(BeFalse())
		})

		It("adjusts after unpacked subtraction", func() {
			Expect(u.Aas(0x020B)).To(Equal(uint16(0x0105)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.AF()).To(BeTrue())
		})

		It("adjusts after packed addition", func() {
			Expect(u.Daa(0x0F)).To(Equal(byte(0x15)))
			Expect(u.AF()).To(BeTrue())
			Expect(u.CF()).To(BeFalse())

			u.SetAF(false)
			Expect(u.Daa(0x9A)).To(Equal(byte(0x00)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.ZF()).To(BeTrue())
		})

		It("adjusts after packed subtraction", func() {
			Expect(u.Das(0xA0)).To(Equal(byte(0x40)))
			Expect(u.CF()).To(BeTrue())
			Expect(u.AF()).To(BeFalse())
		})

		It("converts between binary and unpacked decimal", func() {
			Expect(u.Aad(0x0105, 10)).To(Equal(uint16(0x000F)))
			Expect(u.Aam(0x0F, 10)).To(Equal(uint16(0x0105)))

			_, err := u.Aam(5, 0)
			Expect(err).To(MatchError(processor.ErrDivide))
		})
	})
})
