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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreas-jonsson/i8086-core/emulator/memory"
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

const (
	codeSeg  = 0x1000
	stackSeg = 0x2000
	dataSeg  = 0x3000
	extraSeg = 0x4000
)

// testBus is flat 1 MiB memory and 64 KiB of port latches.
type testBus struct {
	mem     []byte
	ports   [0x10000]byte
	nonExec map[uint16]bool
	onWrite func(seg, offset uint16)
}

func newTestBus() *testBus {
	return &testBus{mem: make([]byte, 0x100000), nonExec: map[uint16]bool{}}
}

func (b *testBus) ReadByte(seg, offset uint16) byte {
	return b.mem[memory.NewPointer(seg, offset)]
}

func (b *testBus) WriteByte(seg, offset uint16, data byte) {
	if b.onWrite != nil {
		b.onWrite(seg, offset)
	}
	b.mem[memory.NewPointer(seg, offset)] = data
}

func (b *testBus) IsExecutableSelector(seg uint16) bool {
	return !b.nonExec[seg]
}

func (b *testBus) In(port uint16) byte {
	return b.ports[port]
}

func (b *testBus) Out(port uint16, data byte) {
	b.ports[port] = data
}

func newTestCPU(code ...byte) (*CPU, *testBus) {
	bus := newTestBus()
	memory.WriteBytes(bus, codeSeg, 0, code)

	p := New(bus, bus)
	p.CS, p.SS, p.DS, p.ES = codeSeg, stackSeg, dataSeg, extraSeg
	p.SP = 0x1000
	return p, bus
}

// installHandler points vector n at a HLT placed at codeSeg:ip.
func installHandler(bus *testBus, n byte, ip uint16) {
	memory.WriteWord(bus, 0, uint16(n)*4, ip)
	memory.WriteWord(bus, 0, uint16(n)*4+2, codeSeg)
	bus.WriteByte(codeSeg, ip, 0xF4)
}

func runUntilHalt(t *testing.T, p *CPU) {
	t.Helper()
	aborted, err := p.Run(100000)
	require.NoError(t, err)
	require.True(t, aborted)
	require.True(t, p.Halted())
}

func TestRepMovsb(t *testing.T) {
	tests := []struct {
		name           string
		code           []byte
		si, di         uint16
		wantSI, wantDI uint16
	}{
		{"forward", []byte{0xF3, 0xA4, 0xF4}, 0x10, 0x20, 0x13, 0x23},
		{"backward", []byte{0xFD, 0xF3, 0xA4, 0xF4}, 0x12, 0x22, 0x0F, 0x1F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, bus := newTestCPU(tt.code...)
			memory.WriteBytes(bus, dataSeg, 0x10, []byte("abc"))
			bus.WriteByte(extraSeg, 0x23, 0xEE)
			bus.WriteByte(extraSeg, 0x1F, 0xEE)
			p.CX, p.SI, p.DI = 3, tt.si, tt.di

			runUntilHalt(t, p)

			assert.Equal(t, uint16(0), p.CX)
			assert.Equal(t, tt.wantSI, p.SI)
			assert.Equal(t, tt.wantDI, p.DI)
			assert.Equal(t, []byte("abc"), memory.ReadBytes(bus, extraSeg, 0x20, 3))
			assert.Equal(t, byte(0xEE), bus.ReadByte(extraSeg, 0x23))
			assert.Equal(t, byte(0xEE), bus.ReadByte(extraSeg, 0x1F))
		})
	}
}

func TestRepWithZeroCount(t *testing.T) {
	p, bus := newTestCPU(0xF3, 0xAA, 0xF4) // REP STOSB
	p.SetAL(0x55)
	p.DI = 0x40

	runUntilHalt(t, p)
	assert.Equal(t, uint16(0), p.CX)
	assert.Equal(t, uint16(0x40), p.DI)
	assert.Equal(t, byte(0), bus.ReadByte(extraSeg, 0x40))
}

func TestRepeCmpsb(t *testing.T) {
	p, bus := newTestCPU(0xF3, 0xA6, 0xF4) // REPE CMPSB
	memory.WriteBytes(bus, dataSeg, 0, []byte("abcx"))
	memory.WriteBytes(bus, extraSeg, 0, []byte("abdx"))
	p.CX = 4

	runUntilHalt(t, p)
	assert.Equal(t, uint16(1), p.CX)
	assert.Equal(t, uint16(3), p.SI)
	assert.Equal(t, uint16(3), p.DI)
	assert.False(t, p.ZF())
}

func TestRepneScasb(t *testing.T) {
	p, bus := newTestCPU(0xF2, 0xAE, 0xF4) // REPNE SCASB
	memory.WriteBytes(bus, extraSeg, 0, []byte("hello\x00"))
	p.CX = 0xFFFF

	runUntilHalt(t, p)
	assert.Equal(t, uint16(6), p.DI)
	assert.Equal(t, uint16(0xFFFF-6), p.CX)
	assert.True(t, p.ZF())
}

func TestModRMDecodedOnce(t *testing.T) {
	p, _ := newTestCPU(0x46, 0x02) // [BP+2]
	p.BP = 0x100

	p.readModRegRM()
	assert.Equal(t, uint16(2), p.IP)
	first := p.rmLocation()

	p.readModRegRM()
	assert.Equal(t, uint16(2), p.IP)
	assert.Equal(t, first, p.rmLocation())
	assert.Equal(t, memory.NewAddress(stackSeg, 0x102), first.getAddress())
}

func TestEffectiveAddress(t *testing.T) {
	tests := []struct {
		name     string
		code     []byte
		override bool
		seg, off uint16
	}{
		{"bx+si", []byte{0x00}, false, dataSeg, 0x110},
		{"bx+di", []byte{0x01}, false, dataSeg, 0x120},
		{"bp+si", []byte{0x02}, false, stackSeg, 0x210},
		{"bp+di", []byte{0x03}, false, stackSeg, 0x220},
		{"si", []byte{0x04}, false, dataSeg, 0x10},
		{"di", []byte{0x05}, false, dataSeg, 0x20},
		{"direct", []byte{0x06, 0x34, 0x12}, false, dataSeg, 0x1234},
		{"bx", []byte{0x07}, false, dataSeg, 0x100},
		{"bp+d8", []byte{0x46, 0xFF}, false, stackSeg, 0x1FF},
		{"bx+si+d16", []byte{0x80, 0x00, 0x10}, false, dataSeg, 0x1110},
		{"bp+d16", []byte{0x86, 0x00, 0xF0}, false, stackSeg, 0xF200},
		{"override bp", []byte{0x46, 0x00}, true, extraSeg, 0x200},
		{"override direct", []byte{0x06, 0x00, 0x01}, true, extraSeg, 0x100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestCPU(tt.code...)
			p.BX, p.SI, p.DI, p.BP = 0x100, 0x10, 0x20, 0x200
			if tt.override {
				p.segOverride = &p.ES
			}

			require.True(t, p.rmIsMemory())
			assert.Equal(t, memory.NewAddress(tt.seg, tt.off), p.rm.getAddress())
			assert.Equal(t, uint16(len(tt.code)), p.IP)
		})
	}
}

func TestSegmentOverride(t *testing.T) {
	p, bus := newTestCPU(0x26, 0xA0, 0x10, 0x00, 0xF4) // MOV AL,ES:[0x10]
	bus.WriteByte(extraSeg, 0x10, 0x5A)

	runUntilHalt(t, p)
	assert.Equal(t, byte(0x5A), p.AL())
}

func TestInterruptNotHandled(t *testing.T) {
	p, _ := newTestCPU(0xCD, 0x21, 0xF4) // INT 21h

	_, err := p.Run(10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, processor.ErrInterruptNotHandled))
	assert.False(t, p.Halted())
}

func TestDivideFault(t *testing.T) {
	code := []byte{
		0xB3, 0x00, // MOV BL,0
		0xF6, 0xF3, // DIV BL
		0xF4, // HLT
	}

	t.Run("fatal", func(t *testing.T) {
		p, _ := newTestCPU(code...)

		_, err := p.Run(10)
		var fault *processor.Fault
		require.True(t, errors.As(err, &fault))
		assert.True(t, errors.Is(err, processor.ErrDivide))
		assert.Equal(t, byte(processor.VectorDivide), fault.Vector)
		assert.True(t, fault.HasAddress)
		assert.Equal(t, uint16(codeSeg), fault.CS)
		assert.Equal(t, uint16(2), fault.IP)
	})

	t.Run("delivered", func(t *testing.T) {
		p, bus := newTestCPU(code...)
		installHandler(bus, processor.VectorDivide, 0x100)

		runUntilHalt(t, p)
		assert.Equal(t, uint16(0x101), p.IP)
		assert.Equal(t, uint16(0x1000-6), p.SP)
		assert.Equal(t, uint16(2), memory.ReadWord(bus, stackSeg, p.SP))
		assert.Equal(t, uint16(codeSeg), memory.ReadWord(bus, stackSeg, p.SP+2))
		assert.False(t, p.IF())
	})
}

func TestInvalidOpcode(t *testing.T) {
	for _, op := range []byte{0x0F, 0x63, 0xD6, 0xD8, 0xF1} {
		p, _ := newTestCPU(0x90, op)

		_, err := p.Run(10)
		assert.True(t, errors.Is(err, processor.ErrInvalidOpcode), "opcode 0x%02X", op)
		assert.Equal(t, uint16(1), p.IP)
	}
}

func TestHardwareInterruptHeldUntilSTI(t *testing.T) {
	p, bus := newTestCPU(0x90, 0xFB, 0x90, 0x90, 0xF4) // NOP, STI, NOP, NOP, HLT
	installHandler(bus, 8, 0x100)
	p.RaiseHardwareInterrupt(8)

	require.NoError(t, p.Step())
	assert.Equal(t, uint16(1), p.IP)

	require.NoError(t, p.Step()) // STI
	assert.Equal(t, uint16(2), p.IP)
	_, pending := p.PendingInterrupt()
	assert.True(t, pending)

	require.NoError(t, p.Step())
	assert.Equal(t, uint16(0x100), p.IP)
	assert.Equal(t, uint16(3), memory.ReadWord(bus, stackSeg, p.SP))
	_, pending = p.PendingInterrupt()
	assert.False(t, pending)
}

func TestRaiseHardwareInterruptOverwrites(t *testing.T) {
	p, _ := newTestCPU()
	p.RaiseHardwareInterrupt(8)
	p.RaiseHardwareInterrupt(9)

	n, ok := p.PendingInterrupt()
	assert.True(t, ok)
	assert.Equal(t, byte(9), n)
}

func TestAbortFromHook(t *testing.T) {
	p, _ := newTestCPU(0x90, 0x90, 0x90, 0x90, 0xF4)

	var calls int
	p.SetInstructionHook(func() {
		if calls++; calls == 2 {
			p.Abort()
		}
	})

	aborted, err := p.Run(100)
	require.NoError(t, err)
	assert.True(t, aborted)
	assert.Equal(t, uint16(2), p.IP)
	assert.Equal(t, uint64(2), p.Instructions())

	aborted, err = p.Run(1)
	require.NoError(t, err)
	assert.False(t, aborted)
	assert.Equal(t, uint16(3), p.IP)
}

type testDebugger struct {
	step       bool
	allowInt   bool
	interrupts []byte
	seenIP     uint16
	p          *CPU
}

func (d *testDebugger) OnStep() bool {
	return d.step
}

func (d *testDebugger) OnSoftwareInterrupt(n byte) bool {
	d.interrupts = append(d.interrupts, n)
	d.seenIP = d.p.IP
	return d.allowInt
}

func TestDebugger(t *testing.T) {
	t.Run("decline step", func(t *testing.T) {
		p, _ := newTestCPU(0x90, 0xF4)
		p.SetDebugger(&testDebugger{p: p})

		aborted, err := p.Run(10)
		require.NoError(t, err)
		assert.True(t, aborted)
		assert.Equal(t, uint16(0), p.IP)
	})

	t.Run("veto interrupt", func(t *testing.T) {
		p, _ := newTestCPU(0x90, 0xCD, 0x21, 0xF4)
		d := &testDebugger{p: p, step: true}
		p.SetDebugger(d)

		runUntilHalt(t, p)
		assert.Equal(t, []byte{0x21}, d.interrupts)
		assert.Equal(t, uint16(1), d.seenIP)
		assert.Equal(t, uint16(4), p.IP)
	})
}

func TestNonExecutableSegment(t *testing.T) {
	p, bus := newTestCPU(0xEA, 0x00, 0x00, 0x00, 0x50) // JMP 5000:0000
	bus.nonExec[0x5000] = true

	_, err := p.Run(10)
	var fault *processor.Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, byte(processor.VectorGeneralProtection), fault.Vector)
	assert.True(t, errors.Is(err, processor.ErrNonExecutableSegment))
	assert.Equal(t, uint16(codeSeg), p.CS)
	assert.Equal(t, uint16(0), p.IP)

	err = p.SetCS(0x5000)
	assert.True(t, errors.Is(err, processor.ErrNonExecutableSegment))
	assert.Equal(t, uint16(codeSeg), p.CS)
}

func TestHardwareInterruptDispatchFault(t *testing.T) {
	t.Run("running", func(t *testing.T) {
		p, bus := newTestCPU(0xFB, 0x40, 0xF4) // STI, INC AX, HLT
		installHandler(bus, processor.VectorGeneralProtection, 0x100)
		memory.WriteWord(bus, 0, 8*4, 0)
		memory.WriteWord(bus, 0, 8*4+2, 0x5000)
		bus.nonExec[0x5000] = true

		p.RaiseHardwareInterrupt(8)
		require.NoError(t, p.Step())
		require.NoError(t, p.Step())

		assert.Equal(t, uint16(1), p.AX)
		assert.Equal(t, uint16(0x100), p.IP)
		assert.Equal(t, uint16(2), memory.ReadWord(bus, stackSeg, p.SP), "returns past INC AX")

		runUntilHalt(t, p)
		assert.Equal(t, uint16(1), p.AX)
	})

	t.Run("halted", func(t *testing.T) {
		p, bus := newTestCPU(0xFB, 0xF4, 0xF4) // STI, HLT, HLT
		installHandler(bus, processor.VectorGeneralProtection, 0x100)
		memory.WriteWord(bus, 0, 8*4+2, 0x5000)
		bus.nonExec[0x5000] = true

		runUntilHalt(t, p)
		p.RaiseHardwareInterrupt(8)

		runUntilHalt(t, p)
		assert.Equal(t, uint16(0x101), p.IP)
		assert.Equal(t, uint16(2), memory.ReadWord(bus, stackSeg, p.SP))
	})

	t.Run("fatal", func(t *testing.T) {
		p, bus := newTestCPU(0xFB, 0x40, 0xF4) // STI, INC AX, HLT
		memory.WriteWord(bus, 0, 8*4+2, 0x5000)
		bus.nonExec[0x5000] = true

		p.RaiseHardwareInterrupt(8)
		require.NoError(t, p.Step())
		err := p.Step()

		var fault *processor.Fault
		require.True(t, errors.As(err, &fault))
		assert.False(t, fault.RestoreIP)
		assert.Equal(t, uint16(2), fault.IP)
		assert.Equal(t, uint16(2), p.IP)
	})
}

func TestFarTransferFaultKeepsStack(t *testing.T) {
	for _, c := range []struct {
		name string
		code []byte
	}{
		{"RETF", []byte{0xCB}},
		{"RETF d16", []byte{0xCA, 0x04, 0x00}},
		{"IRET", []byte{0xCF}},
	} {
		t.Run(c.name, func(t *testing.T) {
			p, bus := newTestCPU(c.code...)
			bus.nonExec[0x5000] = true
			memory.WriteWord(bus, stackSeg, 0x1000, 0x0010)
			memory.WriteWord(bus, stackSeg, 0x1002, 0x5000)
			memory.WriteWord(bus, stackSeg, 0x1004, uint16(processor.Carry))

			_, err := p.Run(10)
			assert.True(t, errors.Is(err, processor.ErrNonExecutableSegment))
			assert.Equal(t, uint16(0x1000), p.SP)
			assert.Equal(t, uint16(codeSeg), p.CS)
			assert.Equal(t, uint16(0), p.IP)
			assert.False(t, p.CF())
		})
	}

	t.Run("RETF delivered", func(t *testing.T) {
		p, bus := newTestCPU(0xCB)
		installHandler(bus, processor.VectorGeneralProtection, 0x100)
		bus.nonExec[0x5000] = true
		memory.WriteWord(bus, stackSeg, 0x1000, 0x0010)
		memory.WriteWord(bus, stackSeg, 0x1002, 0x5000)

		runUntilHalt(t, p)
		assert.Equal(t, uint16(0x1000-6), p.SP)
		assert.Equal(t, uint16(0), memory.ReadWord(bus, stackSeg, p.SP))
		assert.Equal(t, uint16(codeSeg), memory.ReadWord(bus, stackSeg, p.SP+2))
	})

	t.Run("CALL stack fault", func(t *testing.T) {
		p, bus := newTestCPU(0x9A, 0x00, 0x00, 0x00, 0x50) // CALL 5000:0000
		bus.onWrite = func(seg, offset uint16) {
			panic(processor.GeneralProtectionFault(seg, offset, false))
		}

		_, err := p.Run(10)
		assert.True(t, errors.Is(err, processor.ErrGeneralProtection))
		assert.Equal(t, uint16(0x1000), p.SP)
		assert.Equal(t, uint16(codeSeg), p.CS)
		assert.Equal(t, uint16(0), p.IP)
	})

	t.Run("CALL non-executable", func(t *testing.T) {
		p, bus := newTestCPU(0x9A, 0x00, 0x00, 0x00, 0x50) // CALL 5000:0000
		bus.nonExec[0x5000] = true

		_, err := p.Run(10)
		assert.True(t, errors.Is(err, processor.ErrNonExecutableSegment))
		assert.Equal(t, uint16(0x1000), p.SP)
		assert.Equal(t, uint16(codeSeg), p.CS)
	})
}

func TestBusFault(t *testing.T) {
	p, bus := newTestCPU(0xA2, 0x10, 0x00, 0xF4) // MOV [0x10],AL
	bus.onWrite = func(seg, offset uint16) {
		panic(processor.GeneralProtectionFault(seg, offset, false))
	}

	_, err := p.Run(10)
	var fault *processor.Fault
	require.True(t, errors.As(err, &fault))
	assert.True(t, errors.Is(err, processor.ErrGeneralProtection))
	assert.Equal(t, uint16(dataSeg), fault.Segment)
	assert.Equal(t, uint16(0x10), fault.Offset)
	assert.Equal(t, uint16(0), p.IP)

	bus.onWrite = func(uint16, uint16) { panic("bus error") }
	assert.PanicsWithValue(t, "bus error", func() { p.Run(10) })
}

func TestHaltAndWake(t *testing.T) {
	p, bus := newTestCPU(0xFB, 0xF4, 0xF4) // STI, HLT
	installHandler(bus, 8, 0x100)

	runUntilHalt(t, p)
	assert.Equal(t, uint16(2), p.IP)

	_, err := p.Run(10)
	assert.Equal(t, processor.ErrCPUHalt, err)

	p.RaiseHardwareInterrupt(8)
	runUntilHalt(t, p)
	assert.Equal(t, uint16(0x101), p.IP)
	assert.Equal(t, uint16(2), memory.ReadWord(bus, stackSeg, p.SP))

	p.SetHalted(false)
	p.IP = 2
	runUntilHalt(t, p)
	assert.Equal(t, uint16(3), p.IP)
}

func TestConditionalJump(t *testing.T) {
	p, _ := newTestCPU(
		0xB0, 0x7F, // MOV AL,7Fh
		0x04, 0x01, // ADD AL,1
		0x70, 0x02, // JO +2
		0xB4, 0x01, // MOV AH,1
		0xF4, // HLT
	)

	runUntilHalt(t, p)
	assert.Equal(t, uint16(0x0080), p.AX)
	assert.True(t, p.OF())
	assert.True(t, p.SF())
}

func TestRotateThroughLoop(t *testing.T) {
	p, _ := newTestCPU(0xB0, 0x80, 0xD0, 0xC0, 0xF4) // MOV AL,80h; ROL AL,1

	runUntilHalt(t, p)
	assert.Equal(t, byte(0x01), p.AL())
	assert.True(t, p.CF())
	assert.True(t, p.OF())
}

func TestCallAndReturn(t *testing.T) {
	p, _ := newTestCPU(
		0xE8, 0x01, 0x00, // CALL +1
		0xF4, // HLT
		0xC3, // RET
	)

	require.NoError(t, p.Step())
	assert.Equal(t, uint16(4), p.IP)
	assert.False(t, p.DidReturn())

	require.NoError(t, p.Step())
	assert.Equal(t, uint16(3), p.IP)
	assert.True(t, p.DidReturn())
	assert.Equal(t, uint16(0x1000), p.SP)
}

func TestEnterLeave(t *testing.T) {
	p, _ := newTestCPU(0xC8, 0x04, 0x00, 0x00, 0xC9, 0xF4) // ENTER 4,0; LEAVE
	p.BP = 0x1234

	require.NoError(t, p.Step())
	assert.Equal(t, uint16(0xFFE), p.BP)
	assert.Equal(t, uint16(0xFFA), p.SP)

	runUntilHalt(t, p)
	assert.Equal(t, uint16(0x1234), p.BP)
	assert.Equal(t, uint16(0x1000), p.SP)
}

func TestPushaPopa(t *testing.T) {
	p, bus := newTestCPU(0x60, 0xB8, 0x00, 0x00, 0x61, 0xF4) // PUSHA; MOV AX,0; POPA
	p.AX, p.CX, p.DX, p.BX = 1, 2, 3, 4
	p.BP, p.SI, p.DI = 5, 6, 7

	require.NoError(t, p.Step())
	assert.Equal(t, uint16(0xFF0), p.SP)
	assert.Equal(t, uint16(7), memory.ReadWord(bus, stackSeg, p.SP))
	assert.Equal(t, uint16(0x1000), memory.ReadWord(bus, stackSeg, p.SP+6))

	runUntilHalt(t, p)
	assert.Equal(t, [8]uint16{1, 2, 3, 4, 0x1000, 5, 6, 7},
		[8]uint16{p.AX, p.CX, p.DX, p.BX, p.SP, p.BP, p.SI, p.DI})
}

func TestPortIO(t *testing.T) {
	p, bus := newTestCPU(
		0xE4, 0x60, // IN AL,60h
		0xBA, 0x00, 0x03, // MOV DX,300h
		0xEF, // OUT DX,AX
		0xF4,
	)
	bus.ports[0x60] = 0x1C
	p.SetAH(0xAB)

	runUntilHalt(t, p)
	assert.Equal(t, byte(0x1C), bus.ports[0x300])
	assert.Equal(t, byte(0xAB), bus.ports[0x301])
}

func TestActiveMemoryBus(t *testing.T) {
	p, bus := newTestCPU(0xF4)
	other := newTestBus()
	memory.WriteBytes(other, codeSeg, 0, []byte{0x90, 0xF4})

	p.SetActiveMemoryBus(other)
	runUntilHalt(t, p)
	assert.Equal(t, uint16(2), p.IP)
	assert.Same(t, bus, p.MemoryBus())

	p.SetActiveMemoryBus(nil)
	assert.Same(t, bus, p.ActiveMemoryBus())
}

func TestBound(t *testing.T) {
	p, bus := newTestCPU(0x62, 0x06, 0x00, 0x00, 0xF4) // BOUND AX,[0]
	memory.WriteWord(bus, dataSeg, 0, 0)
	memory.WriteWord(bus, dataSeg, 2, 10)
	installHandler(bus, processor.VectorBound, 0x100)

	p.AX = 5
	require.NoError(t, p.Step())
	assert.Equal(t, uint16(4), p.IP)

	p.IP, p.AX = 0, 11
	require.NoError(t, p.Step())
	assert.Equal(t, uint16(0x100), p.IP)
	assert.Equal(t, uint16(0), memory.ReadWord(bus, stackSeg, p.SP))
}

func BenchmarkLoop(b *testing.B) {
	bus := newTestBus()
	memory.WriteBytes(bus, codeSeg, 0, []byte{
		0xB9, 0xFF, 0xFF, // MOV CX,FFFFh
		0xE2, 0xFE, // LOOP $
		0xF4,
	})

	p := New(bus, bus)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		p.CS, p.IP = codeSeg, 0
		p.SetHalted(false)

		for !p.Halted() {
			if _, err := p.Run(10000); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkStringCopy(b *testing.B) {
	bus := newTestBus()
	memory.WriteBytes(bus, codeSeg, 0, []byte{0xF3, 0xA5, 0xF4}) // REP MOVSW

	p := New(bus, bus)
	p.DS, p.ES = dataSeg, extraSeg
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		p.CS, p.IP = codeSeg, 0
		p.CX, p.SI, p.DI = 0x8000, 0, 0
		p.SetHalted(false)

		if _, err := p.Run(10); err != nil {
			b.Fatal(err)
		}
	}
}
