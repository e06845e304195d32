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
	"log"

	"github.com/andreas-jonsson/i8086-core/emulator/memory"
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
	"github.com/andreas-jonsson/i8086-core/emulator/processor/alu"
	"github.com/andreas-jonsson/i8086-core/emulator/processor/validator"
)

// CPU interprets 8086 and 80186 machine code against a segmented memory bus and a port bus.
// It is not safe for concurrent use; the host drives it from a single goroutine.
type CPU struct {
	processor.Registers
	alu.ALU
	instructionState

	mem, active memory.Bus
	io          memory.PortBus

	ivt        uint16
	pending    byte
	hasPending bool

	halted, aborted bool
	budget          int
	instructions    uint64
	inDebugger      bool

	hook     func()
	debugger processor.Debugger
	stats    processor.Stats
}

func New(mem memory.Bus, io memory.PortBus) *CPU {
	p := &CPU{mem: mem, active: mem, io: io}
	p.Reset()
	return p
}

// Reset clears registers, flags and any pending interrupt. The bus configuration,
// hooks and interrupt table base are kept.
func (p *CPU) Reset() {
	log.Print("CPU reset!")

	p.Registers.Reset()
	p.ALU.Reset()
	p.ALU.SetFlags(0)
	p.instructionState = instructionState{}
	p.hasPending, p.halted, p.aborted = false, false, false
}

func (p *CPU) MemoryBus() memory.Bus {
	return p.mem
}

func (p *CPU) ActiveMemoryBus() memory.Bus {
	return p.active
}

// SetActiveMemoryBus redirects memory traffic until it is called again. Passing nil
// restores the bus given to New.
func (p *CPU) SetActiveMemoryBus(b memory.Bus) {
	if b == nil {
		b = p.mem
	}
	p.active = b
}

func (p *CPU) PortBus() memory.PortBus {
	return p.io
}

func (p *CPU) GetRegisters() *processor.Registers {
	return &p.Registers
}

func (p *CPU) GetFlags() processor.Flags {
	return p.ALU.Flags()
}

// GetStats returns the counters collected since the last call.
func (p *CPU) GetStats() processor.Stats {
	s := p.stats
	p.stats = processor.Stats{}
	return s
}

// SetCS loads the code segment. Selectors the active bus does not report as
// executable are rejected with a fault and the register keeps its value.
func (p *CPU) SetCS(v uint16) error {
	if !p.active.IsExecutableSelector(v) {
		return processor.NonExecutableSegmentFault(v)
	}
	p.CS = v
	return nil
}

// setSeg writes a segment register by encoding. CS goes through SetCS.
func (p *CPU) setSeg(i byte, v uint16) error {
	switch i & 3 {
	case processor.ES:
		p.ES = v
	case processor.CS:
		return p.SetCS(v)
	case processor.SS:
		p.SS = v
	case processor.DS:
		p.DS = v
	}
	return nil
}

func (p *CPU) SetIVTBase(seg uint16) {
	p.ivt = seg
}

func (p *CPU) IVTBase() uint16 {
	return p.ivt
}

func (p *CPU) SetInstructionHook(fn func()) {
	p.hook = fn
}

func (p *CPU) SetDebugger(d processor.Debugger) {
	p.debugger = d
}

// InDebugger reports if the debugger step callback is currently running.
func (p *CPU) InDebugger() bool {
	return p.inDebugger
}

// Instructions is the total number of instruction slots started since New.
func (p *CPU) Instructions() uint64 {
	return p.instructions
}

// DidReturn reports if the last instruction was RET, RETF or IRET.
func (p *CPU) DidReturn() bool {
	return p.didReturn
}

// M1 is true while the opcode byte is being fetched.
func (p *CPU) M1() bool {
	return p.m1
}

// InstructionAddress is the start of the instruction currently or most recently executed.
func (p *CPU) InstructionAddress() memory.Address {
	return memory.NewAddress(p.CS, p.ipInstruction)
}

func (p *CPU) readByte(seg, offset uint16) byte {
	v := p.active.ReadByte(seg, offset)
	validator.ReadByte(uint32(memory.NewPointer(seg, offset)), v)
	return v
}

func (p *CPU) writeByte(seg, offset uint16, data byte) {
	validator.WriteByte(uint32(memory.NewPointer(seg, offset)), data)
	p.active.WriteByte(seg, offset, data)
}

func (p *CPU) readWord(seg, offset uint16) uint16 {
	return uint16(p.readByte(seg, offset)) | uint16(p.readByte(seg, offset+1))<<8
}

func (p *CPU) writeWord(seg, offset, data uint16) {
	p.writeByte(seg, offset, byte(data&0xFF))
	p.writeByte(seg, offset+1, byte(data>>8))
}

func (p *CPU) inByte(port uint16) byte {
	return p.io.In(port)
}

func (p *CPU) outByte(port uint16, data byte) {
	p.io.Out(port, data)
}

func (p *CPU) inWord(port uint16) uint16 {
	return memory.InWord(p.io, port)
}

func (p *CPU) outWord(port, data uint16) {
	memory.OutWord(p.io, port, data)
}

func (p *CPU) push16(v uint16) {
	p.SP -= 2
	p.writeWord(p.SS, p.SP, v)
}

func (p *CPU) pop16() uint16 {
	v := p.readWord(p.SS, p.SP)
	p.SP += 2
	return v
}
