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

package processor

import (
	"errors"

	"github.com/andreas-jonsson/i8086-core/emulator/memory"
	"github.com/andreas-jonsson/i8086-core/translate"
)

var f = translate.From

type Stats struct {
	NumInterrupts   uint64
	NumInstructions uint64
	RX, TX          uint64
}

var (
	ErrCPUHalt             = errors.New(f("CPU HALT"))
	ErrInterruptNotHandled = errors.New(f("interrupt not handled"))

	// Fault causes, see Fault.
	ErrDivide               = errors.New(f("divide error"))
	ErrInvalidOpcode        = errors.New(f("invalid opcode"))
	ErrSegmentNotPresent    = errors.New(f("segment not present"))
	ErrGeneralProtection    = errors.New(f("general protection fault"))
	ErrNonExecutableSegment = errors.New(f("attempt to execute code from a non-executable segment"))
)

// Debugger is consulted by the instruction loop. Both callbacks may inspect and
// modify the processor state before returning.
type Debugger interface {
	// OnStep is called before every instruction. Returning false suspends the run.
	OnStep() bool
	// OnSoftwareInterrupt is called before a software interrupt is dispatched.
	// Returning false skips the dispatch.
	OnSoftwareInterrupt(n byte) bool
}

// InterruptController is implemented by devices that queue hardware interrupt requests.
type InterruptController interface {
	GetInterrupt() (int, error)
	IRQ(n int)
}

// Processor is the machine interface handed to peripherals on install.
type Processor interface {
	memory.Bus
	memory.PortBus

	GetRegisters() *Registers
	GetFlags() Flags
	SetFlags(Flags)
	GetStats() Stats
	Break()

	GetMappedMemoryDevice(addr memory.Pointer) memory.Memory
	GetMappedIODevice(port uint16) memory.IO

	InstallMemoryDevice(device memory.Memory, from, to memory.Pointer) error
	InstallIODevice(device memory.IO, from, to uint16) error

	GetInterruptController() InterruptController
	RaiseHardwareInterrupt(n byte)
	PendingInterrupt() (byte, bool)
}
