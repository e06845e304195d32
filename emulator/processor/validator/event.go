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

package validator

import (
	"math"

	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

const (
	DefaultQueueSize  = 1024
	DefaultBufferSize = 0x100000 * 16

	// MaxMemOps is the number of reads and writes kept per instruction.
	MaxMemOps = 16
)

// State is the visible processor state around an instruction.
type State struct {
	processor.Registers
	Flags uint16
}

// Event describes one executed instruction.
type Event struct {
	Opcode        byte
	Before, After State
	Reads, Writes [MaxMemOps]MemOp

	// Truncated is set when the instruction made more bus accesses than fit.
	Truncated bool
}

type MemOp struct {
	Addr uint32
	Data byte
}

var emptyMemOp = MemOp{math.MaxUint32, 0}

// NewEvent returns an event with every memory slot unused.
func NewEvent(opcode byte) Event {
	ev := Event{Opcode: opcode}
	for i := range ev.Reads {
		ev.Reads[i] = emptyMemOp
		ev.Writes[i] = emptyMemOp
	}
	return ev
}

func (op MemOp) Used() bool {
	return op.Addr != math.MaxUint32
}

func push(ops *[MaxMemOps]MemOp, addr uint32, data byte) bool {
	for i, op := range ops {
		if !op.Used() {
			ops[i] = MemOp{addr, data}
			return true
		}
	}
	return false
}
