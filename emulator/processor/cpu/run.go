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
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

// Run executes up to n instructions. It returns early with aborted set when Abort is
// called, the debugger declines a step or the CPU halts. A fault without a guest
// handler, or any other fatal condition, is returned as err with the CPU stopped at an
// instruction boundary.
//
// A halted CPU returns processor.ErrCPUHalt until it is released with SetHalted(false)
// or a pending hardware interrupt is accepted.
func (p *CPU) Run(n int) (aborted bool, err error) {
	p.budget, p.aborted = n, false

	for p.budget > 0 {
		if p.halted {
			if !p.IF() || !p.hasPending {
				return p.aborted, processor.ErrCPUHalt
			}
			if err := p.handleFault(p.deliverPending()); err != nil {
				return p.aborted, err
			}
		}

		if err := p.step(); err != nil {
			return p.aborted, err
		}
	}
	return p.aborted, nil
}

// Step executes a single instruction.
func (p *CPU) Step() error {
	_, err := p.Run(1)
	return err
}

func (p *CPU) step() error {
	p.budget--
	p.instructions++
	p.stats.NumInstructions++

	if p.hook != nil {
		p.hook()
	}

	if p.debugger != nil {
		p.inDebugger = true
		cont := p.debugger.OnStep()
		p.inDebugger = false

		if !cont {
			p.Abort()
			return nil
		}
	}

	err := p.decode()
	if err == nil && p.IF() && p.hasPending && !p.interruptShadow {
		err = p.deliverPending()
	}
	if err != nil {
		return p.handleFault(err)
	}
	return nil
}

// Abort ends the current Run after the instruction in flight. It is safe to call from
// hooks, the debugger and bus callbacks.
func (p *CPU) Abort() {
	p.budget = 0
	p.aborted = true
}

func (p *CPU) Halted() bool {
	return p.halted
}

// SetHalted changes the halt state. Halting also aborts the current Run.
func (p *CPU) SetHalted(b bool) {
	if p.halted = b; b {
		p.Abort()
	}
}
