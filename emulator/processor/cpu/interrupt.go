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
	"errors"
	"fmt"

	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

// catch turns a *processor.Fault panic raised inside a bus callback into an error.
// Any other panic is passed on.
func catch(err *error) {
	if r := recover(); r != nil {
		fault, ok := r.(*processor.Fault)
		if !ok {
			panic(r)
		}
		*err = fault
	}
}

// RaiseHardwareInterrupt queues n for delivery after the current instruction once
// interrupts are enabled. Only one request is held; a new one replaces it.
func (p *CPU) RaiseHardwareInterrupt(n byte) {
	p.pending = n
	p.hasPending = true
}

// PendingInterrupt returns the queued hardware interrupt, if any.
func (p *CPU) PendingInterrupt() (byte, bool) {
	return p.pending, p.hasPending
}

// IsInterruptHandlerInstalled reports if the vector for n has a non-zero segment.
func (p *CPU) IsInterruptHandlerInstalled(n byte) (installed bool) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*processor.Fault); !ok {
				panic(r)
			}
			installed = false
		}
	}()
	return p.readWord(p.ivt, uint16(n)*4+2) != 0
}

// RaiseInterrupt dispatches interrupt n immediately through the vector table.
// An empty vector returns processor.ErrInterruptNotHandled.
func (p *CPU) RaiseInterrupt(n byte) (err error) {
	defer catch(&err)

	entry := uint16(n) * 4
	cs := p.readWord(p.ivt, entry+2)
	ip := p.readWord(p.ivt, entry)

	if cs == 0 && ip == 0 {
		return fmt.Errorf("%w: 0x%02X at %04X:%04X", processor.ErrInterruptNotHandled, n, p.CS, p.IP)
	}
	if !p.active.IsExecutableSelector(cs) {
		return processor.NonExecutableSegmentFault(cs)
	}

	p.stats.NumInterrupts++

	p.push16(uint16(p.GetFlags()))
	p.push16(p.CS)
	p.push16(p.IP)
	p.SetIF(false)

	p.CS, p.IP = cs, ip
	return nil
}

// softwareInterrupt lets the debugger veto the dispatch. The debugger sees IP at the
// start of the instruction.
func (p *CPU) softwareInterrupt(n byte) error {
	if p.debugger != nil {
		ip := p.IP
		p.IP = p.ipInstruction
		allow := p.debugger.OnSoftwareInterrupt(n)
		p.IP = ip

		if !allow {
			return nil
		}
	}
	return p.RaiseInterrupt(n)
}

// deliverPending dispatches the queued hardware interrupt. Delivery also wakes a halted CPU.
// The previous instruction has completed, so a dispatch fault keeps IP where it is.
func (p *CPU) deliverPending() error {
	n := p.pending
	p.hasPending, p.halted = false, false

	err := p.softwareInterrupt(n)
	var fault *processor.Fault
	if errors.As(err, &fault) {
		fault.RestoreIP = false
	}
	return err
}

// handleFault delivers a fault to the guest when a handler is installed. Everything
// else is returned as fatal.
func (p *CPU) handleFault(err error) error {
	p.m1 = false

	var fault *processor.Fault
	if !errors.As(err, &fault) {
		return err
	}

	if fault.RestoreIP {
		p.IP = p.ipInstruction
	}
	fault.CS, fault.IP, fault.HasAddress = p.CS, p.IP, true

	if !p.IsInterruptHandlerInstalled(fault.Vector) {
		return fault
	}
	return p.softwareInterrupt(fault.Vector)
}
