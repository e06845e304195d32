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
)

// Interrupt vectors used by processor faults.
const (
	VectorDivide            = 0
	VectorBound             = 5
	VectorInvalidOpcode     = 6
	VectorSegmentNotPresent = 11
	VectorGeneralProtection = 13
)

// Fault is a processor exception. It is delivered to the guest through the
// interrupt vector table or, when no handler is installed, returned to the host.
type Fault struct {
	Vector    byte
	RestoreIP bool
	Err       error

	// Location of the faulting instruction, filled in by the instruction loop.
	CS, IP     uint16
	HasAddress bool

	// Operand address for protection faults.
	Segment, Offset uint16
	Read            bool
}

func NewFault(vector byte, err error) *Fault {
	return &Fault{Vector: vector, RestoreIP: true, Err: err}
}

func DivideFault() *Fault {
	return NewFault(VectorDivide, ErrDivide)
}

func InvalidOpcodeFault() *Fault {
	return NewFault(VectorInvalidOpcode, ErrInvalidOpcode)
}

func SegmentNotPresentFault(seg uint16) *Fault {
	e := NewFault(VectorSegmentNotPresent, ErrSegmentNotPresent)
	e.Segment = seg
	return e
}

func GeneralProtectionFault(seg, offset uint16, read bool) *Fault {
	e := NewFault(VectorGeneralProtection, ErrGeneralProtection)
	e.Segment, e.Offset, e.Read = seg, offset, read
	return e
}

func NonExecutableSegmentFault(seg uint16) *Fault {
	e := NewFault(VectorGeneralProtection, ErrNonExecutableSegment)
	e.Segment = seg
	return e
}

func (e *Fault) Error() string {
	var msg string
	switch {
	case errors.Is(e.Err, ErrSegmentNotPresent):
		msg = f("%v (segment 0x%04X)", e.Err, e.Segment)
	case errors.Is(e.Err, ErrGeneralProtection):
		op := f("writing")
		if e.Read {
			op = f("reading")
		}
		msg = f("%v %s address %04X:%04X", e.Err, op, e.Segment, e.Offset)
	default:
		msg = f("%v", e.Err)
	}

	if e.HasAddress {
		return f("%s at %04X:%04X (int 0x%02X)", msg, e.CS, e.IP, e.Vector)
	}
	return f("%s (int 0x%02X)", msg, e.Vector)
}

func (e *Fault) Unwrap() error {
	return e.Err
}

func (e *Fault) Is(err error) bool {
	t, ok := err.(*Fault)
	return ok && t.Vector == e.Vector && (t.Err == nil || t.Err == e.Err)
}
