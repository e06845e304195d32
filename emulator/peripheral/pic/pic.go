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

package pic

import (
	"errors"

	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

var ErrNoInterrupts = errors.New("no interrupts")

// Device is a single 8259 in the PC/XT configuration at ports 0x20-0x21.
type Device struct {
	maskReg, requestReg, serviceReg, icwStep, readMode byte
	icw                                                [5]byte

	p processor.Processor
}

func (m *Device) Install(p processor.Processor) error {
	m.p = p
	return p.InstallIODevice(m, 0x20, 0x21)
}

func (m *Device) Name() string {
	return "Programmable Interrupt Controller (Intel 8259)"
}

func (m *Device) Reset() {
	*m = Device{p: m.p}
}

// Step hands the highest priority request to the CPU when its interrupt slot is free.
func (m *Device) Step(int) error {
	if m.p == nil {
		return nil
	}
	if _, pending := m.p.PendingInterrupt(); pending {
		return nil
	}
	if n, err := m.GetInterrupt(); err == nil {
		m.p.RaiseHardwareInterrupt(byte(n))
	}
	return nil
}

func (m *Device) GetInterrupt() (int, error) {
	has := m.requestReg & (^m.maskReg)
	if has == 0 {
		return 0, ErrNoInterrupts
	}
	for i := 0; i < 8; i++ {
		if (has>>i)&1 != 0 {
			m.requestReg ^= (1 << i)
			m.serviceReg |= (1 << i)
			return int(m.icw[2]) + i, nil
		}
	}
	return 0, nil
}

func (m *Device) IRQ(n int) {
	m.requestReg |= byte(1 << n)
}

func (m *Device) In(port uint16) byte {
	switch port {
	case 0x20:
		if m.readMode == 0 {
			return m.requestReg
		}
		return m.serviceReg
	case 0x21:
		return m.maskReg
	}
	return 0
}

func (m *Device) Out(port uint16, data byte) {
	switch port {
	case 0x20:
		if data&0x10 != 0 { // ICW1
			m.icw[1] = data
			m.icwStep = 2
			m.maskReg = 0
			return
		}
		if data&0x98 == 8 && data&2 != 0 { // OCW3
			m.readMode = data & 1
		}
		if data&0x20 != 0 { // Non-specific EOI
			for i := 0; i < 8; i++ {
				if (m.serviceReg>>i)&1 != 0 {
					m.serviceReg ^= (1 << i)
					return
				}
			}
		}
	case 0x21:
		if m.icwStep > 1 {
			m.icw[m.icwStep] = data
			m.icwStep = m.nextICW()
			return
		}
		m.maskReg = data
	}
}

// nextICW returns the next initialization word expected, or 0 when done.
// ICW3 is skipped in single mode and ICW4 when ICW1 does not ask for it.
func (m *Device) nextICW() byte {
	single, needICW4 := m.icw[1]&2 != 0, m.icw[1]&1 != 0
	switch {
	case m.icwStep == 2 && !single:
		return 3
	case m.icwStep < 4 && needICW4:
		return 4
	}
	return 0
}
