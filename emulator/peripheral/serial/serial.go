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

package serial

import (
	"bytes"
	"io"
	"sync"

	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

const (
	DefaultBasePort = 0x3F8
	DefaultIRQ      = 4

	MaxBufferSize = 256
)

const (
	regData = iota
	regInterruptEnable
	regInterruptID
	regLineControl
	regModemControl
	regLineStatus
	regModemStatus
	regScratch
)

const (
	lineDataReady = 0x01
	lineTHREmpty  = 0x20
	lineIdle      = 0x40

	dlab = 0x80
)

// Device is an 8250 compatible UART. Bytes written by the guest go to Output and
// bytes passed to Send are received by the guest.
type Device struct {
	BasePort uint16
	IRQ      int
	Output   io.Writer

	lock sync.Mutex

	registers [8]byte
	divisor   uint16
	buffer    bytes.Buffer
	pic       processor.InterruptController
}

func (m *Device) Install(p processor.Processor) error {
	if m.BasePort == 0 {
		m.BasePort = DefaultBasePort
	}
	if m.IRQ == 0 {
		m.IRQ = DefaultIRQ
	}
	m.pic = p.GetInterruptController()
	return p.InstallIODevice(m, m.BasePort, m.BasePort+7)
}

func (m *Device) Name() string {
	return "Serial Port (Intel 8250)"
}

func (m *Device) Reset() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.buffer.Reset()
	m.divisor = 0
	for i := range m.registers {
		m.registers[i] = 0
	}
}

func (m *Device) Step(int) error {
	return nil
}

func (m *Device) irq() {
	if m.pic != nil {
		m.pic.IRQ(m.IRQ)
	}
}

func (m *Device) pushData(data byte) {
	ln := m.buffer.Len()
	if ln == MaxBufferSize {
		return
	}
	if ln == 0 {
		m.irq()
	}
	m.buffer.WriteByte(data)
}

// Send queues bytes for the guest. Data beyond the receive buffer is dropped.
func (m *Device) Send(data ...byte) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for _, v := range data {
		m.pushData(v)
	}
}

func (m *Device) In(port uint16) byte {
	m.lock.Lock()
	defer m.lock.Unlock()

	reg := port & 7
	dlabSet := m.registers[regLineControl]&dlab != 0

	switch {
	case reg == regData && dlabSet:
		return byte(m.divisor)
	case reg == regInterruptEnable && dlabSet:
		return byte(m.divisor >> 8)
	case reg == regData:
		data, err := m.buffer.ReadByte()
		if err != nil {
			data = 0
		}
		if m.buffer.Len() > 0 {
			m.irq()
		}
		return data
	case reg == regInterruptID:
		if m.buffer.Len() > 0 {
			return 0x04
		}
		return 0x01
	case reg == regLineStatus:
		if m.buffer.Len() > 0 {
			return lineIdle | lineTHREmpty | lineDataReady
		}
		return lineIdle | lineTHREmpty
	}
	return m.registers[reg]
}

func (m *Device) Out(port uint16, data byte) {
	m.lock.Lock()
	defer m.lock.Unlock()

	reg := port & 7
	dlabSet := m.registers[regLineControl]&dlab != 0

	switch {
	case reg == regData && dlabSet:
		m.divisor = (m.divisor & 0xFF00) | uint16(data)
	case reg == regInterruptEnable && dlabSet:
		m.divisor = (m.divisor & 0x00FF) | uint16(data)<<8
	case reg == regData:
		if m.Output != nil {
			m.Output.Write([]byte{data})
		}
	default:
		m.registers[reg] = data
	}
}
