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

package keyboard

import (
	"errors"
	"sync"
	"time"

	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

const (
	MaxEvents = 64

	// KeyUpMask marks a break code.
	KeyUpMask = 0x80

	DefaultRepeatDelay = 10 * time.Millisecond
)

var ErrQueueFull = errors.New("event queue is full")

// Device is an XT keyboard controller. Scancodes are queued by the host and
// delivered to the guest one at a time on IRQ1.
type Device struct {
	// KeyUpDelay is the time between a make code and its generated break code.
	KeyUpDelay time.Duration

	dataPort, commandPort byte

	lock   sync.Mutex
	events chan byte
	pic    processor.InterruptController
}

func (m *Device) Install(p processor.Processor) error {
	if m.KeyUpDelay <= 0 {
		m.KeyUpDelay = DefaultRepeatDelay
	}
	m.pic = p.GetInterruptController()
	m.events = make(chan byte, MaxEvents)
	return p.InstallIODevice(m, 0x60, 0x64)
}

func (m *Device) Name() string {
	return "Keyboard Controller"
}

func (m *Device) Reset() {
	m.lock.Lock()
	m.dataPort = 0
	m.commandPort = 0
	m.lock.Unlock()

	for {
		select {
		case <-m.events:
		default:
			return
		}
	}
}

func (m *Device) pushEvent(ev byte) error {
	select {
	case m.events <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// SendScancode queues a make code followed by its break code. It is safe to call
// from the front-end goroutine.
func (m *Device) SendScancode(code byte) error {
	if err := m.pushEvent(code &^ KeyUpMask); err != nil {
		return err
	}
	go func() {
		time.Sleep(m.KeyUpDelay)
		m.pushEvent(code | KeyUpMask)
	}()
	return nil
}

// Step hands the next scancode to the guest once the previous one was read.
func (m *Device) Step(int) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.commandPort&2 != 0 {
		return nil
	}

	select {
	case ev := <-m.events:
		m.commandPort |= 2
		m.dataPort = ev
		if m.pic != nil {
			m.pic.IRQ(1)
		}
	default:
	}
	return nil
}

func (m *Device) In(port uint16) byte {
	m.lock.Lock()
	defer m.lock.Unlock()

	switch port {
	case 0x60:
		m.commandPort = 0
		return m.dataPort
	case 0x64:
		return m.commandPort
	}
	return 0
}

func (m *Device) Out(port uint16, data byte) {
}
