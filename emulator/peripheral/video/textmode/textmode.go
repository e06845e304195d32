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

package textmode

import (
	"math/rand"
	"sync"
	"time"

	"github.com/andreas-jonsson/i8086-core/emulator/memory"
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

const (
	MemorySize = 0x4000
	MemoryBase = 0xB8000

	Columns = 80
	Rows    = 25

	// PageSize is the number of bytes of one 80x25 text page.
	PageSize = Columns * Rows * 2

	DefaultRefreshRate = 30
)

// Renderer presents a text page. Cursor coordinates are in character cells.
type Renderer interface {
	RenderText(mem []byte, blink bool, bg, cx, cy int)
}

type consoleCursor struct {
	visible bool
	x, y    byte
}

// Device is a CGA compatible text mode adapter. Video memory is mapped at B800:0000
// and the first page is handed to the renderer when it changes.
type Device struct {
	Renderer    Renderer
	RefreshRate int

	lock        sync.Mutex
	dirtyMemory bool
	mem         [MemorySize]byte
	page        [PageSize]byte
	crtReg      [0x100]byte

	crtAddr, modeCtrlReg,
	colorCtrlReg, refresh byte

	cursorPos  uint16
	cursor     consoleCursor
	lastRender time.Time
}

func (m *Device) Install(p processor.Processor) error {
	if m.RefreshRate <= 0 {
		m.RefreshRate = DefaultRefreshRate
	}

	// Scramble memory.
	rand.Read(m.mem[:])
	m.Reset()

	if err := p.InstallMemoryDevice(m, MemoryBase, MemoryBase+MemorySize-1); err != nil {
		return err
	}
	return p.InstallIODevice(m, 0x3D0, 0x3DF)
}

func (m *Device) Name() string {
	return "CGA textmode compatible device"
}

func (m *Device) Reset() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.colorCtrlReg = 0x20
	m.modeCtrlReg = 1
	m.cursorPos = 0
	m.cursor = consoleCursor{visible: true}
	m.dirtyMemory = true
}

// Step renders the visible page at most RefreshRate times per second.
func (m *Device) Step(int) error {
	if m.Renderer == nil || time.Since(m.lastRender) < time.Second/time.Duration(m.RefreshRate) {
		return nil
	}

	m.lock.Lock()
	if !m.dirtyMemory {
		m.lock.Unlock()
		return nil
	}
	m.dirtyMemory = false
	copy(m.page[:], m.mem[:])
	blink := m.modeCtrlReg&0x20 != 0
	bg := int(m.colorCtrlReg & 0xF)
	cx, cy := -1, -1
	if m.cursor.visible {
		cx, cy = int(m.cursor.x), int(m.cursor.y)
	}
	m.lock.Unlock()

	m.lastRender = time.Now()
	m.Renderer.RenderText(m.page[:], blink, bg, cx, cy)
	return nil
}

func (m *Device) In(port uint16) byte {
	m.lock.Lock()
	defer m.lock.Unlock()

	switch port {
	case 0x3D1, 0x3D3, 0x3D5, 0x3D7:
		return m.crtReg[m.crtAddr]
	case 0x3DA:
		m.refresh ^= 0x9
		return m.refresh
	case 0x3D9:
		return m.colorCtrlReg
	}
	return 0
}

func (m *Device) Out(port uint16, data byte) {
	m.lock.Lock()
	defer m.lock.Unlock()

	switch port {
	case 0x3D0, 0x3D2, 0x3D4, 0x3D6:
		m.crtAddr = data
	case 0x3D1, 0x3D3, 0x3D5, 0x3D7:
		m.crtReg[m.crtAddr] = data
		switch m.crtAddr {
		case 0xA:
			m.cursor.visible = data&0x20 == 0
		case 0xE:
			m.cursorPos = (m.cursorPos & 0x00FF) | (uint16(data) << 8)
		case 0xF:
			m.cursorPos = (m.cursorPos & 0xFF00) | uint16(data)
		}

		m.cursor.x = byte(m.cursorPos % Columns)
		m.cursor.y = byte((m.cursorPos / Columns) % Rows)
	case 0x3D8:
		m.modeCtrlReg = data
	case 0x3D9:
		m.colorCtrlReg = data
	default:
		return
	}
	m.dirtyMemory = true
}

func (m *Device) ReadByte(addr memory.Pointer) byte {
	m.lock.Lock()
	v := m.mem[(addr-MemoryBase)&(MemorySize-1)]
	m.lock.Unlock()
	return v
}

func (m *Device) WriteByte(addr memory.Pointer, data byte) {
	m.lock.Lock()
	m.dirtyMemory = true
	m.mem[(addr-MemoryBase)&(MemorySize-1)] = data
	m.lock.Unlock()
}
