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

// Package dma claims the DMA controller and page register ports. Transfers are not
// emulated; reads return 0xFF like an idle bus.
package dma

import (
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral"
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

type Device struct {
	peripheral.NullDevice
}

func (m *Device) Install(p processor.Processor) error {
	if err := p.InstallIODevice(m, 0x0, 0xF); err != nil {
		return err
	}
	return p.InstallIODevice(m, 0x80, 0x8F)
}

func (m *Device) Name() string {
	return "DMA Controller (Intel 8237)"
}

func (m *Device) In(port uint16) byte {
	return 0xFF
}

func (m *Device) Out(port uint16, data byte) {
}
