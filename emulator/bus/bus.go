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

// Package bus maps memory and I/O devices into the physical address and port spaces
// and presents them to the processor as a segmented bus.
package bus

import (
	"errors"
	"sync"

	"github.com/andreas-jonsson/i8086-core/emulator/memory"
)

// MaxDevices is the number of distinct memory and I/O devices that can be mapped.
// Slot 0 is reserved for the unmapped dummy device.
const MaxDevices = 32

const (
	MemorySize = 0x100000
	PortSize   = 0x10000
)

var (
	ErrTooManyDevices = errors.New("too many devices")
	ErrInvalidRange   = errors.New("invalid address range")
)

type Bus struct {
	rx, tx uint64

	iomap     [PortSize]byte
	ioDevices [MaxDevices]memory.IO
	numIO     int

	mmap       [MemorySize]byte
	memDevices [MaxDevices]memory.Memory
	numMem     int

	execLock sync.RWMutex
	nonExec  map[uint16]bool
}

func New() *Bus {
	b := &Bus{numIO: 1, numMem: 1, nonExec: make(map[uint16]bool)}
	b.ioDevices[0] = &memory.DummyIO{}
	b.memDevices[0] = &memory.DummyMemory{}
	return b
}

func (b *Bus) memorySlot(device memory.Memory) (byte, error) {
	for i, d := range b.memDevices[:b.numMem] {
		if d == device {
			return byte(i), nil
		}
	}
	if b.numMem == MaxDevices {
		return 0, ErrTooManyDevices
	}
	b.memDevices[b.numMem] = device
	b.numMem++
	return byte(b.numMem - 1), nil
}

func (b *Bus) ioSlot(device memory.IO) (byte, error) {
	for i, d := range b.ioDevices[:b.numIO] {
		if d == device {
			return byte(i), nil
		}
	}
	if b.numIO == MaxDevices {
		return 0, ErrTooManyDevices
	}
	b.ioDevices[b.numIO] = device
	b.numIO++
	return byte(b.numIO - 1), nil
}

// InstallMemoryDevice maps device over the inclusive physical range from-to.
// Later installs replace earlier mappings.
func (b *Bus) InstallMemoryDevice(device memory.Memory, from, to memory.Pointer) error {
	if from > to || to >= MemorySize {
		return ErrInvalidRange
	}
	i, err := b.memorySlot(device)
	if err != nil {
		return err
	}
	for addr := from; addr <= to; addr++ {
		b.mmap[addr] = i
	}
	return nil
}

func (b *Bus) InstallMemoryDeviceAt(device memory.Memory, addr ...memory.Pointer) error {
	for _, a := range addr {
		if err := b.InstallMemoryDevice(device, a, a); err != nil {
			return err
		}
	}
	return nil
}

// InstallIODevice maps device over the inclusive port range from-to.
func (b *Bus) InstallIODevice(device memory.IO, from, to uint16) error {
	if from > to {
		return ErrInvalidRange
	}
	i, err := b.ioSlot(device)
	if err != nil {
		return err
	}
	for port := int(from); port <= int(to); port++ {
		b.iomap[port] = i
	}
	return nil
}

func (b *Bus) InstallIODeviceAt(device memory.IO, port ...uint16) error {
	for _, p := range port {
		if err := b.InstallIODevice(device, p, p); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) GetMappedMemoryDevice(addr memory.Pointer) memory.Memory {
	return b.memDevices[b.mmap[addr&0xFFFFF]]
}

func (b *Bus) GetMappedIODevice(port uint16) memory.IO {
	return b.ioDevices[b.iomap[port]]
}

func (b *Bus) ReadPhysical(addr memory.Pointer) byte {
	b.rx++
	addr &= 0xFFFFF
	return b.GetMappedMemoryDevice(addr).ReadByte(addr)
}

func (b *Bus) WritePhysical(addr memory.Pointer, data byte) {
	b.tx++
	addr &= 0xFFFFF
	b.GetMappedMemoryDevice(addr).WriteByte(addr, data)
}

func (b *Bus) ReadByte(seg, offset uint16) byte {
	return b.ReadPhysical(memory.NewPointer(seg, offset))
}

func (b *Bus) WriteByte(seg, offset uint16, data byte) {
	b.WritePhysical(memory.NewPointer(seg, offset), data)
}

func (b *Bus) In(port uint16) byte {
	b.rx++
	return b.GetMappedIODevice(port).In(port)
}

func (b *Bus) Out(port uint16, data byte) {
	b.tx++
	b.GetMappedIODevice(port).Out(port, data)
}

// SetExecutable marks a selector as executable or not. Every selector starts out executable.
func (b *Bus) SetExecutable(seg uint16, exec bool) {
	b.execLock.Lock()
	defer b.execLock.Unlock()

	if exec {
		delete(b.nonExec, seg)
	} else {
		b.nonExec[seg] = true
	}
}

func (b *Bus) IsExecutableSelector(seg uint16) bool {
	b.execLock.RLock()
	defer b.execLock.RUnlock()
	return !b.nonExec[seg]
}

// TakeStats returns the number of bus reads and writes since the last call.
func (b *Bus) TakeStats() (rx, tx uint64) {
	rx, tx = b.rx, b.tx
	b.rx, b.tx = 0, 0
	return
}
