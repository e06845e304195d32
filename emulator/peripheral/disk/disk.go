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

// Package disk is a paravirtual disk controller. Writing to BasePort copies the boot
// sector of BootDrive to 0000:7C00, writing to BasePort+1 performs the INT 13h
// service selected by AH with the guest registers as arguments.
package disk

import (
	"errors"
	"io"
	"log"
	"os"
	"sync"

	"github.com/spf13/afero"

	"github.com/andreas-jonsson/i8086-core/emulator/memory"
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

const (
	DefaultBasePort = 0xB0
	SectorSize      = 512

	// NoBootDrive is the BootDrive value meaning no drive was selected.
	NoBootDrive = 0xFF
)

var (
	ErrNoDisk      = errors.New("no disk")
	ErrHasDisk     = errors.New("has disk")
	ErrNotBootable = errors.New("disk is not bootable")
)

type diskDrive struct {
	rws           io.ReadWriteSeeker
	fp            afero.File
	fileSize      uint32
	present, isHD bool

	cylinders, sectors, heads uint16
}

type Device struct {
	BasePort  uint16
	BootDrive byte

	p      processor.Processor
	lock   sync.Mutex
	buffer [SectorSize]byte
	numHD  byte

	disks    [0x100]diskDrive
	lookupAH [0x100]byte
	lookupCF [0x100]bool
}

func (m *Device) Install(p processor.Processor) error {
	if m.BasePort == 0 {
		m.BasePort = DefaultBasePort
	}
	m.p = p
	return p.InstallIODevice(m, m.BasePort, m.BasePort+1)
}

func (m *Device) Name() string {
	return "Disk Controller"
}

func (m *Device) Reset() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.p.WriteByte(0x40, 0x75, m.numHD)

	for i := range m.lookupAH {
		m.lookupAH[i] = 0
	}
	for i := range m.lookupCF {
		m.lookupCF[i] = false
	}
}

func (m *Device) Step(int) error {
	return nil
}

// Close closes the images opened with OpenImage.
func (m *Device) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	var firstErr error
	for i := range m.disks {
		if fp := m.disks[i].fp; fp != nil {
			if err := fp.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			m.disks[i].fp = nil
		}
	}
	return firstErr
}

// OpenImage opens a read-write image file and inserts it as drive dnum. Drive
// numbers from 0x80 are hard disks.
func (m *Device) OpenImage(fs afero.Fs, dnum byte, name string) error {
	fp, err := fs.OpenFile(name, os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	if err := m.Insert(dnum, fp); err != nil {
		fp.Close()
		return err
	}

	m.lock.Lock()
	m.disks[dnum].fp = fp
	m.lock.Unlock()

	if m.BootDrive == NoBootDrive {
		m.BootDrive = dnum
	}
	return nil
}

// Bootable reports if the drive holds a disk with a boot signature.
func (m *Device) Bootable(dnum byte) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	d := &m.disks[dnum]
	if !d.present {
		return false, ErrNoDisk
	}

	var sector [SectorSize]byte
	if _, err := d.rws.Seek(0, io.SeekStart); err != nil {
		return false, err
	}
	if _, err := io.ReadFull(d.rws, sector[:]); err != nil {
		return false, err
	}
	return sector[510] == 0x55 && sector[511] == 0xAA, nil
}

func (m *Device) Eject(dnum byte) (io.ReadWriteSeeker, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	d := &m.disks[dnum]
	if !d.present {
		return nil, ErrNoDisk
	}
	if d.isHD {
		m.numHD--
	}
	d.present = false
	return d.rws, nil
}

func (m *Device) Replace(dnum byte, disk io.ReadWriteSeeker) error {
	m.Eject(dnum)
	return m.Insert(dnum, disk)
}

func (m *Device) Insert(dnum byte, disk io.ReadWriteSeeker) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	d := &m.disks[dnum]
	if d.present {
		return ErrHasDisk
	}

	d.rws = disk
	sz, err := d.rws.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	d.fileSize = uint32(sz)
	if _, err := d.rws.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if d.isHD = dnum >= 0x80; d.isHD {
		d.heads = 16
		d.sectors = 63
		d.cylinders = uint16(d.fileSize / (uint32(d.sectors) * uint32(d.heads) * SectorSize))
		m.numHD++
	} else {
		switch {
		case d.fileSize <= 163840:
			d.cylinders, d.heads, d.sectors = 40, 1, 8
		case d.fileSize <= 368640:
			d.cylinders, d.heads, d.sectors = 40, 2, 9
		case d.fileSize <= 737280:
			d.cylinders, d.heads, d.sectors = 80, 2, 9
		case d.fileSize <= 1228800:
			d.cylinders, d.heads, d.sectors = 80, 2, 15
		default:
			d.cylinders, d.heads, d.sectors = 80, 2, 18
		}
	}

	d.present = true
	return nil
}

func (m *Device) setCF(b bool) {
	f := m.p.GetFlags() &^ processor.Carry
	if b {
		f |= processor.Carry
	}
	m.p.SetFlags(f)
}

func (m *Device) bootstrap() {
	r := m.p.GetRegisters()
	d := &m.disks[m.BootDrive]
	if !d.present {
		log.Print("No boot drive!")
		r.SetAL(0)
		m.setCF(true)
		return
	}

	r.SetDL(m.BootDrive)
	r.SetAL(m.executeOperation(true, d, memory.NewAddress(0x0, 0x7C00), 0, 1, 0, 1))
	m.setCF(false)
}

func (m *Device) executeOperation(readOp bool, disc *diskDrive, dst memory.Address, cylinders uint16, sectors, heads, count byte) byte {
	if sectors == 0 {
		return 0
	}

	lba := (int64(cylinders)*int64(disc.heads)+int64(heads))*int64(disc.sectors) + int64(sectors) - 1
	if _, err := disc.rws.Seek(lba*SectorSize, io.SeekStart); err != nil {
		return 0
	}

	var numSectors byte
	for numSectors < count {
		if readOp {
			if _, err := io.ReadFull(disc.rws, m.buffer[:]); err != nil {
				break
			}
			for _, v := range m.buffer {
				m.p.WriteByte(dst.Segment(), dst.Offset(), v)
				dst = dst.AddInt(1)
			}
		} else {
			for i := range m.buffer {
				m.buffer[i] = m.p.ReadByte(dst.Segment(), dst.Offset())
				dst = dst.AddInt(1)
			}
			if n, err := disc.rws.Write(m.buffer[:]); n != SectorSize || err != nil {
				break
			}
		}
		numSectors++
	}
	return numSectors
}

func (m *Device) executeAndSet(readOp bool) bool {
	r := m.p.GetRegisters()
	d := &m.disks[r.DL()]
	if !d.present {
		r.SetAH(1)
		return true
	}
	r.SetAL(m.executeOperation(readOp, d, memory.NewAddress(r.ES, r.BX), uint16(r.CH())+uint16(r.CL()/64)*256, r.CL()&0x3F, r.DH(), r.AL()))
	r.SetAH(0)
	return false
}

func (m *Device) In(uint16) byte {
	return 0xFF
}

func (m *Device) Out(port uint16, _ byte) {
	m.lock.Lock()
	defer m.lock.Unlock()

	switch port - m.BasePort {
	case 0:
		m.bootstrap()
	case 1:
		r := m.p.GetRegisters()
		ah, dl := r.AH(), r.DL()

		var cf bool
		switch ah {
		case 0: // Reset
			r.SetAH(0)
		case 1: // Return status
			r.SetAH(m.lookupAH[dl])
			m.setCF(m.lookupCF[dl])
			return
		case 2: // Read sector
			cf = m.executeAndSet(true)
		case 3: // Write sector
			cf = m.executeAndSet(false)
		case 4, 5: // Verify and format track
			r.SetAH(0)
		case 8: // Drive parameters
			if d := &m.disks[dl]; !d.present {
				cf = true
				r.SetAH(0xAA)
			} else {
				r.SetAH(0)
				r.SetCH(byte(d.cylinders - 1))
				r.SetCL(byte((d.sectors & 0x3F) + (d.cylinders/256)*64))
				r.SetDH(byte(d.heads - 1))
				if dl < 0x80 {
					r.SetBL(4)
					r.SetDL(2)
				} else {
					r.SetDL(m.numHD)
				}
			}
		default:
			log.Printf("unsupported disk service: 0x%X", ah)
			cf = true
		}
		m.setCF(cf)

		if dl&0x80 != 0 {
			m.p.WriteByte(0x40, 0x74, r.AH())
		}
		m.lookupAH[dl] = r.AH()
		m.lookupCF[dl] = cf
	}
}
