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

package emulator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/spf13/afero"

	"github.com/andreas-jonsson/i8086-core/emulator/bus"
	"github.com/andreas-jonsson/i8086-core/emulator/memory"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/debug"
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
	"github.com/andreas-jonsson/i8086-core/emulator/processor/cpu"
)

const (
	DefaultSliceSize   = 10000
	DefaultLoadSegment = 0x1000
	DefaultStackTop    = 0xFFFE

	haltPollInterval = time.Millisecond
)

var ErrImageTooLarge = errors.New("image does not fit in memory")

// Config carries the host options into a Machine.
type Config struct {
	// LimitMIPS caps the execution speed. Zero runs unthrottled.
	LimitMIPS float64
	// SliceSize is the number of instructions run between peripheral steps.
	SliceSize int
	// StopOnHalt makes Run return on HLT even when interrupts are enabled.
	StopOnHalt bool
}

// Machine connects a CPU, a device bus and a set of peripherals.
type Machine struct {
	*bus.Bus

	cfg         Config
	cpu         *cpu.CPU
	pic         processor.InterruptController
	debugger    *debug.Device
	peripherals []peripheral.Peripheral
}

// New creates a machine and installs the peripherals in order. RAM should go first
// since it maps the full memory range.
func New(cfg Config, peripherals ...peripheral.Peripheral) (*Machine, error) {
	if cfg.SliceSize <= 0 {
		cfg.SliceSize = DefaultSliceSize
	}

	m := &Machine{
		Bus:         bus.New(),
		cfg:         cfg,
		peripherals: peripherals,
	}
	m.cpu = cpu.New(m.Bus, m.Bus)

	for _, d := range peripherals {
		if ic, ok := d.(processor.InterruptController); ok && m.pic == nil {
			m.pic = ic
		}
	}

	for i, d := range peripherals {
		log.Print("Installing: ", d.Name())
		if err := d.Install(m); err != nil {
			m.peripherals = peripherals[:i]
			m.Close()
			return nil, fmt.Errorf("could not install %s: %w", d.Name(), err)
		}
		if dbg, ok := d.(processor.Debugger); ok {
			m.cpu.SetDebugger(dbg)
			if dev, ok := d.(*debug.Device); ok {
				m.debugger = dev
			}
		}
	}
	return m, nil
}

func (m *Machine) CPU() *cpu.CPU {
	return m.cpu
}

func (m *Machine) GetRegisters() *processor.Registers {
	return m.cpu.GetRegisters()
}

func (m *Machine) GetFlags() processor.Flags {
	return m.cpu.GetFlags()
}

func (m *Machine) SetFlags(f processor.Flags) {
	m.cpu.SetFlags(f)
}

// GetStats merges the CPU counters with the bus traffic since the last call.
func (m *Machine) GetStats() processor.Stats {
	s := m.cpu.GetStats()
	s.RX, s.TX = m.Bus.TakeStats()
	return s
}

// Break hands control to the debugger, or ends the current slice when there is none.
func (m *Machine) Break() {
	if m.debugger != nil {
		m.debugger.Break()
		return
	}
	m.cpu.Abort()
}

func (m *Machine) GetInterruptController() processor.InterruptController {
	return m.pic
}

func (m *Machine) RaiseHardwareInterrupt(n byte) {
	m.cpu.RaiseHardwareInterrupt(n)
}

func (m *Machine) PendingInterrupt() (byte, bool) {
	return m.cpu.PendingInterrupt()
}

// Reset resets the CPU and every peripheral.
func (m *Machine) Reset() {
	m.cpu.Reset()
	for _, d := range m.peripherals {
		d.Reset()
	}
}

// LoadImage copies a flat program image to seg:0000 and returns its size.
func (m *Machine) LoadImage(fs afero.Fs, name string, seg uint16) (int, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return 0, err
	}

	base := memory.NewPointer(seg, 0)
	if int(base)+len(data) > bus.MemorySize {
		return 0, fmt.Errorf("%w: %s is %d bytes at %v", ErrImageTooLarge, name, len(data), memory.NewAddress(seg, 0))
	}

	for i, v := range data {
		m.Bus.WritePhysical(base+memory.Pointer(i), v)
	}
	m.Bus.TakeStats()

	log.Printf("Loaded %s (%d bytes) at %v", name, len(data), memory.NewAddress(seg, 0))
	return len(data), nil
}

// SetEntry points every segment register at seg, starts execution at seg:ip and
// places the stack at the top of the segment.
func (m *Machine) SetEntry(seg, ip uint16) error {
	if err := m.cpu.SetCS(seg); err != nil {
		return err
	}
	r := m.cpu.GetRegisters()
	r.DS, r.ES, r.SS = seg, seg, seg
	r.IP, r.SP = ip, DefaultStackTop
	return nil
}

// Run executes the machine until ctx is done, the CPU stops on a fatal fault or
// the debugger quits. A halted CPU with interrupts enabled waits for its next
// interrupt; with interrupts disabled Run returns processor.ErrCPUHalt.
func (m *Machine) Run(ctx context.Context) error {
	var nsPerInstruction int64
	if m.cfg.LimitMIPS > 0 {
		nsPerInstruction = int64(1000 / m.cfg.LimitMIPS)
	}

	start := time.Now()
	var executed int64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		before := m.cpu.Instructions()
		_, err := m.cpu.Run(m.cfg.SliceSize)
		n := int(m.cpu.Instructions() - before)
		executed += int64(n)

		if err != nil {
			if !errors.Is(err, processor.ErrCPUHalt) || m.cfg.StopOnHalt || !m.cpu.IF() {
				return err
			}
			time.Sleep(haltPollInterval)
		}

		for _, d := range m.peripherals {
			if err := d.Step(n); err != nil {
				if errors.Is(err, debug.ErrQuit) {
					return nil
				}
				return fmt.Errorf("%s: %w", d.Name(), err)
			}
		}

		if nsPerInstruction > 0 {
			if ahead := time.Duration(executed*nsPerInstruction) - time.Since(start); ahead > 0 {
				time.Sleep(ahead)
			}
		} else {
			runtime.Gosched()
		}
	}
}

// Close releases peripherals that hold host resources.
func (m *Machine) Close() error {
	var firstErr error
	for _, d := range m.peripherals {
		if c, ok := d.(peripheral.PeripheralCloser); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
