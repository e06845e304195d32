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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/term"

	"github.com/andreas-jonsson/i8086-core/emulator"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/debug"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/disk"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/dma"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/keyboard"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/network"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/pic"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/pit"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/ram"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/serial"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/video/textmode"
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
	"github.com/andreas-jonsson/i8086-core/emulator/processor/validator"
	"github.com/andreas-jonsson/i8086-core/platform"
	"github.com/andreas-jonsson/i8086-core/version"
)

const bootSegment, bootOffset = 0x0, 0x7C00

var (
	imagePath   string
	loadSegment = uint16(emulator.DefaultLoadSegment)
	entryOffset uint
	limitMIPS   float64

	floppyImage, hardDiskImage string
	boot, noTUI, stopOnHalt    bool
	enableNetwork, ver         bool

	tracePath string

	genFd, genHd string
	genHdSize    = 10
)

func init() {
	if p, ok := os.LookupEnv("I86_DEFAULT_IMAGE"); ok {
		imagePath = p
	}
	if s, ok := os.LookupEnv("I86_DEFAULT_LOAD_SEGMENT"); ok {
		if seg, err := strconv.ParseUint(s, 0, 16); err == nil {
			loadSegment = uint16(seg)
		} else {
			log.Print("invalid I86_DEFAULT_LOAD_SEGMENT: ", s)
		}
	}

	flag.BoolVar(&ver, "v", false, "Print version information")
	flag.StringVar(&imagePath, "image", imagePath, "Path to flat program image")
	flag.Func("seg", "Load segment of the program image (default 0x1000)", func(s string) error {
		seg, err := strconv.ParseUint(s, 0, 16)
		loadSegment = uint16(seg)
		return err
	})
	flag.UintVar(&entryOffset, "entry", 0, "Entry offset inside the load segment")
	flag.Float64Var(&limitMIPS, "mips", 0, "Limit CPU speed")
	flag.BoolVar(&stopOnHalt, "stop-on-halt", false, "Exit when the CPU halts, even with interrupts enabled")

	flag.StringVar(&floppyImage, "fd", "", "Floppy disk image")
	flag.StringVar(&hardDiskImage, "hd", "", "Harddrive image")
	flag.BoolVar(&boot, "boot", false, "Boot from disk instead of loading an image")
	flag.BoolVar(&enableNetwork, "net", false, "Attach network adapter to the first host interface")
	flag.BoolVar(&noTUI, "no-tui", false, "Do not use the terminal front-end")

	flag.StringVar(&genFd, "gen-fd", "", "Create a blank 1.44MB floppy image")
	flag.StringVar(&genHd, "gen-hd", "", "Create a blank 10MB harddrive image")
	flag.IntVar(&genHdSize, "gen-hd-size", genHdSize, "Set size of the generated harddrive image in megabytes")

	if validator.Enabled {
		flag.StringVar(&tracePath, "trace", "trace.json", "Instruction trace output (.gz for compressed)")
	}
}

func main() {
	flag.Parse()

	if ver {
		fmt.Println(version.Banner("i8086"))
		return
	}

	fs := afero.NewOsFs()
	if done, err := genImage(fs); done {
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := run(fs); err != nil {
		log.Fatal(err)
	}
}

// genImage creates blank disk images. It reports true if an image was requested.
func genImage(fs afero.Fs) (bool, error) {
	if genHdSize < 10 {
		genHdSize = 10
	} else if genHdSize > 500 {
		genHdSize = 500
	}

	switch {
	case genFd != "":
		return true, writeBlank(fs, genFd, 0x168000)
	case genHd != "":
		return true, writeBlank(fs, genHd, int64(genHdSize)*0x100000)
	}
	return false, nil
}

func writeBlank(fs afero.Fs, name string, size int64) error {
	fp, err := fs.Create(name)
	if err != nil {
		return err
	}
	defer fp.Close()

	var buffer [0x10000]byte
	for size > 0 {
		n := int64(len(buffer))
		if n > size {
			n = size
		}
		if _, err := fp.Write(buffer[:n]); err != nil {
			return err
		}
		size -= n
	}
	return nil
}

func run(fs afero.Fs) error {
	if err := validator.Initialize(tracePath, validator.DefaultQueueSize, validator.DefaultBufferSize); err != nil {
		return err
	}
	defer func() {
		if err := validator.Shutdown(); err != nil {
			log.Print(err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !debug.EnableDebug {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}

	tui := !noTUI && term.IsTerminal(int(os.Stdout.Fd()))
	if !tui {
		log.Print(version.Banner("i8086"))
	}

	kb := &keyboard.Device{}
	video := &textmode.Device{}
	com1 := &serial.Device{Output: os.Stdout}

	peripherals := []peripheral.Peripheral{
		&ram.Device{}, // RAM (needs to go first since it maps the full memory range)
		&pic.Device{}, // Programmable Interrupt Controller
		&pit.Device{}, // Programmable Interval Timer
		&dma.Device{}, // DMA Controller
		kb,            // Keyboard Controller
		video,         // Video Device
		com1,          // Serial Port (COM1)
	}

	dc := &disk.Device{BootDrive: disk.NoBootDrive}
	if floppyImage != "" || hardDiskImage != "" {
		if floppyImage != "" {
			if err := dc.OpenImage(fs, 0, floppyImage); err != nil {
				return err
			}
		}
		if hardDiskImage != "" {
			if err := dc.OpenImage(fs, 0x80, hardDiskImage); err != nil {
				return err
			}
		}
		peripherals = append(peripherals, dc)
	}

	if enableNetwork {
		peripherals = append(peripherals, &network.Device{})
	}

	if tui {
		debug.MuteLogging(true)
		defer debug.MuteLogging(false)

		t, err := platform.NewTerminal(platform.WithKeyboardHandler(func(s platform.Scancode) {
			if err := kb.SendScancode(byte(s)); err != nil {
				log.Print(err)
			}
		}))
		if err != nil {
			return err
		}
		defer t.Close()

		go func() {
			select {
			case <-t.Quit():
				cancel()
			case <-ctx.Done():
			}
		}()

		video.Renderer = t
		com1.Output = io.Discard
		peripherals = append(peripherals, &statusDevice{terminal: t})
	}

	if debug.EnableDebug {
		peripherals = append(peripherals, &debug.Device{})
	}

	m, err := emulator.New(emulator.Config{LimitMIPS: limitMIPS, StopOnHalt: stopOnHalt}, peripherals...)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := start(fs, m, dc); err != nil {
		return err
	}

	err = m.Run(ctx)
	switch {
	case errors.Is(err, processor.ErrCPUHalt):
		log.Print(err)
		return nil
	case errors.Is(err, context.Canceled):
		return nil
	}
	return err
}

// start loads the program image or the boot sector and sets the entry point.
func start(fs afero.Fs, m *emulator.Machine, dc *disk.Device) error {
	if boot {
		ok, err := dc.Bootable(dc.BootDrive)
		if err != nil {
			return err
		}
		if !ok {
			return disk.ErrNotBootable
		}
		m.Out(disk.DefaultBasePort, 0)
		return m.SetEntry(bootSegment, bootOffset)
	}

	if imagePath == "" {
		return errors.New("no program image, use -image or -boot")
	}
	if _, err := m.LoadImage(fs, imagePath, loadSegment); err != nil {
		return err
	}
	return m.SetEntry(loadSegment, uint16(entryOffset))
}

// statusDevice shows the execution speed on the terminal status line.
type statusDevice struct {
	peripheral.NullDevice

	terminal     *platform.Terminal
	p            processor.Processor
	instructions int
	last         time.Time
}

func (d *statusDevice) Install(p processor.Processor) error {
	d.p = p
	d.last = time.Now()
	return nil
}

func (d *statusDevice) Name() string {
	return "Status Line"
}

func (d *statusDevice) Step(n int) error {
	d.instructions += n
	if t := time.Since(d.last); t >= time.Second {
		r := d.p.GetRegisters()
		mips := float64(d.instructions) / t.Seconds() / 1000000
		d.terminal.SetStatus(fmt.Sprintf(" %s | MIPS: %.2f | CS:IP %04X:%04X | F12 to quit", version.Banner("i8086"), mips, r.CS, r.IP))
		d.instructions, d.last = 0, time.Now()
	}
	return nil
}
