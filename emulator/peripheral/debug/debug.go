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

package debug

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/andreas-jonsson/i8086-core/emulator/memory"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral"
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

var (
	EnableDebug, noHistory, debugBreak bool
	listenAddr                         = ":23"
)

var ErrQuit = errors.New("QUIT!")

const DefaultHistorySize = 128

func init() {
	flag.BoolVar(&noHistory, "nohistory", false, "do not record instruction history")
	flag.BoolVar(&EnableDebug, "debug", false, "enable telnet debugger")
	flag.BoolVar(&debugBreak, "break", false, "break on startup")
	flag.StringVar(&listenAddr, "debug-addr", listenAddr, "telnet debugger address")
}

// MuteLogging silences the standard logger.
func MuteLogging(b bool) {
	if b {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stderr)
	}
}

// connection is the monitor stream. It may be replaced at any time by the telnet listener.
type connection struct {
	sync.Mutex
	cond    *sync.Cond
	rw      io.ReadWriter
	scanner *bufio.Scanner
	telnet  bool
}

func (c *connection) set(rw io.ReadWriter, telnet bool) {
	c.Lock()
	c.rw, c.telnet = rw, telnet
	c.scanner = bufio.NewScanner(rw)
	c.cond.Broadcast()
	c.Unlock()
}

func (c *connection) Write(p []byte) (n int, err error) {
	c.Lock()
	defer c.Unlock()

	if c.rw == nil {
		return len(p), nil
	}
	if c.telnet {
		p = bytes.ReplaceAll(p, []byte{0xA}, []byte{0xA, 0xD})
	}
	if n, err = c.rw.Write(p); err != nil {
		c.rw = nil
	}
	return
}

// readLine blocks until a connection is available and a line is read.
func (c *connection) readLine(wait bool) (string, bool) {
	c.Lock()
	for c.rw == nil {
		if !wait {
			c.Unlock()
			return "", false
		}
		c.cond.Wait()
	}
	scanner := c.scanner
	c.Unlock()

	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), true
	}

	c.Lock()
	c.rw = nil
	c.Unlock()
	return "", false
}

type breakpoint struct {
	addr   memory.Address
	anySeg bool
}

func (b breakpoint) matches(addr memory.Address) bool {
	if b.anySeg {
		return b.addr.Offset() == addr.Offset()
	}
	return b.addr == addr
}

func (b breakpoint) String() string {
	if b.anySeg {
		return fmt.Sprintf("CS:%04X", b.addr.Offset())
	}
	return b.addr.String()
}

// Device is the interactive debugger. It implements processor.Debugger and
// is consulted before every instruction and software interrupt.
type Device struct {
	// Monitor is the command stream. When nil a telnet listener is started.
	Monitor      io.ReadWriter
	BreakOnStart bool
	HistorySize  int

	conn     connection
	log      *log.Logger
	listener net.Listener

	signChan            chan os.Signal
	historyChan         chan string
	numInstructionsLost uint64
	lastInstruction     memory.Address
	stepping            bool
	breakOnIRET         bool
	breakOnInt          [0x100]bool
	debugBreak, quit    bool

	mips        float64
	stats       processor.Stats
	updateStats time.Time
	breakpoints []breakpoint
	codeOffset  uint16

	r *processor.Registers
	p processor.Processor
}

func (m *Device) Install(p processor.Processor) error {
	if m.HistorySize <= 0 {
		m.HistorySize = DefaultHistorySize
	}
	m.historyChan = make(chan string, m.HistorySize)
	m.signChan = make(chan os.Signal, 1)
	signal.Notify(m.signChan, os.Interrupt)

	m.conn.cond = sync.NewCond(&m.conn)
	m.log = log.New(&m.conn, "", 0)

	if m.Monitor != nil {
		m.conn.set(m.Monitor, false)
	} else {
		ln, err := net.Listen("tcp", listenAddr)
		if err != nil {
			return err
		}
		m.listener = ln

		go func() {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				m.conn.set(conn, true)

				name, _ := os.Hostname()
				m.log.Print("Connected to: ", name)
			}
		}()
	}

	m.p = p
	m.r = p.GetRegisters()
	m.updateStats = time.Now()
	m.debugBreak = m.BreakOnStart || debugBreak
	return nil
}

func (m *Device) printRegisters() {
	r := m.r
	regs := fmt.Sprintf(
		"AL 0x%X (%d)\tCL 0x%X (%d)\tDL 0x%X (%d)\tBL 0x%X (%d)\nAH 0x%X (%d)\tCH 0x%X (%d)\tDH 0x%X (%d)\tBH 0x%X (%d)\nAX 0x%X (%d)\tCX 0x%X (%d)\tDX 0x%X (%d)\tBX 0x%X (%d)\n\n",
		r.AL(), r.AL(), r.CL(), r.CL(), r.DL(), r.DL(), r.BL(), r.BL(),
		r.AH(), r.AH(), r.CH(), r.CH(), r.DH(), r.DH(), r.BH(), r.BH(),
		r.AX, r.AX, r.CX, r.CX, r.DX, r.DX, r.BX, r.BX,
	) + fmt.Sprintf(
		"SP 0x%X (%d)\tBP 0x%X (%d)\nSI 0x%X (%d)\tDI 0x%X (%d)\n\n",
		r.SP, r.SP, r.BP, r.BP, r.SI, r.SI, r.DI, r.DI,
	) + fmt.Sprintf(
		"ES 0x%X (%d)\tCS 0x%X (%d)\nSS 0x%X (%d)\tDS 0x%X (%d)\nIP 0x%X (%d)",
		r.ES, r.ES, r.CS, r.CS, r.SS, r.SS, r.DS, r.DS, r.IP, r.IP,
	)
	m.log.Println(regs)
	m.log.Println("\n" + m.p.GetFlags().String() + "\n")
}

func instructionToString(op byte) string {
	return fmt.Sprintf("%s (0x%X)", OpcodeName(op), op)
}

func (m *Device) readPhysical(addr int) byte {
	return m.p.ReadByte(uint16(addr>>4)&0xF000, uint16(addr&0xFFFF))
}

func (m *Device) showMemory(rng string) {
	var from, to int
	switch n, _ := fmt.Sscanf(rng, "%x,%x", &from, &to); n {
	case 1:
		d := m.readPhysical(from)
		m.log.Printf("0x%X: 0x%X (%d)\n", from, d, d)
	case 2:
		if num := (to + 1) - from; num > 0 {
			buffer := make([]byte, num)
			for i := range buffer {
				buffer[i] = m.readPhysical(from + i)
			}
			m.log.Print(hex.Dump(buffer))
		}
	default:
		m.log.Println("invalid memory range")
	}
}

func toASCII(b byte) string {
	if b == 0 {
		return "."
	} else if b < 0x20 {
		return "?"
	} else if b > 0x7E {
		return "#"
	}
	return string(rune(b))
}

// renderVideo prints the 80x25 text page at B800:0000.
func (m *Device) renderVideo() {
	var sb strings.Builder
	for y := 0; y < 25; y++ {
		sb.WriteString("| ")
		for x := 0; x < 80; x++ {
			sb.WriteString(toASCII(m.p.ReadByte(0xB800, uint16(y*160+x*2))))
		}
		sb.WriteByte('\n')
	}
	m.log.Print(sb.String())
}

func (m *Device) setCodeOffset(of string) {
	var o uint16
	if n, _ := fmt.Sscanf(of, "%x", &o); n == 1 {
		m.log.Printf("Code offset at: 0x%X\n", o)
		m.codeOffset = o
	}
}

func (m *Device) showBreakpoints() {
	for i, br := range m.breakpoints {
		m.log.Printf("%d:\t%v\n", i, br)
	}
}

// setBreakpoint accepts SEG:OFF or an offset in any code segment.
func (m *Device) setBreakpoint(br string) {
	var seg, off uint16
	if n, _ := fmt.Sscanf(br, "%x:%x", &seg, &off); n == 2 {
		m.breakpoints = append(m.breakpoints, breakpoint{addr: memory.NewAddress(seg, off)})
	} else if n, _ := fmt.Sscanf(br, "%x", &off); n == 1 {
		m.breakpoints = append(m.breakpoints, breakpoint{addr: memory.NewAddress(0, off), anySeg: true})
	} else {
		m.log.Println("invalid breakpoint")
		return
	}
	m.log.Printf("Breakpoint set at: %v\n", m.breakpoints[len(m.breakpoints)-1])
}

func (m *Device) removeBreakpoint(br string) {
	var i int
	if n, _ := fmt.Sscanf(br, "%d", &i); n == 1 && i >= 0 && i < len(m.breakpoints) {
		m.log.Printf("Removed breakpoint %d at: %v\n", i, m.breakpoints[i])
		m.breakpoints = append(m.breakpoints[:i], m.breakpoints[i+1:]...)
	}
}

func (m *Device) toggleInterruptBreak(in string) {
	var n byte
	if c, _ := fmt.Sscanf(in, "%x", &n); c == 1 {
		m.breakOnInt[n] = !m.breakOnInt[n]
		m.log.Printf("Break on INT 0x%X: %v\n", n, m.breakOnInt[n])
	}
}

func (m *Device) showHistoryWithLength(hl string) {
	var num int
	if n, _ := fmt.Sscanf(hl, "%d", &num); n == 1 {
		if num <= 0 {
			num = 0xFFFFF
		}
		m.showHistory(num)
		return
	}
	m.log.Println("invalid history range")
}

func (m *Device) showHistory(num int) {
	m.log.Println("| Lost instructions:", m.numInstructionsLost)

	n := len(m.historyChan)
	for i := 0; i < n; i++ {
		inst := <-m.historyChan
		if i >= n-num {
			m.log.Println(inst)
		}
		m.historyChan <- inst
	}
}

func (m *Device) pushHistory(inst string) {
	select {
	case m.historyChan <- inst:
	default:
		<-m.historyChan
		m.numInstructionsLost++
		m.historyChan <- inst
	}
}

func (m *Device) clearHistory() {
	for {
		select {
		case <-m.historyChan:
			m.numInstructionsLost++
		default:
			return
		}
	}
}

func (m *Device) csToString() string {
	switch m.r.CS {
	case 0xF000:
		return "BIOS"
	default:
		return fmt.Sprintf("0x%X", m.r.CS)
	}
}

func (m *Device) showMemMap() {
	var (
		startAddr      int
		lastDeviceName string
	)

	for i := 0; i < 0x100000; i++ {
		p, b := m.p.GetMappedMemoryDevice(memory.Pointer(i)).(peripheral.Peripheral)
		name := "UNMAPPED"
		if b {
			name = p.Name()
		}

		isLast := i == 0xFFFFF
		if (lastDeviceName != name || isLast) && i > 0 {
			if end := i - 1; startAddr == end {
				m.log.Printf("0x%X: %s", startAddr, lastDeviceName)
			} else {
				if isLast {
					end++
				}
				m.log.Printf("0x%X-0x%X: %s", startAddr, end, lastDeviceName)
			}
			startAddr = i
		}
		lastDeviceName = name
	}
}

func (m *Device) Break() {
	m.debugBreak = true
}

func (m *Device) Continue() {
	m.debugBreak = false
}

// OnStep is called before each instruction. It returns false when the user quits.
func (m *Device) OnStep() bool {
	if m.quit {
		return false
	}

	select {
	case <-m.signChan:
		m.log.Println("BREAK!")
		m.Break()
	default:
	}

	addr := memory.NewAddress(m.r.CS, m.r.IP)
	op := m.p.ReadByte(m.r.CS, m.r.IP)
	inst := instructionToString(op)

	if m.stepping && m.lastInstruction != addr {
		m.Break()
		m.stepping = false
		m.log.Println(inst)
	}

	if m.breakOnIRET && op == 0xCF {
		m.Break()
		m.breakOnIRET = false
		m.log.Println(inst)
	}

	for i, br := range m.breakpoints {
		if br.matches(addr) {
			m.log.Println("BREAK:", i)
			m.Break()
		}
	}

	if m.debugBreak && !m.monitor(addr, inst) {
		m.quit = true
		return false
	}

	if !noHistory {
		m.pushHistory(fmt.Sprintf("| [%s:0x%X] %s", m.csToString(), m.r.IP-m.codeOffset, inst))
	}
	return true
}

// OnSoftwareInterrupt breaks at the handler of interrupts selected with the int command.
func (m *Device) OnSoftwareInterrupt(n byte) bool {
	if m.breakOnInt[n] {
		m.log.Printf("INT 0x%X at %v", n, memory.NewAddress(m.r.CS, m.r.IP))
		m.Break()
	}
	return true
}

// monitor runs the command loop until execution continues. It returns false on quit.
func (m *Device) monitor(addr memory.Address, inst string) bool {
	for m.debugBreak {
		m.log.Printf("[%s:0x%X] DEBUG>", m.csToString(), m.r.IP-m.codeOffset)

		ln, ok := m.conn.readLine(m.listener != nil)
		if !ok {
			if m.listener != nil {
				continue
			}
			ln = "c"
		}

		switch {
		case ln == "q":
			return false
		case ln == "c":
			m.Continue()
		case ln == "" || ln == "s":
			m.Continue()
			m.stepping = true
			m.lastInstruction = addr
		case ln == "i":
			m.Continue()
			m.breakOnIRET = true
		case ln == "r":
			m.printRegisters()
		case ln == "v":
			m.renderVideo()
		case ln == "h":
			m.showHistory(16)
		case ln == "ch":
			m.log.Print("Clear history!")
			m.clearHistory()
		case ln == "t":
			m.log.Printf("MIPS: %.2f\n", m.mips)
			m.log.Printf("%+v\n", m.stats)
		case ln == "@":
			m.log.Printf("%v\n", addr)
			m.log.Print(inst)
		case ln == "cb":
			m.log.Print("Clear breakpoints!")
			m.breakpoints = m.breakpoints[:0]
		case ln == "b":
			m.showBreakpoints()
		case ln == "p":
			m.showMemMap()
		case strings.HasPrefix(ln, "o "):
			m.setCodeOffset(ln[2:])
		case strings.HasPrefix(ln, "h "):
			m.showHistoryWithLength(ln[2:])
		case strings.HasPrefix(ln, "b "):
			m.setBreakpoint(ln[2:])
		case strings.HasPrefix(ln, "rb "):
			m.removeBreakpoint(ln[3:])
		case strings.HasPrefix(ln, "m "):
			m.showMemory(ln[2:])
		case strings.HasPrefix(ln, "int "):
			m.toggleInterruptBreak(ln[4:])
		default:
			m.log.Print("unknown command: ", ln)
		}
	}
	return true
}

func (m *Device) Step(int) error {
	if time.Since(m.updateStats) >= time.Second {
		m.stats = m.p.GetStats()
		m.mips = float64(m.stats.NumInstructions) / 1000000.0
		m.updateStats = time.Now()
	}

	if m.quit {
		return ErrQuit
	}
	return nil
}

func (m *Device) Name() string {
	return "Debug Device"
}

func (m *Device) Reset() {
	m.stepping, m.breakOnIRET = false, false
}

func (m *Device) Close() error {
	signal.Stop(m.signChan)
	if m.listener != nil {
		m.listener.Close()
	}
	return nil
}
