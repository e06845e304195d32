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

// Package network implements a simple packet adapter. The guest moves whole
// Ethernet frames through a small port window and is notified of received
// frames by an interrupt.
//
// Port layout relative to BasePort:
//
//	0	R: status (bit 0 frame ready)  W: command
//	1	R: next received byte          W: append byte to transmit buffer
//	2-3	R: received frame length
//	4-9	R: adapter MAC address
package network

import (
	"crypto/rand"
	"errors"
	"log"
	"net"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

const (
	DefaultBasePort = 0x300
	DefaultIRQ      = 6

	MaxFrameSize = 1518
	queueSize    = 64
)

// Commands written to the status port.
const (
	CommandSend    = 1
	CommandReceive = 2
	CommandReset   = 3
)

const statusReady = 1

var ErrNoDevice = errors.New("no network device selected")

// Handle is the host side of the adapter. A live *pcap.Handle satisfies it.
type Handle interface {
	gopacket.PacketDataSource
	WritePacketData(data []byte) error
	Close()
}

type Device struct {
	BasePort uint16
	IRQ      int
	MAC      net.HardwareAddr

	// Handle is opened on the first suitable host interface when nil.
	Handle Handle

	pic    processor.InterruptController
	frames chan []byte

	rx    []byte
	rxPos int
	tx    []byte

	dropped, received, sent uint64
}

func (m *Device) Install(p processor.Processor) error {
	if m.BasePort == 0 {
		m.BasePort = DefaultBasePort
	}
	if m.IRQ == 0 {
		m.IRQ = DefaultIRQ
	}
	if m.MAC == nil {
		m.MAC = randomMAC()
	}
	log.Print("Network adapter MAC: ", m.MAC)

	if m.Handle == nil {
		h, err := openLive()
		if err != nil {
			return err
		}
		m.Handle = h
	}

	m.pic = p.GetInterruptController()
	m.frames = make(chan []byte, queueSize)
	go m.receive(gopacket.NewPacketSource(m.Handle, layers.LayerTypeEthernet), m.frames)

	return p.InstallIODevice(m, m.BasePort, m.BasePort+9)
}

func randomMAC() net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	rand.Read(mac)
	mac[0] = (mac[0] | 2) &^ 1 // Locally administered unicast.
	return mac
}

// receive forwards frames addressed to the adapter until the handle is closed.
func (m *Device) receive(src *gopacket.PacketSource, frames chan<- []byte) {
	defer close(frames)

	for packet := range src.Packets() {
		eth, ok := packet.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
		if !ok || !m.accept(eth.DstMAC) {
			continue
		}

		data := packet.Data()
		if len(data) > MaxFrameSize {
			continue
		}

		select {
		case frames <- data:
		default:
			atomic.AddUint64(&m.dropped, 1)
		}
	}
}

func (m *Device) accept(dst net.HardwareAddr) bool {
	return dst[0]&1 != 0 || string(dst) == string(m.MAC)
}

func (m *Device) Name() string {
	return "Network Adapter"
}

func (m *Device) Reset() {
	m.rx, m.rxPos, m.tx = nil, 0, m.tx[:0]
}

func (m *Device) Close() error {
	if m.Handle != nil {
		m.Handle.Close()
	}
	return nil
}

// Step loads the next queued frame once the guest has consumed the previous one.
func (m *Device) Step(int) error {
	if m.rx != nil || m.frames == nil {
		return nil
	}

	select {
	case frame, ok := <-m.frames:
		if !ok {
			m.frames = nil
			return nil
		}
		m.rx, m.rxPos = frame, 0
		m.received++
		if m.pic != nil {
			m.pic.IRQ(m.IRQ)
		}
	default:
	}
	return nil
}

func (m *Device) In(port uint16) byte {
	switch port - m.BasePort {
	case 0:
		if m.rx != nil {
			return statusReady
		}
		return 0
	case 1:
		if m.rxPos >= len(m.rx) {
			return 0
		}
		v := m.rx[m.rxPos]
		m.rxPos++
		return v
	case 2:
		return byte(len(m.rx))
	case 3:
		return byte(len(m.rx) >> 8)
	default:
		return m.MAC[port-m.BasePort-4]
	}
}

func (m *Device) Out(port uint16, data byte) {
	switch port - m.BasePort {
	case 0:
		m.command(data)
	case 1:
		if len(m.tx) < MaxFrameSize {
			m.tx = append(m.tx, data)
		}
	}
}

func (m *Device) command(cmd byte) {
	switch cmd {
	case CommandSend:
		m.send()
	case CommandReceive:
		m.rx, m.rxPos = nil, 0
	case CommandReset:
		m.tx = m.tx[:0]
	default:
		log.Printf("Invalid network command: 0x%X", cmd)
	}
}

func (m *Device) send() {
	defer func() { m.tx = m.tx[:0] }()

	packet := gopacket.NewPacket(m.tx, layers.LayerTypeEthernet, gopacket.Default)
	if packet.Layer(layers.LayerTypeEthernet) == nil {
		log.Print("Dropped invalid frame of ", len(m.tx), " bytes")
		return
	}

	if err := m.Handle.WritePacketData(packet.Data()); err != nil {
		log.Print(err)
		return
	}
	m.sent++
}

// Stats returns the number of frames received, sent and dropped on a full queue.
func (m *Device) Stats() (received, sent, dropped uint64) {
	return m.received, m.sent, atomic.LoadUint64(&m.dropped)
}
