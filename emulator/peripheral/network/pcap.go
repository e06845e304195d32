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

package network

import (
	"log"
	"math"

	"github.com/google/gopacket/pcap"
)

// openLive selects the first interface with a routable address.
func openLive() (Handle, error) {
	devices, err := pcap.FindAllDevs()
	if err != nil {
		return nil, err
	}

	var selected *pcap.Interface

	log.Print("Detected network devices:")
	for i := range devices {
		dev := &devices[i]
		log.Printf(" |- %s (%s)", dev.Description, dev.Name)

		var candidate *pcap.Interface
		for _, addr := range dev.Addresses {
			if addr.IP.IsUnspecified() || addr.IP.IsLoopback() {
				candidate = nil
				break
			}
			log.Printf(" |  |- %v", addr.IP)
			candidate = dev
		}

		if candidate != nil && selected == nil {
			selected = candidate
		}
	}

	if selected == nil {
		return nil, ErrNoDevice
	}

	log.Print("Selected network device: ", selected.Description)
	return pcap.OpenLive(selected.Name, int32(math.MaxUint16), true, pcap.BlockForever)
}
