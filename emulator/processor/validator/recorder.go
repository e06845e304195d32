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

package validator

import (
	"log"

	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

// Recorder collects one Event per instruction and hands finished events to an
// EventWriter on a separate goroutine.
type Recorder struct {
	inScope bool
	current Event

	output chan Event
	quit   chan error
}

func NewRecorder(w EventWriter, queueSize int) *Recorder {
	r := &Recorder{
		output: make(chan Event, queueSize),
		quit:   make(chan error, 1),
	}

	go func() {
		var err error
		for ev := range r.output {
			if err != nil {
				continue
			}
			if err = w.Encode(ev); err != nil {
				log.Print(err)
			}
		}
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		r.quit <- err
	}()
	return r
}

func (r *Recorder) Begin(opcode byte, regs processor.Registers, flags uint16) {
	r.inScope = true
	r.current = NewEvent(opcode)
	r.current.Before = State{regs, flags}
}

func (r *Recorder) End(regs processor.Registers, flags uint16) {
	if !r.inScope {
		return
	}
	r.inScope = false
	r.current.After = State{regs, flags}
	r.output <- r.current
}

// Discard drops the instruction in flight. Faulting instructions are not recorded.
func (r *Recorder) Discard() {
	r.inScope = false
}

func (r *Recorder) ReadByte(addr uint32, data byte) {
	if r.inScope && !push(&r.current.Reads, addr, data) {
		r.current.Truncated = true
	}
}

func (r *Recorder) WriteByte(addr uint32, data byte) {
	if r.inScope && !push(&r.current.Writes, addr, data) {
		r.current.Truncated = true
	}
}

// Close flushes queued events and returns the first write error.
func (r *Recorder) Close() error {
	close(r.output)
	return <-r.quit
}
