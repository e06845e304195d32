//go:build validator

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
	"bufio"
	"os"
	"path/filepath"

	"github.com/andreas-jonsson/i8086-core/emulator/processor"
)

const Enabled = true

var (
	recorder *Recorder
	file     *os.File
	buffer   *bufio.Writer
)

// Initialize starts recording to output. Files ending in .gz use the compressed
// binary format, everything else is written as JSON lines.
func Initialize(output string, queueSize, bufferSize int) error {
	if output == "" {
		return nil
	}

	fp, err := os.Create(output)
	if err != nil {
		return err
	}
	file, buffer = fp, bufio.NewWriterSize(fp, bufferSize)
	recorder = NewRecorder(NewEventWriter(buffer, filepath.Ext(output) == ".gz"), queueSize)
	return nil
}

func Begin(opcode byte, regs processor.Registers, flags uint16) {
	if recorder != nil {
		recorder.Begin(opcode, regs, flags)
	}
}

func End(regs processor.Registers, flags uint16) {
	if recorder != nil {
		recorder.End(regs, flags)
	}
}

func Discard() {
	if recorder != nil {
		recorder.Discard()
	}
}

func ReadByte(addr uint32, data byte) {
	if recorder != nil {
		recorder.ReadByte(addr, data)
	}
}

func WriteByte(addr uint32, data byte) {
	if recorder != nil {
		recorder.WriteByte(addr, data)
	}
}

// Shutdown flushes and closes the output file.
func Shutdown() error {
	if recorder == nil {
		return nil
	}
	err := recorder.Close()
	if ferr := buffer.Flush(); err == nil {
		err = ferr
	}
	if ferr := file.Close(); err == nil {
		err = ferr
	}
	recorder = nil
	return err
}
