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

// Command validator compares two instruction traces recorded with the validator
// build tag and reports where they diverge.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/andreas-jonsson/i8086-core/emulator/memory"
	"github.com/andreas-jonsson/i8086-core/emulator/processor"
	"github.com/andreas-jonsson/i8086-core/emulator/processor/validator"
)

var (
	traceInput = "trace.json"
	refInput   = "reference.json"
	maxDiffs   = 10
	compare    = "all"
)

func init() {
	flag.StringVar(&traceInput, "trace", traceInput, "Trace to validate")
	flag.StringVar(&refInput, "reference", refInput, "Reference trace")
	flag.IntVar(&maxDiffs, "max", maxDiffs, "Stop after this many differences")
	flag.StringVar(&compare, "compare", compare, "Comparison: all, location, input")
}

type comparator func(a, b *validator.Event) bool

var comparators = map[string]comparator{
	"all":      equalAll,
	"location": equalOpcodeAndLocation,
	"input":    equalInputData,
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	eq, ok := comparators[compare]
	if !ok {
		log.Fatal("unknown comparison: ", compare)
	}

	fs := afero.NewOsFs()
	a, closeA := openTrace(fs, traceInput)
	defer closeA()
	b, closeB := openTrace(fs, refInput)
	defer closeB()

	res, err := compareTraces(a, b, eq, maxDiffs, os.Stdout)
	if err != nil {
		log.Print(err)
	}
	log.Printf("Instructions: %d, equal: %d", res.total, res.equal)
	if res.total != res.equal {
		os.Exit(1)
	}
}

func openTrace(fs afero.Fs, name string) (validator.EventReader, func()) {
	fp, err := fs.Open(name)
	if err != nil {
		log.Fatal(err)
	}
	r, err := validator.NewEventReader(fp, filepath.Ext(name) == ".gz")
	if err != nil {
		fp.Close()
		log.Fatal(err)
	}
	return r, func() { fp.Close() }
}

type result struct {
	total, equal int
}

// compareTraces reads both streams in lock step until either ends.
func compareTraces(a, b validator.EventReader, eq comparator, maxDiffs int, out io.Writer) (result, error) {
	var res result
	for diffs := 0; diffs < maxDiffs; {
		var ea, eb validator.Event
		errA, errB := a.Decode(&ea), b.Decode(&eb)
		if errors.Is(errA, io.EOF) || errors.Is(errB, io.EOF) {
			return res, nil
		}
		if errA != nil {
			return res, errA
		}
		if errB != nil {
			return res, errB
		}

		res.total++
		if eq(&ea, &eb) {
			res.equal++
			continue
		}

		diffs++
		fmt.Fprintf(out, "#%d opcode 0x%02X at %v\n", res.total, ea.Opcode, memory.NewAddress(ea.Before.CS, ea.Before.IP))
		fmt.Fprintf(out, "  trace:     %v %v\n", ea.After.Registers.String(), processor.Flags(ea.After.Flags))
		fmt.Fprintf(out, "  reference: %v %v\n", eb.After.Registers.String(), processor.Flags(eb.After.Flags))
	}
	return res, nil
}

func equalAll(a, b *validator.Event) bool {
	return *a == *b
}

func equalOpcodeAndLocation(a, b *validator.Event) bool {
	ar, br := &a.Before, &b.Before
	return a.Opcode == b.Opcode && memory.NewPointer(ar.CS, ar.IP) == memory.NewPointer(br.CS, br.IP)
}

func equalInputData(a, b *validator.Event) bool {
	for i, read := range a.Reads {
		if read.Data != b.Reads[i].Data {
			return false
		}
	}
	return a.Opcode == b.Opcode && a.Before == b.Before
}
