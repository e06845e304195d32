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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreas-jonsson/i8086-core/emulator/processor"
	"github.com/andreas-jonsson/i8086-core/emulator/processor/validator"
)

func writeTrace(t *testing.T, evs ...validator.Event) *bytes.Buffer {
	var buf bytes.Buffer
	w := validator.NewEventWriter(&buf, false)
	for _, ev := range evs {
		require.NoError(t, w.Encode(ev))
	}
	require.NoError(t, w.Close())
	return &buf
}

func TestCompareTraces(t *testing.T) {
	ev := validator.NewEvent(0x90)
	ev.Before.Registers = processor.Registers{CS: 0xF000, IP: 0x10}
	ev.After = ev.Before
	ev.After.IP = 0x11

	other := ev
	other.After.AX = 1

	a, err := validator.NewEventReader(writeTrace(t, ev, ev, ev), false)
	require.NoError(t, err)
	b, err := validator.NewEventReader(writeTrace(t, ev, other), false)
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := compareTraces(a, b, equalAll, 10, &out)
	require.NoError(t, err)
	assert.Equal(t, result{total: 2, equal: 1}, res)
	assert.Contains(t, out.String(), "#2 opcode 0x90 at F000:0010")
}

func TestComparators(t *testing.T) {
	a := validator.NewEvent(0x01)
	b := a
	b.After.AX = 5

	assert.False(t, equalAll(&a, &b))
	assert.True(t, equalOpcodeAndLocation(&a, &b))
	assert.True(t, equalInputData(&a, &b))

	b.Reads[0] = validator.MemOp{Addr: 1, Data: 2}
	assert.False(t, equalInputData(&a, &b))
}
