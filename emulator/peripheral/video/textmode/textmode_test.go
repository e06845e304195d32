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

package textmode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreas-jonsson/i8086-core/emulator"
	"github.com/andreas-jonsson/i8086-core/emulator/memory"
	"github.com/andreas-jonsson/i8086-core/emulator/peripheral/ram"
)

type frame struct {
	mem        []byte
	blink      bool
	bg, cx, cy int
}

type testRenderer struct {
	frames []frame
}

func (r *testRenderer) RenderText(mem []byte, blink bool, bg, cx, cy int) {
	r.frames = append(r.frames, frame{append([]byte(nil), mem...), blink, bg, cx, cy})
}

func newDevice(t *testing.T) (*Device, *emulator.Machine, *testRenderer) {
	r := &testRenderer{}
	dev := &Device{Renderer: r, RefreshRate: 1000000}
	m, err := emulator.New(emulator.Config{}, &ram.Device{Clear: true}, dev)
	require.NoError(t, err)
	return dev, m, r
}

func TestRender(t *testing.T) {
	dev, m, r := newDevice(t)

	memory.WriteBytes(m, 0xB800, 0, []byte{'H', 0x1F, 'i', 0x1F})
	require.NoError(t, dev.Step(0))
	require.Len(t, r.frames, 1)

	f := r.frames[0]
	assert.Len(t, f.mem, PageSize)
	assert.Equal(t, []byte{'H', 0x1F, 'i', 0x1F}, f.mem[:4])
	assert.Equal(t, 0, f.cx)
	assert.Equal(t, 0, f.cy)
	assert.Equal(t, 0, f.bg)
	assert.False(t, f.blink)

	require.NoError(t, dev.Step(0))
	assert.Len(t, r.frames, 1, "clean memory is not rendered again")

	assert.Equal(t, byte('i'), m.ReadByte(0xB800, 2))
	assert.Same(t, dev, m.GetMappedMemoryDevice(MemoryBase+MemorySize-1))
}

func TestCursorAndControl(t *testing.T) {
	dev, m, r := newDevice(t)

	pos := uint16(3*Columns + 7)
	m.Out(0x3D4, 0xE)
	m.Out(0x3D5, byte(pos>>8))
	m.Out(0x3D4, 0xF)
	m.Out(0x3D5, byte(pos))
	m.Out(0x3D8, 0x29)
	m.Out(0x3D9, 0x01)

	m.Out(0x3D4, 0xE)
	assert.Equal(t, byte(pos>>8), m.In(0x3D5))
	assert.Equal(t, byte(0x01), m.In(0x3D9))
	assert.NotEqual(t, m.In(0x3DA), m.In(0x3DA), "retrace bits toggle")

	require.NoError(t, dev.Step(0))
	require.NotEmpty(t, r.frames)
	f := r.frames[len(r.frames)-1]
	assert.Equal(t, 7, f.cx)
	assert.Equal(t, 3, f.cy)
	assert.Equal(t, 1, f.bg)
	assert.True(t, f.blink)

	m.Out(0x3D4, 0xA)
	m.Out(0x3D5, 0x20)
	dev.lastRender = time.Time{}
	require.NoError(t, dev.Step(0))
	f = r.frames[len(r.frames)-1]
	assert.Equal(t, -1, f.cx, "hidden cursor")
}
