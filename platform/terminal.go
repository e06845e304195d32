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

package platform

import (
	"sync"

	"github.com/gdamore/tcell"
)

const (
	textColumns = 80
	textRows    = 25
)

var cgaPalette = [16]tcell.Color{
	tcell.ColorBlack,
	tcell.ColorNavy,
	tcell.ColorGreen,
	tcell.ColorTeal,
	tcell.ColorMaroon,
	tcell.ColorPurple,
	tcell.ColorOlive,
	tcell.ColorSilver,
	tcell.ColorGray,
	tcell.ColorBlue,
	tcell.ColorLime,
	tcell.ColorAqua,
	tcell.ColorRed,
	tcell.ColorFuchsia,
	tcell.ColorYellow,
	tcell.ColorWhite,
}

type (
	redrawEvent struct{}
	quitEvent   struct{}
)

type Config func(*Terminal) error

// WithScreen replaces the default terminal screen, typically with a simulation screen.
func WithScreen(s tcell.Screen) Config {
	return func(t *Terminal) error {
		t.screen = s
		return nil
	}
}

func WithKeyboardHandler(h func(Scancode)) Config {
	return func(t *Terminal) error {
		t.keyboardHandler = h
		return nil
	}
}

// Terminal draws an 80x25 text page followed by a status line.
type Terminal struct {
	sync.Mutex

	screen tcell.Screen
	page   [textColumns * textRows * 2]byte
	status string

	blink, dirty    bool
	bg, cx, cy      int
	oldBackground   int
	keyboardHandler func(Scancode)

	quitOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// NewTerminal initializes the screen and starts the event loop.
func NewTerminal(configs ...Config) (*Terminal, error) {
	t := &Terminal{
		oldBackground: -1,
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, cfg := range configs {
		if err := cfg(t); err != nil {
			return nil, err
		}
	}

	if t.screen == nil {
		tcell.SetEncodingFallback(tcell.EncodingFallbackASCII)

		var err error
		if t.screen, err = tcell.NewScreen(); err != nil {
			return nil, err
		}
	}

	s := t.screen
	if err := s.Init(); err != nil {
		return nil, err
	}

	s.ShowCursor(0, 0)
	s.DisableMouse()
	s.Clear()

	go t.eventLoop()
	return t, nil
}

// Quit is closed when the user asks to leave with F12 or Ctrl-C.
func (t *Terminal) Quit() <-chan struct{} {
	return t.quit
}

func (t *Terminal) SetKeyboardHandler(h func(Scancode)) {
	t.Lock()
	t.keyboardHandler = h
	t.Unlock()
}

// RenderText queues a redraw of the page. The cursor is hidden when cx or cy is negative.
func (t *Terminal) RenderText(mem []byte, blink bool, bg, cx, cy int) {
	t.Lock()
	copy(t.page[:], mem)
	t.blink, t.bg, t.cx, t.cy = blink, bg, cx, cy
	t.dirty = true
	t.Unlock()
	t.screen.PostEvent(tcell.NewEventInterrupt(redrawEvent{}))
}

// SetStatus replaces the text of the status line.
func (t *Terminal) SetStatus(status string) {
	t.Lock()
	t.status = status
	t.dirty = true
	t.Unlock()
	t.screen.PostEvent(tcell.NewEventInterrupt(redrawEvent{}))
}

// Close stops the event loop and restores the terminal.
func (t *Terminal) Close() error {
	t.screen.PostEventWait(tcell.NewEventInterrupt(quitEvent{}))
	<-t.done
	return nil
}

func (t *Terminal) requestQuit() {
	t.quitOnce.Do(func() { close(t.quit) })
}

func (t *Terminal) eventLoop() {
	s := t.screen
	defer close(t.done)

	for {
		switch ev := s.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyF12, tcell.KeyCtrlC:
				t.requestQuit()
			default:
				t.pushKeyEvent(ev)
			}
		case *tcell.EventResize:
			t.Lock()
			t.dirty, t.oldBackground = true, -1
			t.Unlock()
			s.Sync()
			t.draw()
		case *tcell.EventInterrupt:
			switch ev.Data().(type) {
			case quitEvent:
				s.Fini()
				return
			case redrawEvent:
				t.draw()
			}
		}
	}
}

func (t *Terminal) pushKeyEvent(ev *tcell.EventKey) {
	code := ScancodeFromKey(ev)
	if code == ScanInvalid {
		return
	}

	t.Lock()
	h := t.keyboardHandler
	t.Unlock()

	if h != nil {
		h(code)
	}
}

func (t *Terminal) draw() {
	t.Lock()
	defer t.Unlock()

	if !t.dirty {
		return
	}
	t.dirty = false

	s := t.screen
	if t.bg != t.oldBackground {
		t.oldBackground = t.bg
		s.Fill(' ', tcell.StyleDefault.Background(cgaPalette[t.bg&0xF]))
	}

	for y := 0; y < textRows; y++ {
		for x := 0; x < textColumns; x++ {
			offset := (y*textColumns + x) * 2
			s.SetContent(x, y, codePage437[t.page[offset]], nil, t.createStyleFromAttrib(t.page[offset+1]))
		}
	}

	status := tcell.StyleDefault.Reverse(true)
	x := 0
	for _, r := range t.status {
		if x >= textColumns {
			break
		}
		s.SetContent(x, textRows, r, nil, status)
		x++
	}
	for ; x < textColumns; x++ {
		s.SetContent(x, textRows, ' ', nil, status)
	}

	if t.cx >= 0 && t.cy >= 0 {
		s.ShowCursor(t.cx, t.cy)
	} else {
		s.HideCursor()
	}
	s.Show()
}

// createStyleFromAttrib decodes a CGA attribute byte. With blinking disabled the
// high bit selects the bright background colors.
func (t *Terminal) createStyleFromAttrib(attr byte) tcell.Style {
	blinkAttrib := attr&0x80 != 0
	bgColorIndex := (attr & 0x70) >> 4

	if blinkAttrib && !t.blink {
		bgColorIndex += 8
	}
	return tcell.StyleDefault.Blink(t.blink && blinkAttrib).Background(cgaPalette[bgColorIndex]).Foreground(cgaPalette[attr&0xF])
}
