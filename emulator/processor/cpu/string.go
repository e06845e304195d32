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

package cpu

// String instructions run to completion inside one instruction slot. With a repeat
// prefix and CX=0 the body is skipped entirely.

func (p *CPU) repTest() bool {
	if !p.repeat {
		return false
	}
	p.CX--
	return p.CX != 0
}

// repTestCC also stops REPE on a mismatch and REPNE on a match.
func (p *CPU) repTestCC() bool {
	if !p.repeat {
		return false
	}
	p.CX--
	if p.repeatNE {
		return !p.ZF() && p.CX != 0
	}
	return p.ZF() && p.CX != 0
}

func (p *CPU) stringLoop(body func(), test func() bool) {
	if p.repeat && p.CX == 0 {
		return
	}
	for {
		body()
		if !test() {
			return
		}
	}
}

// stringStep is the pointer increment for an element of n bytes. Direction is read on every call.
func (p *CPU) stringStep(n uint16) uint16 {
	if p.DF() {
		return -n
	}
	return n
}

func (p *CPU) movsb() {
	p.stringLoop(func() {
		p.writeByte(p.ES, p.DI, p.readByte(p.getSeg(p.DS), p.SI))
		d := p.stringStep(1)
		p.SI += d
		p.DI += d
	}, p.repTest)
}

func (p *CPU) movsw() {
	p.stringLoop(func() {
		p.writeWord(p.ES, p.DI, p.readWord(p.getSeg(p.DS), p.SI))
		d := p.stringStep(2)
		p.SI += d
		p.DI += d
	}, p.repTest)
}

func (p *CPU) cmpsb() {
	p.stringLoop(func() {
		p.Sub8(p.readByte(p.getSeg(p.DS), p.SI), p.readByte(p.ES, p.DI))
		d := p.stringStep(1)
		p.SI += d
		p.DI += d
	}, p.repTestCC)
}

func (p *CPU) cmpsw() {
	p.stringLoop(func() {
		p.Sub16(p.readWord(p.getSeg(p.DS), p.SI), p.readWord(p.ES, p.DI))
		d := p.stringStep(2)
		p.SI += d
		p.DI += d
	}, p.repTestCC)
}

func (p *CPU) stosb() {
	p.stringLoop(func() {
		p.writeByte(p.ES, p.DI, p.AL())
		p.DI += p.stringStep(1)
	}, p.repTest)
}

func (p *CPU) stosw() {
	p.stringLoop(func() {
		p.writeWord(p.ES, p.DI, p.AX)
		p.DI += p.stringStep(2)
	}, p.repTest)
}

func (p *CPU) lodsb() {
	p.stringLoop(func() {
		p.SetAL(p.readByte(p.getSeg(p.DS), p.SI))
		p.SI += p.stringStep(1)
	}, p.repTest)
}

func (p *CPU) lodsw() {
	p.stringLoop(func() {
		p.AX = p.readWord(p.getSeg(p.DS), p.SI)
		p.SI += p.stringStep(2)
	}, p.repTest)
}

func (p *CPU) scasb() {
	p.stringLoop(func() {
		p.Sub8(p.AL(), p.readByte(p.ES, p.DI))
		p.DI += p.stringStep(1)
	}, p.repTestCC)
}

func (p *CPU) scasw() {
	p.stringLoop(func() {
		p.Sub16(p.AX, p.readWord(p.ES, p.DI))
		p.DI += p.stringStep(2)
	}, p.repTestCC)
}

func (p *CPU) insb() {
	p.stringLoop(func() {
		p.writeByte(p.ES, p.DI, p.inByte(p.DX))
		p.DI += p.stringStep(1)
	}, p.repTest)
}

func (p *CPU) insw() {
	p.stringLoop(func() {
		p.writeWord(p.ES, p.DI, p.inWord(p.DX))
		p.DI += p.stringStep(2)
	}, p.repTest)
}

func (p *CPU) outsb() {
	p.stringLoop(func() {
		p.outByte(p.DX, p.readByte(p.getSeg(p.DS), p.SI))
		p.SI += p.stringStep(1)
	}, p.repTest)
}

func (p *CPU) outsw() {
	p.stringLoop(func() {
		p.outWord(p.DX, p.readWord(p.getSeg(p.DS), p.SI))
		p.SI += p.stringStep(2)
	}, p.repTest)
}
