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

var opcodeNames = [0x100]string{
	"ADD", "ADD", "ADD", "ADD", "ADD", "ADD", "PUSH ES", "POP ES", // 0x00
	"OR", "OR", "OR", "OR", "OR", "OR", "PUSH CS", "???",
	"ADC", "ADC", "ADC", "ADC", "ADC", "ADC", "PUSH SS", "POP SS", // 0x10
	"SBB", "SBB", "SBB", "SBB", "SBB", "SBB", "PUSH DS", "POP DS",
	"AND", "AND", "AND", "AND", "AND", "AND", "ES:", "DAA", // 0x20
	"SUB", "SUB", "SUB", "SUB", "SUB", "SUB", "CS:", "DAS",
	"XOR", "XOR", "XOR", "XOR", "XOR", "XOR", "SS:", "AAA", // 0x30
	"CMP", "CMP", "CMP", "CMP", "CMP", "CMP", "DS:", "AAS",
	"INC AX", "INC CX", "INC DX", "INC BX", "INC SP", "INC BP", "INC SI", "INC DI", // 0x40
	"DEC AX", "DEC CX", "DEC DX", "DEC BX", "DEC SP", "DEC BP", "DEC SI", "DEC DI",
	"PUSH AX", "PUSH CX", "PUSH DX", "PUSH BX", "PUSH SP", "PUSH BP", "PUSH SI", "PUSH DI", // 0x50
	"POP AX", "POP CX", "POP DX", "POP BX", "POP SP", "POP BP", "POP SI", "POP DI",
	"PUSHA", "POPA", "BOUND", "???", "???", "???", "???", "???", // 0x60
	"PUSH", "IMUL", "PUSH", "IMUL", "INSB", "INSW", "OUTSB", "OUTSW",
	"JO", "JNO", "JB", "JNB", "JZ", "JNZ", "JBE", "JA", // 0x70
	"JS", "JNS", "JPE", "JPO", "JL", "JGE", "JLE", "JG",
	"GRP1", "GRP1", "GRP1", "GRP1", "TEST", "TEST", "XCHG", "XCHG", // 0x80
	"MOV", "MOV", "MOV", "MOV", "MOV", "LEA", "MOV", "POP",
	"NOP", "XCHG CX", "XCHG DX", "XCHG BX", "XCHG SP", "XCHG BP", "XCHG SI", "XCHG DI", // 0x90
	"CBW", "CWD", "CALL FAR", "WAIT", "PUSHF", "POPF", "SAHF", "LAHF",
	"MOV", "MOV", "MOV", "MOV", "MOVSB", "MOVSW", "CMPSB", "CMPSW", // 0xA0
	"TEST", "TEST", "STOSB", "STOSW", "LODSB", "LODSW", "SCASB", "SCASW",
	"MOV AL", "MOV CL", "MOV DL", "MOV BL", "MOV AH", "MOV CH", "MOV DH", "MOV BH", // 0xB0
	"MOV AX", "MOV CX", "MOV DX", "MOV BX", "MOV SP", "MOV BP", "MOV SI", "MOV DI",
	"GRP2", "GRP2", "RET", "RET", "LES", "LDS", "MOV", "MOV", // 0xC0
	"ENTER", "LEAVE", "RETF", "RETF", "INT 3", "INT", "INTO", "IRET",
	"GRP2", "GRP2", "GRP2", "GRP2", "AAM", "AAD", "???", "XLAT", // 0xD0
	"ESC", "ESC", "ESC", "ESC", "ESC", "ESC", "ESC", "ESC",
	"LOOPNZ", "LOOPZ", "LOOP", "JCXZ", "IN", "IN", "OUT", "OUT", // 0xE0
	"CALL", "JMP", "JMP FAR", "JMP", "IN", "IN", "OUT", "OUT",
	"LOCK", "???", "REPNZ", "REPZ", "HLT", "CMC", "GRP3", "GRP3", // 0xF0
	"CLC", "STC", "CLI", "STI", "CLD", "STD", "GRP4", "GRP5",
}

// OpcodeName returns the mnemonic of a primary opcode.
func OpcodeName(op byte) string {
	return opcodeNames[op]
}
