// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "fmt"

// Mode describes a 6502 memory addressing mode.
type Mode byte

// All possible 6502 memory addressing modes
const (
	IMM Mode = iota // Immediate
	IMP             // Implied (no operand)
	REL             // Relative
	ZPG             // Zero Page
	ZPX             // Zero Page,X
	ZPY             // Zero Page,Y
	ABS             // Absolute
	ABX             // Absolute,X
	ABY             // Absolute,Y
	IND             // (Indirect)
	IDX             // (Indirect,X)
	IDY             // (Indirect),Y
	ACC             // Accumulator (no operand)
	ZPI             // (Zero Page) on the 65C02
	AIX             // (Absolute,X) on the 65C02
)

// modeForm describes how an addressing mode appears in a mnemonic
// pattern and in the binary template following the opcode byte.
type modeForm struct {
	operand string
	code    string
	letter  byte
	role    string
}

var modeForms = map[Mode]modeForm{
	IMM: {"#p", "pp", 'p', "const"},
	IMP: {"", "", 0, ""},
	ACC: {"A", "", 0, ""},
	REL: {"r", "rr", 'r', "code_pcr"},
	ZPG: {"p", "pp", 'p', "data"},
	ZPX: {"p,X", "pp", 'p', "data"},
	ZPY: {"p,Y", "pp", 'p', "data"},
	ABS: {"a", "a0 a1", 'a', "data"},
	ABX: {"a,X", "a0 a1", 'a', "data"},
	ABY: {"a,Y", "a0 a1", 'a', "data"},
	IND: {"(a)", "a0 a1", 'a', "data"},
	IDX: {"(p,X)", "pp", 'p', "data"},
	IDY: {"(p),Y", "pp", 'p', "data"},
	ZPI: {"(p)", "pp", 'p', "data"},
	AIX: {"(a,X)", "a0 a1", 'a', "data"},
}

// Opcode data for a (name, mode) pair
type opcode6502 struct {
	name   string // all-caps name of the instruction
	mode   Mode   // addressing mode
	opcode byte   // opcode hex value
	cmos   bool   // whether the opcode/mode pair is valid only on 65C02
}

// All valid (name, mode) pairs
var data6502 = []opcode6502{
	{"LDA", IMM, 0xa9, false},
	{"LDA", ZPG, 0xa5, false},
	{"LDA", ZPX, 0xb5, false},
	{"LDA", ABS, 0xad, false},
	{"LDA", ABX, 0xbd, false},
	{"LDA", ABY, 0xb9, false},
	{"LDA", IDX, 0xa1, false},
	{"LDA", IDY, 0xb1, false},
	{"LDA", ZPI, 0xb2, true},

	{"LDX", IMM, 0xa2, false},
	{"LDX", ZPG, 0xa6, false},
	{"LDX", ZPY, 0xb6, false},
	{"LDX", ABS, 0xae, false},
	{"LDX", ABY, 0xbe, false},

	{"LDY", IMM, 0xa0, false},
	{"LDY", ZPG, 0xa4, false},
	{"LDY", ZPX, 0xb4, false},
	{"LDY", ABS, 0xac, false},
	{"LDY", ABX, 0xbc, false},

	{"STA", ZPG, 0x85, false},
	{"STA", ZPX, 0x95, false},
	{"STA", ABS, 0x8d, false},
	{"STA", ABX, 0x9d, false},
	{"STA", ABY, 0x99, false},
	{"STA", IDX, 0x81, false},
	{"STA", IDY, 0x91, false},
	{"STA", ZPI, 0x92, true},

	{"STX", ZPG, 0x86, false},
	{"STX", ZPY, 0x96, false},
	{"STX", ABS, 0x8e, false},

	{"STY", ZPG, 0x84, false},
	{"STY", ZPX, 0x94, false},
	{"STY", ABS, 0x8c, false},

	{"STZ", ZPG, 0x64, true},
	{"STZ", ZPX, 0x74, true},
	{"STZ", ABS, 0x9c, true},
	{"STZ", ABX, 0x9e, true},

	{"ADC", IMM, 0x69, false},
	{"ADC", ZPG, 0x65, false},
	{"ADC", ZPX, 0x75, false},
	{"ADC", ABS, 0x6d, false},
	{"ADC", ABX, 0x7d, false},
	{"ADC", ABY, 0x79, false},
	{"ADC", IDX, 0x61, false},
	{"ADC", IDY, 0x71, false},
	{"ADC", ZPI, 0x72, true},

	{"SBC", IMM, 0xe9, false},
	{"SBC", ZPG, 0xe5, false},
	{"SBC", ZPX, 0xf5, false},
	{"SBC", ABS, 0xed, false},
	{"SBC", ABX, 0xfd, false},
	{"SBC", ABY, 0xf9, false},
	{"SBC", IDX, 0xe1, false},
	{"SBC", IDY, 0xf1, false},
	{"SBC", ZPI, 0xf2, true},

	{"CMP", IMM, 0xc9, false},
	{"CMP", ZPG, 0xc5, false},
	{"CMP", ZPX, 0xd5, false},
	{"CMP", ABS, 0xcd, false},
	{"CMP", ABX, 0xdd, false},
	{"CMP", ABY, 0xd9, false},
	{"CMP", IDX, 0xc1, false},
	{"CMP", IDY, 0xd1, false},
	{"CMP", ZPI, 0xd2, true},

	{"CPX", IMM, 0xe0, false},
	{"CPX", ZPG, 0xe4, false},
	{"CPX", ABS, 0xec, false},

	{"CPY", IMM, 0xc0, false},
	{"CPY", ZPG, 0xc4, false},
	{"CPY", ABS, 0xcc, false},

	{"BIT", IMM, 0x89, true},
	{"BIT", ZPG, 0x24, false},
	{"BIT", ZPX, 0x34, true},
	{"BIT", ABS, 0x2c, false},
	{"BIT", ABX, 0x3c, true},

	{"CLC", IMP, 0x18, false},

	{"SEC", IMP, 0x38, false},

	{"CLI", IMP, 0x58, false},

	{"SEI", IMP, 0x78, false},

	{"CLD", IMP, 0xd8, false},

	{"SED", IMP, 0xf8, false},

	{"CLV", IMP, 0xb8, false},

	{"BCC", REL, 0x90, false},

	{"BCS", REL, 0xb0, false},

	{"BEQ", REL, 0xf0, false},

	{"BNE", REL, 0xd0, false},

	{"BMI", REL, 0x30, false},

	{"BPL", REL, 0x10, false},

	{"BVC", REL, 0x50, false},

	{"BVS", REL, 0x70, false},

	{"BRA", REL, 0x80, true},

	{"BRK", IMP, 0x00, false},

	{"AND", IMM, 0x29, false},
	{"AND", ZPG, 0x25, false},
	{"AND", ZPX, 0x35, false},
	{"AND", ABS, 0x2d, false},
	{"AND", ABX, 0x3d, false},
	{"AND", ABY, 0x39, false},
	{"AND", IDX, 0x21, false},
	{"AND", IDY, 0x31, false},
	{"AND", ZPI, 0x32, true},

	{"ORA", IMM, 0x09, false},
	{"ORA", ZPG, 0x05, false},
	{"ORA", ZPX, 0x15, false},
	{"ORA", ABS, 0x0d, false},
	{"ORA", ABX, 0x1d, false},
	{"ORA", ABY, 0x19, false},
	{"ORA", IDX, 0x01, false},
	{"ORA", IDY, 0x11, false},
	{"ORA", ZPI, 0x12, true},

	{"EOR", IMM, 0x49, false},
	{"EOR", ZPG, 0x45, false},
	{"EOR", ZPX, 0x55, false},
	{"EOR", ABS, 0x4d, false},
	{"EOR", ABX, 0x5d, false},
	{"EOR", ABY, 0x59, false},
	{"EOR", IDX, 0x41, false},
	{"EOR", IDY, 0x51, false},
	{"EOR", ZPI, 0x52, true},

	{"INC", ZPG, 0xe6, false},
	{"INC", ZPX, 0xf6, false},
	{"INC", ABS, 0xee, false},
	{"INC", ABX, 0xfe, false},
	{"INC", ACC, 0x1a, true},

	{"DEC", ZPG, 0xc6, false},
	{"DEC", ZPX, 0xd6, false},
	{"DEC", ABS, 0xce, false},
	{"DEC", ABX, 0xde, false},
	{"DEC", ACC, 0x3a, true},

	{"INX", IMP, 0xe8, false},

	{"INY", IMP, 0xc8, false},

	{"DEX", IMP, 0xca, false},

	{"DEY", IMP, 0x88, false},

	{"JMP", ABS, 0x4c, false},
	{"JMP", AIX, 0x7c, true},
	{"JMP", IND, 0x6c, false},

	{"JSR", ABS, 0x20, false},

	{"RTS", IMP, 0x60, false},

	{"RTI", IMP, 0x40, false},

	{"NOP", IMP, 0xea, false},

	{"TAX", IMP, 0xaa, false},

	{"TXA", IMP, 0x8a, false},

	{"TAY", IMP, 0xa8, false},

	{"TYA", IMP, 0x98, false},

	{"TXS", IMP, 0x9a, false},

	{"TSX", IMP, 0xba, false},

	{"TRB", ZPG, 0x14, true},
	{"TRB", ABS, 0x1c, true},

	{"TSB", ZPG, 0x04, true},
	{"TSB", ABS, 0x0c, true},

	{"PHA", IMP, 0x48, false},

	{"PLA", IMP, 0x68, false},

	{"PHP", IMP, 0x08, false},

	{"PLP", IMP, 0x28, false},

	{"PHX", IMP, 0xda, true},

	{"PLX", IMP, 0xfa, true},

	{"PHY", IMP, 0x5a, true},

	{"PLY", IMP, 0x7a, true},

	{"ASL", ACC, 0x0a, false},
	{"ASL", ZPG, 0x06, false},
	{"ASL", ZPX, 0x16, false},
	{"ASL", ABS, 0x0e, false},
	{"ASL", ABX, 0x1e, false},

	{"LSR", ACC, 0x4a, false},
	{"LSR", ZPG, 0x46, false},
	{"LSR", ZPX, 0x56, false},
	{"LSR", ABS, 0x4e, false},
	{"LSR", ABX, 0x5e, false},

	{"ROL", ACC, 0x2a, false},
	{"ROL", ZPG, 0x26, false},
	{"ROL", ZPX, 0x36, false},
	{"ROL", ABS, 0x2e, false},
	{"ROL", ABX, 0x3e, false},

	{"ROR", ACC, 0x6a, false},
	{"ROR", ZPG, 0x66, false},
	{"ROR", ZPX, 0x76, false},
	{"ROR", ABS, 0x6e, false},
	{"ROR", ABX, 0x7e, false},
}

// table6502 converts the 6502 opcode data into table rows.
func table6502(cmos bool) []opcodeData {
	var table []opcodeData
	for _, d := range data6502 {
		if d.cmos && !cmos {
			continue
		}
		f := modeForms[d.mode]

		row := opcodeData{
			mnemonic: d.name,
			code:     fmt.Sprintf("%02X", d.opcode),
		}
		if f.operand != "" {
			row.mnemonic += " " + f.operand
		}
		if f.code != "" {
			row.code += " " + f.code
		}
		if f.letter != 0 {
			role := f.role
			if (d.name == "JMP" || d.name == "JSR") && role == "data" {
				role = "code"
			}
			row.use = fmt.Sprintf("%c=%s", f.letter, role)
		}
		table = append(table, row)
	}
	return table
}

func new6502() (*CPU, error) {
	return newCPU("6502", "MOS 6502", true, table6502(false), Hooks{})
}

func new65C02() (*CPU, error) {
	return newCPU("65C02", "WDC 65C02", true, table6502(true), Hooks{})
}
