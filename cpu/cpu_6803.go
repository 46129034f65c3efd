// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "fmt"

// Inherent (no operand) 6803 instructions.
var inherent6803 = map[string]byte{
	"NOP": 0x01, "LSRD": 0x04, "ASLD": 0x05, "TAP": 0x06, "TPA": 0x07,
	"INX": 0x08, "DEX": 0x09, "CLV": 0x0A, "SEV": 0x0B, "CLC": 0x0C,
	"SEC": 0x0D, "CLI": 0x0E, "SEI": 0x0F, "SBA": 0x10, "CBA": 0x11,
	"TAB": 0x16, "TBA": 0x17, "DAA": 0x19, "ABA": 0x1B, "TSX": 0x30,
	"INS": 0x31, "PULA": 0x32, "PULB": 0x33, "DES": 0x34, "TXS": 0x35,
	"PSHA": 0x36, "PSHB": 0x37, "PULX": 0x38, "RTS": 0x39, "ABX": 0x3A,
	"RTI": 0x3B, "PSHX": 0x3C, "MUL": 0x3D, "WAI": 0x3E, "SWI": 0x3F,
}

// Branches share one relative addressing form.
var branches6803 = []string{
	"BRA", "BRN", "BHI", "BLS", "BCC", "BCS", "BNE", "BEQ",
	"BVC", "BVS", "BPL", "BMI", "BGE", "BLT", "BGT", "BLE",
}

// Read-modify-write instructions in the 0x40-0x7F block, by low nibble.
var rmw6803 = map[byte]string{
	0x0: "NEG", 0x3: "COM", 0x4: "LSR", 0x6: "ROR", 0x7: "ASR",
	0x8: "ASL", 0x9: "ROL", 0xA: "DEC", 0xC: "INC", 0xD: "TST", 0xF: "CLR",
}

// aluOp describes one column of the accumulator block 0x80-0xFF.
type aluOp struct {
	name string
	imm  int // immediate operand size: 0 (none), 1 or 2 bytes
	dir  bool
	role string
}

// The A column occupies 0x80-0xBF and the B column 0xC0-0xFF, indexed by
// the low nibble of the opcode.
var aluA6803 = [16]aluOp{
	{"SUBA", 1, true, "data"}, {"CMPA", 1, true, "data"}, {"SBCA", 1, true, "data"}, {"SUBD", 2, true, "data"},
	{"ANDA", 1, true, "data"}, {"BITA", 1, true, "data"}, {"LDAA", 1, true, "data"}, {"STAA", 0, true, "data"},
	{"EORA", 1, true, "data"}, {"ADCA", 1, true, "data"}, {"ORAA", 1, true, "data"}, {"ADDA", 1, true, "data"},
	{"CPX", 2, true, "data"}, {"JSR", 0, true, "code"}, {"LDS", 2, true, "data"}, {"STS", 0, true, "data"},
}

var aluB6803 = [16]aluOp{
	{"SUBB", 1, true, "data"}, {"CMPB", 1, true, "data"}, {"SBCB", 1, true, "data"}, {"ADDD", 2, true, "data"},
	{"ANDB", 1, true, "data"}, {"BITB", 1, true, "data"}, {"LDAB", 1, true, "data"}, {"STAB", 0, true, "data"},
	{"EORB", 1, true, "data"}, {"ADCB", 1, true, "data"}, {"ORAB", 1, true, "data"}, {"ADDB", 1, true, "data"},
	{"LDD", 2, true, "data"}, {"STD", 0, true, "data"}, {"LDX", 2, true, "data"}, {"STX", 0, true, "data"},
}

func table6803() []opcodeData {
	var t []opcodeData
	for _, name := range sortedKeys(inherent6803) {
		t = append(t, opcodeData{name, fmt.Sprintf("%02X", inherent6803[name]), ""})
	}
	for i, name := range branches6803 {
		t = append(t, opcodeData{name + " r", fmt.Sprintf("%02X rr", 0x20+i), "r=code_pcr"})
	}
	t = append(t, opcodeData{"BSR r", "8D rr", "r=code_pcr"})

	for lo := byte(0); lo < 16; lo++ {
		name, ok := rmw6803[lo]
		if !ok {
			continue
		}
		t = append(t,
			opcodeData{name + "A", fmt.Sprintf("%02X", 0x40|lo), ""},
			opcodeData{name + "B", fmt.Sprintf("%02X", 0x50|lo), ""},
			opcodeData{name + " p,X", fmt.Sprintf("%02X pp", 0x60|lo), "p=data"},
			opcodeData{name + " a", fmt.Sprintf("%02X a1 a0", 0x70|lo), "a=data"},
		)
	}
	t = append(t,
		opcodeData{"JMP p,X", "6E pp", "p=code"},
		opcodeData{"JMP a", "7E a1 a0", "a=code"},
	)

	for lo := range aluA6803 {
		t = append(t, aluRows6803(0x80+byte(lo), aluA6803[lo])...)
	}
	for lo := range aluB6803 {
		t = append(t, aluRows6803(0xC0+byte(lo), aluB6803[lo])...)
	}
	return t
}

// aluRows6803 returns the immediate, direct, indexed and extended forms of
// an accumulator-block instruction whose immediate opcode is code.
func aluRows6803(code byte, op aluOp) []opcodeData {
	var t []opcodeData
	switch op.imm {
	case 1:
		t = append(t, opcodeData{op.name + " #p", fmt.Sprintf("%02X pp", code), "p=const"})
	case 2:
		t = append(t, opcodeData{op.name + " #a", fmt.Sprintf("%02X a1 a0", code), "a=const"})
	}
	use := func(l byte) string { return fmt.Sprintf("%c=%s", l, op.role) }
	if op.dir {
		t = append(t, opcodeData{op.name + " p", fmt.Sprintf("%02X pp", code+0x10), use('p')})
	}
	t = append(t,
		opcodeData{op.name + " p,X", fmt.Sprintf("%02X pp", code+0x20), use('p')},
		opcodeData{op.name + " a", fmt.Sprintf("%02X a1 a0", code+0x30), use('a')},
	)
	return t
}

func new6803() (*CPU, error) {
	return newCPU("6803", "Motorola 6803", false, table6803(), Hooks{})
}
