// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"
	"strings"
)

// 8-bit registers in encoding order. Index 6 is the (HL) memory operand.
var regs8Z80 = []string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}

// 16-bit register pairs in encoding order.
var pairsZ80 = []string{"BC", "DE", "HL", "SP"}

// Condition codes in encoding order. The Game Boy only has the first four.
var condsZ80 = []string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}

// Accumulator operations in encoding order.
var aluZ80 = []string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}

// CB-prefixed rotate and shift operations. The Game Boy replaces SLL
// with SWAP.
var rotZ80 = []string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}

// zTable accumulates table rows with printf-style helpers.
type zTable []opcodeData

func (t *zTable) add(mnemonic, code, use string) {
	*t = append(*t, opcodeData{mnemonic, code, use})
}

func (t *zTable) addf(mnemonic string, code byte, tail, use string) {
	c := fmt.Sprintf("%02X", code)
	if tail != "" {
		c += " " + tail
	}
	t.add(mnemonic, c, use)
}

// tableZ80 builds the Z80 opcode table, or the Game Boy's variant of it
// when gb is true.
func tableZ80(gb bool) []opcodeData {
	var t zTable
	conds := condsZ80
	rot := rotZ80
	if gb {
		conds = condsZ80[:4]
		rot = append(append([]string(nil), rotZ80[:6]...), "SWAP", "SRL")
	}

	for _, d := range []struct {
		mnemonic string
		code     byte
	}{
		{"NOP", 0x00}, {"RLCA", 0x07}, {"RRCA", 0x0F}, {"RLA", 0x17},
		{"RRA", 0x1F}, {"DAA", 0x27}, {"CPL", 0x2F}, {"SCF", 0x37},
		{"CCF", 0x3F}, {"HALT", 0x76}, {"RET", 0xC9}, {"DI", 0xF3},
		{"EI", 0xFB}, {"JP (HL)", 0xE9}, {"LD SP,HL", 0xF9},
		{"LD (BC),A", 0x02}, {"LD A,(BC)", 0x0A},
		{"LD (DE),A", 0x12}, {"LD A,(DE)", 0x1A},
	} {
		t.addf(d.mnemonic, d.code, "", "")
	}

	// 8-bit loads and arithmetic
	for d, dst := range regs8Z80 {
		for s, src := range regs8Z80 {
			if d == 6 && s == 6 {
				continue // HALT
			}
			t.addf("LD "+dst+","+src, byte(0x40|d<<3|s), "", "")
		}
		t.addf("LD "+dst+",n", byte(0x06|d<<3), "nn", "n=const")
		t.addf("INC "+dst, byte(0x04|d<<3), "", "")
		t.addf("DEC "+dst, byte(0x05|d<<3), "", "")
	}
	for o, op := range aluZ80 {
		for s, src := range regs8Z80 {
			t.addf(op+src, byte(0x80|o<<3|s), "", "")
		}
		t.addf(op+"n", byte(0xC6|o<<3), "nn", "n=const")
	}

	// 16-bit loads and arithmetic
	for p, rp := range pairsZ80 {
		t.addf("LD "+rp+",nn", byte(0x01|p<<4), "n0 n1", "n=const")
		t.addf("ADD HL,"+rp, byte(0x09|p<<4), "", "")
		t.addf("INC "+rp, byte(0x03|p<<4), "", "")
		t.addf("DEC "+rp, byte(0x0B|p<<4), "", "")
		qq := rp
		if p == 3 {
			qq = "AF"
		}
		t.addf("PUSH "+qq, byte(0xC5|p<<4), "", "")
		t.addf("POP "+qq, byte(0xC1|p<<4), "", "")
	}

	// Jumps, calls and returns
	t.add("JR e", "18 ee", "e=code_pcr")
	for c, cc := range condsZ80[:4] {
		t.addf("JR "+cc+",e", byte(0x20|c<<3), "ee", "e=code_pcr")
	}
	t.add("JP nn", "C3 n0 n1", "n=code")
	t.add("CALL nn", "CD n0 n1", "n=code")
	for c, cc := range conds {
		t.addf("JP "+cc+",nn", byte(0xC2|c<<3), "n0 n1", "n=code")
		t.addf("CALL "+cc+",nn", byte(0xC4|c<<3), "n0 n1", "n=code")
		t.addf("RET "+cc, byte(0xC0|c<<3), "", "")
	}
	for n := 0; n < 8; n++ {
		t.addf(fmt.Sprintf("RST %02XH", n*8), byte(0xC7|n<<3), "", "")
	}

	// CB prefix: rotates, shifts and bit operations
	for o, op := range rot {
		for r, reg := range regs8Z80 {
			t.add(op+" "+reg, fmt.Sprintf("CB %02X", o<<3|r), "")
		}
	}
	for o, op := range []string{"BIT", "RES", "SET"} {
		for r, reg := range regs8Z80 {
			t.add(op+" b,"+reg, fmt.Sprintf("CB %02b%s%03b", o+1, "bbb", r), "b=const")
		}
	}

	if gb {
		tableGB(&t)
	} else {
		tableZ80Only(&t)
	}
	return t
}

// tableZ80Only adds the instructions the Game Boy lacks: the exchange
// group, I/O, the ED prefix and the IX/IY index registers.
func tableZ80Only(t *zTable) {
	t.add("EX AF,AF'", "08", "")
	t.add("EXX", "D9", "")
	t.add("EX DE,HL", "EB", "")
	t.add("EX (SP),HL", "E3", "")
	t.add("DJNZ e", "10 ee", "e=code_pcr")
	t.add("LD (nn),HL", "22 n0 n1", "n=data_w")
	t.add("LD HL,(nn)", "2A n0 n1", "n=data_r")
	t.add("LD (nn),A", "32 n0 n1", "n=data_w")
	t.add("LD A,(nn)", "3A n0 n1", "n=data_r")
	t.add("OUT (n),A", "D3 nn", "n=port_w")
	t.add("IN A,(n)", "DB nn", "n=port_r")

	// ED prefix
	for r, reg := range regs8Z80 {
		if r == 6 {
			continue
		}
		t.add("IN "+reg+",(C)", fmt.Sprintf("ED %02X", 0x40|r<<3), "")
		t.add("OUT (C),"+reg, fmt.Sprintf("ED %02X", 0x41|r<<3), "")
	}
	for p, rp := range pairsZ80 {
		t.add("SBC HL,"+rp, fmt.Sprintf("ED %02X", 0x42|p<<4), "")
		t.add("ADC HL,"+rp, fmt.Sprintf("ED %02X", 0x4A|p<<4), "")
		t.add("LD (nn),"+rp, fmt.Sprintf("ED %02X n0 n1", 0x43|p<<4), "n=data_w")
		t.add("LD "+rp+",(nn)", fmt.Sprintf("ED %02X n0 n1", 0x4B|p<<4), "n=data_r")
	}
	for _, d := range []struct {
		mnemonic string
		code     byte
	}{
		{"NEG", 0x44}, {"RETN", 0x45}, {"RETI", 0x4D}, {"IM 0", 0x46},
		{"IM 1", 0x56}, {"IM 2", 0x5E}, {"LD I,A", 0x47}, {"LD R,A", 0x4F},
		{"LD A,I", 0x57}, {"LD A,R", 0x5F}, {"RRD", 0x67}, {"RLD", 0x6F},
		{"LDI", 0xA0}, {"CPI", 0xA1}, {"INI", 0xA2}, {"OUTI", 0xA3},
		{"LDD", 0xA8}, {"CPD", 0xA9}, {"IND", 0xAA}, {"OUTD", 0xAB},
		{"LDIR", 0xB0}, {"CPIR", 0xB1}, {"INIR", 0xB2}, {"OTIR", 0xB3},
		{"LDDR", 0xB8}, {"CPDR", 0xB9}, {"INDR", 0xBA}, {"OTDR", 0xBB},
	} {
		t.add(d.mnemonic, fmt.Sprintf("ED %02X", d.code), "")
	}

	for _, ix := range []struct{ reg, prefix string }{{"IX", "DD"}, {"IY", "FD"}} {
		tableIndexZ80(t, ix.reg, ix.prefix)
	}
}

// tableIndexZ80 adds the instructions using one index register.
func tableIndexZ80(t *zTable, ix, prefix string) {
	mem := "(" + ix + "+d)"
	add := func(mnemonic, code, use string) {
		t.add(mnemonic, prefix+" "+code, use)
	}

	add("LD "+ix+",nn", "21 n0 n1", "n=const")
	add("LD (nn),"+ix, "22 n0 n1", "n=data_w")
	add("LD "+ix+",(nn)", "2A n0 n1", "n=data_r")
	add("INC "+ix, "23", "")
	add("DEC "+ix, "2B", "")
	add("PUSH "+ix, "E5", "")
	add("POP "+ix, "E1", "")
	add("EX (SP),"+ix, "E3", "")
	add("JP ("+ix+")", "E9", "")
	add("LD SP,"+ix, "F9", "")
	add("INC "+mem, "34 dd", "d=signed")
	add("DEC "+mem, "35 dd", "d=signed")
	add("LD "+mem+",n", "36 dd nn", "d=signed,n=const")

	for p, rp := range pairsZ80 {
		if rp == "HL" {
			rp = ix
		}
		add("ADD "+ix+","+rp, fmt.Sprintf("%02X", 0x09|p<<4), "")
	}
	for r, reg := range regs8Z80 {
		if r == 6 {
			continue
		}
		add("LD "+reg+","+mem, fmt.Sprintf("%02X dd", 0x46|r<<3), "d=signed")
		add("LD "+mem+","+reg, fmt.Sprintf("%02X dd", 0x70|r), "d=signed")
	}
	for o, op := range aluZ80 {
		add(op+mem, fmt.Sprintf("%02X dd", 0x86|o<<3), "d=signed")
	}
	for o, op := range rotZ80 {
		add(op+" "+mem, fmt.Sprintf("CB dd %02X", o<<3|6), "d=signed")
	}
	for o, op := range []string{"BIT", "RES", "SET"} {
		add(op+" b,"+mem, fmt.Sprintf("CB dd %02bbbb110", o+1), "b=const,d=signed")
	}
}

// tableGB adds the Game Boy's replacements for the Z80 instructions it
// lacks.
func tableGB(t *zTable) {
	t.add("LD (nn),SP", "08 n0 n1", "n=data_w")
	t.add("STOP", "10 00", "")
	t.add("LD (HL+),A", "22", "")
	t.add("LD A,(HL+)", "2A", "")
	t.add("LD (HL-),A", "32", "")
	t.add("LD A,(HL-)", "3A", "")
	t.add("RETI", "D9", "")
	t.add("LDH (n),A", "E0 nn", "n=port_w")
	t.add("LDH A,(n)", "F0 nn", "n=port_r")
	t.add("LD (C),A", "E2", "")
	t.add("LD A,(C)", "F2", "")
	t.add("ADD SP,d", "E8 dd", "d=signed")
	t.add("LD HL,SP+d", "F8 dd", "d=signed")
	t.add("LD (nn),A", "EA n0 n1", "n=data_w")
	t.add("LD A,(nn)", "FA n0 n1", "n=data_r")
}

var registersZ80 = func() map[string]bool {
	m := make(map[string]bool)
	names := "A B C D E H L I R AF BC DE HL SP IX IY NZ Z NC PO PE P M (HL) (BC) (DE) (C) (SP)"
	for _, n := range strings.Fields(names) {
		m[n] = true
	}
	return m
}()

func newZ80() (*CPU, error) {
	return newCPU("Z80", "Zilog Z80", true, tableZ80(false), Hooks{Registers: registersZ80})
}

func newZ80GB() (*CPU, error) {
	return newCPU("Z80GB", "Sharp LR35902 (Game Boy)", true, tableZ80(true), Hooks{Registers: registersZ80})
}
