// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"
	"strings"
)

var inherent6809 = map[string]string{
	"NOP": "12", "SYNC": "13", "DAA": "19", "SEX": "1D", "RTS": "39",
	"ABX": "3A", "RTI": "3B", "MUL": "3D", "SWI": "3F", "SWI2": "10 3F",
	"SWI3": "11 3F",
}

var branches6809 = []string{
	"BRA", "BRN", "BHI", "BLS", "BCC", "BCS", "BNE", "BEQ",
	"BVC", "BVS", "BPL", "BMI", "BGE", "BLT", "BGT", "BLE",
}

// Read-modify-write instructions by low nibble. The direct forms are at
// 0x00, inherent A at 0x40, inherent B at 0x50, indexed at 0x60 and
// extended at 0x70.
var rmw6809 = map[byte]string{
	0x0: "NEG", 0x3: "COM", 0x4: "LSR", 0x6: "ROR", 0x7: "ASR", 0x8: "ASL",
	0x9: "ROL", 0xA: "DEC", 0xC: "INC", 0xD: "TST", 0xE: "JMP", 0xF: "CLR",
}

// memOp6809 is an instruction with immediate, direct, indexed and
// extended forms. prefix is the page prefix, if any, and code is the
// immediate-form opcode.
type memOp6809 struct {
	name   string
	prefix string
	code   byte
	imm    int // immediate operand size in bytes, 0 if none
	role   string
}

var memOps6809 = []memOp6809{
	{"SUBA", "", 0x80, 1, "data"}, {"CMPA", "", 0x81, 1, "data"},
	{"SBCA", "", 0x82, 1, "data"}, {"SUBD", "", 0x83, 2, "data"},
	{"ANDA", "", 0x84, 1, "data"}, {"BITA", "", 0x85, 1, "data"},
	{"LDA", "", 0x86, 1, "data"}, {"STA", "", 0x87, 0, "data"},
	{"EORA", "", 0x88, 1, "data"}, {"ADCA", "", 0x89, 1, "data"},
	{"ORA", "", 0x8A, 1, "data"}, {"ADDA", "", 0x8B, 1, "data"},
	{"CMPX", "", 0x8C, 2, "data"}, {"JSR", "", 0x8D, 0, "code"},
	{"LDX", "", 0x8E, 2, "data"}, {"STX", "", 0x8F, 0, "data"},

	{"SUBB", "", 0xC0, 1, "data"}, {"CMPB", "", 0xC1, 1, "data"},
	{"SBCB", "", 0xC2, 1, "data"}, {"ADDD", "", 0xC3, 2, "data"},
	{"ANDB", "", 0xC4, 1, "data"}, {"BITB", "", 0xC5, 1, "data"},
	{"LDB", "", 0xC6, 1, "data"}, {"STB", "", 0xC7, 0, "data"},
	{"EORB", "", 0xC8, 1, "data"}, {"ADCB", "", 0xC9, 1, "data"},
	{"ORB", "", 0xCA, 1, "data"}, {"ADDB", "", 0xCB, 1, "data"},
	{"LDD", "", 0xCC, 2, "data"}, {"STD", "", 0xCD, 0, "data"},
	{"LDU", "", 0xCE, 2, "data"}, {"STU", "", 0xCF, 0, "data"},

	{"CMPD", "10", 0x83, 2, "data"}, {"CMPY", "10", 0x8C, 2, "data"},
	{"LDY", "10", 0x8E, 2, "data"}, {"STY", "10", 0x8F, 0, "data"},
	{"LDS", "10", 0xCE, 2, "data"}, {"STS", "10", 0xCF, 0, "data"},
	{"CMPU", "11", 0x83, 2, "data"}, {"CMPS", "11", 0x8C, 2, "data"},
}

// Index registers and their postbyte bits.
var indexRegs6809 = []struct{ name, bits string }{
	{"X", "00"}, {"Y", "01"}, {"U", "10"}, {"S", "11"},
}

// Indexed addressing forms for one index register, written with R in
// place of the register name and rr in place of its postbyte bits.
var indexForms6809 = []struct{ operand, code, use string }{
	{",R", "1rr00100", ""},
	{",R+", "1rr00000", ""},
	{",R++", "1rr00001", ""},
	{",-R", "1rr00010", ""},
	{",--R", "1rr00011", ""},
	{"A,R", "1rr00110", ""},
	{"B,R", "1rr00101", ""},
	{"D,R", "1rr01011", ""},
	{"o,R", "0rrooooo", "o=signed"},
	{"o,R", "1rr01000 oo", "o=signed"},
	{"o,R", "1rr01001 o1 o0", "o=signed"},
	{"[,R]", "1rr10100", ""},
	{"[,R++]", "1rr10001", ""},
	{"[,--R]", "1rr10011", ""},
	{"[A,R]", "1rr10110", ""},
	{"[B,R]", "1rr10101", ""},
	{"[D,R]", "1rr11011", ""},
	{"[o,R]", "1rr11000 oo", "o=signed"},
	{"[o,R]", "1rr11001 o1 o0", "o=signed"},
}

// Program-counter relative and extended-indirect indexed forms.
var pcForms6809 = []struct{ operand, code, use string }{
	{"r,PC", "8C rr", "r=pcr"},
	{"r,PC", "8D r1 r0", "r=pcr"},
	{"[r,PC]", "9C rr", "r=pcr"},
	{"[r,PC]", "9D r1 r0", "r=pcr"},
	{"[a]", "9F a1 a0", ""},
}

// indexed6809 returns every indexed form of an instruction. code holds
// the opcode bytes preceding the postbyte.
func indexed6809(name, code, role string) []opcodeData {
	var t []opcodeData
	for _, reg := range indexRegs6809 {
		for _, f := range indexForms6809 {
			operand := strings.ReplaceAll(f.operand, "R", reg.name)
			post := strings.Replace(f.code, "rr", reg.bits, 1)
			t = append(t, opcodeData{name + " " + operand, code + " " + post, f.use})
		}
	}
	for _, f := range pcForms6809 {
		use := f.use
		if f.operand == "[a]" {
			use = "a=" + role
		}
		t = append(t, opcodeData{name + " " + f.operand, code + " " + f.code, use})
	}
	return t
}

func table6809() []opcodeData {
	var t []opcodeData
	for _, name := range sortedKeys(inherent6809) {
		t = append(t, opcodeData{name, inherent6809[name], ""})
	}

	for i, name := range branches6809 {
		t = append(t, opcodeData{name + " r", fmt.Sprintf("%02X rr", 0x20+i), "r=code_pcr"})
		if name != "BRA" {
			t = append(t, opcodeData{"L" + name + " r", fmt.Sprintf("10 %02X r1 r0", 0x20+i), "r=code_pcr"})
		}
	}
	t = append(t,
		opcodeData{"BSR r", "8D rr", "r=code_pcr"},
		opcodeData{"LBRA r", "16 r1 r0", "r=code_pcr"},
		opcodeData{"LBSR r", "17 r1 r0", "r=code_pcr"},
		opcodeData{"ORCC #p", "1A pp", "p=const"},
		opcodeData{"ANDCC #p", "1C pp", "p=const"},
		opcodeData{"CWAI #p", "3C pp", "p=const"},
		opcodeData{"EXG p", "1E pp", "p=pair"},
		opcodeData{"TFR p", "1F pp", "p=pair"},
		opcodeData{"PSHS p", "34 pp", "p=pshs"},
		opcodeData{"PULS p", "35 pp", "p=puls"},
		opcodeData{"PSHU p", "36 pp", "p=pshu"},
		opcodeData{"PULU p", "37 pp", "p=pulu"},
	)

	for i, name := range []string{"LEAX", "LEAY", "LEAS", "LEAU"} {
		t = append(t, indexed6809(name, fmt.Sprintf("%02X", 0x30+i), "data")...)
	}

	for _, lo := range sortedKeys(rmw6809) {
		name := rmw6809[lo]
		role := "data"
		if name == "JMP" {
			role = "code"
		} else {
			t = append(t,
				opcodeData{name + "A", fmt.Sprintf("%02X", 0x40|lo), ""},
				opcodeData{name + "B", fmt.Sprintf("%02X", 0x50|lo), ""},
			)
		}
		t = append(t, opcodeData{name + " p", fmt.Sprintf("%02X pp", lo), "p=" + role + "_bp"})
		t = append(t, indexed6809(name, fmt.Sprintf("%02X", 0x60|lo), role)...)
		t = append(t, opcodeData{name + " a", fmt.Sprintf("%02X a1 a0", 0x70|lo), "a=" + role})
	}

	for _, op := range memOps6809 {
		prefix := op.prefix
		if prefix != "" {
			prefix += " "
		}
		code := func(offset byte) string {
			return fmt.Sprintf("%s%02X", prefix, op.code+offset)
		}
		switch op.imm {
		case 1:
			t = append(t, opcodeData{op.name + " #p", code(0x00) + " pp", "p=const"})
		case 2:
			t = append(t, opcodeData{op.name + " #a", code(0x00) + " a1 a0", "a=const"})
		}
		t = append(t, opcodeData{op.name + " p", code(0x10) + " pp", "p=" + op.role + "_bp"})
		t = append(t, indexed6809(op.name, code(0x20), op.role)...)
		t = append(t, opcodeData{op.name + " a", code(0x30) + " a1 a0", "a=" + op.role})
	}
	return t
}

// Register codes used by EXG and TFR.
var pairRegs6809 = map[string]int{
	"D": 0, "X": 1, "Y": 2, "U": 3, "S": 4, "PC": 5,
	"A": 8, "B": 9, "CC": 10, "DP": 11,
}

// Register bits used by the push and pull instructions. The 0x40 bit
// names the stack pointer that is not being pushed to.
var stackRegs6809 = []struct {
	name string
	bits int
}{
	{"CC", 0x01}, {"A", 0x02}, {"B", 0x04}, {"DP", 0x08},
	{"X", 0x10}, {"Y", 0x20}, {"U", 0x40}, {"S", 0x40}, {"PC", 0x80},
}

// otherStack returns the stack register a push or pull list may name.
func otherStack(list string) string {
	if list == "pshs" || list == "puls" {
		return "U"
	}
	return "S"
}

func parseOperand6809(f *Field, text string) (int, error) {
	names := strings.Split(strings.ToUpper(text), ",")

	if f.List == "pair" {
		if len(names) != 2 {
			return 0, fmt.Errorf("register pair expected: %s", text)
		}
		src, ok1 := pairRegs6809[strings.TrimSpace(names[0])]
		dst, ok2 := pairRegs6809[strings.TrimSpace(names[1])]
		if !ok1 || !ok2 {
			return 0, fmt.Errorf("invalid register pair: %s", text)
		}
		return src<<4 | dst, nil
	}

	v := 0
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "D" {
			v |= 0x06
			continue
		}
		found := false
		for _, r := range stackRegs6809 {
			if r.name == n && (r.bits != 0x40 || n == otherStack(f.List)) {
				v |= r.bits
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("invalid register %q in list: %s", n, text)
		}
	}
	return v, nil
}

func formatOperand6809(f *Field, fill Fill) (string, bool) {
	switch f.List {
	case "":
		return "", false
	case "pair":
		var src, dst string
		for name, code := range pairRegs6809 {
			if code == fill.Value>>4 {
				src = name
			}
			if code == fill.Value&0x0f {
				dst = name
			}
		}
		if src == "" || dst == "" {
			return "", false
		}
		return src + "," + dst, true
	default:
		var names []string
		for _, r := range stackRegs6809 {
			if fill.Value&r.bits == 0 {
				continue
			}
			if r.bits == 0x40 && r.name != otherStack(f.List) {
				continue
			}
			names = append(names, r.name)
		}
		return strings.Join(names, ","), true
	}
}

// resolve6809 picks among candidates that differ only in operand size.
// Indexed offsets choose the smallest form that holds the value, and
// direct-page addressing is used for unforced operands only when the
// _default_base_page define is "true".
func resolve6809(cands []Candidate, ev Evaluator) (Candidate, bool, error) {
	sameText := true
	for _, c := range cands[1:] {
		if c.Opcode.Mnemonic != cands[0].Opcode.Mnemonic {
			sameText = false
		}
	}
	if sameText {
		return resolveOffset6809(cands, ev)
	}

	if len(cands) != 2 {
		return Candidate{}, false, nil
	}
	var direct, extended Candidate
	for _, c := range cands {
		if c.Opcode.Field('p') != nil && c.Opcode.Field('p').Has("bp") {
			direct = c
		} else {
			extended = c
		}
	}
	if direct.Opcode == nil || extended.Opcode == nil {
		return Candidate{}, false, nil
	}
	if forced(direct.Args) != 0 {
		return Candidate{}, false, nil
	}
	if v, ok := ev.Define("_default_base_page"); ok && strings.EqualFold(v, "true") {
		return Candidate{}, false, nil
	}
	return extended, true, nil
}

// resolveOffset6809 chooses among the 5-bit, 8-bit and 16-bit forms of an
// indexed offset, or the 8-bit and 16-bit forms of a PC-relative offset.
func resolveOffset6809(cands []Candidate, ev Evaluator) (Candidate, bool, error) {
	width := func(c Candidate) int {
		if fields := c.Opcode.Fields(); len(fields) > 0 {
			return fields[0].Width
		}
		return 0
	}
	pick := func(w int) (Candidate, bool) {
		for _, c := range cands {
			if width(c) == w {
				return c, true
			}
		}
		return Candidate{}, false
	}

	want := 16
	var arg string
	for _, a := range cands[0].Args {
		arg = a
	}
	switch forced(cands[0].Args) {
	case 1:
		want = 8
	case 2:
		want = 16
	default:
		if cands[0].Opcode.Field('r') != nil {
			break // relative targets depend on the final address
		}
		if v, err := ev.EvalOperand(arg); err == nil {
			switch {
			case v >= -16 && v < 16:
				want = 5
			case v >= -128 && v < 128:
				want = 8
			}
		}
	}

	for _, w := range []int{5, 8, 16} {
		if w < want {
			continue
		}
		if c, ok := pick(w); ok {
			return c, true, nil
		}
	}
	return Candidate{}, false, nil
}

func new6809() (*CPU, error) {
	hooks := Hooks{
		Registers: map[string]bool{
			"A": true, "B": true, "D": true, "X": true, "Y": true,
			"U": true, "S": true, "PC": true, "CC": true, "DP": true,
		},
		Resolve:       resolve6809,
		ParseOperand:  parseOperand6809,
		FormatOperand: formatOperand6809,
	}
	return newCPU("6809", "Motorola 6809", false, table6809(), hooks)
}
