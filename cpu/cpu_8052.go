// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"fmt"
	"strings"
)

// Opcodes of the 8051 family that do not follow the register-column
// pattern. Direct addresses use p and q, bit addresses b, immediate data
// d, and code addresses a (absolute) or r (relative).
var table8052Fixed = []opcodeData{
	{"NOP", "00", ""},
	{"AJMP a", "aaa00001 aaaaaaaa", "a=code_11"},
	{"LJMP a", "02 a1 a0", "a=code"},
	{"RR A", "03", ""},
	{"INC A", "04", ""},
	{"INC p", "05 pp", "p=data_rw"},
	{"JBC b,r", "10 bb rr", "b=bit_rw,r=code_pcr"},
	{"ACALL a", "aaa10001 aaaaaaaa", "a=code_11"},
	{"LCALL a", "12 a1 a0", "a=code"},
	{"RRC A", "13", ""},
	{"DEC A", "14", ""},
	{"DEC p", "15 pp", "p=data_rw"},
	{"JB b,r", "20 bb rr", "b=bit_r,r=code_pcr"},
	{"RET", "22", ""},
	{"RL A", "23", ""},
	{"ADD A,#d", "24 dd", "d=const"},
	{"ADD A,p", "25 pp", "p=data_r"},
	{"JNB b,r", "30 bb rr", "b=bit_r,r=code_pcr"},
	{"RETI", "32", ""},
	{"RLC A", "33", ""},
	{"ADDC A,#d", "34 dd", "d=const"},
	{"ADDC A,p", "35 pp", "p=data_r"},
	{"JC r", "40 rr", "r=code_pcr"},
	{"ORL p,A", "42 pp", "p=data_rw"},
	{"ORL p,#d", "43 pp dd", "p=data_rw,d=const"},
	{"ORL A,#d", "44 dd", "d=const"},
	{"ORL A,p", "45 pp", "p=data_r"},
	{"JNC r", "50 rr", "r=code_pcr"},
	{"ANL p,A", "52 pp", "p=data_rw"},
	{"ANL p,#d", "53 pp dd", "p=data_rw,d=const"},
	{"ANL A,#d", "54 dd", "d=const"},
	{"ANL A,p", "55 pp", "p=data_r"},
	{"JZ r", "60 rr", "r=code_pcr"},
	{"XRL p,A", "62 pp", "p=data_rw"},
	{"XRL p,#d", "63 pp dd", "p=data_rw,d=const"},
	{"XRL A,#d", "64 dd", "d=const"},
	{"XRL A,p", "65 pp", "p=data_r"},
	{"JNZ r", "70 rr", "r=code_pcr"},
	{"ORL C,b", "72 bb", "b=bit_r"},
	{"JMP @A+DPTR", "73", ""},
	{"MOV A,#d", "74 dd", "d=const"},
	{"MOV p,#d", "75 pp dd", "p=data_w,d=const"},
	{"SJMP r", "80 rr", "r=code_pcr"},
	{"ANL C,b", "82 bb", "b=bit_r"},
	{"MOVC A,@A+PC", "83", ""},
	{"DIV AB", "84", ""},
	{"MOV p,q", "85 qq pp", "p=data_w,q=data_r"},
	{"MOV DPTR,#a", "90 a1 a0", "a=const"},
	{"MOV b,C", "92 bb", "b=bit_w"},
	{"MOVC A,@A+DPTR", "93", ""},
	{"SUBB A,#d", "94 dd", "d=const"},
	{"SUBB A,p", "95 pp", "p=data_r"},
	{"ORL C,/b", "A0 bb", "b=bit_r"},
	{"MOV C,b", "A2 bb", "b=bit_r"},
	{"INC DPTR", "A3", ""},
	{"MUL AB", "A4", ""},
	{"ANL C,/b", "B0 bb", "b=bit_r"},
	{"CPL b", "B2 bb", "b=bit_rw"},
	{"CPL C", "B3", ""},
	{"CJNE A,#d,r", "B4 dd rr", "d=const,r=code_pcr"},
	{"CJNE A,p,r", "B5 pp rr", "p=data_r,r=code_pcr"},
	{"PUSH p", "C0 pp", "p=data_r"},
	{"CLR b", "C2 bb", "b=bit_w"},
	{"CLR C", "C3", ""},
	{"SWAP A", "C4", ""},
	{"XCH A,p", "C5 pp", "p=data_rw"},
	{"POP p", "D0 pp", "p=data_w"},
	{"SETB b", "D2 bb", "b=bit_w"},
	{"SETB C", "D3", ""},
	{"DA A", "D4", ""},
	{"DJNZ p,r", "D5 pp rr", "p=data_rw,r=code_pcr"},
	{"MOVX A,@DPTR", "E0", ""},
	{"CLR A", "E4", ""},
	{"MOV A,p", "E5 pp", "p=data_r"},
	{"MOVX @DPTR,A", "F0", ""},
	{"CPL A", "F4", ""},
	{"MOV p,A", "F5 pp", "p=data_w"},
}

// Register forms repeat across the low nibbles of a row: @R0 and @R1 at
// 6 and 7, R0 through R7 at 8 through F. Each pattern uses * in place of
// the register operand.
var table8052Rows = []struct {
	row      byte
	indirect bool // has @R0/@R1 forms
	pattern  string
	code     string
	use      string
}{
	{0x00, true, "INC *", "", ""},
	{0x10, true, "DEC *", "", ""},
	{0x20, true, "ADD A,*", "", ""},
	{0x30, true, "ADDC A,*", "", ""},
	{0x40, true, "ORL A,*", "", ""},
	{0x50, true, "ANL A,*", "", ""},
	{0x60, true, "XRL A,*", "", ""},
	{0x70, true, "MOV *,#d", "dd", "d=const"},
	{0x80, true, "MOV p,*", "pp", "p=data_w"},
	{0x90, true, "SUBB A,*", "", ""},
	{0xA0, true, "MOV *,p", "pp", "p=data_r"},
	{0xB0, true, "CJNE *,#d,r", "dd rr", "d=const,r=code_pcr"},
	{0xC0, true, "XCH A,*", "", ""},
	{0xD0, false, "DJNZ *,r", "rr", "r=code_pcr"},
	{0xE0, true, "MOV A,*", "", ""},
	{0xF0, true, "MOV *,A", "", ""},
}

func table8052() []opcodeData {
	t := append([]opcodeData(nil), table8052Fixed...)
	for _, r := range table8052Rows {
		add := func(reg string, lo byte) {
			code := fmt.Sprintf("%02X", r.row|lo)
			if r.code != "" {
				code += " " + r.code
			}
			t = append(t, opcodeData{strings.Replace(r.pattern, "*", reg, 1), code, r.use})
		}
		if r.indirect {
			add("@R0", 0x6)
			add("@R1", 0x7)
		}
		for n := byte(0); n < 8; n++ {
			add(fmt.Sprintf("R%d", n), 0x8+n)
		}
	}
	t = append(t,
		opcodeData{"XCHD A,@R0", "D6", ""},
		opcodeData{"XCHD A,@R1", "D7", ""},
		opcodeData{"MOVX A,@R0", "E2", ""},
		opcodeData{"MOVX A,@R1", "E3", ""},
		opcodeData{"MOVX @R0,A", "F2", ""},
		opcodeData{"MOVX @R1,A", "F3", ""},
	)
	return t
}

var registers8052 = map[string]bool{
	"A": true, "C": true, "AB": true, "DPTR": true, "PC": true,
	"R0": true, "R1": true, "R2": true, "R3": true,
	"R4": true, "R5": true, "R6": true, "R7": true,
}

func new8052() (*CPU, error) {
	return newCPU("8052", "Intel 8051/8052", false, table8052(), Hooks{Registers: registers8052})
}
