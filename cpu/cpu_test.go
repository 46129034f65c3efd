// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
)

// testEval evaluates plain numeric operands and holds string defines.
type testEval map[string]string

func (e testEval) EvalOperand(text string) (int, error) {
	text = strings.TrimLeft(text, "<>")
	neg := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(text, "-")
	v, err := strconv.ParseInt(text, 0, 32)
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return int(v), nil
}

func (e testEval) Define(name string) (string, bool) {
	v, ok := e[name]
	return v, ok
}

var registry = NewRegistry()

func getCPU(t *testing.T, name string) *CPU {
	t.Helper()
	c, err := registry.Get(name)
	if err != nil {
		t.Fatalf("Get(%s): %v", name, err)
	}
	return c
}

func hexString(b []byte) string {
	return fmt.Sprintf("%X", b)
}

// assemble matches and encodes a single instruction.
func assemble(c *CPU, text string, addr int, ev testEval) ([]byte, error) {
	cand, err := c.FindOpcodeForText(text, ev)
	if err != nil {
		return nil, err
	}
	values, err := c.FieldValues(cand, ev)
	if err != nil {
		return nil, err
	}
	return cand.Opcode.Encode(values, addr)
}

func checkEncode(t *testing.T, cpuName, text string, addr int, expected string) {
	t.Helper()
	checkEncodeDefines(t, cpuName, text, addr, nil, expected)
}

func checkEncodeDefines(t *testing.T, cpuName, text string, addr int, ev testEval, expected string) {
	t.Helper()
	b, err := assemble(getCPU(t, cpuName), text, addr, ev)
	if err != nil {
		t.Errorf("%s %q: %v", cpuName, text, err)
		return
	}
	if got := hexString(b); got != expected {
		t.Errorf("%s %q: got %s, exp %s", cpuName, text, got, expected)
	}
}

// checkDecode disassembles a byte sequence of known length and compares
// the resulting instruction text.
func checkDecode(t *testing.T, cpuName string, b []byte, addr int, expected string) {
	t.Helper()
	c := getCPU(t, cpuName)
	ops := c.FindOpcodesForBinary(b, len(b))
	if len(ops) != 1 {
		t.Errorf("%s % X: expected 1 match, got %d", cpuName, b, len(ops))
		return
	}
	if got := ops[0].Text(ops[0].Decode(b, addr)); got != expected {
		t.Errorf("%s % X: got %q, exp %q", cpuName, b, got, expected)
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range registry.Names() {
		c := getCPU(t, name)
		if c.Name != name {
			t.Errorf("registry entry %s built cpu %s", name, c.Name)
		}
		if len(c.Opcodes()) == 0 {
			t.Errorf("%s: empty opcode table", name)
		}
	}

	c := getCPU(t, "8051")
	if c.Name != "8052" {
		t.Errorf("8051 alias: got %s", c.Name)
	}
	if c2 := getCPU(t, "8052"); c2 != c {
		t.Error("8052 built twice")
	}

	_, err := registry.Get("68000")
	if !errors.Is(err, ErrUnknownCPU) {
		t.Errorf("expected ErrUnknownCPU, got %v", err)
	}
}

func TestTableErrors(t *testing.T) {
	rows := []opcodeData{
		{"LDA p", "pp A9", ""},
		{"LDA p", "A9 pp", "p=bogus"},
		{"LDA q", "A9 pp", ""},
		{"LDA p", "A9 pp", "q=const"},
		{"LDA p", "A9 xyz", ""},
	}
	for _, d := range rows {
		if _, err := newOpcode(d, true); !errors.Is(err, ErrTable) {
			t.Errorf("%q %q %q: expected ErrTable, got %v", d.mnemonic, d.code, d.use, err)
		}
	}
}

func TestQuickIndex(t *testing.T) {
	for _, name := range registry.Names() {
		c := getCPU(t, name)
		indexed := make(map[*Opcode]bool)
		for v := 0; v < 256; v++ {
			for _, op := range c.Candidates(byte(v)) {
				if !op.FirstByteMatches(byte(v)) {
					t.Errorf("%s: %s indexed under $%02X", name, op.Mnemonic, v)
				}
				indexed[op] = true
			}
		}
		for _, op := range c.Opcodes() {
			if !indexed[op] {
				t.Errorf("%s: %s missing from quick index", name, op.Mnemonic)
			}
		}
	}
}

func TestFieldlessRoundTrip(t *testing.T) {
	for _, name := range registry.Names() {
		c := getCPU(t, name)
		for _, op := range c.Opcodes() {
			if len(op.Fields()) != 0 {
				continue
			}

			b, err := op.Encode(nil, 0)
			if err != nil {
				t.Errorf("%s %s: %v", name, op.Mnemonic, err)
				continue
			}

			found := false
			for _, m := range c.FindOpcodesForBinary(b, len(b)) {
				if m == op && m.Text(m.Decode(b, 0)) == op.Mnemonic {
					found = true
				}
			}
			if !found {
				t.Errorf("%s %s: % X does not disassemble", name, op.Mnemonic, b)
			}

			cand, err := c.FindOpcodeForText(op.Mnemonic, testEval{})
			if err != nil {
				t.Errorf("%s %s: %v", name, op.Mnemonic, err)
				continue
			}
			if cand.Opcode.Mnemonic != op.Mnemonic {
				t.Errorf("%s %s: matched %s", name, op.Mnemonic, cand.Opcode.Mnemonic)
			}
		}
	}
}

func TestImmediate6502(t *testing.T) {
	checkEncode(t, "6502", "LDA #$10", 0x1000, "A910")
	checkEncode(t, "6502", "lda #$10", 0x1000, "A910")
	checkDecode(t, "6502", []byte{0xa9, 0x10}, 0x1000, "LDA #$10")
	checkEncode(t, "6502", "LDA ($20),Y", 0x1000, "B120")
	checkEncode(t, "6502", "JMP ($1234)", 0x1000, "6C3412")
	checkEncode(t, "6502", "ASL A", 0x1000, "0A")
	checkEncode(t, "6502", "ASL  $20", 0x1000, "0620")
}

func TestPairRule(t *testing.T) {
	checkEncode(t, "6502", "LDA $10", 0, "A510")
	checkEncode(t, "6502", "LDA >$10", 0, "AD1000")
	checkEncode(t, "6502", "LDA $1234", 0, "AD3412")
	checkEncode(t, "6502", "LDA $10,X", 0, "B510")
	checkEncode(t, "6502", "LDA >$10,X", 0, "BD1000")
	checkEncode(t, "6502", "STA <$80", 0, "8580")

	// Operands that cannot be evaluated yet select the long form.
	cand, err := getCPU(t, "6502").FindOpcodeForText("LDA label", testEval{})
	if err != nil || cand.Opcode.Mnemonic != "LDA a" {
		t.Errorf("forward reference: got %v, %v", cand.Opcode, err)
	}

	_, err = assemble(getCPU(t, "6502"), "LDA <$1234", 0, nil)
	if !errors.Is(err, ErrValueOutOfRange) {
		t.Errorf("expected ErrValueOutOfRange, got %v", err)
	}
	var ee *EncodeError
	if !errors.As(err, &ee) || ee.Field != 'p' || ee.Value != 0x1234 {
		t.Errorf("expected EncodeError on field p, got %v", err)
	}
}

func TestUnknownOpcode(t *testing.T) {
	c := getCPU(t, "6502")
	for _, text := range []string{"LDQ #$10", "LDA", "LDA #$10,Q"} {
		if _, err := c.FindOpcodeForText(text, testEval{}); !errors.Is(err, ErrUnknownOpcode) {
			t.Errorf("%q: expected ErrUnknownOpcode, got %v", text, err)
		}
	}
}

func TestRelative6809(t *testing.T) {
	checkEncode(t, "6809", "BNE $C04B", 0xc050, "26F9")
	checkDecode(t, "6809", []byte{0x26, 0xf9}, 0xc050, "BNE $C04B")

	checkEncode(t, "6809", "LBNE $A027", 0xc174, "1026DEAF")
	checkDecode(t, "6809", []byte{0x10, 0x26, 0xde, 0xaf}, 0xc174, "LBNE $A027")

	checkEncode(t, "6809", "CMPD [$1107,PC]", 0x1000, "10A39D0102")
	checkDecode(t, "6809", []byte{0x10, 0xa3, 0x9d, 0x01, 0x02}, 0x1000, "CMPD [$1107,PC]")

	_, err := assemble(getCPU(t, "6809"), "BNE $D000", 0xc050, nil)
	if !errors.Is(err, ErrDestinationTooFar) || !errors.Is(err, ErrValueOutOfRange) {
		t.Errorf("expected ErrDestinationTooFar, got %v", err)
	}
}

func TestDirect6809(t *testing.T) {
	checkEncode(t, "6809", "LDA $10", 0, "B60010")
	checkEncode(t, "6809", "LDA <$10", 0, "9610")
	checkEncode(t, "6809", "LDA >$10", 0, "B60010")
	checkEncodeDefines(t, "6809", "LDA $10", 0, testEval{"_default_base_page": "true"}, "9610")
	checkEncodeDefines(t, "6809", "LDA $1234", 0, testEval{"_default_base_page": "true"}, "B61234")
	checkEncode(t, "6809", "LDD #$1234", 0, "CC1234")
	checkEncode(t, "6809", "CMPY #$1234", 0, "108C1234")
}

func TestIndexed6809(t *testing.T) {
	checkEncode(t, "6809", "LDA ,X", 0, "A684")
	checkEncode(t, "6809", "LDA ,Y++", 0, "A6A1")
	checkEncode(t, "6809", "LDA B,U", 0, "A6C5")
	checkEncode(t, "6809", "LDA 5,X", 0, "A605")
	checkEncode(t, "6809", "LDA -1,X", 0, "A61F")
	checkEncode(t, "6809", "LDA <5,X", 0, "A68805")
	checkEncode(t, "6809", "LDA 100,X", 0, "A68864")
	checkEncode(t, "6809", "LDA 1000,X", 0, "A68903E8")
	checkEncode(t, "6809", "LDA [$1234]", 0, "A69F1234")

	checkDecode(t, "6809", []byte{0xa6, 0x1f}, 0, "LDA -$01,X")
	checkDecode(t, "6809", []byte{0xa6, 0x84}, 0, "LDA ,X")
}

func TestRegisterLists6809(t *testing.T) {
	checkEncode(t, "6809", "PSHS A,B,X", 0, "3416")
	checkEncode(t, "6809", "PULU CC,S,PC", 0, "37C1")
	checkEncode(t, "6809", "TFR A,B", 0, "1F89")
	checkEncode(t, "6809", "EXG X,Y", 0, "1E12")

	checkDecode(t, "6809", []byte{0x34, 0x16}, 0, "PSHS A,B,X")
	checkDecode(t, "6809", []byte{0x1f, 0x89}, 0, "TFR A,B")

	for _, text := range []string{"PSHS S", "TFR A", "EXG A,Q"} {
		if _, err := assemble(getCPU(t, "6809"), text, 0, nil); err == nil {
			t.Errorf("%q: expected error", text)
		}
	}
}

func TestPaging8052(t *testing.T) {
	checkEncode(t, "8052", "AJMP $0123", 0x0100, "2123")
	checkEncode(t, "8052", "ACALL $07FF", 0x0700, "F1FF")
	checkEncode(t, "8052", "AJMP $0800", 0x07fe, "0100")
	checkDecode(t, "8052", []byte{0x21, 0x23}, 0x0100, "AJMP $0123")

	_, err := assemble(getCPU(t, "8052"), "AJMP $0900", 0x0100, nil)
	if !errors.Is(err, ErrDestinationTooFar) {
		t.Errorf("expected ErrDestinationTooFar, got %v", err)
	}
}

func TestOperands8052(t *testing.T) {
	checkEncode(t, "8052", "MOV $30,$20", 0, "852030")
	checkEncode(t, "8052", "MOV $20,C", 0, "9220")
	checkEncode(t, "8052", "MOV A,R3", 0, "EB")
	checkEncode(t, "8052", "MOV @R1,#$55", 0, "7755")
	checkEncode(t, "8052", "LJMP $1234", 0, "021234")
	checkEncode(t, "8052", "SJMP $0000", 0x0010, "80EE")
	checkEncode(t, "8052", "CJNE A,#$10,$0000", 0, "B410FD")
	checkDecode(t, "8052", []byte{0x80, 0xee}, 0x0010, "SJMP $0000")
}

func TestZ80(t *testing.T) {
	checkEncode(t, "Z80", "LD HL,($1234)", 0, "2A3412")
	checkEncode(t, "Z80", "LD HL,$1234", 0, "213412")
	checkEncode(t, "Z80", "LD A,(HL)", 0, "7E")
	checkEncode(t, "Z80", "LD A,$10", 0, "3E10")
	checkEncode(t, "Z80", "LD (IX+5),A", 0, "DD7705")
	checkEncode(t, "Z80", "LD (IY+-2),$10", 0, "FD36FE10")
	checkEncode(t, "Z80", "LD (IY-2),$10", 0, "FD36FE10")
	checkEncode(t, "Z80", "LD A,(IX+5)", 0, "DD7E05")
	checkEncode(t, "Z80", "LD A,(IX-5)", 0, "DD7EFB")
	checkEncode(t, "Z80", "SET 0,(IX-1)", 0, "DDCBFFC6")
	checkEncode(t, "Z80", "BIT 7,(HL)", 0, "CB7E")
	checkEncode(t, "Z80", "SET 0,(IX+1)", 0, "DDCB01C6")
	checkEncode(t, "Z80", "JR NZ,$0000", 0x0010, "20EE")
	checkEncode(t, "Z80", "RST 38H", 0, "FF")
	checkEncode(t, "Z80", "JP (HL)", 0, "E9")
	checkEncode(t, "Z80", "JP $1234", 0, "C33412")
	checkEncode(t, "Z80", "LD DE,($1234)", 0, "ED5B3412")

	checkDecode(t, "Z80", []byte{0x2a, 0x34, 0x12}, 0, "LD HL,($1234)")
	checkDecode(t, "Z80", []byte{0xed, 0x6b, 0x34, 0x12}, 0, "LD HL,($1234)")
	checkDecode(t, "Z80", []byte{0xcb, 0x7e}, 0, "BIT $07,(HL)")
}

func TestZ80GB(t *testing.T) {
	checkEncode(t, "Z80GB", "LD ($C000),A", 0, "EA00C0")
	checkEncode(t, "Z80GB", "LDH ($40),A", 0, "E040")
	checkEncode(t, "Z80GB", "LD A,(HL+)", 0, "2A")
	checkEncode(t, "Z80GB", "SWAP A", 0, "CB37")
	checkEncode(t, "Z80GB", "STOP", 0, "1000")

	if _, err := getCPU(t, "Z80GB").FindOpcodeForText("EXX", testEval{}); !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("expected ErrUnknownOpcode, got %v", err)
	}
}

func TestDVG(t *testing.T) {
	checkEncode(t, "DVG", "HALT", 0, "00B0")
	checkEncode(t, "DVG", "JMP $123", 0, "23E1")
	checkEncode(t, "DVG", "RTS", 0, "00D0")
	checkEncode(t, "DVG", "VEC SCALE=2, BRI=7, X=100, Y=50", 0, "32206470")

	checkDecode(t, "DVG", []byte{0x23, 0xe1}, 0, "JMP $0123")

	c := getCPU(t, "DVG")
	window := []byte{0x32, 0x20, 0x64, 0x70}
	ops := c.FindOpcodesForBinary(window, 0)
	if len(ops) != 1 || ops[0].Mnemonic != "VEC SCALE=2, BRI=b, X=x, Y=y" {
		t.Fatalf("expected a single VEC match, got %d", len(ops))
	}
	fills := ops[0].Decode(window, 0)
	if fills['b'].Value != 7 || fills['x'].Value != 100 || fills['y'].Value != 50 {
		t.Errorf("bad VEC fields: %+v", fills)
	}

	// The short vector's scale is split across two bits.
	b, err := assemble(c, "SVEC SCALE=2, BRI=3, X=1, Y=2", 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := hexString(b); got != "39F2" {
		t.Errorf("SVEC: got %s, exp 39F2", got)
	}
}

func TestCompactSpaces(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"  LDA   ( $10 ) , Y ", "LDA ($10),Y"},
		{"LDA  # ' ' ", "LDA #' '"},
		{"LD A, ' '+1", "LD A,' '+1"},
		{"EX AF, AF'", "EX AF,AF'"},
		{"\tNOP", "NOP"},
	}
	for _, test := range tests {
		if got := compactSpaces(test.in); got != test.out {
			t.Errorf("compactSpaces(%q) = %q, want %q", test.in, got, test.out)
		}
	}
}

func TestFragments(t *testing.T) {
	frags := buildFragments("LDA   (p),Y")
	exp := []fragment{{text: "LDA ("}, {letter: 'p'}, {text: "),Y"}}
	if len(frags) != len(exp) {
		t.Fatalf("got %d fragments, exp %d", len(frags), len(exp))
	}
	for i := range frags {
		if frags[i] != exp[i] {
			t.Errorf("fragment %d: got %+v, exp %+v", i, frags[i], exp[i])
		}
	}

	frags = buildFragments("BIT b,(IX+d)")
	if len(frags) != 5 || frags[1].letter != 'b' || frags[3].letter != 'd' {
		t.Errorf("unexpected fragments: %+v", frags)
	}
}

func TestRegisterCustom(t *testing.T) {
	r := NewRegistry()
	r.Register("TEST", "test cpu", func() (*CPU, error) {
		return NewCustom("TEST", "test cpu", true, []Row{
			{Mnemonic: "NOP", Code: "00"},
			{Mnemonic: "LD a", Code: "01 aa"},
		}, Hooks{})
	})

	c, err := r.Get("TES")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name != "TEST" {
		t.Errorf("prefix lookup returned %s", c.Name)
	}
	b, err := assemble(c, "LD 5", 0, nil)
	if err != nil || hexString(b) != "0105" {
		t.Errorf("LD 5: got %X, %v", b, err)
	}

	found := false
	for _, info := range r.List() {
		if info.Name == "TEST" && info.Description == "test cpu" {
			found = true
		}
	}
	if !found {
		t.Error("custom cpu missing from List")
	}

	_, err = NewCustom("BAD", "bad cpu", true, []Row{{Mnemonic: "LD a", Code: "aa 01"}}, Hooks{})
	if !errors.Is(err, ErrTable) {
		t.Errorf("expected ErrTable, got %v", err)
	}
}

func TestByteOrder(t *testing.T) {
	tests := []struct {
		cpu    string
		little bool
		word   string
	}{
		{"6502", true, "3412"},
		{"6809", false, "1234"},
		{"8052", false, "1234"},
		{"Z80", true, "3412"},
		{"DVG", true, "3412"},
	}
	for _, test := range tests {
		c := getCPU(t, test.cpu)
		if c.LittleEndian() != test.little {
			t.Errorf("%s: LittleEndian() = %v", test.cpu, c.LittleEndian())
		}
		if got := hexString(c.MakeWord(0x1234)); got != test.word {
			t.Errorf("%s: MakeWord = %s, want %s", test.cpu, got, test.word)
		}
	}
}
