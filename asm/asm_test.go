// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/opcodetools/cpu"
)

var registry = cpu.NewRegistry()

func assemble(code string, opts ...Option) (*Assembly, error) {
	lines, err := LoadLines(strings.NewReader(code), "test", ".")
	if err != nil {
		return nil, err
	}
	return New(registry, opts...).Assemble(lines)
}

func hexString(code []byte) string {
	b := make([]byte, len(code)*2)
	for i, j := 0, 0; i < len(code); i, j = i+1, j+2 {
		v := code[i]
		b[j+0] = hex[v>>4]
		b[j+1] = hex[v&0x0f]
	}
	return string(b)
}

func checkASM(t *testing.T, asm string, expected string) {
	t.Helper()
	assembly, err := assemble(asm)
	if err != nil {
		t.Error(err)
		return
	}
	code, err := assembly.Binary()
	if err != nil {
		t.Error(err)
		return
	}

	s := hexString(code)
	if s != expected {
		t.Error("code doesn't match expected")
		t.Errorf("got: %s\n", s)
		t.Errorf("exp: %s\n", expected)
	}
}

func checkASMError(t *testing.T, asm string, kind error) {
	t.Helper()
	_, err := assemble(asm)
	if err == nil {
		t.Errorf("Expected error on %s, didn't get one\n", asm)
		return
	}
	if !errors.Is(err, kind) {
		t.Errorf("Expected '%v', got '%v'\n", kind, err)
	}
}

func TestAddressingIMM(t *testing.T) {
	asm := `
	.CPU 6502
	LDA #$20
	LDX #$20
	LDY #$20
	ADC #$20
	SBC #$20
	CMP #$20
	CPX #$20
	CPY #$20
	AND #$20
	ORA #$20
	EOR #$20`

	checkASM(t, asm, "A920A220A0206920E920C920E020C020292009204920")
}

func TestAddressingABS(t *testing.T) {
	asm := `
	.CPU 6502
	LDA $2000
	LDX $2000
	LDY $2000
	STA $2000
	STX $2000
	STY $2000
	ADC $2000
	SBC $2000
	CMP $2000
	CPX $2000
	CPY $2000
	BIT $2000
	AND $2000
	ORA $2000
	EOR $2000
	INC $2000
	DEC $2000
	JMP $2000
	JSR $2000
	ASL $2000
	LSR $2000
	ROL $2000
	ROR $2000`

	checkASM(t, asm, "AD0020AE0020AC00208D00208E00208C00206D0020ED0020CD0020"+
		"EC0020CC00202C00202D00200D00204D0020EE0020CE00204C00202000200E0020"+
		"4E00202E00206E0020")
}

func TestAddressingABX(t *testing.T) {
	asm := `
	.CPU 6502
	LDA $2000,X
	LDY $2000,X
	STA $2000,X
	ADC $2000,X
	SBC $2000,X
	CMP $2000,X
	AND $2000,X
	ORA $2000,X
	EOR $2000,X
	INC $2000,X
	DEC $2000,X
	ASL $2000,X
	LSR $2000,X
	ROL $2000,X
	ROR $2000,X`

	checkASM(t, asm, "BD0020BC00209D00207D0020FD0020DD00203D00201D00205D0020"+
		"FE0020DE00201E00205E00203E00207E0020")
}

func TestAddressingZPG(t *testing.T) {
	asm := `
	.CPU 6502
	LDA $20
	LDX $20
	LDY $20
	STA $20
	STX $20
	STY $20
	ADC $20
	SBC $20
	CMP $20
	CPX $20
	CPY $20
	BIT $20
	AND $20
	ORA $20
	EOR $20
	INC $20
	DEC $20
	ASL $20
	LSR $20
	ROL $20
	ROR $20`

	checkASM(t, asm, "A520A620A4208520862084206520E520C520E420C42024202520"+
		"05204520E620C6200620462026206620")
}

func TestAddressingIND(t *testing.T) {
	asm := `
	.CPU 6502
	JMP ($20)
	JMP ($2000)`

	checkASM(t, asm, "6C20006C0020")
}

func TestLabels(t *testing.T) {
	asm := `
	.CPU 6502
$1000:
start:
	LDX #$00
_loop:
	INX
	BNE _loop
	JMP start`

	checkASM(t, asm, "A200E8D0FD4C0010")
}

func TestLocalScopes(t *testing.T) {
	asm := `
	.CPU 6502
$1000:
first:
_loop:
	DEX
	BNE _loop
second:
_loop:
	DEY
	BNE _loop
	JMP first_loop`

	checkASM(t, asm, "CAD0FD88D0FD4C0010")

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]int{"first": 0x1000, "first_loop": 0x1000, "second": 0x1003, "second_loop": 0x1003}
	for name, addr := range want {
		if got, ok := assembly.Labels[name]; !ok || got != addr {
			t.Errorf("label %s: got $%04X, want $%04X", name, got, addr)
		}
	}
}

func TestForwardReference(t *testing.T) {
	// An unknown operand selects the long form.
	asm := `
	.CPU 6502
$0200:
	LDA data
	RTS
data:
	. 1`

	checkASM(t, asm, "AD04026001")
}

func TestSizeMarkers(t *testing.T) {
	asm := `
	.CPU 6502
	.zp = $10
	LDA zp
	LDA >zp
	LDA <zp`

	checkASM(t, asm, "A510AD1000A510")
	checkASMError(t, ".CPU 6502\n\tLDA <$1234", ErrValueOutOfRange)

	_, err := assemble(".CPU 6502\n\tLDA <$1234")
	var ee *cpu.EncodeError
	if !errors.As(err, &ee) {
		t.Fatalf("expected an encode error, got %v", err)
	}
	if ee.Field != 'p' || ee.Value != 0x1234 {
		t.Errorf("encode error: field %c value $%X", ee.Field, ee.Value)
	}
}

func TestRelative6809(t *testing.T) {
	asm := `
	.CPU 6809
$C04B:
target:
	. 0, 0, 0, 0, 0
	BNE target`

	checkASM(t, asm, "000000000026F9")

	asm = `
	.CPU 6502
$1000:
	BNE $2000`
	checkASMError(t, asm, ErrDestinationTooFar)
	checkASMError(t, asm, ErrValueOutOfRange)
}

func TestBasePage6809(t *testing.T) {
	asm := `
	.CPU 6809
	LDA $10
	._default_base_page = true
	LDA $10
	LDA >$10`

	checkASM(t, asm, "B600109610B60010")
}

func TestOtherCPUs(t *testing.T) {
	checkASM(t, ".CPU Z80\n\tLD HL,($1234)\n\tLD A,$10", "2A34123E10")
	checkASM(t, ".CPU Z80\n.ofs = 5\n\tLD A,(IX+ofs)\n\tLD A,(IX-ofs)\n\tLD A,(IY - 1)", "DD7E05DD7EFBFD7EFF")
	checkASM(t, ".cpu 8051\n\tMOV A,#$55", "7455")
	checkASM(t, ".CPU 6502\n\tLDA #' '\n\tCMP # 'a'", "A920C961")
	checkASM(t, "._CPU = 6502\n\tNOP", "EA")
}

func TestDVG(t *testing.T) {
	asm := `
	.CPU DVG
	JMP loop
loop:	VEC SCALE=2, BRI=7, X=100, Y=50
	SVEC SCALE=2, BRI=3, X=1, Y=2
	JMP $123
	HALT`

	checkASM(t, asm, "02E0"+"32206470"+"39F2"+"23E1"+"00B0")
}

func TestDataBytes(t *testing.T) {
	asm := `
	. "AB", $00
	. 'f', 'f'
	.byte $AB
	. $ABCD >> 8
	. 1+2+3+4
	. -1
	. 0b01010101
	. 0b.1.1.1.1
	. ",;"`

	checkASM(t, asm, "4142006666ABAB0AFF55552C3B")
}

func TestDataWords(t *testing.T) {
	checkASM(t, "\t.word $1234", "3412")

	asm := `
	.CPU 6809
	.word $1234, byte 5, 'A'
	. word $ABCD, 1`

	checkASM(t, asm, "1234050041ABCD01")
	checkASM(t, "\t.CPU Z80\n\t.word $1234, -2", "3412FEFF")
}

func TestDataErrors(t *testing.T) {
	checkASMError(t, "\t. 256", ErrValueTooLarge)
	checkASMError(t, "\t. -129", ErrValueTooLarge)
	checkASMError(t, "\t.word $10000", ErrValueTooLarge)
	checkASMError(t, "\t. \"abc", ErrUnterminatedString)
	checkASMError(t, "\t. 1,", ErrInvalidNumeric)
	checkASMError(t, "\t. undefined", ErrInvalidNumeric)
	checkASMError(t, "\t. 1 2", ErrInvalidNumeric)
}

func TestMultiplyDefined(t *testing.T) {
	asm := `
	.CPU 6502
label:
	NOP
label:
	NOP`

	_, err := assemble(asm)
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected an assembly error, got %v", err)
	}
	if ae.Kind != ErrMultiplyDefined || ae.Line.Number != 5 {
		t.Errorf("got %v on line %d", ae.Kind, ae.Line.Number)
	}

	checkASMError(t, ".x = 1\nx:\n", ErrMultiplyDefined)
	checkASMError(t, ".x = 1\n.x = 2\n", ErrMultiplyDefined)

	// Configuration defines may be changed.
	checkASM(t, "._default_base_page = true\n._default_base_page = false\n", "")
}

func TestErrors(t *testing.T) {
	checkASMError(t, "\tNOP", ErrNoCPUSelected)
	checkASMError(t, ".CPU 9999", ErrUnknownCPU)
	checkASMError(t, ".CPU", ErrUnknownCPU)
	checkASMError(t, ".foo", ErrUnknownDirective)
	checkASMError(t, ".CPU 6502\n\tFOO", ErrUnknownOpcode)
	checkASMError(t, ".CPU 6502\n\tLDA #undefined", ErrInvalidNumeric)

	_, err := assemble("\n\t.CPU 6502\n\tFOO ; comment")
	if err == nil || err.Error() != "test:3: unknown opcode: FOO ; comment" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestExpressions(t *testing.T) {
	a := New(registry)
	a.scope = "s"
	a.labels = map[string]int{"x": 2, "s_l": 5}
	a.defines = map[string]Value{"d": {Int: 7}, "_str": {Str: "yes", IsString: true}}
	a.prevLabels = map[string]int{"fwd": 9}

	tests := []struct {
		expr  string
		value int
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"-2+5", 3},
		{"- -3", 3},
		{"+4", 4},
		{"~0 & $FF", 255},
		{"1<<4|1", 17},
		{"$10 >> 2", 4},
		{"0x1F ^ 0b11", 0x1c},
		{"'A'+1", 66},
		{"10 % 4", 2},
		{"100/7", 14},
		{"0b..11..11", 0x33},
		{"<$1234", 0x1234},
		{">12", 12},
		{"x*2", 4},
		{"_l", 5},
		{"d-x", 5},
		{"fwd", 9},
	}
	for _, test := range tests {
		v, err := a.eval(test.expr)
		if err != nil {
			t.Errorf("%s: %v", test.expr, err)
			continue
		}
		if v != test.value {
			t.Errorf("%s: got %d, want %d", test.expr, v, test.value)
		}
	}

	for _, bad := range []string{"", "1+", "(1", "1)", "foo", "_str", "1/0", "12abc", "1 2"} {
		if _, err := a.eval(bad); !errors.Is(err, ErrInvalidNumeric) {
			t.Errorf("%q: expected invalid numeric, got %v", bad, err)
		}
	}
}

func TestEval(t *testing.T) {
	if v, err := Eval(" 2*(3+4) ", nil); err != nil || v != 14 {
		t.Errorf("got %d, %v", v, err)
	}
	if _, err := Eval("start", nil); !errors.Is(err, errUndefined) {
		t.Errorf("expected undefined symbol, got %v", err)
	}

	assembly, err := assemble("._CPU = 6502\n.count = 3\n$0800:\nstart:\tNOP\n")
	if err != nil {
		t.Fatal(err)
	}
	v, err := Eval("start+count", assembly.Lookup)
	if err != nil || v != 0x803 {
		t.Errorf("got %#x, %v", v, err)
	}
	if _, err := assembly.Lookup("_CPU"); err == nil {
		t.Error("string define resolved as a number")
	}
}

func TestBinaryGapFill(t *testing.T) {
	asm := `
$1000:
	. 1, 2
$1010:
	. 3`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}
	if assembly.Origin() != 0x1000 {
		t.Errorf("origin: got $%04X", assembly.Origin())
	}

	var buf bytes.Buffer
	if err := assembly.WriteBinary(&buf); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) != 0x11 || b[0] != 1 || b[1] != 2 || b[0x10] != 3 {
		t.Fatalf("unexpected binary %s", hexString(b))
	}
	for i := 2; i < 0x10; i++ {
		if b[i] != 0xff {
			t.Errorf("byte %d: got $%02X, want $FF", i, b[i])
		}
	}
}

func TestOriginOverlap(t *testing.T) {
	asm := `
$1000:
	. 1, 2, 3
$1001:
	. 4`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	err = assembly.WriteBinary(&buf)
	if !errors.Is(err, ErrOriginOverlap) {
		t.Errorf("expected origin overlap, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("partial binary written")
	}
}

func TestInclude(t *testing.T) {
	dir := t.TempDir()
	write := func(name, text string) {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("main.asm", "\t.CPU 6502\n\t.include \"sub/inc.asm\" ; nested\n\tRTS\n")
	write("sub/inc.asm", "\tNOP\n\t.include more.asm\n")
	write("sub/more.asm", "\tINX\n")

	assembly, err := New(registry).AssembleFile(filepath.Join(dir, "main.asm"))
	if err != nil {
		t.Fatal(err)
	}
	code, err := assembly.Binary()
	if err != nil {
		t.Fatal(err)
	}
	if got := hexString(code); got != "EAE860" {
		t.Errorf("got %s, want EAE860", got)
	}
	if f := assembly.Lines[2].File; f != filepath.Join(dir, "sub", "more.asm") {
		t.Errorf("included line has file %s", f)
	}

	write("bad.asm", "\tNOP\n\t.include missing.asm\n")
	_, err = LoadFile(filepath.Join(dir, "bad.asm"))
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected a load error, got %v", err)
	}
	if le.Line == nil || le.Line.Number != 2 || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("unexpected load error %v", err)
	}
}

func TestListing(t *testing.T) {
	asm := `
	.CPU 6502
	.value = 3
	._note = hello
$1000:
start:
	LDA #$01 ; load
_x:
	RTS`

	assembly, err := assemble(asm)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := assembly.WriteListing(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, s := range []string{"#### Labels\nstart = 0x1000\n", "value = 0x0003", "_note = hello", "1000: A9 01 ", "1002: 60 "} {
		if !strings.Contains(out, s) {
			t.Errorf("listing is missing %q:\n%s", s, out)
		}
	}
	if strings.Contains(out, "start_x =") {
		t.Errorf("listing includes a local label")
	}

	buf.Reset()
	if err := assembly.WriteLabels(&buf); err != nil {
		t.Fatal(err)
	}
	out = buf.String()
	if !strings.HasPrefix(out, "; DO NOT EDIT THIS FILE") || !strings.HasSuffix(out, "\n.start = 0x1000\n") {
		t.Errorf("unexpected labels file:\n%s", out)
	}

	file, line := assembly.SourceMap.Search(0x1002)
	if file != "test" || line != 9 {
		t.Errorf("source map: got %s:%d", file, line)
	}
	if len(assembly.SourceMap.Exports) != 1 || assembly.SourceMap.Exports[0].Label != "start" {
		t.Errorf("source map exports: %v", assembly.SourceMap.Exports)
	}
}

func TestVerbose(t *testing.T) {
	var buf bytes.Buffer
	_, err := assemble(".CPU 6502\n\tNOP", Verbose(&buf))
	if err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); !strings.Contains(out, "-- Pass 0 --") || !strings.Contains(out, "-- Pass 1 --") {
		t.Errorf("unexpected verbose output:\n%s", out)
	}
}

type testTools struct{}

var errToolTest = errors.New("tool test failure")

func (testTools) Lookup(module, function string, line *Line) (Tool, error) {
	switch module {
	case "count":
		return func(ctx ToolContext, line *Line, pass int, block []string) error {
			line.Data = []byte{byte(len(block)), byte(ctx.Address() >> 8)}
			return nil
		}, nil
	case "fail":
		return func(ctx ToolContext, line *Line, pass int, block []string) error {
			return errToolTest
		}, nil
	case "grow":
		return func(ctx ToolContext, line *Line, pass int, block []string) error {
			line.Data = make([]byte, pass+1)
			return nil
		}, nil
	default:
		return nil, ErrUnknownTool
	}
}

func TestTools(t *testing.T) {
	asm := `
	.CPU 6502
$1000:
	.tool count {
a
.bogus
}
	NOP`

	lines, err := LoadLines(strings.NewReader(asm), "test", ".")
	if err != nil {
		t.Fatal(err)
	}
	assembly, err := New(registry, WithTools(testTools{})).Assemble(lines)
	if err != nil {
		t.Fatal(err)
	}
	code, _ := assembly.Binary()
	if got := hexString(code); got != "0210EA" {
		t.Errorf("got %s, want 0210EA", got)
	}
	if lines[5].Kind != KindBlock || lines[6].Kind != KindBlock {
		t.Errorf("block lines were not marked")
	}

	tests := []struct {
		src  string
		kind error
	}{
		{".tool count\na\n", ErrToolBlock},
		{".tool nope\n}\n", ErrUnknownTool},
		{".tool\n}\n", ErrUnknownTool},
		{".tool fail\n}\n", ErrTool},
		{".tool fail\n}\n", errToolTest},
		{".tool grow\n}\n", ErrTool},
		{".tool grow\n}\n", errToolSize},
	}
	for _, test := range tests {
		lines, _ := LoadLines(strings.NewReader(test.src), "test", ".")
		_, err := New(registry, WithTools(testTools{})).Assemble(lines)
		if !errors.Is(err, test.kind) {
			t.Errorf("%q: expected %v, got %v", test.src, test.kind, err)
		}
	}

	checkASMError(t, ".tool count\n}\n", ErrUnknownTool)
}
