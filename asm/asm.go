// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a two-pass assembler for every instruction set
// in the cpu package.
package asm

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/opcodetools/cpu"
)

// Errors returned by the assembler. Each is wrapped in an *Error that
// identifies the offending line.
var (
	ErrUnknownDirective   = errors.New("unknown directive")
	ErrMultiplyDefined    = errors.New("symbol multiply defined")
	ErrNoCPUSelected      = errors.New("no cpu selected")
	ErrInvalidNumeric     = errors.New("invalid numeric expression")
	ErrUnterminatedString = errors.New("unterminated string")
	ErrValueTooLarge      = errors.New("value too large")
	ErrToolBlock          = errors.New("tool block is missing its closing '}'")
	ErrUnknownTool        = errors.New("unknown tool")
	ErrTool               = errors.New("tool failed")
	ErrOriginOverlap      = errors.New("origin overlaps previous data")

	ErrUnknownOpcode     = cpu.ErrUnknownOpcode
	ErrMultipleMatches   = cpu.ErrMultipleMatches
	ErrUnknownCPU        = cpu.ErrUnknownCPU
	ErrValueOutOfRange   = cpu.ErrValueOutOfRange
	ErrDestinationTooFar = cpu.ErrDestinationTooFar
)

// An Error describes a failure to assemble a line of source.
type Error struct {
	Kind   error  // one of the Err sentinels
	Line   *Line  // the offending line
	Detail string // optional detail about the failure
	Err    error  // optional underlying error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Line != nil {
		fmt.Fprintf(&b, "%s:%d: ", e.Line.File, e.Line.Number)
	}
	b.WriteString(e.Kind.Error())
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	if e.Line != nil {
		b.WriteString(": " + strings.TrimSpace(e.Line.Original))
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// A Value is the value of a define: an integer, or the verbatim text of
// a configuration define whose name begins with an underscore.
type Value struct {
	Int      int
	Str      string
	IsString bool
}

func (v Value) String() string {
	if v.IsString {
		return v.Str
	}
	return fmt.Sprintf("0x%04X", v.Int)
}

// An Export describes a non-local label and its address.
type Export struct {
	Label   string
	Address int
}

// Assembly contains the assembled lines and the symbols they defined.
type Assembly struct {
	Lines     []*Line
	Labels    map[string]int
	Defines   map[string]Value
	CPU       *cpu.CPU // the CPU selected at the end of the source
	SourceMap *SourceMap

	locals map[string]bool
}

// An Option configures an Assembler.
type Option func(a *Assembler)

// Verbose causes the assembler to log its progress to w.
func Verbose(w io.Writer) Option {
	return func(a *Assembler) {
		a.out = w
	}
}

// WithTools supplies the registry used to resolve .tool directives.
func WithTools(tr ToolRegistry) Option {
	return func(a *Assembler) {
		a.tools = tr
	}
}

// An Assembler converts source lines into machine code. An Assembler may
// be reused for several runs, but it must not be used by more than one
// goroutine at a time.
type Assembler struct {
	reg   *cpu.Registry
	tools ToolRegistry
	out   io.Writer

	pass        int
	cpu         *cpu.CPU
	addr        int
	scope       string
	labels      map[string]int
	defines     map[string]Value
	locals      map[string]bool
	prevLabels  map[string]int   // labels recorded during the first pass
	prevDefines map[string]Value // defines recorded during the first pass
	values      map[string]any   // tool state shared across lines
	exprParser  exprParser
}

// New creates an assembler that selects CPUs from reg.
func New(reg *cpu.Registry, opts ...Option) *Assembler {
	a := &Assembler{reg: reg}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AssembleFile loads and assembles a source file.
func (a *Assembler) AssembleFile(path string) (*Assembly, error) {
	lines, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return a.Assemble(lines)
}

// Assemble runs both passes over the lines. The lines are updated in
// place with their addresses and data.
func (a *Assembler) Assemble(lines []*Line) (*Assembly, error) {
	a.prevLabels, a.prevDefines = nil, nil
	a.values = make(map[string]any)

	for pass := 0; pass < 2; pass++ {
		if err := a.runPass(lines, pass); err != nil {
			return nil, err
		}
	}

	assembly := &Assembly{
		Lines:   lines,
		Labels:  a.labels,
		Defines: a.defines,
		CPU:     a.cpu,
		locals:  a.locals,
	}
	assembly.SourceMap = newSourceMap(assembly)
	return assembly, nil
}

func (a *Assembler) runPass(lines []*Line, pass int) error {
	a.logSection(fmt.Sprintf("Pass %d", pass))

	if pass > 0 {
		a.prevLabels, a.prevDefines = a.labels, a.defines
	}
	a.pass = pass
	a.cpu = nil
	a.addr = 0
	a.scope = ""
	a.labels = make(map[string]int)
	a.defines = make(map[string]Value)
	a.locals = make(map[string]bool)

	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if !l.parsed {
			if err := l.parse(); err != nil {
				return a.lineError(l, err, "")
			}
		}
		if l.Kind == KindBlock {
			continue
		}

		if err := a.handleLabel(l); err != nil {
			return err
		}
		l.Address, l.HasAddress = a.addr, true

		var err error
		switch l.Kind {
		case KindCPUSelect:
			err = a.selectCPU(l, l.argument())
		case KindDefine:
			err = a.handleDefine(l)
		case KindData:
			err = a.handleData(l)
		case KindInstruction:
			err = a.handleInstruction(l)
		case KindTool:
			var end int
			end, err = a.handleTool(lines, i)
			if err == nil {
				i = end
			}
		}
		if err != nil {
			return err
		}

		if l.HasData {
			a.logLine(l, "%04X %s", l.Address, l.Kind)
			a.logBytes(l.Address, l.Data)
			a.addr += len(l.Data)
		}
	}
	return nil
}

// handleLabel binds a line's label to the current address. A numeric
// label sets the address instead and leaves the local scope.
func (a *Assembler) handleLabel(l *Line) error {
	if l.Label == "" {
		return nil
	}
	if origin, ok := l.isOrigin(); ok {
		a.addr = origin
		a.scope = ""
		a.logLine(l, "origin=$%04X", origin)
		return nil
	}

	name := l.Label
	if name[0] == '_' {
		name = a.scope + name
		a.locals[name] = true
	} else {
		a.scope = name
	}
	if err := a.bind(l, name); err != nil {
		return err
	}
	a.labels[name] = a.addr
	a.logLine(l, "label=%s", name)
	return nil
}

// bind reports a symbol that is bound twice during the final pass.
func (a *Assembler) bind(l *Line, name string) error {
	if a.pass == 0 {
		return nil
	}
	_, isLabel := a.labels[name]
	_, isDefine := a.defines[name]
	if isLabel || isDefine {
		return a.lineError(l, ErrMultiplyDefined, name)
	}
	return nil
}

func (a *Assembler) selectCPU(l *Line, name string) error {
	c, err := a.reg.Get(strings.TrimSpace(name))
	if err != nil {
		return a.lineError(l, ErrUnknownCPU, name)
	}
	a.cpu = c
	a.logLine(l, "cpu=%s", c.Name)
	return nil
}

func (a *Assembler) handleDefine(l *Line) error {
	eq := strings.IndexByte(l.Text, '=')
	name := strings.TrimSpace(l.Text[1:eq])
	text := strings.TrimSpace(l.Text[eq+1:])

	id, remain := newFstring(name).consumeWhile(identifierChar)
	if name == "" || !identifierStartChar(name[0]) || !remain.isEmpty() {
		return a.lineError(l, ErrUnknownDirective, "")
	}
	name = id.str

	// Configuration defines are kept as text and may be changed.
	if name[0] == '_' {
		a.defines[name] = Value{Str: text, IsString: true}
		a.logLine(l, "%s=%s", name, text)
		if name == "_CPU" {
			return a.selectCPU(l, text)
		}
		return nil
	}

	if err := a.bind(l, name); err != nil {
		return err
	}
	v, err := a.eval(text)
	switch {
	case err == nil:
		a.defines[name] = Value{Int: v}
		a.logLine(l, "%s=$%X", name, v)
	case a.pass > 0:
		return a.evalError(l, err)
	}
	return nil
}

func (a *Assembler) handleData(l *Line) error {
	keyword, _ := newFstring(l.Text).consumeWhile(wordChar)
	width := 1
	if strings.EqualFold(keyword.str, ".word") {
		width = 2
	}

	var data []byte
	list := newFstring(l.argument())
	for !list.isEmpty() {
		term, remain, open := list.consumeUntilUnquotedChar(',')
		if open {
			return a.lineError(l, ErrUnterminatedString, "")
		}
		list = remain
		if list.startsWithChar(',') {
			list = list.consume(1).consumeWhitespace()
			if list.isEmpty() {
				return a.lineError(l, ErrInvalidNumeric, "missing term")
			}
		}

		b, err := a.dataTerm(term.trimRight(), width)
		switch {
		case err == ErrInvalidNumeric || err == ErrUnterminatedString || err == ErrValueTooLarge:
			return a.lineError(l, err, strings.TrimSpace(term.str))
		case err != nil:
			return a.evalError(l, err)
		}
		data = append(data, b...)
	}

	l.Data, l.HasData = data, true
	return nil
}

// dataTerm evaluates a single term of a data list.
func (a *Assembler) dataTerm(term fstring, width int) ([]byte, error) {
	term = term.consumeWhitespace()
	lower := strings.ToLower(term.str)
	switch {
	case strings.HasPrefix(lower, "word "):
		term, width = term.consume(5).consumeWhitespace(), 2
	case strings.HasPrefix(lower, "byte "):
		term, width = term.consume(5).consumeWhitespace(), 1
	}

	switch {
	case term.isEmpty():
		return nil, ErrInvalidNumeric

	case term.startsWithChar('"'):
		end := quoteEnd(term.str, 0)
		if end < 0 {
			return nil, ErrUnterminatedString
		}
		if end != len(term.str)-1 {
			return nil, ErrInvalidNumeric
		}
		return []byte(term.str[1:end]), nil
	}

	v, err := a.eval(term.str)
	if err != nil {
		if a.pass == 0 {
			v = 0
		} else {
			return nil, err
		}
	}

	if width == 1 {
		if v < -0x80 || v > 0xff {
			return nil, ErrValueTooLarge
		}
		return []byte{byte(v)}, nil
	}
	if v < -0x8000 || v > 0xffff {
		return nil, ErrValueTooLarge
	}
	// Words default to little-endian until a CPU is selected.
	if a.cpu == nil || a.cpu.LittleEndian() {
		return []byte{byte(v), byte(v >> 8)}, nil
	}
	return []byte{byte(v >> 8), byte(v)}, nil
}

// handleInstruction selects an opcode for the line during the first
// pass and encodes it during the second. The selection is kept between
// passes so that every line keeps the length it was given in the first.
func (a *Assembler) handleInstruction(l *Line) error {
	if a.cpu == nil {
		return a.lineError(l, ErrNoCPUSelected, "")
	}

	if a.pass == 0 || l.cand == nil || l.cand.Opcode.CPU != a.cpu {
		cand, err := a.cpu.FindOpcodeForText(l.Text, a)
		if err != nil {
			return a.lineError(l, err, "")
		}
		l.cand = &cand
	}
	op := l.cand.Opcode

	if a.pass == 0 {
		l.Data, l.HasData = make([]byte, op.Length()), true
		return nil
	}

	values, err := a.cpu.FieldValues(*l.cand, a)
	if err != nil {
		return a.evalError(l, err)
	}
	code, err := op.Encode(values, a.addr)
	if err != nil {
		var ee *cpu.EncodeError
		if errors.As(err, &ee) {
			kind := ErrValueOutOfRange
			if errors.Is(ee.Err, ErrDestinationTooFar) {
				kind = ErrDestinationTooFar
			}
			return &Error{
				Kind:   kind,
				Line:   l,
				Detail: fmt.Sprintf("field '%c' value $%X", ee.Field, ee.Value),
				Err:    ee,
			}
		}
		return a.lineError(l, err, "")
	}
	l.Data, l.HasData = code, true
	return nil
}

//
// numeric evaluation
//

// EvalOperand evaluates an operand expression using the symbols known
// so far. A leading '<' or '>' size marker is ignored.
func (a *Assembler) EvalOperand(text string) (int, error) {
	return a.eval(text)
}

// Define returns the text of a configuration define.
func (a *Assembler) Define(name string) (string, bool) {
	if v, ok := a.defines[name]; ok && v.IsString {
		return v.Str, true
	}
	return "", false
}

func (a *Assembler) eval(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text != "" && (text[0] == '<' || text[0] == '>') {
		text = strings.TrimSpace(text[1:])
	}
	if text != "" && decimal(text[0]) {
		text = strings.ReplaceAll(text, ".", "0")
	}
	if text == "" {
		return 0, ErrInvalidNumeric
	}

	e, err := a.exprParser.parse(newFstring(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidNumeric, err)
	}
	v, err := e.eval(a.lookup)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidNumeric, err)
	}
	return v, nil
}

// lookup resolves a symbol, preferring the value bound during the current
// pass over the value recorded by the first pass.
func (a *Assembler) lookup(name string) (int, error) {
	if name[0] == '_' {
		name = a.scope + name
	}
	if v, ok := a.labels[name]; ok {
		return v, nil
	}
	if v, ok := a.defines[name]; ok && !v.IsString {
		return v.Int, nil
	}
	if v, ok := a.prevLabels[name]; ok {
		return v, nil
	}
	if v, ok := a.prevDefines[name]; ok && !v.IsString {
		return v.Int, nil
	}
	return 0, fmt.Errorf("%w '%s'", errUndefined, name)
}

//
// errors and logging
//

func (a *Assembler) lineError(l *Line, kind error, detail string) error {
	var e *Error
	if errors.As(kind, &e) {
		return e
	}
	return &Error{Kind: kind, Line: l, Detail: detail}
}

// evalError converts an evaluation failure into a line error.
func (a *Assembler) evalError(l *Line, err error) error {
	if errors.Is(err, ErrInvalidNumeric) {
		detail := strings.TrimPrefix(err.Error(), ErrInvalidNumeric.Error())
		return &Error{Kind: ErrInvalidNumeric, Line: l, Detail: strings.TrimPrefix(detail, ": ")}
	}
	return &Error{Kind: ErrInvalidNumeric, Line: l, Detail: err.Error(), Err: err}
}

// In verbose mode, log a string.
func (a *Assembler) log(format string, args ...any) {
	if a.out != nil {
		fmt.Fprintf(a.out, format, args...)
		fmt.Fprintf(a.out, "\n")
	}
}

// In verbose mode, log a string and its associated line
// of assembly code.
func (a *Assembler) logLine(l *Line, format string, args ...any) {
	if a.out != nil {
		detail := fmt.Sprintf(format, args...)
		fmt.Fprintf(a.out, "%-3d %-3d | %-20s | %s\n", a.pass, l.Number, detail, strings.TrimSpace(l.Original))
	}
}

// In verbose mode, log a series of bytes with starting address.
func (a *Assembler) logBytes(addr int, b []byte) {
	if a.out != nil {
		for i, n := 0, len(b); i < n; i += 8 {
			j := min(i+8, n)
			a.log("%04X-*  %s", addr+i, byteString(b[i:j]))
		}
	}
}

// In verbose mode, log a section header.
func (a *Assembler) logSection(name string) {
	if a.out != nil {
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
		fmt.Fprintf(a.out, "-- %s --\n", name)
		fmt.Fprintln(a.out, strings.Repeat("-", len(name)+6))
	}
}
