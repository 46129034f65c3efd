// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a disassembler for every instruction set in
// the cpu package.
package disasm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/opcodetools/cpu"
)

// ErrAmbiguousMatch is returned when more than one opcode matches the
// bytes at an address and the disassembler is configured to fail.
var ErrAmbiguousMatch = errors.New("ambiguous match")

// An AmbiguousError lists the opcodes that matched at an address.
type AmbiguousError struct {
	Address    int
	Candidates []*cpu.Opcode
}

func (e *AmbiguousError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, op := range e.Candidates {
		names[i] = op.Mnemonic
	}
	return fmt.Sprintf("%v at $%04X: %s", ErrAmbiguousMatch, e.Address, strings.Join(names, " | "))
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguousMatch
}

// A Policy decides what happens when several opcodes match.
type Policy byte

// Ambiguity policies.
const (
	SkipByte Policy = iota // emit the byte as unknown data and move on
	Fail                   // return an *AmbiguousError
	First                  // use the first candidate in table order
)

// A Line is one disassembled instruction, or a single unknown byte.
type Line struct {
	Address     int
	Bytes       []byte
	Opcode      *cpu.Opcode // nil for an unknown byte
	Fills       map[byte]cpu.Fill
	Instruction string // mnemonic with operands filled in
	Text        string // the formatted line
	Unknown     bool
	Candidates  []*cpu.Opcode // opcodes that matched an unknown byte
}

// An Option configures a Disassembler.
type Option func(d *Disassembler)

// Exact requires matched opcodes to be exactly n bytes long.
func Exact(n int) Option {
	return func(d *Disassembler) {
		d.exact = n
	}
}

// OnAmbiguous sets the policy applied when several opcodes match.
func OnAmbiguous(p Policy) Option {
	return func(d *Disassembler) {
		d.policy = p
	}
}

// A Disassembler converts machine code into instruction text.
type Disassembler struct {
	cpu    *cpu.CPU
	exact  int
	policy Policy
}

// New creates a disassembler for the CPU.
func New(c *cpu.CPU, opts ...Option) *Disassembler {
	d := &Disassembler{cpu: c}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Disassemble converts the whole buffer, which is loaded at origin.
func (d *Disassembler) Disassemble(buf []byte, origin int) ([]Line, error) {
	var lines []Line
	for pos := 0; pos < len(buf); {
		l, err := d.Step(buf, pos, origin)
		if err != nil {
			return lines, err
		}
		lines = append(lines, l)
		pos += len(l.Bytes)
	}
	return lines, nil
}

// Step disassembles the instruction at buf[pos]. The buffer is loaded at
// origin, so the instruction's address is origin+pos.
func (d *Disassembler) Step(buf []byte, pos, origin int) (Line, error) {
	addr := origin + pos
	ops := d.cpu.FindOpcodesForBinary(buf[pos:], d.exact)
	if len(ops) > 1 {
		switch d.policy {
		case Fail:
			return Line{}, &AmbiguousError{Address: addr, Candidates: ops}
		case First:
			ops = ops[:1]
		}
	}
	if len(ops) != 1 {
		return Line{
			Address:    addr,
			Bytes:      buf[pos : pos+1],
			Text:       FormatUnknown(addr, buf[pos]),
			Unknown:    true,
			Candidates: ops,
		}, nil
	}

	op := ops[0]
	window := buf[pos : pos+op.Length()]
	fills := op.Decode(window, addr)
	inst := op.Text(fills)
	return Line{
		Address:     addr,
		Bytes:       window,
		Opcode:      op,
		Fills:       fills,
		Instruction: inst,
		Text:        Format(addr, window, inst),
	}, nil
}

// Format renders an address, its bytes and an instruction as a line of
// disassembly. The instruction's first word and its operands are aligned
// in columns.
func Format(addr int, data []byte, inst string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%04X: ", addr)

	var hex strings.Builder
	for _, v := range data {
		fmt.Fprintf(&hex, "%02X ", v)
	}
	fmt.Fprintf(&b, "%-16s", hex.String())

	head, tail, _ := strings.Cut(inst, " ")
	fmt.Fprintf(&b, "%-8s%-20s", head, tail)
	return strings.TrimRight(b.String(), " ")
}

// FormatUnknown renders a byte that matched no instruction as a data
// directive.
func FormatUnknown(addr int, v byte) string {
	return Format(addr, []byte{v}, fmt.Sprintf(". $%02X", v))
}
