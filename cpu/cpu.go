// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu describes instruction sets as declarative opcode tables and
// provides the matching, encoding and decoding logic shared by the
// assembler and disassembler.
package cpu

import (
	"fmt"
	"strings"
	"sync"
)

// Hooks let a CPU adjust the shared matching and formatting logic.
// Every hook is optional.
type Hooks struct {
	// Registers holds the upper-case names that can never be captured as
	// a substitution's operand text.
	Registers map[string]bool

	// Resolve picks one of several matching candidates. It returns false
	// if it does not handle this set of candidates.
	Resolve func(cands []Candidate, ev Evaluator) (Candidate, bool, error)

	// ParseOperand converts register-list operand text into a field value.
	ParseOperand func(f *Field, text string) (int, error)

	// FormatOperand renders a decoded field value. It returns false to
	// fall back to the default hexadecimal rendering.
	FormatOperand func(f *Field, fill Fill) (string, bool)
}

// A CPU is an immutable instruction set built from an opcode table.
type CPU struct {
	Name        string
	Description string

	littleEndian bool
	opcodes      []*Opcode
	quick        [256][]*Opcode
	hooks        Hooks
	fragOnce     sync.Once
}

func newCPU(name, desc string, littleEndian bool, table []opcodeData, hooks Hooks) (*CPU, error) {
	c := &CPU{
		Name:         name,
		Description:  desc,
		littleEndian: littleEndian,
		hooks:        hooks,
	}

	for _, d := range table {
		op, err := newOpcode(d, littleEndian)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		op.CPU = c
		c.opcodes = append(c.opcodes, op)

		first := op.code[0]
		if first.literal() {
			c.quick[first.value] = append(c.quick[first.value], op)
			continue
		}
		for v := 0; v < 256; v++ {
			if op.FirstByteMatches(byte(v)) {
				c.quick[v] = append(c.quick[v], op)
			}
		}
	}
	return c, nil
}

// buildFragments computes the mnemonic fragments of every opcode. It is
// deferred until the CPU is first used for assembly.
func (c *CPU) buildFragments() {
	for _, op := range c.opcodes {
		op.frags = buildFragments(op.Mnemonic)
	}
}

// Opcodes returns the CPU's opcodes in table order.
func (c *CPU) Opcodes() []*Opcode {
	return c.opcodes
}

// Candidates returns the opcodes whose first byte can be b.
func (c *CPU) Candidates(b byte) []*Opcode {
	return c.quick[b]
}

// LittleEndian returns true if the CPU stores words low byte first.
func (c *CPU) LittleEndian() bool {
	return c.littleEndian
}

// MakeWord converts a value into a two-byte word in the CPU's byte order.
func (c *CPU) MakeWord(v int) []byte {
	lo, hi := byte(v), byte(v>>8)
	if c.littleEndian {
		return []byte{lo, hi}
	}
	return []byte{hi, lo}
}

// FindOpcodesForBinary returns the opcodes whose templates match the start
// of window. If exact is non-zero, only opcodes exactly exact bytes long
// are returned.
func (c *CPU) FindOpcodesForBinary(window []byte, exact int) []*Opcode {
	if len(window) == 0 {
		return nil
	}
	var ops []*Opcode
	for _, op := range c.quick[window[0]] {
		if exact != 0 && op.Length() != exact {
			continue
		}
		if op.MatchBytes(window) {
			ops = append(ops, op)
		}
	}
	return ops
}

// FormatOperand renders a decoded field value as operand text.
func (c *CPU) FormatOperand(f *Field, fill Fill) string {
	if c.hooks.FormatOperand != nil {
		if s, ok := c.hooks.FormatOperand(f, fill); ok {
			return s
		}
	}

	v, width := fill.Target, f.Width
	if fill.Relative {
		width = 16
	}
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	switch {
	case width <= 8:
		return fmt.Sprintf("%s$%02X", sign, v)
	case width <= 16:
		return fmt.Sprintf("%s$%04X", sign, v)
	default:
		return fmt.Sprintf("%s$%06X", sign, v)
	}
}

// Text returns the opcode's mnemonic with each substitution replaced by
// its formatted field value.
func (op *Opcode) Text(fills map[byte]Fill) string {
	var b strings.Builder
	m := op.Mnemonic
	for i := 0; i < len(m); i++ {
		l := m[i]
		if !isLower(l) {
			b.WriteByte(l)
			continue
		}
		if i > 0 && m[i-1] == l {
			continue
		}
		b.WriteString(op.CPU.FormatOperand(op.fields[l], fills[l]))
	}
	return b.String()
}
