// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"strings"
)

// Errors returned by the text matcher.
var (
	ErrUnknownOpcode   = errors.New("unknown opcode")
	ErrMultipleMatches = errors.New("multiple matches")
)

// An Evaluator resolves operand expressions during text matching.
type Evaluator interface {
	// EvalOperand evaluates an operand expression.
	EvalOperand(text string) (int, error)

	// Define returns the verbatim value of a configuration define.
	Define(name string) (string, bool)
}

// A Candidate is an opcode whose mnemonic pattern matched a line of
// text, along with the operand text captured for each field.
type Candidate struct {
	Opcode *Opcode
	Args   map[byte]string
}

// A fragment is a literal or a substitution slice of a mnemonic pattern.
type fragment struct {
	text   string
	letter byte // substitution letter, or 0 for a literal
}

// Characters that can never appear inside a substitution.
const reservedChars = ",@#$~!?[]{}|"

// compactSpaces keeps the first space separating a mnemonic from its
// operand term and removes all other whitespace outside of character
// literals such as ' '.
func compactSpaces(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\t", " "))
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s
	}

	b := []byte(s[:i+1])
	for j := i + 1; j < len(s); j++ {
		switch {
		case s[j] == '\'' && j+2 < len(s) && s[j+2] == '\'':
			b = append(b, s[j:j+3]...)
			j += 2
		case s[j] != ' ':
			b = append(b, s[j])
		}
	}
	return string(b)
}

// normalizeText prepares a source line for matching. Hex literals
// written with a leading '$' are rewritten with a "0x" prefix so that
// '$' remains free to mark a missed literal boundary.
func normalizeText(s string) string {
	s = compactSpaces(s)
	if !strings.Contains(s, "$") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '$' && i+1 < len(s) && isHexDigit(s[i+1]) {
			b.WriteString("0x")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if isLower(c) {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

// buildFragments splits a mnemonic pattern into alternating literal and
// substitution fragments. The first fragment is always a literal, which
// may be empty. Adjacent repeats of one letter collapse into a single
// substitution.
func buildFragments(pattern string) []fragment {
	txt := compactSpaces(pattern)
	frags := []fragment{{}}
	for i := 0; i < len(txt); i++ {
		c := txt[i]
		last := &frags[len(frags)-1]
		switch {
		case isLower(c) && last.letter == c:
			// "aa" is one field
		case isLower(c):
			frags = append(frags, fragment{letter: c})
		case last.letter != 0:
			frags = append(frags, fragment{text: string(c)})
		default:
			last.text += string(c)
		}
	}
	return frags
}

// matchText tries to consume the whole of text with the opcode's
// fragments. Literal fragments compare case-insensitively; upper holds
// the upper-cased text. A literal ending in '+' also matches a '-' in its
// place, which then becomes part of the following operand. A substitution
// may not capture a register name.
// On success it returns the captured operand text for each substitution.
func (op *Opcode) matchText(text, upper string, regs map[string]bool) (map[byte]string, bool) {
	args := make(map[byte]string)
	remain, uremain := text, upper
	for i, f := range op.frags {
		if f.letter == 0 {
			lit := f.text
			if !strings.HasPrefix(uremain, lit) {
				// "(IX-5)" is accepted for "(IX+d)", with the minus sign
				// left on the captured term.
				alt := minusForm(op.frags, i)
				if alt == "" || !strings.HasPrefix(uremain, alt) {
					return nil, false
				}
				lit = alt[:len(alt)-1]
			}
			remain, uremain = remain[len(lit):], uremain[len(lit):]
			continue
		}

		n := len(remain)
		if i+1 < len(op.frags) {
			next := op.frags[i+1]
			if next.letter != 0 {
				return nil, false
			}
			n = strings.Index(uremain, next.text)
			if alt := minusForm(op.frags, i+1); alt != "" {
				if m := strings.Index(uremain, alt); m >= 0 && (n < 0 || m < n) {
					n = m
				}
			}
			if n < 0 {
				return nil, false
			}
		}

		term := remain[:n]
		if term == "" || !validTerm(term, uremain[:n], op.fields[f.letter], regs) {
			return nil, false
		}
		args[f.letter] = term
		remain, uremain = remain[n:], uremain[n:]
	}
	return args, remain == ""
}

// minusForm returns the literal fragment at index i with its trailing
// '+' replaced by '-', or "" if the fragment does not end in a '+' that
// introduces an operand.
func minusForm(frags []fragment, i int) string {
	lit := frags[i].text
	if !strings.HasSuffix(lit, "+") || i+1 == len(frags) {
		return ""
	}
	return lit[:len(lit)-1] + "-"
}

// validTerm returns true if captured operand text contains no reserved
// characters and is not a register name. Register lists may contain
// commas and register names.
func validTerm(term, upper string, f *Field, regs map[string]bool) bool {
	if f != nil && f.List != "" {
		return !strings.ContainsAny(term, reservedChars[1:])
	}
	return !regs[upper] && !strings.ContainsAny(term, reservedChars)
}

// forced returns the size forced by a '<' or '>' marker at the start of
// any captured operand, or 0 if the operands carry no marker.
func forced(args map[byte]string) int {
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, ">"):
			return 2
		case strings.HasPrefix(a, "<"):
			return 1
		}
	}
	return 0
}

// findCandidates returns the opcodes matching text, reduced to those with
// the longest first fragment and then to those with the most fragments.
func (c *CPU) findCandidates(text string) []Candidate {
	c.fragOnce.Do(c.buildFragments)

	norm := normalizeText(text)
	upper := upperASCII(norm)

	var cands []Candidate
	longestFirst := 0
	for _, op := range c.opcodes {
		args, ok := op.matchText(norm, upper, c.hooks.Registers)
		if !ok {
			continue
		}
		cands = append(cands, Candidate{Opcode: op, Args: args})
		if n := len(op.frags[0].text); n > longestFirst {
			longestFirst = n
		}
	}

	mostFrags := 0
	filtered := cands[:0]
	for _, cand := range cands {
		if len(cand.Opcode.frags[0].text) == longestFirst {
			filtered = append(filtered, cand)
			mostFrags = max(mostFrags, len(cand.Opcode.frags))
		}
	}

	cands = filtered[:0]
	for _, cand := range filtered {
		if len(cand.Opcode.frags) == mostFrags {
			cands = append(cands, cand)
		}
	}
	return cands
}

// FindOpcodeForText returns the single opcode that best matches a line
// of instruction text, along with its captured operand text.
func (c *CPU) FindOpcodeForText(text string, ev Evaluator) (Candidate, error) {
	cands := c.findCandidates(text)
	switch len(cands) {
	case 0:
		return Candidate{}, ErrUnknownOpcode
	case 1:
		return cands[0], nil
	}

	if c.hooks.Resolve != nil {
		cand, ok, err := c.hooks.Resolve(cands, ev)
		if err != nil || ok {
			return cand, err
		}
	}

	if len(cands) == 2 && cands[0].Opcode.frags[0].text == cands[1].Opcode.frags[0].text {
		return resolvePair(cands, ev)
	}
	return Candidate{}, ErrMultipleMatches
}

// resolvePair chooses between the short and long forms of an addressing
// mode. A '<' or '>' marker forces the choice. Otherwise the operand's
// current value decides, and an operand that cannot be evaluated yet
// selects the long form.
func resolvePair(cands []Candidate, ev Evaluator) (Candidate, error) {
	sz := 0
	for _, cand := range cands {
		if f := forced(cand.Args); f != 0 {
			sz = f
		}
	}

	if sz == 0 {
		var targ string
		for _, cand := range cands {
			for _, a := range cand.Args {
				switch {
				case targ == "":
					targ = a
				case a != targ:
					return Candidate{}, ErrMultipleMatches
				}
			}
		}
		sz = 2
		if v, err := ev.EvalOperand(targ); err == nil && v < 256 {
			sz = 1
		}
	}

	pick := cands
	var sized []Candidate
	for _, cand := range cands {
		if cand.Opcode.OperandSize() == sz {
			sized = append(sized, cand)
		}
	}
	if len(sized) > 0 {
		pick = sized
	}

	best := pick[0]
	for _, cand := range pick[1:] {
		if cand.Opcode.Length() < best.Opcode.Length() {
			best = cand
		}
	}
	return best, nil
}

// FieldValues evaluates a candidate's captured operand text into field
// values ready for encoding.
func (c *CPU) FieldValues(cand Candidate, ev Evaluator) (map[byte]int, error) {
	values := make(map[byte]int, len(cand.Args))
	for l, text := range cand.Args {
		f := cand.Opcode.fields[l]
		var v int
		var err error
		if f != nil && f.List != "" && c.hooks.ParseOperand != nil {
			v, err = c.hooks.ParseOperand(f, text)
		} else {
			v, err = ev.EvalOperand(text)
		}
		if err != nil {
			return nil, err
		}
		values[l] = v
	}
	return values, nil
}
