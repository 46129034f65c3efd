// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors returned while encoding operand values.
var (
	ErrValueOutOfRange     = errors.New("value out of range")
	ErrDestinationTooFar   = fmt.Errorf("destination is too far away: %w", ErrValueOutOfRange)
	ErrTable               = errors.New("invalid opcode table entry")
	errUnknownField        = errors.New("unknown field")
	errBadCodeToken        = errors.New("bad code token")
	errMissingFirstLiteral = errors.New("first code byte must be a literal")
)

// An EncodeError describes an operand value that could not be encoded
// into an opcode's binary template.
type EncodeError struct {
	Opcode *Opcode
	Field  byte
	Value  int
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s: field '%c' value %d: %v", e.Opcode.Mnemonic, e.Field, e.Value, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// opcodeData is one row of a CPU's declarative opcode table.
type opcodeData struct {
	mnemonic string // pattern with lower-case substitution letters
	code     string // byte, field-byte and bit-pattern tokens
	use      string // comma-separated "letter=qual_qual" entries
}

// A Field is a named operand slot shared by an opcode's mnemonic pattern
// and its binary template.
type Field struct {
	Letter byte
	Width  int             // width in bits
	Size   int             // size in bytes
	Quals  map[string]bool // qualifiers from the table's use column
	PCR    bool            // value is encoded relative to the next instruction
	Signed bool            // value is a signed offset
	Page11 bool            // 8051 11-bit page-relative address
	List   string          // register-list kind (pair, pshs, puls, ...)
}

// Has returns true if the field carries the qualifier q.
func (f *Field) Has(q string) bool {
	return f.Quals[q]
}

// bitRef identifies one bit of a field.
type bitRef struct {
	letter byte
	bit    int8
}

// codeByte is one byte of an opcode's binary template. Bits set in mask
// are literal and must equal the corresponding bits of value. The
// remaining bits belong to fields.
type codeByte struct {
	mask  byte
	value byte
	refs  [8]bitRef // indexed by bit position, valid where mask is clear
}

// literal returns true if every bit of the code byte is fixed.
func (c *codeByte) literal() bool {
	return c.mask == 0xff
}

// An Opcode is a single instruction form: a mnemonic pattern, a binary
// template and the fields that connect them.
type Opcode struct {
	Mnemonic string
	Use      string
	CPU      *CPU

	code   []codeByte
	fields map[byte]*Field
	order  []byte // field letters in order of first appearance in code
	frags  []fragment
}

// Length returns the length of the opcode's binary encoding in bytes.
func (op *Opcode) Length() int {
	return len(op.code)
}

// Field returns the field with the given letter, or nil.
func (op *Opcode) Field(letter byte) *Field {
	return op.fields[letter]
}

// Fields returns the opcode's fields in template order.
func (op *Opcode) Fields() []*Field {
	fields := make([]*Field, 0, len(op.order))
	for _, l := range op.order {
		fields = append(fields, op.fields[l])
	}
	return fields
}

// OperandSize returns the total number of bytes occupied by fields.
func (op *Opcode) OperandSize() int {
	n := 0
	for _, f := range op.fields {
		n += f.Size
	}
	return n
}

// Template returns the opcode's binary template in table notation, one
// token per byte.
func (op *Opcode) Template() string {
	var tokens []string
	for _, c := range op.code {
		if c.literal() {
			tokens = append(tokens, fmt.Sprintf("%02X", c.value))
			continue
		}
		var b strings.Builder
		for bit := 7; bit >= 0; bit-- {
			switch {
			case c.mask&(1<<bit) == 0:
				b.WriteByte(c.refs[bit].letter)
			case c.value&(1<<bit) != 0:
				b.WriteByte('1')
			default:
				b.WriteByte('0')
			}
		}
		tokens = append(tokens, b.String())
	}
	return strings.Join(tokens, " ")
}

// FirstByteMatches returns true if b could be the first byte of this
// opcode's encoding.
func (op *Opcode) FirstByteMatches(b byte) bool {
	return b&op.code[0].mask == op.code[0].value
}

// MatchBytes returns true if the window is long enough to hold the
// opcode and every literal bit of the template matches it.
func (op *Opcode) MatchBytes(window []byte) bool {
	if len(window) < len(op.code) {
		return false
	}
	for i, c := range op.code {
		if window[i]&c.mask != c.value {
			return false
		}
	}
	return true
}

// Encode converts a set of field values into the opcode's binary form
// for an instruction located at address. Fields missing from values
// encode as zero.
func (op *Opcode) Encode(values map[byte]int, address int) ([]byte, error) {
	raw := make(map[byte]uint64, len(op.fields))
	next := address + len(op.code)
	for l, f := range op.fields {
		v := values[l]
		enc, err := f.encode(v, next)
		if err != nil {
			return nil, &EncodeError{Opcode: op, Field: l, Value: v, Err: err}
		}
		raw[l] = enc
	}

	out := make([]byte, len(op.code))
	for i, c := range op.code {
		b := c.value
		for bit := 0; bit < 8; bit++ {
			if c.mask&(1<<bit) != 0 {
				continue
			}
			ref := c.refs[bit]
			if raw[ref.letter]&(1<<uint(ref.bit)) != 0 {
				b |= 1 << bit
			}
		}
		out[i] = b
	}
	return out, nil
}

// encode range-checks a field value and returns the raw bits to place in
// the template. next is the address of the following instruction.
func (f *Field) encode(v, next int) (uint64, error) {
	w := uint(f.Width)
	mask := uint64(1)<<w - 1
	switch {
	case f.PCR:
		d := v - next
		if d < -(1<<(w-1)) || d >= 1<<(w-1) {
			return 0, ErrDestinationTooFar
		}
		return uint64(d) & mask, nil
	case f.Page11:
		if v&^0x7ff != next&^0x7ff {
			return 0, ErrDestinationTooFar
		}
		return uint64(v) & mask, nil
	case f.Signed:
		if v < -(1<<(w-1)) || v >= 1<<(w-1) {
			return 0, ErrValueOutOfRange
		}
		return uint64(v) & mask, nil
	default:
		if v < -(1<<(w-1)) || v >= 1<<w {
			return 0, ErrValueOutOfRange
		}
		return uint64(v) & mask, nil
	}
}

// A Fill holds a decoded field value. For relative and paged fields,
// Target holds the absolute address the value refers to.
type Fill struct {
	Value    int
	Target   int
	Relative bool
	Width    int
}

// Decode extracts field values from a byte window holding the opcode's
// encoding at address. The window must satisfy MatchBytes.
func (op *Opcode) Decode(window []byte, address int) map[byte]Fill {
	raw := make(map[byte]uint64, len(op.fields))
	for i, c := range op.code {
		for bit := 0; bit < 8; bit++ {
			if c.mask&(1<<bit) != 0 || window[i]&(1<<bit) == 0 {
				continue
			}
			ref := c.refs[bit]
			raw[ref.letter] |= 1 << uint(ref.bit)
		}
	}

	next := address + len(op.code)
	fills := make(map[byte]Fill, len(op.fields))
	for l, f := range op.fields {
		v := int(raw[l])
		fill := Fill{Value: v, Target: v, Width: f.Width}
		switch {
		case f.PCR:
			fill.Relative = true
			fill.Target = (next + signExtend(v, f.Width)) & 0xffff
		case f.Page11:
			fill.Relative = true
			fill.Target = next&^0x7ff | v
		case f.Signed:
			fill.Value = signExtend(v, f.Width)
			fill.Target = fill.Value
		}
		fills[l] = fill
	}
	return fills
}

func signExtend(v, width int) int {
	if v&(1<<(width-1)) != 0 {
		return v - 1<<width
	}
	return v
}

var knownQuals = map[string]bool{
	"s1": true, "s2": true,
	"r": true, "w": true, "rw": true,
	"const": true, "data": true, "code": true, "port": true,
	"pcr": true, "signed": true,
	"bit": true, "11": true,
	"bp": true, "pair": true, "pshs": true, "puls": true, "pshu": true, "pulu": true,
	"rev": true,
}

var listQuals = []string{"pair", "pshs", "puls", "pshu", "pulu"}

// newOpcode parses one table row into an opcode.
func newOpcode(d opcodeData, littleEndian bool) (*Opcode, error) {
	op := &Opcode{
		Mnemonic: d.mnemonic,
		Use:      d.use,
		fields:   make(map[byte]*Field),
	}

	quals, err := parseUse(d.use)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTable, d.mnemonic, err)
	}

	// Expand the code column into per-byte patterns of 8 characters, each
	// character being '0', '1' or a field letter.
	// For bit patterns, ord holds each letter character's occurrence
	// number in the order the code column is written, which is not the
	// order of the bytes once a word is stored little-endian.
	type bytePattern struct {
		lit    bool
		pat    string
		ord    [8]int
		letter byte
		index  int
	}
	var pats []bytePattern
	bitCount := make(map[byte]int)
	bitPattern := func(pat string) bytePattern {
		p := bytePattern{pat: pat}
		for i := 0; i < 8; i++ {
			if ch := pat[i]; isLower(ch) {
				p.ord[i] = bitCount[ch]
				bitCount[ch]++
			}
		}
		return p
	}
	for i, tok := range strings.Fields(d.code) {
		tok = strings.ReplaceAll(tok, "_", "")
		switch {
		case len(tok) == 2 && isLower(tok[0]) && (tok[1] == tok[0] || isDigit(tok[1])):
			if i == 0 {
				return nil, fmt.Errorf("%w: %s: %w", ErrTable, d.mnemonic, errMissingFirstLiteral)
			}
			idx := 0
			if isDigit(tok[1]) {
				idx = int(tok[1] - '0')
			}
			pats = append(pats, bytePattern{letter: tok[0], index: idx})
		case len(tok) == 2 && isHex(tok):
			v, _ := strconv.ParseUint(tok, 16, 8)
			pats = append(pats, bytePattern{lit: true, pat: fmt.Sprintf("%08b", v)})
		case len(tok) == 8 && isBitPattern(tok):
			pats = append(pats, bitPattern(tok))
		case len(tok) == 16 && isBitPattern(tok):
			hi := bitPattern(tok[:8])
			lo := bitPattern(tok[8:])
			if littleEndian {
				pats = append(pats, lo, hi)
			} else {
				pats = append(pats, hi, lo)
			}
		default:
			return nil, fmt.Errorf("%w: %s: %w %q", ErrTable, d.mnemonic, errBadCodeToken, tok)
		}
	}
	if len(pats) == 0 {
		return nil, fmt.Errorf("%w: %s: empty code", ErrTable, d.mnemonic)
	}

	byteMax := make(map[byte]int)
	for _, p := range pats {
		if !p.lit && p.pat == "" && p.index+1 > byteMax[p.letter] {
			byteMax[p.letter] = p.index + 1
		}
	}

	addField := func(l byte) {
		if _, ok := op.fields[l]; ok {
			return
		}
		op.fields[l] = &Field{Letter: l, Quals: quals[l]}
		op.order = append(op.order, l)
	}

	for _, p := range pats {
		var c codeByte
		switch {
		case p.lit:
			v, _ := strconv.ParseUint(p.pat, 2, 8)
			c.mask, c.value = 0xff, byte(v)
		case p.pat == "":
			addField(p.letter)
			for bit := 0; bit < 8; bit++ {
				c.refs[bit] = bitRef{p.letter, int8(p.index*8 + bit)}
			}
		default:
			for i := 0; i < 8; i++ {
				bit := 7 - i
				ch := p.pat[i]
				switch ch {
				case '0':
					c.mask |= 1 << bit
				case '1':
					c.mask |= 1 << bit
					c.value |= 1 << bit
				default:
					// Bits are numbered from most significant down in
					// written order, or from least significant with rev.
					addField(ch)
					n := p.ord[i]
					idx := bitCount[ch] - 1 - n
					if quals[ch]["rev"] {
						idx = n
					}
					c.refs[bit] = bitRef{ch, int8(idx)}
				}
			}
		}
		op.code = append(op.code, c)
	}

	for i := 0; i < len(d.mnemonic); i++ {
		if l := d.mnemonic[i]; isLower(l) && op.fields[l] == nil {
			return nil, fmt.Errorf("%w: %s: %w '%c'", ErrTable, d.mnemonic, errUnknownField, l)
		}
	}
	for l := range quals {
		if _, ok := op.fields[l]; !ok {
			return nil, fmt.Errorf("%w: %s: %w '%c'", ErrTable, d.mnemonic, errUnknownField, l)
		}
	}

	for l, f := range op.fields {
		f.Width = 8*byteMax[l] + bitCount[l]
		f.Size = (f.Width + 7) / 8
		switch {
		case f.Has("s2"):
			f.Size = 2
		case f.Has("s1"):
			f.Size = 1
		}
		f.PCR = f.Has("pcr")
		f.Signed = f.Has("signed")
		f.Page11 = f.Has("11")
		for _, q := range listQuals {
			if f.Has(q) {
				f.List = q
			}
		}
	}

	return op, nil
}

// parseUse parses a use column such as "a=data_r,r=code_pcr".
func parseUse(use string) (map[byte]map[string]bool, error) {
	quals := make(map[byte]map[string]bool)
	for _, entry := range strings.Split(use, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, qs, ok := strings.Cut(entry, "=")
		if !ok || len(name) != 1 || !isLower(name[0]) {
			return nil, fmt.Errorf("bad use entry %q", entry)
		}
		m := make(map[string]bool)
		for _, q := range strings.Split(qs, "_") {
			if !knownQuals[q] {
				return nil, fmt.Errorf("unknown qualifier %q", q)
			}
			m[q] = true
		}
		quals[name[0]] = m
	}
	return quals, nil
}

func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isDigit(c) && !(c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func isBitPattern(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '0' && s[i] != '1' && !isLower(s[i]) {
			return false
		}
	}
	return true
}
