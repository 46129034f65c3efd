// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	errExprSyntax   = errors.New("expression syntax error")
	errParens       = errors.New("mismatched parentheses")
	errDivideByZero = errors.New("divide by zero")
	errUndefined    = errors.New("undefined symbol")
)

// Eval evaluates a numeric expression. Identifiers are resolved with
// lookup, which may be nil if the expression uses none.
func Eval(text string, lookup func(name string) (int, error)) (int, error) {
	if lookup == nil {
		lookup = func(name string) (int, error) {
			return 0, fmt.Errorf("%w '%s'", errUndefined, name)
		}
	}

	var p exprParser
	e, err := p.parse(newFstring(strings.TrimSpace(text)))
	if err != nil {
		return 0, err
	}
	return e.eval(lookup)
}

//
// exprOp
//

type exprOp byte

const (
	// operators in descending order of precedence

	// unary operations
	opUnaryMinus exprOp = iota
	opUnaryPlus
	opBitwiseNEG

	// binary operations
	opMultiply
	opDivide
	opModulo
	opAdd
	opSubtract
	opShiftLeft
	opShiftRight
	opBitwiseAND
	opBitwiseXOR
	opBitwiseOR

	// value "operations"
	opNumber
	opIdentifier

	// pseudo-operations (used only during parsing but not stored in expr's)
	opLeftParen
	opRightParen
)

type opdata struct {
	precedence      byte
	binary          bool
	leftAssociative bool
	symbol          string
	eval            func(a, b int) int
}

var ops = []opdata{
	// unary and binary operations
	{7, false, false, "-", func(a, b int) int { return -a }},           // uminus
	{7, false, false, "+", func(a, b int) int { return a }},            // uplus
	{7, false, false, "~", func(a, b int) int { return ^a }},           // bitneg
	{6, true, true, "*", func(a, b int) int { return a * b }},          // multiply
	{6, true, true, "/", func(a, b int) int { return a / b }},          // divide
	{6, true, true, "%", func(a, b int) int { return a % b }},          // modulo
	{5, true, true, "+", func(a, b int) int { return a + b }},          // add
	{5, true, true, "-", func(a, b int) int { return a - b }},          // subtract
	{4, true, true, "<<", func(a, b int) int { return a << uint(b) }},  // shift_left
	{4, true, true, ">>", func(a, b int) int { return a >> uint(b) }},  // shift_right
	{3, true, true, "&", func(a, b int) int { return a & b }},          // and
	{2, true, true, "^", func(a, b int) int { return a ^ b }},          // xor
	{1, true, true, "|", func(a, b int) int { return a | b }},          // or

	// value operations
	{0, false, false, "", nil}, // number
	{0, false, false, "", nil}, // identifier

	// pseudo-operations
	{0, false, false, "", nil}, // lparen
	{0, false, false, "", nil}, // rparen
}

func (op exprOp) isBinary() bool {
	return ops[op].binary
}

func (op exprOp) symbol() string {
	return ops[op].symbol
}

func (op exprOp) isCollapsible() bool {
	return ops[op].precedence > 0
}

// Compare the precendence and associativity of 'op' to 'other'.
// Return true if the shunting yard algorithm should cause an
// expression node collapse.
func (op exprOp) collapses(other exprOp) bool {
	if ops[op].leftAssociative {
		return ops[op].precedence <= ops[other].precedence
	}
	return ops[op].precedence < ops[other].precedence
}

//
// expr
//

// An expr represents a single node in a binary expression tree.
// The root node represents an entire expression.
type expr struct {
	number     int
	identifier string
	op         exprOp
	child0     *expr
	child1     *expr
}

// Return the expression as a postfix notation string.
func (e *expr) String() string {
	switch {
	case e.op == opNumber:
		return fmt.Sprintf("%d", e.number)
	case e.op == opIdentifier:
		return e.identifier
	case e.op.isBinary():
		return fmt.Sprintf("%s %s %s", e.child0.String(), e.child1.String(), e.op.symbol())
	default:
		return fmt.Sprintf("%s [%s]", e.child0.String(), e.op.symbol())
	}
}

// Evaluate the expression tree. Identifiers are resolved by the lookup
// function.
func (e *expr) eval(lookup func(name string) (int, error)) (int, error) {
	switch {
	case e.op == opNumber:
		return e.number, nil

	case e.op == opIdentifier:
		return lookup(e.identifier)

	case e.op.isBinary():
		a, err := e.child0.eval(lookup)
		if err != nil {
			return 0, err
		}
		b, err := e.child1.eval(lookup)
		if err != nil {
			return 0, err
		}
		if (e.op == opDivide || e.op == opModulo) && b == 0 {
			return 0, errDivideByZero
		}
		return ops[e.op].eval(a, b), nil

	default:
		a, err := e.child0.eval(lookup)
		if err != nil {
			return 0, err
		}
		return ops[e.op].eval(a, 0), nil
	}
}

//
// token
//

type tokentype byte

const (
	tokenNil tokentype = iota
	tokenOp
	tokenNumber
	tokenIdentifier
	tokenLeftParen
	tokenRightParen
)

func (tt tokentype) isValue() bool {
	return tt == tokenNumber || tt == tokenIdentifier
}

type token struct {
	tt         tokentype
	number     int
	identifier string
	op         exprOp
}

//
// exprParser
//

type exprParser struct {
	operandStack  exprStack
	operatorStack opStack
	parenCounter  int
	prevToken     token
}

// Parse an expression from the line until it is exhausted.
func (p *exprParser) parse(line fstring) (e *expr, err error) {
	defer p.reset()
	p.prevToken = token{}

	// Process expression using Dijkstra's shunting-yard algorithm
	line = line.consumeWhitespace()
	for {
		// Parse the next expression token
		var t token
		t, line, err = p.parseToken(line)
		if err != nil {
			return nil, err
		}

		// We're done when the token parser returns the nil token
		if t.tt == tokenNil {
			break
		}

		// Handle each possible token type
		switch t.tt {

		case tokenNumber:
			p.operandStack.push(&expr{op: opNumber, number: t.number})

		case tokenIdentifier:
			p.operandStack.push(&expr{op: opIdentifier, identifier: t.identifier})

		case tokenOp:
			for !p.operatorStack.empty() && t.op.collapses(p.operatorStack.peek()) {
				if err := p.operandStack.collapse(p.operatorStack.pop()); err != nil {
					return nil, err
				}
			}
			p.operatorStack.push(t.op)

		case tokenLeftParen:
			p.operatorStack.push(opLeftParen)

		case tokenRightParen:
			for {
				if p.operatorStack.empty() {
					return nil, errParens
				}
				op := p.operatorStack.pop()
				if op == opLeftParen {
					break
				}
				if err := p.operandStack.collapse(op); err != nil {
					return nil, err
				}
			}
		}
	}

	// Collapse any operators (and operands) remaining on the stack
	for !p.operatorStack.empty() {
		if err := p.operandStack.collapse(p.operatorStack.pop()); err != nil {
			return nil, err
		}
	}

	if len(p.operandStack.data) != 1 {
		return nil, errExprSyntax
	}
	return p.operandStack.peek(), nil
}

// Attempt to parse the next token from the line.
func (p *exprParser) parseToken(line fstring) (t token, out fstring, err error) {
	if line.isEmpty() {
		return token{tt: tokenNil}, line, nil
	}

	switch {

	case line.startsWith(decimal) || line.startsWithChar('$') || line.startsWithChar('\''):
		if p.prevToken.tt.isValue() || p.prevToken.tt == tokenRightParen {
			return t, line, errExprSyntax
		}
		t.tt = tokenNumber
		t.number, out, err = parseNumber(line)
		if err != nil {
			return t, line, err
		}

	case line.startsWithChar('('):
		p.parenCounter++
		t.tt, t.op = tokenLeftParen, opLeftParen
		out = line.consume(1)

	case line.startsWithChar(')'):
		if p.parenCounter == 0 {
			return t, line, errParens
		}
		p.parenCounter--
		t.tt, t.op, out = tokenRightParen, opRightParen, line.consume(1)

	case line.startsWith(identifierStartChar):
		if p.prevToken.tt.isValue() || p.prevToken.tt == tokenRightParen {
			return t, line, errExprSyntax
		}
		var id fstring
		id, out = line.consumeWhile(identifierChar)
		t.tt, t.identifier = tokenIdentifier, id.str

	default:
		for i, o := range ops {
			if o.symbol != "" && line.startsWithString(o.symbol) {
				afterValue := p.prevToken.tt.isValue() || p.prevToken.tt == tokenRightParen
				if o.binary == afterValue {
					t.tt, t.op, out = tokenOp, exprOp(i), line.consume(len(o.symbol))
					break
				}
			}
		}
		if t.tt != tokenOp {
			return t, line, errExprSyntax
		}
	}

	p.prevToken = t
	out = out.consumeWhitespace()
	return t, out, nil
}

// Parse a number from the line. The following numeric formats are allowed:
//
//	[0-9]+             Decimal number
//	$[0-9a-fA-F]+      Hexadecimal number
//	0x[0-9a-fA-F]+     Hexadecimal number
//	0b[01]+            Binary number
//	'c'                Character code
func parseNumber(line fstring) (value int, remain fstring, err error) {
	if line.startsWithChar('\'') {
		if len(line.str) < 3 || line.str[2] != '\'' {
			return 0, line, errExprSyntax
		}
		return int(line.str[1]), line.consume(3), nil
	}

	// Select decimal, hexadecimal or binary depending on the prefix
	base, fn := 10, decimal
	switch {
	case line.startsWithChar('$'):
		line = line.consume(1)
		base, fn = 16, hexadecimal
	case line.startsWithString("0x") || line.startsWithString("0X"):
		line = line.consume(2)
		base, fn = 16, hexadecimal
	case line.startsWithString("0b") || line.startsWithString("0B"):
		line = line.consume(2)
		base, fn = 2, binarynum
	}

	// Consume the number and update the remaining line
	numstr, remain := line.consumeWhile(fn)
	if remain.startsWith(identifierChar) {
		return 0, remain, errExprSyntax
	}

	num64, err := strconv.ParseInt(numstr.str, base, 64)
	if err != nil {
		return 0, remain, errExprSyntax
	}
	return int(num64), remain, nil
}

func (p *exprParser) reset() {
	p.operandStack.data, p.operatorStack.data = nil, nil
	p.parenCounter = 0
}

//
// exprStack
//

type exprStack struct {
	data []*expr
}

func (s *exprStack) empty() bool {
	return len(s.data) == 0
}

func (s *exprStack) push(e *expr) {
	s.data = append(s.data, e)
}

func (s *exprStack) pop() *expr {
	l := len(s.data)
	e := s.data[l-1]
	s.data = s.data[:l-1]
	return e
}

func (s *exprStack) peek() *expr {
	if len(s.data) == 0 {
		return nil
	}
	return s.data[len(s.data)-1]
}

// Collapse one or more expression nodes on the top of the
// stack into a combined expression node, and push the combined
// node back onto the stack.
func (s *exprStack) collapse(op exprOp) error {
	switch {
	case !op.isCollapsible():
		return errParens
	case op.isBinary():
		if len(s.data) < 2 {
			return errExprSyntax
		}
		s.push(&expr{op: op, child1: s.pop(), child0: s.pop()})
	default:
		if s.empty() {
			return errExprSyntax
		}
		s.push(&expr{op: op, child0: s.pop()})
	}
	return nil
}

//
// opStack
//

type opStack struct {
	data []exprOp
}

func (s *opStack) push(op exprOp) {
	s.data = append(s.data, op)
}

func (s *opStack) pop() exprOp {
	op := s.data[len(s.data)-1]
	s.data = s.data[0 : len(s.data)-1]
	return op
}

func (s *opStack) empty() bool {
	return len(s.data) == 0
}

func (s *opStack) peek() exprOp {
	return s.data[len(s.data)-1]
}
