// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"

	"github.com/beevik/opcodetools/cpu"
)

// A Kind identifies what a source line contains.
type Kind byte

// Line kinds.
const (
	KindEmpty       Kind = iota // blank, comment-only or label-only
	KindDefine                  // .name = expr
	KindData                    // . list, .byte list, .word list
	KindInstruction             // an opcode line
	KindTool                    // .tool module [function]
	KindCPUSelect               // .CPU name
	KindBlock                   // part of a tool's text block
)

var kindNames = []string{
	"empty", "define", "data", "instruction", "tool", "cpu", "block",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// A Line is a single line of assembly source. The loader fills in its
// location and text. The assembler classifies it and fills in its
// address and data.
type Line struct {
	File     string // path of the file containing the line
	Number   int    // 1-based line number
	Original string // the line as read from the file

	Text  string // text with the comment and label removed
	Label string // label text without the trailing colon
	Kind  Kind

	Address    int
	HasAddress bool
	Data       []byte
	HasData    bool

	parsed   bool
	cand     *cpu.Candidate // opcode selected during the first pass
	block    []string       // text of a tool's block
	toolSize int            // length of a tool's first-pass data
}

// A numeric label sets the origin rather than naming an address.
func (l *Line) isOrigin() (int, bool) {
	if l.Label == "" || !decimal(l.Label[0]) && l.Label[0] != '$' {
		return 0, false
	}
	v, remain, err := parseNumber(newFstring(l.Label))
	if err != nil || !remain.isEmpty() {
		return 0, false
	}
	return v, true
}

// parse splits the label from the line and classifies what remains.
func (l *Line) parse() error {
	l.parsed = true

	text := newFstring(l.Original).consumeWhitespace().stripTrailingComment()
	first, _ := text.consumeWhile(wordChar)
	if strings.HasSuffix(first.str, ":") {
		l.Label = strings.TrimSuffix(first.str, ":")
		text = text.consume(len(first.str)).consumeWhitespace()
	}
	l.Text = text.str

	switch {
	case l.Text == "":
		l.Kind = KindEmpty
	case l.Text[0] != '.':
		l.Kind = KindInstruction
	default:
		keyword, _ := text.consumeWhile(wordChar)
		switch kw := strings.ToLower(keyword.str); {
		case kw == ".cpu":
			l.Kind = KindCPUSelect
		case kw == ".tool":
			l.Kind = KindTool
		case kw == "." || kw == ".byte" || kw == ".word":
			l.Kind = KindData
		case strings.Contains(l.Text, "="):
			l.Kind = KindDefine
		default:
			return ErrUnknownDirective
		}
	}
	return nil
}

// argument returns the text that follows a directive's keyword.
func (l *Line) argument() string {
	_, rest := newFstring(l.Text).consumeWhile(wordChar)
	return rest.consumeWhitespace().str
}
