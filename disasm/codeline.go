// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrOverlap is returned when code lines rebuilt into a binary overlap.
var ErrOverlap = errors.New("code lines overlap")

// A CodeLine is a line of an annotated disassembly listing, in the form
//
//	ADDR: XX XX XX  MNEMONIC OPERANDS ; comment
//
// Lines without an address keep only their text and comment.
type CodeLine struct {
	Address    int
	HasAddress bool
	Data       []byte
	Mnemonic   string
	Comment    string
	Text       string // the line as read
}

// ParseCodeLine parses one line of a disassembly listing.
func ParseCodeLine(text string) CodeLine {
	c := CodeLine{Text: text}

	body := text
	if i := strings.IndexByte(body, ';'); i >= 0 {
		c.Comment = strings.TrimSpace(body[i+1:])
		body = body[:i]
	}
	body = strings.TrimSpace(body)

	if len(body) < 5 || body[4] != ':' {
		return c
	}
	addr, err := strconv.ParseUint(body[:4], 16, 32)
	if err != nil {
		return c
	}
	c.Address, c.HasAddress = int(addr), true

	body = strings.TrimSpace(body[5:])
	for len(body) >= 2 {
		if len(body) > 2 && body[2] != ' ' {
			break
		}
		v, err := strconv.ParseUint(body[:2], 16, 8)
		if err != nil {
			break
		}
		c.Data = append(c.Data, byte(v))
		body = strings.TrimSpace(body[2:])
	}
	c.Mnemonic = body
	return c
}

// LoadCodeLines reads every line of a disassembly listing.
func LoadCodeLines(r io.Reader) ([]CodeLine, error) {
	var lines []CodeLine
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, ParseCodeLine(strings.TrimRight(scanner.Text(), "\r")))
	}
	return lines, scanner.Err()
}

// Rebuild reassembles the bytes listed in code lines into a binary. Gaps
// between lines are filled with $FF. It returns the address of the first
// byte.
func Rebuild(lines []CodeLine) (origin int, data []byte, err error) {
	var buf bytes.Buffer
	cursor := -1
	for _, c := range lines {
		if !c.HasAddress || len(c.Data) == 0 {
			continue
		}
		if cursor < 0 {
			origin, cursor = c.Address, c.Address
		}
		if c.Address < cursor {
			return 0, nil, fmt.Errorf("%w: $%04X is below $%04X", ErrOverlap, c.Address, cursor)
		}
		buf.Write(bytes.Repeat([]byte{0xff}, c.Address-cursor))
		buf.Write(c.Data)
		cursor = c.Address + len(c.Data)
	}
	return origin, buf.Bytes(), nil
}
