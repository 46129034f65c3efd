// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/opcodetools/cpu"
)

var errToolSize = errors.New("tool data changed size between passes")

// DefaultToolFunction is the function a .tool directive calls when it
// does not name one.
const DefaultToolFunction = "doAsmTool"

// A Tool generates the data for a .tool line from the text of its block.
// It is called once per pass and sets line.Data. Data it produces during
// the first pass must have the same length as the final data.
type Tool func(ctx ToolContext, line *Line, pass int, block []string) error

// A ToolRegistry resolves the module and function named by a .tool
// directive. It returns an error wrapping ErrUnknownTool if no such tool
// exists.
type ToolRegistry interface {
	Lookup(module, function string, line *Line) (Tool, error)
}

// ToolContext is the assembler state available to a tool.
type ToolContext interface {
	// Address returns the address of the .tool line.
	Address() int

	// Eval evaluates a numeric expression.
	Eval(text string) (int, error)

	// CPU returns the selected CPU, or nil.
	CPU() *cpu.CPU

	// Value and SetValue hold state that tools share across lines for
	// the duration of one assembly.
	Value(key string) any
	SetValue(key string, v any)
}

type toolContext struct {
	a *Assembler
}

func (c toolContext) Address() int                  { return c.a.addr }
func (c toolContext) Eval(text string) (int, error) { return c.a.eval(text) }
func (c toolContext) CPU() *cpu.CPU                 { return c.a.cpu }
func (c toolContext) Value(key string) any          { return c.a.values[key] }
func (c toolContext) SetValue(key string, v any)    { c.a.values[key] = v }

// handleTool runs the tool named on lines[i] and returns the index of the
// line that closes its block.
func (a *Assembler) handleTool(lines []*Line, i int) (int, error) {
	l := lines[i]

	end := -1
	for j := i + 1; j < len(lines); j++ {
		if strings.TrimSpace(lines[j].Original) == "}" {
			end = j
			break
		}
	}
	if end < 0 {
		return 0, a.lineError(l, ErrToolBlock, "")
	}

	if a.pass == 0 {
		l.block = l.block[:0]
		for _, b := range lines[i+1 : end] {
			l.block = append(l.block, b.Original)
		}
		for _, b := range lines[i+1 : end+1] {
			b.Kind, b.parsed = KindBlock, true
		}
	}

	args := strings.Fields(l.argument())
	if len(args) > 0 && args[len(args)-1] == "{" {
		args = args[:len(args)-1]
	}
	if len(args) == 0 {
		return 0, a.lineError(l, ErrUnknownTool, "missing module name")
	}
	module, function := args[0], DefaultToolFunction
	if len(args) > 1 {
		function = args[1]
	}

	if a.tools == nil {
		return 0, a.lineError(l, ErrUnknownTool, module)
	}
	tool, err := a.tools.Lookup(module, function, l)
	if err != nil {
		if errors.Is(err, ErrUnknownTool) {
			return 0, &Error{Kind: ErrUnknownTool, Line: l, Detail: module + "." + function}
		}
		return 0, &Error{Kind: ErrTool, Line: l, Detail: err.Error(), Err: err}
	}

	if a.pass == 0 {
		l.Data = nil
	}
	if err := tool(toolContext{a}, l, a.pass, l.block); err != nil {
		return 0, &Error{Kind: ErrTool, Line: l, Detail: err.Error(), Err: err}
	}

	// Addresses after the block were computed from the first pass's size.
	if a.pass == 0 {
		l.toolSize = len(l.Data)
	} else if len(l.Data) != l.toolSize {
		detail := fmt.Sprintf("%d bytes in the first pass, %d in the second", l.toolSize, len(l.Data))
		return 0, &Error{Kind: ErrTool, Line: l, Detail: detail, Err: errToolSize}
	}
	l.HasData = true
	a.logLine(l, "tool=%s.%s", module, function)
	return end, nil
}
