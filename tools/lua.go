// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/opcodetools/asm"
	lua "github.com/yuin/gopher-lua"
)

var (
	errLuaFunction = errors.New("lua function not found")
	errLuaResult   = errors.New("lua tool must return a table of bytes")
	errLuaScript   = errors.New("lua tool block must start with a script path")
)

// luaBlockTool runs the script named on the first line of the block,
// passing it the remaining lines.
func luaBlockTool(function string) asm.Tool {
	return func(ctx asm.ToolContext, line *asm.Line, pass int, block []string) error {
		if len(block) == 0 || strings.TrimSpace(block[0]) == "" {
			return errLuaScript
		}
		path := relativePath(line, strings.TrimSpace(block[0]))
		return luaTool(path, function)(ctx, line, pass, block[1:])
	}
}

// luaTool returns a tool that calls a function in a Lua script. The
// function receives the pass number and a table of block lines, and
// returns a table of byte values. A nil result leaves the line's data
// unchanged.
//
// The script can read the global "address" and "cpu", and call
// eval(expr) to evaluate an assembler expression.
func luaTool(path, function string) asm.Tool {
	return func(ctx asm.ToolContext, line *asm.Line, pass int, block []string) error {
		L := lua.NewState()
		defer L.Close()

		L.SetGlobal("address", lua.LNumber(ctx.Address()))
		if c := ctx.CPU(); c != nil {
			L.SetGlobal("cpu", lua.LString(c.Name))
		}
		L.SetGlobal("eval", L.NewFunction(func(L *lua.LState) int {
			v, err := ctx.Eval(L.CheckString(1))
			if err != nil {
				L.RaiseError("%v", err)
				return 0
			}
			L.Push(lua.LNumber(v))
			return 1
		}))

		if err := L.DoFile(path); err != nil {
			return err
		}
		fn := L.GetGlobal(function)
		if fn.Type() != lua.LTFunction {
			return fmt.Errorf("%w: %s in %s", errLuaFunction, function, path)
		}

		lines := L.NewTable()
		for _, b := range block {
			lines.Append(lua.LString(b))
		}
		err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LNumber(pass), lines)
		if err != nil {
			return err
		}
		ret := L.Get(-1)
		L.Pop(1)

		if ret == lua.LNil {
			return nil
		}
		t, ok := ret.(*lua.LTable)
		if !ok {
			return errLuaResult
		}
		data := make([]byte, 0, t.Len())
		for i := 1; i <= t.Len(); i++ {
			n, ok := t.RawGetInt(i).(lua.LNumber)
			if !ok || n < 0 || n > 255 || n != lua.LNumber(int(n)) {
				return fmt.Errorf("%w: element %d is %v", errLuaResult, i, t.RawGetInt(i))
			}
			data = append(data, byte(n))
		}
		line.Data = data
		return nil
	}
}
