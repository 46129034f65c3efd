// Copyright 2018-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host implements an interactive shell over the assembler and
// disassembler. A host has 64K of memory and a current CPU.
//
// Within the host it is possible to assemble source files and load the
// resulting machine code into memory, load raw binaries, disassemble and
// dump the contents of memory, match instruction text against a CPU's
// opcode table, and evaluate arbitrary expressions.
package host

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/beevik/cmd"
	"github.com/beevik/opcodetools/asm"
	"github.com/beevik/opcodetools/cpu"
	"github.com/beevik/opcodetools/disasm"
	"golang.org/x/term"
)

var errQuit = errors.New("exiting program")

// The largest number of bytes any supported instruction occupies, with
// room to spare.
const maxInstructionBytes = 8

// A Host holds the state of an interactive session.
type Host struct {
	output      *bufio.Writer
	interactive bool
	reg         *cpu.Registry
	tools       asm.ToolRegistry
	mem         *memory
	settings    *settings
	lastCmd     *cmd.Selection
	assembly    *asm.Assembly
	sourceMap   *asm.SourceMap
	sources     map[string][]string
}

// New creates a host. Assembly uses the CPUs in reg and the tools in
// tools, which may be nil.
func New(reg *cpu.Registry, tools asm.ToolRegistry) *Host {
	return &Host{
		reg:      reg,
		tools:    tools,
		mem:      newMemory(),
		settings: newSettings(),
		sources:  make(map[string][]string),
	}
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the next command to be entered.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	scanner := bufio.NewScanner(r)
	h.run(w, interactive, func() (string, error) {
		h.prompt()
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	})
}

// RunTerminal runs an interactive session on a terminal, with line
// editing and command history.
func (h *Host) RunTerminal(in *os.File, out io.Writer) error {
	fd := int(in.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, state)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, "* ")
	h.run(t, false, t.ReadLine)
	return nil
}

func (h *Host) run(w io.Writer, interactive bool, getLine func() (string, error)) {
	h.output = bufio.NewWriter(w)
	h.interactive = interactive
	defer h.flush()

	for {
		line, err := getLine()
		if err != nil {
			break
		}
		if err := h.execute(line, true); err != nil {
			break
		}
	}
}

// execute runs a single command line. An empty line repeats the previous
// command when repeat is true.
func (h *Host) execute(line string, repeat bool) error {
	var c cmd.Selection
	if strings.TrimSpace(line) != "" {
		var err error
		c, err = cmds.Lookup(line)
		switch {
		case errors.Is(err, cmd.ErrNotFound):
			h.println("Command not found.")
			return nil
		case errors.Is(err, cmd.ErrAmbiguous):
			h.println("Command is ambiguous.")
			return nil
		case err != nil:
			h.printf("ERROR: %v.\n", err)
			return nil
		}
	} else if repeat && h.lastCmd != nil {
		c = *h.lastCmd
	}

	e := commandOf(c)
	if e == nil {
		return nil
	}
	h.lastCmd = &c
	return e.run(h, c)
}

func commandOf(c cmd.Selection) *command {
	if c.Command == nil {
		return nil
	}
	e, _ := c.Command.Data.(*command)
	return e
}

func (h *Host) print(args ...any) {
	fmt.Fprint(h.output, args...)
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) prompt() {
	if h.interactive {
		h.print("* ")
		h.flush()
	}
}

func (h *Host) cmdAssemble(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".asm"
	}

	opts := []asm.Option{asm.WithTools(h.tools)}
	if len(c.Args) > 1 {
		verbose, err := stringToBool(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		if verbose {
			opts = append(opts, asm.Verbose(h.output))
		}
	}

	assembly, err := asm.New(h.reg, opts...).AssembleFile(filename)
	if err == nil {
		err = h.writeAssembly(filename, assembly)
	}
	if err != nil {
		h.printf("Failed to assemble: %s\n%v\n", filepath.Base(filename), err)
	}
	return nil
}

func (h *Host) writeAssembly(filename string, assembly *asm.Assembly) error {
	code, err := assembly.Binary()
	if err != nil {
		return err
	}

	prefix := strings.TrimSuffix(filename, filepath.Ext(filename))
	binFilename := prefix + ".bin"
	if err := os.WriteFile(binFilename, code, 0644); err != nil {
		return err
	}

	var m bytes.Buffer
	if _, err := assembly.SourceMap.WriteTo(&m); err != nil {
		return err
	}
	if err := os.WriteFile(prefix+".map", m.Bytes(), 0644); err != nil {
		return err
	}

	origin := assembly.Origin()
	if err := h.mem.CopyBytes(origin, code); err != nil {
		return err
	}

	h.assembly, h.sourceMap = assembly, assembly.SourceMap
	if assembly.CPU != nil {
		h.settings.CPU = assembly.CPU.Name
	}
	h.settings.NextDisasmAddr = uint16(origin)
	h.settings.NextMemDumpAddr = uint16(origin)

	h.printf("Assembled '%s' to '%s'.\n", filepath.Base(filename), filepath.Base(binFilename))
	return nil
}

func (h *Host) cmdCPUList(c cmd.Selection) error {
	for _, info := range h.reg.List() {
		mark := ' '
		if info.Name == h.settings.CPU {
			mark = '*'
		}
		h.printf("  %c %-6s %s\n", mark, info.Name, info.Description)
	}
	return nil
}

func (h *Host) cmdCPUOpcodes(c cmd.Selection) error {
	cp, err := h.currentCPU()
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	filter := strings.ToUpper(strings.Join(c.Args, " "))
	for _, op := range cp.Opcodes() {
		if strings.HasPrefix(strings.ToUpper(op.Mnemonic), filter) {
			h.printf("    %-24s %s\n", op.Mnemonic, op.Template())
		}
	}
	return nil
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	cp, err := h.currentCPU()
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	d := disasm.New(cp, disasm.Exact(h.settings.ExactWindow))

	addr := h.settings.NextDisasmAddr
	if len(c.Args) > 0 && c.Args[0] != "$" {
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		n, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(n)
	}

	for i := 0; i < lines; i++ {
		l, err := d.Step(h.mem.Window(addr, maxInstructionBytes), 0, int(addr))
		if err != nil {
			h.printf("%v\n", err)
			break
		}
		if label := h.labelAt(int(addr)); label != "" {
			h.printf("%s:\n", label)
		}
		h.println(l.Text)
		addr += uint16(len(l.Bytes))
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", strconv.Itoa(lines)}
	return nil
}

func (h *Host) cmdEvaluate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	v, err := h.eval(strings.Join(c.Args, " "))
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	h.printf("$%04X (%d)\n", uint16(v), v)
	return nil
}

func (h *Host) cmdExecute(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	file, err := os.Open(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if err := h.execute(scanner.Text(), false); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.println("Commands:")
		for _, e := range commands {
			h.printf("    %-16s %s\n", e.name, e.brief)
		}
		return nil
	}

	name := strings.Join(c.Args, " ")
	if s, err := cmds.Lookup(name); err == nil {
		if e := commandOf(s); e != nil {
			h.printf("Syntax: %s\n\n", e.usage)
			h.printf("Description:\n%s\n\n", indentWrap(3, e.description))
			return nil
		}
	}

	found := false
	for _, e := range commands {
		if strings.HasPrefix(e.name, name+" ") {
			h.printf("    %-16s %s\n", e.name, e.brief)
			found = true
		}
	}
	if !found {
		h.println("Command not found.")
	}
	return nil
}

func (h *Host) cmdLabels(c cmd.Selection) error {
	exports := h.exports()
	if len(exports) == 0 {
		h.println("No labels.")
		return nil
	}
	for _, e := range exports {
		h.printf("%-16s $%04X\n", e.Label, e.Address)
	}
	return nil
}

func (h *Host) cmdList(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}
	if h.sourceMap == nil {
		h.println("No source map loaded.")
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	n := h.settings.SourceLines
	if len(c.Args) > 1 {
		v, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		n = int(v)
	}

	filename, line := h.sourceMap.Search(int(addr))
	if line < 0 {
		h.printf("No source line at $%04X.\n", addr)
		return nil
	}
	src, err := h.sourceLines(filename)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	for i := line; i < line+n && i <= len(src); i++ {
		h.printf("%-5d %s\n", i, src[i-1])
	}
	return nil
}

func (h *Host) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".bin"
	}

	origin := -1
	if len(c.Args) > 1 {
		addr, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		origin = int(addr)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return nil
	}

	mapFilename := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".map"
	if file, err := os.Open(mapFilename); err == nil {
		sm := &asm.SourceMap{}
		_, err = sm.ReadFrom(file)
		file.Close()
		if err != nil {
			h.printf("Failed to read '%s': %v\n", filepath.Base(mapFilename), err)
		} else {
			h.assembly, h.sourceMap = nil, sm
			h.printf("Loaded '%s' source map.\n", filepath.Base(mapFilename))
			if origin < 0 && len(sm.Lines) > 0 {
				origin = sm.Lines[0].Address
			}
		}
	}
	if origin < 0 {
		origin = int(h.settings.Origin)
	}

	if err := h.mem.CopyBytes(origin, data); err != nil {
		h.printf("Failed to load '%s': %v\n", filepath.Base(filename), err)
		return nil
	}
	h.printf("Loaded '%s' to $%04X..$%04X.\n", filepath.Base(filename), origin, origin+len(data)-1)

	h.settings.NextDisasmAddr = uint16(origin)
	h.settings.NextMemDumpAddr = uint16(origin)
	return nil
}

func (h *Host) cmdMatch(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c)
		return nil
	}
	cp, err := h.currentCPU()
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	ev := evaluator{h}
	cand, err := cp.FindOpcodeForText(strings.Join(c.Args, " "), ev)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	op := cand.Opcode
	h.printf("%-24s %s\n", op.Mnemonic, op.Template())

	values, err := cp.FieldValues(cand, ev)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	addr := int(h.settings.NextDisasmAddr)
	code, err := op.Encode(values, addr)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}
	h.println(disasm.Format(addr, code, op.Text(op.Decode(code, addr))))
	return nil
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	addr := h.settings.NextMemDumpAddr
	if len(c.Args) > 0 && c.Args[0] != "$" {
		a, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	n := h.settings.MemDumpBytes
	if len(c.Args) > 1 {
		v, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		n = int(v)
	}

	h.dumpMemory(addr, n)

	h.settings.NextMemDumpAddr = addr + uint16(n)
	h.lastCmd.Args = []string{"$", strconv.Itoa(n)}
	return nil
}

func (h *Host) cmdMemorySet(c cmd.Selection) error {
	if len(c.Args) < 2 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	values := make([]byte, 0, len(c.Args)-1)
	for _, s := range c.Args[1:] {
		v, err := h.parseExpr(s)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		values = append(values, byte(v))
	}
	for i, v := range values {
		h.mem.StoreByte(addr+uint16(i), v)
	}
	h.printf("Stored %d bytes at $%04X.\n", len(values), addr)
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayUsage(c)

	default:
		key, value := c.Args[0], strings.Join(c.Args[1:], " ")

		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting '%s' not found", key)
		case reflect.String:
			err = h.setCPU(key, value)
		case reflect.Bool:
			var v bool
			v, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		default:
			var v int
			v, err = h.eval(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err == nil {
			h.println("Setting updated.")
		} else {
			h.printf("%v\n", err)
		}
	}
	return nil
}

// setCPU sets the CPU setting, the only string setting, to the canonical
// name of a registered CPU.
func (h *Host) setCPU(key, name string) error {
	c, err := h.reg.Get(name)
	if err != nil {
		return err
	}
	return h.settings.Set(key, c.Name)
}

func (h *Host) displayUsage(c cmd.Selection) {
	if e := commandOf(c); e != nil && e.usage != "" {
		h.printf("Syntax: %s\n", e.usage)
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) currentCPU() (*cpu.CPU, error) {
	return h.reg.Get(h.settings.CPU)
}

func (h *Host) parseExpr(expr string) (uint16, error) {
	v, err := h.eval(expr)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func (h *Host) eval(expr string) (int, error) {
	expr = strings.TrimSpace(expr)
	if h.settings.HexMode && isHexString(expr) {
		expr = "$" + expr
	}
	return asm.Eval(expr, h.resolveIdentifier)
}

func (h *Host) resolveIdentifier(s string) (int, error) {
	if h.assembly != nil {
		return h.assembly.Lookup(s)
	}
	for _, e := range h.exports() {
		if strings.EqualFold(e.Label, s) {
			return e.Address, nil
		}
	}
	return 0, fmt.Errorf("identifier '%s' not found", s)
}

func (h *Host) exports() []asm.Export {
	switch {
	case h.assembly != nil:
		return h.assembly.Exports()
	case h.sourceMap != nil:
		return h.sourceMap.Exports
	default:
		return nil
	}
}

func (h *Host) labelAt(addr int) string {
	for _, e := range h.exports() {
		if e.Address == addr {
			return e.Label
		}
	}
	return ""
}

func (h *Host) sourceLines(filename string) ([]string, error) {
	if lines, ok := h.sources[filename]; ok {
		return lines, nil
	}
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	h.sources[filename] = lines
	return lines, nil
}

func (h *Host) dumpMemory(addr0 uint16, n int) {
	if n <= 0 {
		return
	}
	addr1 := min(int(addr0)+n-1, memorySize-1)

	buf := []byte("    -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if addr1-int(addr0) < 8 {
		addrToBuf(addr0, buf[0:4])
		for a, c1, c2 := int(addr0), 6, 32; a <= addr1; a, c1, c2 = a+1, c1+3, c2+1 {
			m := h.mem.LoadByte(uint16(a))
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(string(buf))
		return
	}

	// Align addr0 and addr1 to 8-byte boundaries.
	start := int(addr0) &^ 7
	stop := min((addr1+8)&^7, memorySize)

	for r := start; r < stop; r += 8 {
		addrToBuf(uint16(r), buf[0:4])
		for a, c1, c2 := r, 6, 32; c1 < 29; a, c1, c2 = a+1, c1+3, c2+1 {
			if a >= int(addr0) && a <= addr1 {
				m := h.mem.LoadByte(uint16(a))
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(string(buf))
	}
}

// evaluator resolves the operands of instructions matched by the host.
type evaluator struct {
	h *Host
}

func (e evaluator) EvalOperand(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text != "" && (text[0] == '<' || text[0] == '>') {
		text = text[1:]
	}
	return e.h.eval(text)
}

func (e evaluator) Define(name string) (string, bool) {
	return "", false
}
